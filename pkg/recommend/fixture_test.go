package recommend

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dineflow/pkg/cache"
	"dineflow/pkg/catalog"
	catalogmem "dineflow/pkg/catalog/memory"
	"dineflow/pkg/order"
	ordermem "dineflow/pkg/order/memory"
)

var fixtureItems = []catalog.Item{
	{ID: "pizza-1", Name: "Margherita", Price: 11, CategoryID: "mains", Active: true, Available: true},
	{ID: "soda-2", Name: "Cola", Price: 2.5, CategoryID: "drinks", Active: true, Available: true},
	{ID: "salad-3", Name: "Side Salad", Price: 4, CategoryID: "sides", Active: true, Available: true},
	{ID: "burger-4", Name: "Burger", Price: 12, CategoryID: "mains", Active: true, Available: true},
	{ID: "fries-5", Name: "Fries", Price: 3.5, CategoryID: "sides", Active: true, Available: true},
	{ID: "cocoa-6", Name: "Hot Cocoa", Price: 3, CategoryID: "winter", Active: true, Available: true},
	{ID: "lemonade-7", Name: "Lemonade", Price: 3, CategoryID: "summer", Active: true, Available: true},
	{ID: "stew-8", Name: "Beef Stew", Price: 14, CategoryID: "winter", Active: false, Available: true},
	{ID: "icecream-9", Name: "Ice Cream", Price: 5, CategoryID: "summer", Active: true, Available: false},
}

func fixtureOrders() []order.Order {
	lines := func(ids ...string) []order.Line {
		out := make([]order.Line, len(ids))
		for i, id := range ids {
			out[i] = order.Line{ItemID: id, Quantity: 1}
		}
		return out
	}
	return []order.Order{
		{ID: "o1", CustomerID: "c1", Lines: lines("pizza-1", "soda-2", "salad-3")},
		{ID: "o2", CustomerID: "c1", Lines: lines("pizza-1", "soda-2")},
		{ID: "o3", Lines: lines("pizza-1", "soda-2")},
		{ID: "o4", Lines: lines("pizza-1", "soda-2", "stew-8")},
		{ID: "o5", CustomerID: "c2", Lines: lines("burger-4")},
		{ID: "o6", Lines: lines("burger-4")},
		{ID: "o7", Lines: lines("burger-4")},
		{ID: "o8", CustomerID: "c2", Lines: lines("fries-5", "cocoa-6", "icecream-9")},
	}
}

func newFixtureStore(t *testing.T) *catalogmem.Store {
	t.Helper()
	ctx := context.Background()
	orders := ordermem.New()
	for i, o := range fixtureOrders() {
		o.PlacedAt = time.Unix(int64(i), 0)
		if err := orders.Create(ctx, o); err != nil {
			t.Fatalf("seed order: %v", err)
		}
	}
	store := catalogmem.New(orders, 7)
	for _, c := range []catalog.Category{
		{ID: "mains", Name: "Mains"},
		{ID: "drinks", Name: "Drinks"},
		{ID: "sides", Name: "Sides"},
		{ID: "winter", Name: "Winter Specials"},
		{ID: "summer", Name: "Summer Menu"},
	} {
		store.PutCategory(c)
	}
	for _, it := range fixtureItems {
		if err := store.Create(ctx, it); err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}
	return store
}

// countingStore counts every ItemStore call and can fail chosen methods.
type countingStore struct {
	catalog.ItemStore
	calls atomic.Int64
	fail  map[string]error
}

func newCountingStore(t *testing.T) *countingStore {
	return &countingStore{ItemStore: newFixtureStore(t), fail: map[string]error{}}
}

func (s *countingStore) failing(method string) error {
	s.calls.Add(1)
	if err, ok := s.fail[method]; ok {
		return err
	}
	if err, ok := s.fail["*"]; ok {
		return err
	}
	return nil
}

func (s *countingStore) CoOccurring(ctx context.Context, cart []string, f catalog.Filter) ([]catalog.ItemCount, error) {
	if err := s.failing("CoOccurring"); err != nil {
		return nil, err
	}
	return s.ItemStore.CoOccurring(ctx, cart, f)
}

func (s *countingStore) CustomerHistory(ctx context.Context, customerID string, f catalog.Filter) ([]catalog.ItemCount, error) {
	if err := s.failing("CustomerHistory"); err != nil {
		return nil, err
	}
	return s.ItemStore.CustomerHistory(ctx, customerID, f)
}

func (s *countingStore) Popular(ctx context.Context, f catalog.Filter) ([]catalog.ItemCount, error) {
	if err := s.failing("Popular"); err != nil {
		return nil, err
	}
	return s.ItemStore.Popular(ctx, f)
}

func (s *countingStore) List(ctx context.Context, f catalog.Filter) ([]catalog.Item, error) {
	if err := s.failing("List"); err != nil {
		return nil, err
	}
	return s.ItemStore.List(ctx, f)
}

func (s *countingStore) Sample(ctx context.Context, f catalog.Filter) ([]catalog.Item, error) {
	if err := s.failing("Sample"); err != nil {
		return nil, err
	}
	return s.ItemStore.Sample(ctx, f)
}

var errStoreDown = errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")

// fakeCache is an in-memory cache.Cache with call counters. It never expires
// entries on its own.
type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	sets    int
	deletes int
	err     error
	// deleteDeadline is the time left on the last DeleteByPrefix context.
	deleteDeadline time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.err != nil {
		return nil, c.err
	}
	v, ok := c.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.err != nil {
		return c.err
	}
	c.data[key] = value
	return nil
}

func (c *fakeCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	if dl, ok := ctx.Deadline(); ok {
		c.deleteDeadline = time.Until(dl)
	}
	if c.err != nil {
		return c.err
	}
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *fakeCache) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets + c.sets + c.deletes
}

func january() time.Time { return time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC) }

func itemIDs(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ItemID
	}
	return out
}

func reasons(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Reason
	}
	return out
}
