// Package memory implements an in-memory catalog whose order aggregates are
// derived from an order.Repository.
package memory

import (
	"context"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"dineflow/pkg/catalog"
	"dineflow/pkg/order"
)

// Store provides in-memory implementations of catalog.ItemStore and
// catalog.Repository.
type Store struct {
	mu         sync.RWMutex
	items      map[string]catalog.Item
	categories map[string]catalog.Category
	orders     order.Repository

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a store reading order history from orders. The seed drives
// Sample so that tests are reproducible.
func New(orders order.Repository, seed uint64) *Store {
	return &Store{
		items:      make(map[string]catalog.Item),
		categories: make(map[string]catalog.Category),
		orders:     orders,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// PutCategory stores or replaces a category.
func (s *Store) PutCategory(c catalog.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
}

// Create stores a new item.
func (s *Store) Create(ctx context.Context, it catalog.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[it.ID] = it
	return nil
}

// Get retrieves an item by ID.
func (s *Store) Get(ctx context.Context, id string) (catalog.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return catalog.Item{}, catalog.ErrNotFound
	}
	return s.withCategory(it), nil
}

// Update replaces an existing item.
func (s *Store) Update(ctx context.Context, it catalog.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[it.ID]; !ok {
		return catalog.ErrNotFound
	}
	s.items[it.ID] = it
	return nil
}

// Delete removes an item by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// SetAvailability toggles the available flag of an item.
func (s *Store) SetAvailability(ctx context.Context, id string, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return catalog.ErrNotFound
	}
	it.Available = available
	s.items[id] = it
	return nil
}

// CoOccurring counts orders that contain both a cart item and the candidate.
func (s *Store) CoOccurring(ctx context.Context, cartItemIDs []string, f catalog.Filter) ([]catalog.ItemCount, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	cart := toSet(cartItemIDs)
	counts := make(map[string]int)
	for _, o := range orders {
		ids := o.ItemIDs()
		if !containsAny(ids, cart) {
			continue
		}
		for _, id := range ids {
			if _, inCart := cart[id]; !inCart {
				counts[id]++
			}
		}
	}
	return s.rank(counts, f), nil
}

// CustomerHistory counts the customer's orders per item.
func (s *Store) CustomerHistory(ctx context.Context, customerID string, f catalog.Filter) ([]catalog.ItemCount, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, o := range orders {
		if o.CustomerID != customerID {
			continue
		}
		for _, id := range o.ItemIDs() {
			counts[id]++
		}
	}
	return s.rank(counts, f), nil
}

// Popular counts order lines per item.
func (s *Store) Popular(ctx context.Context, f catalog.Filter) ([]catalog.ItemCount, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, o := range orders {
		for _, l := range o.Lines {
			counts[l.ItemID]++
		}
	}
	return s.rank(counts, f), nil
}

// List returns matching items ordered by sort order, then id.
func (s *Store) List(ctx context.Context, f catalog.Filter) ([]catalog.Item, error) {
	items := s.matching(f)
	sort.Slice(items, func(i, j int) bool {
		if items[i].SortOrder != items[j].SortOrder {
			return items[i].SortOrder < items[j].SortOrder
		}
		return items[i].ID < items[j].ID
	})
	return truncate(items, f.Limit), nil
}

// Sample returns matching items in random order.
func (s *Store) Sample(ctx context.Context, f catalog.Filter) ([]catalog.Item, error) {
	items := s.matching(f)
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	s.rngMu.Lock()
	s.rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	s.rngMu.Unlock()
	return truncate(items, f.Limit), nil
}

func (s *Store) rank(counts map[string]int, f catalog.Filter) []catalog.ItemCount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exclude := toSet(f.Exclude)
	out := make([]catalog.ItemCount, 0, len(counts))
	for id, n := range counts {
		it, ok := s.items[id]
		if !ok || n <= 0 || !s.accepts(it, f, exclude) {
			continue
		}
		out = append(out, catalog.ItemCount{Item: s.withCategory(it), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Item.ID < out[j].Item.ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func (s *Store) matching(f catalog.Filter) []catalog.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exclude := toSet(f.Exclude)
	var out []catalog.Item
	for _, it := range s.items {
		if s.accepts(it, f, exclude) {
			out = append(out, s.withCategory(it))
		}
	}
	return out
}

// accepts must be called with s.mu held.
func (s *Store) accepts(it catalog.Item, f catalog.Filter, exclude map[string]struct{}) bool {
	if !it.Recommendable() {
		return false
	}
	if _, ok := exclude[it.ID]; ok {
		return false
	}
	if f.CategoryID != "" && it.CategoryID != f.CategoryID {
		return false
	}
	if f.CategoryNameContains != "" {
		name := s.categories[it.CategoryID].Name
		if !strings.Contains(strings.ToLower(name), strings.ToLower(f.CategoryNameContains)) {
			return false
		}
	}
	return true
}

func (s *Store) withCategory(it catalog.Item) catalog.Item {
	if c, ok := s.categories[it.CategoryID]; ok {
		it.CategoryName = c.Name
	}
	return it
}

func truncate(items []catalog.Item, limit int) []catalog.Item {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func containsAny(ids []string, set map[string]struct{}) bool {
	for _, id := range ids {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
