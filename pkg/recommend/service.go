package recommend

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"dineflow/pkg/cache"
	"dineflow/pkg/logger"
	"dineflow/pkg/metrics"
	"dineflow/pkg/otel"
)

// Config controls the cache-aside layer.
type Config struct {
	// TTL bounds how long a stored result may be served.
	TTL time.Duration
	// KeyPrefix namespaces keys; Invalidate removes everything under it.
	KeyPrefix string
	// Timeout bounds each cache round trip.
	Timeout time.Duration
	// InvalidateTimeout bounds a whole prefix scan and delete.
	InvalidateTimeout time.Duration
}

// DefaultConfig returns a 30 minute TTL under DefaultKeyPrefix.
func DefaultConfig() Config {
	return Config{
		TTL:               30 * time.Minute,
		KeyPrefix:         DefaultKeyPrefix,
		Timeout:           50 * time.Millisecond,
		InvalidateTimeout: 2 * time.Second,
	}
}

// Service is the entry point for recommendations. It is safe for concurrent
// use; concurrent misses on one key each compute and the last write wins.
type Service struct {
	pipeline *Pipeline
	cache    cache.Cache
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
}

// NewService puts c in front of p. A nil cache disables caching.
func NewService(p *Pipeline, c cache.Cache, cfg Config, log *logger.Logger) *Service {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = def.KeyPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.InvalidateTimeout <= 0 {
		cfg.InvalidateTimeout = def.InvalidateTimeout
	}
	if c == nil {
		c = cache.Noop{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{pipeline: p, cache: c, cfg: cfg, log: log, now: time.Now}
}

// entry is the stored form of a result.
type entry struct {
	Key       string    `json:"key"`
	Items     []Item    `json:"items"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Compute returns recommendations for req. A Limit of zero or less yields an
// empty list without touching cache or store.
func (s *Service) Compute(ctx context.Context, req Request) ([]Item, error) {
	if req.Limit <= 0 {
		return []Item{}, nil
	}
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	key := req.CacheKey(s.cfg.KeyPrefix)

	ctx, span := otel.AddSpan(ctx, "recommend.compute", attribute.Int("limit", req.Limit))
	defer span.End()

	m := memoFrom(ctx)
	if items, ok := m.get(key); ok {
		return items, nil
	}

	if items, ok := s.get(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		m.put(key, items)
		return items, nil
	}

	start := time.Now()
	items, err := s.pipeline.Run(ctx, req)
	metrics.ObserveCompute(time.Since(start))
	if err != nil {
		return nil, err
	}

	s.put(ctx, key, items)
	m.put(key, items)
	return items, nil
}

// PeopleAlsoBought recommends items frequently ordered with the cart, topped
// up with popular items.
func (s *Service) PeopleAlsoBought(ctx context.Context, cartItemIDs []string, limit int) ([]Item, error) {
	return s.Compute(ctx, Request{
		Limit:       limit,
		CartItemIDs: cartItemIDs,
		SourceOrder: []StrategyKind{FrequentlyBoughtTogether, Popular},
	})
}

// Personalized recommends the customer's usual items, topped up with popular
// items.
func (s *Service) Personalized(ctx context.Context, customerID string, limit int) ([]Item, error) {
	return s.Compute(ctx, Request{
		Limit:       limit,
		CustomerID:  customerID,
		SourceOrder: []StrategyKind{CustomerHistory, Popular},
	})
}

// Prefix returns the namespace all keys live under.
func (s *Service) Prefix() string {
	return s.cfg.KeyPrefix
}

// Invalidate drops every cached result under prefix. Menu and order writers
// call it after mutations. On failure entries simply expire at their TTL.
func (s *Service) Invalidate(ctx context.Context, prefix string) error {
	memoFrom(ctx).clear()
	cctx, cancel := context.WithTimeout(ctx, s.cfg.InvalidateTimeout)
	defer cancel()
	if err := s.cache.DeleteByPrefix(cctx, prefix); err != nil {
		s.log.Warn(ctx, "recommendation cache invalidation failed", "prefix", prefix, "error", err)
		return err
	}
	s.log.Debug(ctx, "recommendation cache invalidated", "prefix", prefix)
	return nil
}

func (s *Service) get(ctx context.Context, key string) ([]Item, bool) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	data, err := s.cache.Get(cctx, key)
	if errors.Is(err, cache.ErrMiss) {
		metrics.RecordCache(metrics.CacheMiss)
		s.log.Debug(ctx, "recommendation cache miss", "key", key)
		return nil, false
	}
	if err != nil {
		metrics.RecordCache(metrics.CacheError)
		s.log.Warn(ctx, "recommendation cache get failed", "key", key, "error", err)
		return nil, false
	}

	var e entry
	if err := cache.Decode(data, &e); err != nil {
		metrics.RecordCache(metrics.CacheError)
		s.log.Warn(ctx, "recommendation cache entry unreadable", "key", key, "error", err)
		return nil, false
	}
	if e.Key != key || !s.now().Before(e.ExpiresAt) {
		metrics.RecordCache(metrics.CacheMiss)
		return nil, false
	}

	metrics.RecordCache(metrics.CacheHit)
	s.log.Debug(ctx, "recommendation cache hit", "key", key)
	if e.Items == nil {
		e.Items = []Item{}
	}
	return e.Items, true
}

func (s *Service) put(ctx context.Context, key string, items []Item) {
	data, err := cache.Encode(entry{Key: key, Items: items, ExpiresAt: s.now().Add(s.cfg.TTL)})
	if err != nil {
		s.log.Warn(ctx, "recommendation cache encode failed", "key", key, "error", err)
		return
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	if err := s.cache.Set(cctx, key, data, s.cfg.TTL); err != nil {
		s.log.Warn(ctx, "recommendation cache set failed", "key", key, "error", err)
	}
}

type memoKey struct{}

// memo caches results for the lifetime of one request.
type memo struct {
	mu      sync.Mutex
	entries map[string][]Item
}

// WithMemo attaches a request-scoped result memo to ctx. Repeated Compute
// calls with the same canonical request are then answered from memory.
func WithMemo(ctx context.Context) context.Context {
	if memoFrom(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, memoKey{}, &memo{entries: make(map[string][]Item)})
}

func memoFrom(ctx context.Context) *memo {
	m, _ := ctx.Value(memoKey{}).(*memo)
	return m
}

func (m *memo) get(key string) ([]Item, bool) {
	if m == nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	return cloneItems(items), true
}

func (m *memo) put(key string, items []Item) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = cloneItems(items)
}

func (m *memo) clear() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	for i := range out {
		if out[i].Score != nil {
			score := *out[i].Score
			out[i].Score = &score
		}
	}
	return out
}
