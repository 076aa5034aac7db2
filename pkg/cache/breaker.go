package cache

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerConfig configures Breaker.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
	OnStateChange    func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig opens after 5 consecutive failures for 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Name: "cache", FailureThreshold: 5, OpenTimeout: 30 * time.Second}
}

// Breaker guards a Cache with a circuit breaker. A miss counts as success.
// While open, every call fails fast with gobreaker.ErrOpenState.
type Breaker struct {
	next Cache
	cb   *gobreaker.CircuitBreaker[[]byte]
}

// NewBreaker wraps next.
func NewBreaker(next Cache, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrMiss)
		},
		OnStateChange: cfg.OnStateChange,
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker[[]byte](settings)}
}

// State reports the breaker state for monitoring.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Get forwards to the wrapped cache.
func (b *Breaker) Get(ctx context.Context, key string) ([]byte, error) {
	return b.cb.Execute(func() ([]byte, error) {
		return b.next.Get(ctx, key)
	})
}

// Set forwards to the wrapped cache.
func (b *Breaker) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := b.cb.Execute(func() ([]byte, error) {
		return nil, b.next.Set(ctx, key, value, ttl)
	})
	return err
}

// DeleteByPrefix forwards to the wrapped cache.
func (b *Breaker) DeleteByPrefix(ctx context.Context, prefix string) error {
	_, err := b.cb.Execute(func() ([]byte, error) {
		return nil, b.next.DeleteByPrefix(ctx, prefix)
	})
	return err
}
