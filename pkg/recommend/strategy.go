package recommend

import (
	"context"
	"fmt"
	"time"

	"dineflow/pkg/catalog"
)

// Reason tags attached to items by each strategy.
const (
	ReasonFrequentlyBoughtTogether = "Frequently bought together"
	ReasonCustomerHistory          = "Based on your previous orders"
	ReasonPopular                  = "Popular choice"
	ReasonFallback                 = "You might also like"
)

// Params is what the pipeline hands a strategy: how many items are still
// needed and which ids must not be returned.
type Params struct {
	Need    int
	Exclude []string
	Request Request
}

// Strategy turns a need and an exclusion set into a ranked batch of items.
// Returning fewer than Need items is always allowed.
type Strategy interface {
	Kind() StrategyKind
	// Applies reports whether the strategy has what it needs to run.
	Applies(req Request) bool
	Fetch(ctx context.Context, p Params) ([]Item, error)
}

type frequentlyBoughtTogether struct{ store catalog.ItemStore }

// NewFrequentlyBoughtTogether ranks items by how often they were ordered
// alongside the cart.
func NewFrequentlyBoughtTogether(store catalog.ItemStore) Strategy {
	return frequentlyBoughtTogether{store: store}
}

func (frequentlyBoughtTogether) Kind() StrategyKind { return FrequentlyBoughtTogether }

func (frequentlyBoughtTogether) Applies(req Request) bool { return len(req.CartItemIDs) > 0 }

func (s frequentlyBoughtTogether) Fetch(ctx context.Context, p Params) ([]Item, error) {
	counts, err := s.store.CoOccurring(ctx, p.Request.CartItemIDs, catalog.Filter{Exclude: p.Exclude, Limit: p.Need})
	if err != nil {
		return nil, err
	}
	return fromCounts(counts, ReasonFrequentlyBoughtTogether), nil
}

type customerHistory struct{ store catalog.ItemStore }

// NewCustomerHistory ranks items by how often the customer ordered them.
func NewCustomerHistory(store catalog.ItemStore) Strategy {
	return customerHistory{store: store}
}

func (customerHistory) Kind() StrategyKind { return CustomerHistory }

func (customerHistory) Applies(req Request) bool { return req.CustomerID != "" }

func (s customerHistory) Fetch(ctx context.Context, p Params) ([]Item, error) {
	counts, err := s.store.CustomerHistory(ctx, p.Request.CustomerID, catalog.Filter{Exclude: p.Exclude, Limit: p.Need})
	if err != nil {
		return nil, err
	}
	return fromCounts(counts, ReasonCustomerHistory), nil
}

// Season is a calendar quarter used for seasonal menus.
type Season string

// Seasons, named as they appear in category names.
const (
	Winter Season = "Winter"
	Spring Season = "Spring"
	Summer Season = "Summer"
	Fall   Season = "Fall"
)

// SeasonFor maps a month to its season: Dec-Feb Winter, Mar-May Spring,
// Jun-Aug Summer, Sep-Nov Fall.
func SeasonFor(m time.Month) Season {
	switch m {
	case time.December, time.January, time.February:
		return Winter
	case time.March, time.April, time.May:
		return Spring
	case time.June, time.July, time.August:
		return Summer
	default:
		return Fall
	}
}

type seasonal struct {
	store catalog.ItemStore
	now   func() time.Time
}

// NewSeasonal lists items whose category name mentions the current season.
func NewSeasonal(store catalog.ItemStore, now func() time.Time) Strategy {
	if now == nil {
		now = time.Now
	}
	return seasonal{store: store, now: now}
}

func (seasonal) Kind() StrategyKind { return Seasonal }

func (seasonal) Applies(Request) bool { return true }

func (s seasonal) Fetch(ctx context.Context, p Params) ([]Item, error) {
	season := SeasonFor(s.now().Month())
	items, err := s.store.List(ctx, catalog.Filter{
		CategoryID:           p.Request.CategoryID,
		CategoryNameContains: string(season),
		Exclude:              p.Exclude,
		Limit:                p.Need,
	})
	if err != nil {
		return nil, err
	}
	return fromItems(items, fmt.Sprintf("%s favorite", season)), nil
}

type popular struct{ store catalog.ItemStore }

// NewPopular ranks items by total order lines.
func NewPopular(store catalog.ItemStore) Strategy {
	return popular{store: store}
}

func (popular) Kind() StrategyKind { return Popular }

func (popular) Applies(Request) bool { return true }

func (s popular) Fetch(ctx context.Context, p Params) ([]Item, error) {
	counts, err := s.store.Popular(ctx, catalog.Filter{CategoryID: p.Request.CategoryID, Exclude: p.Exclude, Limit: p.Need})
	if err != nil {
		return nil, err
	}
	return fromCounts(counts, ReasonPopular), nil
}

type randomFallback struct{ store catalog.ItemStore }

// NewRandomFallback samples any remaining eligible items.
func NewRandomFallback(store catalog.ItemStore) Strategy {
	return randomFallback{store: store}
}

func (randomFallback) Kind() StrategyKind { return RandomFallback }

func (randomFallback) Applies(Request) bool { return true }

func (s randomFallback) Fetch(ctx context.Context, p Params) ([]Item, error) {
	items, err := s.store.Sample(ctx, catalog.Filter{CategoryID: p.Request.CategoryID, Exclude: p.Exclude, Limit: p.Need})
	if err != nil {
		return nil, err
	}
	return fromItems(items, ReasonFallback), nil
}

func fromCounts(counts []catalog.ItemCount, reason string) []Item {
	out := make([]Item, 0, len(counts))
	for _, c := range counts {
		it := toItem(c.Item, reason)
		score := float64(c.Count)
		it.Score = &score
		out = append(out, it)
	}
	return out
}

func fromItems(items []catalog.Item, reason string) []Item {
	out := make([]Item, 0, len(items))
	for _, ci := range items {
		out = append(out, toItem(ci, reason))
	}
	return out
}

func toItem(ci catalog.Item, reason string) Item {
	return Item{
		ItemID:     ci.ID,
		Name:       ci.Name,
		Price:      ci.Price,
		CategoryID: ci.CategoryID,
		Active:     ci.Active,
		Available:  ci.Available,
		Reason:     reason,
	}
}
