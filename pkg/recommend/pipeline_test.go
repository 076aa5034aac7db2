package recommend

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runPipeline(t *testing.T, store *countingStore, req Request) ([]Item, error) {
	t.Helper()
	req, err := req.Normalize()
	require.NoError(t, err)
	return NewPipeline(store, nil, WithClock(january)).Run(context.Background(), req)
}

func TestFrequentlyBoughtTogetherOrdering(t *testing.T) {
	store := newCountingStore(t)
	got, err := runPipeline(t, store, Request{
		Limit:       2,
		CartItemIDs: []string{"pizza-1"},
		SourceOrder: []StrategyKind{FrequentlyBoughtTogether},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"soda-2", "salad-3"}, itemIDs(got))
	require.NotNil(t, got[0].Score)
	assert.Equal(t, 4.0, *got[0].Score)
	assert.Equal(t, 1.0, *got[1].Score)
}

func TestWorkedScenarioDefaultOrder(t *testing.T) {
	store := newCountingStore(t)
	got, err := runPipeline(t, store, Request{Limit: 3, CartItemIDs: []string{"pizza-1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"soda-2", "salad-3", "burger-4"}, itemIDs(got))
	assert.Equal(t, []string{ReasonFrequentlyBoughtTogether, ReasonFrequentlyBoughtTogether, ReasonPopular}, reasons(got))
	// FBT and Popular only: the quota is met before Seasonal and the fallback.
	assert.Equal(t, int64(2), store.calls.Load())
}

func TestCustomerWithoutHistoryFallsThroughToPopular(t *testing.T) {
	store := newCountingStore(t)
	got, err := runPipeline(t, store, Request{
		Limit:       3,
		CustomerID:  "ghost",
		SourceOrder: []StrategyKind{CustomerHistory, Popular},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"pizza-1", "soda-2", "burger-4"}, itemIDs(got))
	for _, r := range reasons(got) {
		assert.Equal(t, ReasonPopular, r)
	}
}

func TestCustomerHistoryRanksOwnOrders(t *testing.T) {
	store := newCountingStore(t)
	got, err := runPipeline(t, store, Request{
		Limit:       2,
		CustomerID:  "c1",
		SourceOrder: []StrategyKind{CustomerHistory},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"pizza-1", "soda-2"}, itemIDs(got))
	assert.Equal(t, ReasonCustomerHistory, got[0].Reason)
}

func TestSeasonalUsesCalendar(t *testing.T) {
	store := newCountingStore(t)
	got, err := runPipeline(t, store, Request{Limit: 1, SourceOrder: []StrategyKind{Seasonal}})
	require.NoError(t, err)
	assert.Equal(t, []string{"cocoa-6"}, itemIDs(got))
	assert.Equal(t, "Winter favorite", got[0].Reason)
	assert.Nil(t, got[0].Score)
}

func TestRandomFallbackTopsUp(t *testing.T) {
	store := newCountingStore(t)
	got, err := runPipeline(t, store, Request{Limit: 3, SourceOrder: []StrategyKind{Seasonal}})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "cocoa-6", got[0].ItemID)
	assert.Equal(t, ReasonFallback, got[1].Reason)
	assert.Equal(t, ReasonFallback, got[2].Reason)
}

func TestCatalogExhaustion(t *testing.T) {
	store := newCountingStore(t)
	got, err := runPipeline(t, store, Request{Limit: 50, CartItemIDs: []string{"pizza-1"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"soda-2", "salad-3", "burger-4", "fries-5", "cocoa-6", "lemonade-7"}, itemIDs(got))
}

func TestCategoryFilter(t *testing.T) {
	store := newCountingStore(t)
	got, err := runPipeline(t, store, Request{Limit: 5, CategoryID: "sides", SourceOrder: []StrategyKind{Popular}})
	require.NoError(t, err)
	for _, it := range got {
		assert.Equal(t, "sides", it.CategoryID)
	}
	assert.ElementsMatch(t, []string{"salad-3", "fries-5"}, itemIDs(got))
}

func TestStrategyFailureIsSkipped(t *testing.T) {
	store := newCountingStore(t)
	store.fail["CoOccurring"] = errStoreDown
	got, err := runPipeline(t, store, Request{Limit: 2, CartItemIDs: []string{"pizza-1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"soda-2", "burger-4"}, itemIDs(got))
	assert.Equal(t, ReasonPopular, got[0].Reason)
}

func TestTotalBackendFailure(t *testing.T) {
	store := newCountingStore(t)
	store.fail["*"] = errStoreDown
	_, err := runPipeline(t, store, Request{Limit: 3, CartItemIDs: []string{"pizza-1"}})
	require.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestPartialResultSurvivesLaterFailures(t *testing.T) {
	store := newCountingStore(t)
	store.fail["Popular"] = errStoreDown
	store.fail["List"] = errStoreDown
	store.fail["Sample"] = errStoreDown
	got, err := runPipeline(t, store, Request{Limit: 4, CartItemIDs: []string{"pizza-1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"soda-2", "salad-3"}, itemIDs(got))
}

func TestCancelledContextAbandonsRun(t *testing.T) {
	store := newCountingStore(t)
	req, _ := Request{Limit: 3}.Normalize()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPipeline(store, nil).Run(ctx, req)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.calls.Load())
}

// misbehavingStrategy returns items a store should never hand back.
type misbehavingStrategy struct{}

func (misbehavingStrategy) Kind() StrategyKind   { return Popular }
func (misbehavingStrategy) Applies(Request) bool { return true }
func (misbehavingStrategy) Fetch(context.Context, Params) ([]Item, error) {
	return []Item{
		{ItemID: "pizza-1", Active: true, Available: true},
		{ItemID: "stew-8", Active: false, Available: true},
		{ItemID: "burger-4", Active: true, Available: true},
		{ItemID: "burger-4", Active: true, Available: true},
		{ItemID: "icecream-9", Active: true, Available: false},
		{ItemID: "fries-5", Active: true, Available: true},
	}, nil
}

func TestPipelineDropsIneligibleItems(t *testing.T) {
	store := newCountingStore(t)
	req, _ := Request{Limit: 2, ExcludeIDs: []string{"pizza-1"}, SourceOrder: []StrategyKind{Popular}}.Normalize()
	got, err := NewPipeline(store, nil, WithStrategy(misbehavingStrategy{})).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"burger-4", "fries-5"}, itemIDs(got))
}

func TestResultPropertiesOverRandomRequests(t *testing.T) {
	store := newCountingStore(t)
	p := NewPipeline(store, nil, WithClock(func() time.Time { return time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC) }))
	rng := rand.New(rand.NewPCG(1, 2))
	kinds := []StrategyKind{FrequentlyBoughtTogether, CustomerHistory, Seasonal, Popular, RandomFallback}
	valid := make(map[string]bool)
	for _, it := range fixtureItems {
		valid[it.ID] = it.Active && it.Available
	}

	for i := 0; i < 500; i++ {
		req := Request{Limit: rng.IntN(10) + 1}
		for _, it := range fixtureItems {
			switch rng.IntN(4) {
			case 0:
				req.ExcludeIDs = append(req.ExcludeIDs, it.ID)
			case 1:
				req.CartItemIDs = append(req.CartItemIDs, it.ID)
			}
		}
		if rng.IntN(2) == 0 {
			req.CustomerID = []string{"c1", "c2", "ghost"}[rng.IntN(3)]
		}
		for _, k := range rng.Perm(len(kinds))[:rng.IntN(len(kinds)+1)] {
			req.SourceOrder = append(req.SourceOrder, kinds[k])
		}
		norm, err := req.Normalize()
		require.NoError(t, err)

		got, err := p.Run(context.Background(), norm)
		require.NoError(t, err)
		require.LessOrEqual(t, len(got), req.Limit)

		excluded := make(map[string]bool)
		for _, id := range norm.Exclusions() {
			excluded[id] = true
		}
		seen := make(map[string]bool)
		for _, it := range got {
			require.False(t, excluded[it.ItemID], "excluded item %s returned for %+v", it.ItemID, req)
			require.False(t, seen[it.ItemID], "duplicate item %s", it.ItemID)
			require.True(t, valid[it.ItemID], "inactive or unavailable item %s", it.ItemID)
			require.True(t, it.Active && it.Available)
			seen[it.ItemID] = true
		}
	}
}

func TestAssemble(t *testing.T) {
	batches := [][]Item{
		{{ItemID: "a", Reason: "first"}, {ItemID: "b", Reason: "first"}},
		{{ItemID: "a", Reason: "second"}, {ItemID: "c", Reason: "second"}, {ItemID: "d", Reason: "second"}},
	}
	got := Assemble(batches, 3)
	assert.Equal(t, []string{"a", "b", "c"}, itemIDs(got))
	assert.Equal(t, "first", got[0].Reason)

	assert.Empty(t, Assemble(batches, 0))
	assert.NotNil(t, Assemble(nil, 2))
}

func TestSeasonFor(t *testing.T) {
	cases := map[time.Month]Season{
		time.December: Winter, time.January: Winter, time.February: Winter,
		time.March: Spring, time.May: Spring,
		time.June: Summer, time.August: Summer,
		time.September: Fall, time.November: Fall,
	}
	for m, want := range cases {
		assert.Equal(t, want, SeasonFor(m), m.String())
	}
}

func TestOneHealthyStrategyAvoidsBackendFailure(t *testing.T) {
	store := newCountingStore(t)
	store.fail["Popular"] = errStoreDown
	_, err := runPipeline(t, store, Request{Limit: 1, SourceOrder: []StrategyKind{Popular}})
	require.False(t, errors.Is(err, ErrBackendUnavailable))
}
