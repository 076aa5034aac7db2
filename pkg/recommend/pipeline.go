package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"dineflow/pkg/catalog"
	"dineflow/pkg/logger"
	"dineflow/pkg/metrics"
	"dineflow/pkg/otel"
)

// ErrBackendUnavailable is returned when every strategy attempted failed to
// reach the item store.
var ErrBackendUnavailable = errors.New("recommendation backend unavailable")

// Pipeline runs strategies in request order against a shrinking need.
type Pipeline struct {
	strategies map[StrategyKind]Strategy
	log        *logger.Logger
}

// PipelineOption customises a Pipeline.
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	now       func() time.Time
	overrides []Strategy
}

// WithClock sets the clock used by the Seasonal strategy.
func WithClock(now func() time.Time) PipelineOption {
	return func(o *pipelineOptions) { o.now = now }
}

// WithStrategy replaces the built-in strategy of the same kind.
func WithStrategy(s Strategy) PipelineOption {
	return func(o *pipelineOptions) { o.overrides = append(o.overrides, s) }
}

// NewPipeline wires the built-in strategies to store.
func NewPipeline(store catalog.ItemStore, log *logger.Logger, opts ...PipelineOption) *Pipeline {
	o := pipelineOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = logger.NewNop()
	}
	p := &Pipeline{strategies: make(map[StrategyKind]Strategy), log: log}
	for _, s := range []Strategy{
		NewFrequentlyBoughtTogether(store),
		NewCustomerHistory(store),
		NewSeasonal(store, o.now),
		NewPopular(store),
		NewRandomFallback(store),
	} {
		p.strategies[s.Kind()] = s
	}
	for _, s := range o.overrides {
		p.strategies[s.Kind()] = s
	}
	return p
}

// run holds the state of one pipeline pass.
type run struct {
	req       Request
	excluded  map[string]struct{}
	chosen    map[string]struct{}
	batches   [][]Item
	have      int
	attempted int
	failed    int
	lastErr   error
}

// Run computes recommendations for a normalized request with Limit > 0.
func (p *Pipeline) Run(ctx context.Context, req Request) ([]Item, error) {
	r := &run{
		req:      req,
		excluded: make(map[string]struct{}),
		chosen:   make(map[string]struct{}),
	}
	for _, id := range req.Exclusions() {
		r.excluded[id] = struct{}{}
	}

	for _, kind := range req.SourceOrder {
		if err := p.consult(ctx, r, kind); err != nil {
			return nil, err
		}
	}
	if r.have < req.Limit {
		if err := p.consult(ctx, r, RandomFallback); err != nil {
			return nil, err
		}
	}

	if r.attempted > 0 && r.failed == r.attempted {
		p.log.Error(ctx, "recommendation store unreachable", "strategies", r.attempted, "error", r.lastErr)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, r.lastErr)
	}
	return Assemble(r.batches, req.Limit), nil
}

// consult invokes one strategy. Store failures are recorded on r and skipped;
// only context cancellation is returned.
func (p *Pipeline) consult(ctx context.Context, r *run, kind StrategyKind) error {
	need := r.req.Limit - r.have
	if need <= 0 {
		return nil
	}
	s, ok := p.strategies[kind]
	if !ok || !s.Applies(r.req) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	exclude := make(map[string]struct{}, len(r.excluded)+len(r.chosen))
	for id := range r.excluded {
		exclude[id] = struct{}{}
	}
	for id := range r.chosen {
		exclude[id] = struct{}{}
	}

	sctx, span := otel.AddSpan(ctx, "recommend."+kind.String(), attribute.Int("need", need))
	batch, err := s.Fetch(sctx, Params{Need: need, Exclude: sortedKeys(exclude), Request: r.req})
	span.End()

	r.attempted++
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.failed++
		r.lastErr = err
		metrics.RecordStrategyError(kind.String())
		p.log.Warn(ctx, "recommendation strategy failed", "strategy", kind.String(), "error", err)
		return nil
	}

	batch = r.admit(batch, need)
	for _, it := range batch {
		r.chosen[it.ItemID] = struct{}{}
	}
	r.have += len(batch)
	r.batches = append(r.batches, batch)
	metrics.RecordStrategy(kind.String(), len(batch))
	return nil
}

// admit keeps the items a strategy may legally contribute, in batch order,
// up to need.
func (r *run) admit(batch []Item, need int) []Item {
	out := make([]Item, 0, min(len(batch), need))
	seen := make(map[string]struct{}, len(batch))
	for _, it := range batch {
		if len(out) == need {
			break
		}
		if !it.Active || !it.Available {
			continue
		}
		if _, ok := r.excluded[it.ItemID]; ok {
			continue
		}
		if _, ok := r.chosen[it.ItemID]; ok {
			continue
		}
		if _, ok := seen[it.ItemID]; ok {
			continue
		}
		seen[it.ItemID] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Assemble concatenates batches in order, keeps the first occurrence of each
// item id and truncates to limit.
func Assemble(batches [][]Item, limit int) []Item {
	if limit <= 0 {
		return []Item{}
	}
	n := 0
	for _, batch := range batches {
		n += len(batch)
	}
	out := make([]Item, 0, min(limit, n))
	seen := make(map[string]struct{})
	for _, batch := range batches {
		for _, it := range batch {
			if _, ok := seen[it.ItemID]; ok {
				continue
			}
			seen[it.ItemID] = struct{}{}
			out = append(out, it)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}
