package screener

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"stockdrop/pkg/external"
)

// Provider is the subset of the market-data client the pipeline needs.
type Provider interface {
	ScreenStocks(ctx context.Context, params external.ScreenerParams) ([]external.ScreenerStock, error)
	BatchQuotes(ctx context.Context, symbols []string) ([]external.Quote, error)
}

// Result is the immutable outcome of one pipeline run. Callers hold the most
// recent result; nothing in this package retains it.
type Result struct {
	Generation uint64    `json:"generation"`
	Records    []Record  `json:"records"`
	Criteria   Criteria  `json:"criteria"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Pipeline runs the fetch, merge, filter and rank stages as one parameterized
// function. Each invocation is a fresh, independent run; the only state is a
// monotonically increasing generation counter used to sequence rapid repeated
// triggers.
type Pipeline struct {
	provider      Provider
	screenerLimit int
	generation    atomic.Uint64
}

// NewPipeline creates a pipeline over the given provider. screenerLimit
// bounds the broad candidate fetch.
func NewPipeline(provider Provider, screenerLimit int) *Pipeline {
	if screenerLimit <= 0 {
		screenerLimit = 1000
	}
	return &Pipeline{
		provider:      provider,
		screenerLimit: screenerLimit,
	}
}

// Run executes one fetch → merge → filter → rank → truncate pass for the
// given criteria. An empty screener response is a valid empty result, not an
// error. Fetch and decode failures are returned unchanged for the caller to
// classify.
func (p *Pipeline) Run(ctx context.Context, c Criteria) (*Result, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	generation := p.generation.Add(1)

	candidates, err := p.provider.ScreenStocks(ctx, p.screenerParams(c))
	if err != nil {
		return nil, err
	}

	result := &Result{
		Generation: generation,
		Records:    []Record{},
		Criteria:   c,
		FetchedAt:  time.Now(),
	}
	if len(candidates) == 0 {
		return result, nil
	}

	symbols := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		symbols = append(symbols, candidate.Symbol)
	}

	quotes, err := p.provider.BatchQuotes(ctx, symbols)
	if err != nil {
		return nil, err
	}

	records := Filter(Merge(candidates, quotes), c)
	Rank(records, c.Mode)
	result.Records = Truncate(records, c.Limit)

	return result, nil
}

// screenerParams maps the provider-filterable subset of the criteria onto the
// broad candidate screen. Everything else is enforced client-side by Filter.
func (p *Pipeline) screenerParams(c Criteria) external.ScreenerParams {
	return external.ScreenerParams{
		MarketCapMoreThan:      c.MarketCapMin,
		MarketCapLowerThan:     c.MarketCapMax,
		PriceMoreThan:          c.PriceMin,
		PriceLowerThan:         c.PriceMax,
		VolumeMoreThan:         c.VolumeMin,
		VolumeLowerThan:        c.VolumeMax,
		BetaMoreThan:           c.BetaMin,
		BetaLowerThan:          c.BetaMax,
		Sector:                 c.Sector,
		Industry:               c.Industry,
		Exchange:               c.Exchange,
		Country:                c.Country,
		IsETF:                  c.IsETF,
		IsFund:                 c.IsFund,
		IsActivelyTrading:      c.IsActivelyTrading,
		IncludeAllShareClasses: c.IncludeAllShareClasses,
		Limit:                  p.screenerLimit,
	}
}

// Tracker keeps the latest accepted result and discards completions that
// arrive for a superseded generation. In-flight runs are not cancelled; a
// stale run simply loses the Accept race. A tracker belongs to one caller
// reissuing a single query, such as a polling view; results computed for
// different criteria must never share one.
type Tracker struct {
	mu     sync.Mutex
	latest *Result
}

// Accept installs the result if it is newer than the currently held one and
// reports whether it was kept.
func (t *Tracker) Accept(result *Result) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest != nil && result.Generation <= t.latest.Generation {
		return false
	}
	t.latest = result
	return true
}

// Latest returns the most recently accepted result, or nil.
func (t *Tracker) Latest() *Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}
