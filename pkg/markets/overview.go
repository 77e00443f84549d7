package markets

import (
	"context"
	"sync"
	"time"

	"stockdrop/pkg/external"
)

// Provider is the subset of the market-data client the overview needs.
type Provider interface {
	BatchQuotes(ctx context.Context, symbols []string) ([]external.Quote, error)
	CommodityQuotes(ctx context.Context) ([]external.Quote, error)
	MarketHours(ctx context.Context) ([]external.MarketHours, error)
	SectorPerformance(ctx context.Context) ([]external.SectorPerformance, error)
}

// Snapshot is an immutable market overview assembled from a fixed batch of
// independent fetches. Each section resolves on its own: a failed fetch
// leaves its section nil and records the failure in Errors under the section
// name, so one bad endpoint never abandons the whole batch. Section slices
// stay in the JSON form even when empty so a successfully fetched empty
// section survives the cache round trip as non-nil.
type Snapshot struct {
	FetchedAt   time.Time                    `json:"fetched_at"`
	Indexes     []external.Quote             `json:"indexes"`
	Commodities []external.Quote             `json:"commodities"`
	Sectors     []external.SectorPerformance `json:"sectors"`
	Hours       []external.MarketHours       `json:"market_hours"`
	Errors      map[string]string            `json:"errors,omitempty"`
}

// FetchSnapshot issues the four overview fetches concurrently and awaits them
// jointly, isolating failures per item. The commodity feed returns every
// instrument the provider tracks; commoditySymbols narrows it to the tracked
// set, with an empty list keeping everything.
func FetchSnapshot(ctx context.Context, provider Provider, indexSymbols, commoditySymbols []string) *Snapshot {
	snapshot := &Snapshot{
		FetchedAt: time.Now(),
		Errors:    make(map[string]string),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	fail := func(section string, err error) {
		mu.Lock()
		snapshot.Errors[section] = err.Error()
		mu.Unlock()
	}

	wg.Add(4)

	go func() {
		defer wg.Done()
		quotes, err := provider.BatchQuotes(ctx, indexSymbols)
		if err != nil {
			fail("indexes", err)
			return
		}
		mu.Lock()
		snapshot.Indexes = quotes
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		quotes, err := provider.CommodityQuotes(ctx)
		if err != nil {
			fail("commodities", err)
			return
		}
		mu.Lock()
		snapshot.Commodities = filterSymbols(quotes, commoditySymbols)
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		sectors, err := provider.SectorPerformance(ctx)
		if err != nil {
			fail("sectors", err)
			return
		}
		mu.Lock()
		snapshot.Sectors = sectors
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		hours, err := provider.MarketHours(ctx)
		if err != nil {
			fail("market_hours", err)
			return
		}
		mu.Lock()
		snapshot.Hours = hours
		mu.Unlock()
	}()

	wg.Wait()

	if len(snapshot.Errors) == 0 {
		snapshot.Errors = nil
	}
	return snapshot
}

func filterSymbols(quotes []external.Quote, symbols []string) []external.Quote {
	if len(symbols) == 0 {
		return quotes
	}
	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}
	kept := make([]external.Quote, 0, len(symbols))
	for _, q := range quotes {
		if wanted[q.Symbol] {
			kept = append(kept, q)
		}
	}
	return kept
}
