package screener

import (
	"testing"

	"stockdrop/pkg/external"
)

func TestMerge_EnrichesQuoteWithScreenerFields(t *testing.T) {
	candidates := []external.ScreenerStock{
		{Symbol: "X", Sector: "Technology", MarketCap: 1e9, Country: "US", Beta: 1.2},
	}
	quotes := []external.Quote{
		{Symbol: "X", Price: 10, ChangesPercentage: -2, Volume: 500},
	}

	records := Merge(candidates, quotes)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.Price != 10 || r.ChangePercent != -2 {
		t.Errorf("quote fields not carried over: %+v", r)
	}
	if r.Sector != "Technology" || r.MarketCap != 1e9 || r.Country != "US" || r.Beta != 1.2 {
		t.Errorf("screener fields not preserved: %+v", r)
	}
}

func TestMerge_QuoteWinsOnOverlap(t *testing.T) {
	candidates := []external.ScreenerStock{
		{Symbol: "X", Price: 9, Volume: 100, MarketCap: 5e8, ExchangeShortName: "NYSE"},
	}
	quotes := []external.Quote{
		{Symbol: "X", Price: 10, Volume: 500, MarketCap: 6e8, Exchange: "NASDAQ"},
	}

	r := Merge(candidates, quotes)[0]
	if r.Price != 10 {
		t.Errorf("expected quote price 10, got %v", r.Price)
	}
	if r.Volume != 500 {
		t.Errorf("expected quote volume 500, got %v", r.Volume)
	}
	if r.MarketCap != 6e8 {
		t.Errorf("expected quote market cap 6e8, got %v", r.MarketCap)
	}
	if r.Exchange != "NASDAQ" {
		t.Errorf("expected quote exchange NASDAQ, got %q", r.Exchange)
	}
}

func TestMerge_KeepsQuoteWithoutScreenerCounterpart(t *testing.T) {
	quotes := []external.Quote{
		{Symbol: "Y", Price: 3, ChangesPercentage: 1.5, Volume: 50},
	}

	records := Merge(nil, quotes)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.Sector != "" || r.Country != "" {
		t.Errorf("expected classification fields absent, got %+v", r)
	}
	if r.IsETF != nil || r.IsActivelyTrading != nil {
		t.Error("expected trading-status flags unknown without screener data")
	}
}

func TestMerge_DropsScreenerCandidateWithoutQuote(t *testing.T) {
	candidates := []external.ScreenerStock{
		{Symbol: "A"},
		{Symbol: "B"},
	}
	quotes := []external.Quote{
		{Symbol: "B", Price: 1, Volume: 1},
	}

	records := Merge(candidates, quotes)
	if len(records) != 1 || records[0].Symbol != "B" {
		t.Fatalf("expected only B to survive, got %+v", records)
	}
}

func TestMerge_FillsGapsFromScreener(t *testing.T) {
	candidates := []external.ScreenerStock{
		{Symbol: "X", CompanyName: "X Corp", Price: 4, Volume: 200, MarketCap: 2e9},
	}
	quotes := []external.Quote{
		{Symbol: "X", ChangesPercentage: -7},
	}

	r := Merge(candidates, quotes)[0]
	if r.Name != "X Corp" {
		t.Errorf("expected name filled from screener, got %q", r.Name)
	}
	if r.Price != 4 || r.Volume != 200 || r.MarketCap != 2e9 {
		t.Errorf("expected gaps filled from screener, got %+v", r)
	}
}
