package screener

import "stockdrop/pkg/external"

// Record is the per-symbol union of screener and quote data. It is the unit
// of filtering and ranking. Zero-valued numeric fields and empty
// classification strings mean the value is unknown for this symbol.
type Record struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
	DayLow        float64 `json:"day_low,omitempty"`
	DayHigh       float64 `json:"day_high,omitempty"`
	YearLow       float64 `json:"year_low,omitempty"`
	YearHigh      float64 `json:"year_high,omitempty"`
	MarketCap     float64 `json:"market_cap,omitempty"`
	Beta          float64 `json:"beta,omitempty"`
	DividendYield float64 `json:"dividend_yield,omitempty"`
	Sector        string  `json:"sector,omitempty"`
	Industry      string  `json:"industry,omitempty"`
	Exchange      string  `json:"exchange,omitempty"`
	Country       string  `json:"country,omitempty"`

	// Trading-status flags are only known when screener data was present.
	IsETF             *bool `json:"is_etf,omitempty"`
	IsFund            *bool `json:"is_fund,omitempty"`
	IsActivelyTrading *bool `json:"is_actively_trading,omitempty"`
}

// Merge produces one record per quote, enriched with screener fields when the
// symbol appears in the screener list. Quote values win on overlapping
// fields. A quote with no screener counterpart still yields a record with
// only quote-sourced fields populated; a screener candidate with no quote is
// dropped.
func Merge(candidates []external.ScreenerStock, quotes []external.Quote) []Record {
	bySymbol := make(map[string]external.ScreenerStock, len(candidates))
	for _, c := range candidates {
		bySymbol[c.Symbol] = c
	}

	records := make([]Record, 0, len(quotes))
	for _, q := range quotes {
		r := Record{
			Symbol:        q.Symbol,
			Name:          q.Name,
			Price:         q.Price,
			Change:        q.Change,
			ChangePercent: q.ChangesPercentage,
			Volume:        q.Volume,
			DayLow:        q.DayLow,
			DayHigh:       q.DayHigh,
			YearLow:       q.YearLow,
			YearHigh:      q.YearHigh,
			MarketCap:     q.MarketCap,
			Exchange:      q.Exchange,
		}

		if c, ok := bySymbol[q.Symbol]; ok {
			if r.Name == "" {
				r.Name = c.CompanyName
			}
			if r.Price == 0 {
				r.Price = c.Price
			}
			if r.Volume == 0 {
				r.Volume = c.Volume
			}
			if r.MarketCap == 0 {
				r.MarketCap = c.MarketCap
			}
			if r.Exchange == "" {
				r.Exchange = c.ExchangeShortName
			}
			r.Beta = c.Beta
			r.Sector = c.Sector
			r.Industry = c.Industry
			r.Country = c.Country
			if c.Price > 0 {
				r.DividendYield = c.LastAnnualDividend / c.Price * 100
			}
			isETF, isFund, isActive := c.IsETF, c.IsFund, c.IsActivelyTrading
			r.IsETF = &isETF
			r.IsFund = &isFund
			r.IsActivelyTrading = &isActive
		}

		records = append(records, r)
	}

	return records
}
