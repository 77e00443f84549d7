package screener

import "fmt"

// Mode selects which side of the daily move a query is interested in.
type Mode string

const (
	ModeLoss Mode = "loss"
	ModeGain Mode = "gain"
	ModeBoth Mode = "both"
)

// MaxLimit bounds the result count a caller may request.
const MaxLimit = 5000

// Criteria describes one filtered, ranked query over the merged record set.
// A nil bound imposes no constraint on that dimension; a nil tri-state flag
// matches records regardless of the flag's value.
type Criteria struct {
	Mode      Mode    `json:"mode"`
	Threshold float64 `json:"threshold"`

	PriceMin         *float64 `json:"price_min,omitempty"`
	PriceMax         *float64 `json:"price_max,omitempty"`
	MarketCapMin     *float64 `json:"market_cap_min,omitempty"`
	MarketCapMax     *float64 `json:"market_cap_max,omitempty"`
	VolumeMin        *int64   `json:"volume_min,omitempty"`
	VolumeMax        *int64   `json:"volume_max,omitempty"`
	BetaMin          *float64 `json:"beta_min,omitempty"`
	BetaMax          *float64 `json:"beta_max,omitempty"`
	DividendYieldMin *float64 `json:"dividend_yield_min,omitempty"`
	DividendYieldMax *float64 `json:"dividend_yield_max,omitempty"`

	Sector   string `json:"sector,omitempty"`
	Industry string `json:"industry,omitempty"`
	Exchange string `json:"exchange,omitempty"`
	Country  string `json:"country,omitempty"`

	IsETF             *bool `json:"is_etf,omitempty"`
	IsFund            *bool `json:"is_fund,omitempty"`
	IsActivelyTrading *bool `json:"is_actively_trading,omitempty"`

	IncludeAllShareClasses bool `json:"include_all_share_classes,omitempty"`

	Limit int `json:"limit"`
}

// Validate checks the criteria are internally consistent
func (c *Criteria) Validate() error {
	switch c.Mode {
	case ModeLoss, ModeGain, ModeBoth:
	case "":
		return fmt.Errorf("mode is required")
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must not be negative, got %v", c.Threshold)
	}
	if c.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", c.Limit)
	}
	if c.Limit > MaxLimit {
		return fmt.Errorf("limit must not exceed %d, got %d", MaxLimit, c.Limit)
	}
	return nil
}
