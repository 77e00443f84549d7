package screener

// Filter applies the criteria's predicate over the merged record set. Records
// with non-positive price or volume are always excluded, regardless of the
// explicit criteria. A record missing a value on a bounded dimension is
// excluded from that query.
func Filter(records []Record, c Criteria) []Record {
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if matches(r, c) {
			kept = append(kept, r)
		}
	}
	return kept
}

func matches(r Record, c Criteria) bool {
	// Basic sanity filter applied uniformly.
	if r.Price <= 0 || r.Volume <= 0 {
		return false
	}

	if !floatInBounds(r.Price, c.PriceMin, c.PriceMax, false) {
		return false
	}
	if !floatInBounds(r.MarketCap, c.MarketCapMin, c.MarketCapMax, true) {
		return false
	}
	if !intInBounds(r.Volume, c.VolumeMin, c.VolumeMax) {
		return false
	}
	if !floatInBounds(r.Beta, c.BetaMin, c.BetaMax, true) {
		return false
	}
	if !floatInBounds(r.DividendYield, c.DividendYieldMin, c.DividendYieldMax, true) {
		return false
	}

	if c.Sector != "" && r.Sector != c.Sector {
		return false
	}
	if c.Industry != "" && r.Industry != c.Industry {
		return false
	}
	if c.Exchange != "" && r.Exchange != c.Exchange {
		return false
	}
	if c.Country != "" && r.Country != c.Country {
		return false
	}

	if !flagMatches(r.IsETF, c.IsETF) {
		return false
	}
	if !flagMatches(r.IsFund, c.IsFund) {
		return false
	}
	if !flagMatches(r.IsActivelyTrading, c.IsActivelyTrading) {
		return false
	}

	switch c.Mode {
	case ModeLoss:
		return r.ChangePercent <= -c.Threshold
	case ModeGain:
		return r.ChangePercent >= c.Threshold
	case ModeBoth:
		return r.ChangePercent <= -c.Threshold || r.ChangePercent >= c.Threshold
	}
	return false
}

// floatInBounds reports whether value satisfies the optional closed bounds.
// When zeroIsMissing is set, a zero value fails any bounded query on that
// dimension because the provider did not report it.
func floatInBounds(value float64, min, max *float64, zeroIsMissing bool) bool {
	if min == nil && max == nil {
		return true
	}
	if zeroIsMissing && value == 0 {
		return false
	}
	if min != nil && value < *min {
		return false
	}
	if max != nil && value > *max {
		return false
	}
	return true
}

func intInBounds(value int64, min, max *int64) bool {
	if min != nil && value < *min {
		return false
	}
	if max != nil && value > *max {
		return false
	}
	return true
}

// flagMatches applies a tri-state flag: an unset criterion matches anything;
// a set criterion requires the record to carry the flag with the same value.
func flagMatches(have *bool, want *bool) bool {
	if want == nil {
		return true
	}
	return have != nil && *have == *want
}
