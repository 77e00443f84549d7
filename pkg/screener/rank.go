package screener

import (
	"math"
	"sort"
)

// Rank orders the filtered records by percent change according to the query
// mode: ascending for loss queries (most negative first), descending for gain
// queries, descending by absolute magnitude for combined queries. The sort is
// stable so re-ranking an already ranked list preserves tie order.
func Rank(records []Record, mode Mode) {
	switch mode {
	case ModeLoss:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].ChangePercent < records[j].ChangePercent
		})
	case ModeGain:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].ChangePercent > records[j].ChangePercent
		})
	case ModeBoth:
		sort.SliceStable(records, func(i, j int) bool {
			return math.Abs(records[i].ChangePercent) > math.Abs(records[j].ChangePercent)
		})
	}
}

// Truncate caps the ranked list to the requested result count.
func Truncate(records []Record, limit int) []Record {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
