package metrics

// ParsedStat is one row of the percentile distribution table in the
// shape the classic HDR textual report uses. Value is in milliseconds,
// Percentile in [0, 100], TotalCount the cumulative number of samples at
// or below Value. OfOnePercentile is 1/(1-percentile/100), the "one in
// N" reading of the row; it is omitted on the terminal row where it has
// no finite value.
type ParsedStat struct {
	Value           float64 `json:"value"`
	Percentile      float64 `json:"percentile"`
	TotalCount      int64   `json:"totalCount"`
	OfOnePercentile float64 `json:"ofOnePercentile,omitempty"`
}

// ParsedStats renders the cumulative distribution of the histogram as
// table rows. Rows ascend in both value and percentile; an empty
// histogram yields an empty table.
func (h *Histogram) ParsedStats() []ParsedStat {
	if h.h.TotalCount() == 0 {
		return []ParsedStat{}
	}
	brackets := h.h.CumulativeDistribution()
	stats := make([]ParsedStat, 0, len(brackets))
	for _, b := range brackets {
		row := ParsedStat{
			Value:      float64(b.ValueAt) / 1e3,
			Percentile: b.Quantile,
			TotalCount: b.Count,
		}
		if b.Quantile < 100 {
			row.OfOnePercentile = 1 / (1 - b.Quantile/100)
		}
		stats = append(stats, row)
	}
	return stats
}
