// Package analytics computes valuation overlays for chart sessions.
package analytics

import (
	"sort"

	"TradeSync/internal/domain/models"
)

// SortBars returns a copy of bars sorted ascending by timestamp. The
// backend does not guarantee chronological order, so anything doing
// index-based lookup works on the sorted copy.
func SortBars(bars []models.Bar) []models.Bar {
	out := make([]models.Bar, len(bars))
	copy(out, bars)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// baselineWindow maps the configured baseline to its SMA window.
func baselineWindow(b string) int {
	if b == models.BaselineSMA50 {
		return 50
	}
	return 20
}

// sma computes the simple moving average of closes ending at index i
// (inclusive) over the given window. Returns false while fewer than
// window bars are available.
func sma(bars []models.Bar, i, window int) (float64, bool) {
	if i+1 < window {
		return 0, false
	}
	var sum float64
	for j := i - window + 1; j <= i; j++ {
		sum += bars[j].Close
	}
	return sum / float64(window), true
}

// DetectOpportunities scans sorted bars for closes that deviate from the
// SMA baseline beyond the configured thresholds. overPct and underPct are
// the effective thresholds after timeframe scaling. A disabled config
// yields no markers.
func DetectOpportunities(sorted []models.Bar, cfg models.ValuationConfig, overPct, underPct float64) []models.Opportunity {
	if !cfg.Enabled {
		return nil
	}

	window := baselineWindow(cfg.Baseline)
	var out []models.Opportunity
	for i := range sorted {
		base, ok := sma(sorted, i, window)
		if !ok || base == 0 {
			continue
		}
		switch {
		case sorted[i].Close > base*(1+overPct/100):
			out = append(out, models.Opportunity{
				Index:     i,
				Timestamp: sorted[i].Timestamp,
				Price:     sorted[i].Close,
				Kind:      models.Overvalued,
			})
		case sorted[i].Close < base*(1-underPct/100):
			out = append(out, models.Opportunity{
				Index:     i,
				Timestamp: sorted[i].Timestamp,
				Price:     sorted[i].Close,
				Kind:      models.Undervalued,
			})
		}
	}
	return out
}
