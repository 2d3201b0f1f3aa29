package repository

// Timeframe is a chart bar granularity accepted by the backend.
type Timeframe string

const (
	TF1Min  Timeframe = "1Min"
	TF5Min  Timeframe = "5Min"
	TF15Min Timeframe = "15Min"
	TF1H    Timeframe = "1H"
	TF1D    Timeframe = "1D"
)

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1Min, TF5Min, TF15Min, TF1H, TF1D:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1D }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// EffectiveThreshold scales a configured valuation percentage for the
// timeframe. The two finest granularities get tighter bands so intraday
// charts are not flooded with markers: 1Min divides by 3 (floor 0.5),
// 5Min divides by 2 (floor 0.75); coarser timeframes pass through.
func EffectiveThreshold(tf Timeframe, pct float64) float64 {
	switch tf {
	case TF1Min:
		return max(0.5, pct/3)
	case TF5Min:
		return max(0.75, pct/2)
	default:
		return pct
	}
}

// RangeSteps is the ordered multiplier table selected by a discrete
// range index.
var RangeSteps = []int{10, 20, 30, 40, 50, 100}

// RangeMultiplier returns the multiplier for a range index. An
// out-of-bounds index clamps to the first step.
func RangeMultiplier(idx int) int {
	if idx < 0 || idx >= len(RangeSteps) {
		return RangeSteps[0]
	}
	return RangeSteps[idx]
}

// FetchLimit is the REST bar limit for a range index: multiplier x 10.
func FetchLimit(idx int) int {
	return RangeMultiplier(idx) * 10
}
