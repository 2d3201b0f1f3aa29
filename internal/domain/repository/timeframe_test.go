package repository

import "testing"

func TestNormalizeTimeframe(t *testing.T) {
	cases := []struct {
		in   string
		want Timeframe
	}{
		{"", TF1D},
		{"1D", TF1D},
		{"1Min", TF1Min},
		{"15Min", TF15Min},
		{"2Week", TF1D},
	}
	for _, c := range cases {
		if got := NormalizeTimeframe(c.in); got != c.want {
			t.Fatalf("NormalizeTimeframe(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestEffectiveThreshold(t *testing.T) {
	cases := []struct {
		tf   Timeframe
		pct  float64
		want float64
	}{
		{TF1Min, 3, 1.0},
		{TF5Min, 3, 1.5},
		{TF1D, 3, 3},
		{TF1H, 3, 3},
		{TF1Min, 0.9, 0.5},  // floor
		{TF5Min, 1.0, 0.75}, // floor
	}
	for _, c := range cases {
		if got := EffectiveThreshold(c.tf, c.pct); got != c.want {
			t.Fatalf("EffectiveThreshold(%s, %v) = %v, want %v", c.tf, c.pct, got, c.want)
		}
	}
}

func TestRangeMapping(t *testing.T) {
	if got := FetchLimit(2); got != 300 {
		t.Fatalf("FetchLimit(2) = %d, want 300", got)
	}
	if got := FetchLimit(-1); got != 100 {
		t.Fatalf("FetchLimit(-1) = %d, want 100", got)
	}
	if got := FetchLimit(99); got != 100 {
		t.Fatalf("FetchLimit(99) = %d, want 100", got)
	}
	if got := RangeMultiplier(5); got != 100 {
		t.Fatalf("RangeMultiplier(5) = %d, want 100", got)
	}
}
