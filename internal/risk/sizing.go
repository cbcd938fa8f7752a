package risk

import "math"

// StrategyStats holds the historical win/loss profile used for sizing.
// Values are caller-supplied configuration (or realized journal statistics),
// never hard-coded by this package.
type StrategyStats struct {
	WinRate float64 `yaml:"win_rate"` // in [0,1]
	AvgWin  float64 `yaml:"avg_win"`  // average winning trade, > 0
	AvgLoss float64 `yaml:"avg_loss"` // average losing trade as a positive amount, > 0
}

// Validate checks the stats domain and names the first offending field.
func (s StrategyStats) Validate() error {
	if math.IsNaN(s.WinRate) || s.WinRate < 0 || s.WinRate > 1 {
		return &InvalidInputError{Field: "winRate", Value: s.WinRate}
	}
	if math.IsNaN(s.AvgWin) || math.IsInf(s.AvgWin, 0) || s.AvgWin <= 0 {
		return &InvalidInputError{Field: "avgWinAmount", Value: s.AvgWin}
	}
	if math.IsNaN(s.AvgLoss) || math.IsInf(s.AvgLoss, 0) || s.AvgLoss <= 0 {
		return &InvalidInputError{Field: "avgLossAmount", Value: s.AvgLoss}
	}
	return nil
}

// KellyFraction returns the raw Kelly criterion fraction for the given stats.
//
// The variant used throughout this repository is the payoff-ratio form:
//
//	b  = avgWin / avgLoss
//	f* = winRate - (1 - winRate) / b
//
// which is negative or zero exactly when winRate*avgWin <= (1-winRate)*avgLoss,
// so a negative-expectancy setup can never produce a positive stake. The raw
// value is not clipped here; SizePosition applies the policy caps.
func KellyFraction(stats StrategyStats) (float64, error) {
	if err := stats.Validate(); err != nil {
		return 0, err
	}
	b := stats.AvgWin / stats.AvgLoss
	return stats.WinRate - (1-stats.WinRate)/b, nil
}

// SizePosition computes the recommended dollar allocation for one position:
// the raw Kelly fraction clipped to [0, maxBPFraction], times equity.
//
// Kelly is known to overbet under fat tails and estimation error, so the
// regime-driven ceiling always wins over the formula output. That output
// clipping is deliberate; malformed *inputs* are never clipped — they fail
// with InvalidInputError so caller bugs surface instead of shrinking quietly.
func SizePosition(equity float64, stats StrategyStats, maxBPFraction float64) (float64, error) {
	if math.IsNaN(equity) || math.IsInf(equity, 0) || equity <= 0 {
		return 0, &InvalidInputError{Field: "equity", Value: equity}
	}
	if math.IsNaN(maxBPFraction) || maxBPFraction <= 0 || maxBPFraction > 1 {
		return 0, &InvalidInputError{Field: "maxBuyingPowerFraction", Value: maxBPFraction}
	}

	f, err := KellyFraction(stats)
	if err != nil {
		return 0, err
	}

	return equity * clipFraction(f, maxBPFraction), nil
}

func clipFraction(f, ceiling float64) float64 {
	if f < 0 {
		return 0
	}
	if f > ceiling {
		return ceiling
	}
	return f
}
