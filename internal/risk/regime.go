// Package risk implements the position risk and sizing evaluator: VIX regime
// classification, correlation-group limits, and Kelly-derived position sizing.
//
// Every function in this package is pure and synchronous. Nothing here logs,
// blocks, or touches the network; callers supply all market data (VIX, equity,
// open positions) and consume the returned result. Policies are plain values
// loaded from configuration and validated once at construction.
package risk

import (
	"math"
	"sort"
)

// RegimeBand maps a half-open VIX interval [Low, High) to a buying-power cap.
type RegimeBand struct {
	Label string  `yaml:"label"`
	Low   float64 `yaml:"low"`
	High  float64 `yaml:"high"` // exclusive; 0 on the last band means unbounded
	MaxBP float64 `yaml:"max_bp_fraction"`
}

// RegimePolicy is an ordered, contiguous set of regime bands covering
// [lowest Low, +inf). Bands must be sorted ascending with no gaps and caps
// strictly in (0,1].
type RegimePolicy struct {
	Bands []RegimeBand `yaml:"bands"`
}

// Regime is the classification outcome: a label for reporting plus the
// portfolio buying-power cap that applies in that band.
type Regime struct {
	Label string
	MaxBP float64
}

// Validate checks the policy invariants: at least one band, sorted and
// contiguous bounds, and every cap in (0,1]. A policy that fails here must
// not be used; regime classification has no safe default.
func (p RegimePolicy) Validate() error {
	if len(p.Bands) == 0 {
		return configErrorf("regime policy has no bands")
	}
	if !sort.SliceIsSorted(p.Bands, func(i, j int) bool {
		return p.Bands[i].Low < p.Bands[j].Low
	}) {
		return configErrorf("regime bands must be sorted by lower bound")
	}
	for i, b := range p.Bands {
		if b.Label == "" {
			return configErrorf("regime band %d has no label", i)
		}
		if b.MaxBP <= 0 || b.MaxBP > 1 {
			return configErrorf("regime band %q max_bp_fraction %.4f outside (0,1]", b.Label, b.MaxBP)
		}
		last := i == len(p.Bands)-1
		if !last {
			if b.High <= b.Low {
				return configErrorf("regime band %q has high %.2f <= low %.2f", b.Label, b.High, b.Low)
			}
			if next := p.Bands[i+1]; next.Low != b.High {
				return configErrorf("gap between regime bands %q and %q (%.2f != %.2f)",
					b.Label, next.Label, b.High, next.Low)
			}
		}
	}
	return nil
}

// ClassifyRegime maps a VIX reading onto the policy's bands. Readings below
// the lowest bound clamp to the first band and readings above the highest
// bound clamp to the last band: volatility is unbounded in practice and the
// classifier must stay decisive on out-of-range prints. The only failure
// modes are an empty policy and a NaN reading.
func ClassifyRegime(vix float64, policy RegimePolicy) (Regime, error) {
	if len(policy.Bands) == 0 {
		return Regime{}, configErrorf("regime policy has no bands")
	}
	if math.IsNaN(vix) {
		return Regime{}, &InvalidInputError{Field: "vix", Value: vix}
	}

	// Sub-floor readings (including negative garbage) fall into the first
	// band; anything at or above the last band's lower bound takes the last.
	bands := policy.Bands
	band := bands[len(bands)-1]
	for i := 0; i < len(bands)-1; i++ {
		if vix < bands[i].High {
			band = bands[i]
			break
		}
	}
	return Regime{Label: band.Label, MaxBP: band.MaxBP}, nil
}
