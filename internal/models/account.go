package models

import "fmt"

// AccountState is the per-evaluation snapshot of the account: current equity
// and the phase tier derived from it. Values are rebuilt each cycle from
// broker data; nothing here is persisted.
type AccountState struct {
	Equity float64 `json:"equity"`
	Phase  int     `json:"phase"`
}

// PhaseForEquity maps equity onto a phase tier (1..len(breakpoints)+1) using
// fixed ascending breakpoints. With breakpoints [40000, 55000, 75000]:
// equity < 40000 is phase 1, < 55000 phase 2, < 75000 phase 3, else phase 4.
// Phase is monotonic non-decreasing in equity by construction.
func PhaseForEquity(equity float64, breakpoints []float64) (int, error) {
	if equity <= 0 {
		return 0, fmt.Errorf("equity must be positive, got %.2f", equity)
	}
	if len(breakpoints) == 0 {
		return 0, fmt.Errorf("phase breakpoints must not be empty")
	}
	for i := 1; i < len(breakpoints); i++ {
		if breakpoints[i] <= breakpoints[i-1] {
			return 0, fmt.Errorf("phase breakpoints must be strictly ascending: %.2f after %.2f",
				breakpoints[i], breakpoints[i-1])
		}
	}

	phase := len(breakpoints) + 1
	for i, bp := range breakpoints {
		if equity < bp {
			phase = i + 1
			break
		}
	}
	return phase, nil
}

// NewAccountState builds an AccountState from equity and phase breakpoints.
func NewAccountState(equity float64, breakpoints []float64) (AccountState, error) {
	phase, err := PhaseForEquity(equity, breakpoints)
	if err != nil {
		return AccountState{}, err
	}
	return AccountState{Equity: equity, Phase: phase}, nil
}
