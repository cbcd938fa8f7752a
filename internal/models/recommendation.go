package models

import "time"

// Recommendation is one advisor verdict for a candidate strategy entry. It is
// what the reporting surfaces (CLI, status API) render and what the paper
// engine turns into a staged position when accepted.
type Recommendation struct {
	ID               string    `json:"id"`
	StrategyID       string    `json:"strategy_id"`
	Symbol           string    `json:"symbol"`
	CorrelationGroup string    `json:"correlation_group"`
	Accepted         bool      `json:"accepted"`
	Reason           string    `json:"reason"`
	Regime           string    `json:"regime"`
	VIX              float64   `json:"vix"`
	MaxBPFraction    float64   `json:"max_bp_fraction"`
	Allocation       float64   `json:"allocation"`
	AllocationPct    float64   `json:"allocation_pct"`
	Phase            int       `json:"phase"`
	GeneratedAt      time.Time `json:"generated_at"`
}
