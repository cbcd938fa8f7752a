package risk

import "sort"

// Position is the portfolio view the evaluator needs: the correlation tag,
// the owning strategy, and the capital at risk. The caller owns the list's
// lifecycle; this package only reads it.
type Position struct {
	CorrelationGroup string
	StrategyID       string
	NotionalRisk     float64
}

// CorrelationPolicy maps an account phase to the maximum number of open
// positions allowed in a single correlation group.
type CorrelationPolicy map[int]int

// CorrelationCheck reports the outcome of a single correlation-limit check.
// A rejection is a business decision, not a fault, so it travels in the
// result rather than as an error.
type CorrelationCheck struct {
	Accepted     bool
	CurrentCount int
	Limit        int
}

// Validate checks that every phase limit is positive and that limits are
// non-decreasing as the phase rises (larger accounts never get stricter
// correlation caps).
func (p CorrelationPolicy) Validate() error {
	if len(p) == 0 {
		return configErrorf("correlation policy has no phase entries")
	}
	phases := make([]int, 0, len(p))
	for phase, limit := range p {
		if phase < 1 {
			return configErrorf("correlation policy phase %d must be >= 1", phase)
		}
		if limit <= 0 {
			return configErrorf("correlation policy limit for phase %d must be > 0, got %d", phase, limit)
		}
		phases = append(phases, phase)
	}
	sort.Ints(phases)
	for i := 1; i < len(phases); i++ {
		lo, hi := phases[i-1], phases[i]
		if p[hi] < p[lo] {
			return configErrorf("correlation limit for phase %d (%d) below phase %d (%d)",
				hi, p[hi], lo, p[lo])
		}
	}
	return nil
}

// CheckCorrelationLimit counts existing positions whose tag exactly matches
// group (case-sensitive; tag taxonomy is the caller's problem) and accepts
// the proposal iff the count is below the phase's configured limit. A phase
// with no policy entry is a configuration error — silently defaulting to
// permissive or restrictive would hide a deployment bug.
//
// The check covers one proposal at a time. A caller evaluating several
// proposals against a shared portfolio must serialize the calls and fold each
// accepted proposal into existing before the next call, otherwise positions
// are double-admitted under the same limit.
func CheckCorrelationLimit(group string, existing []Position, phase int, policy CorrelationPolicy) (CorrelationCheck, error) {
	limit, ok := policy[phase]
	if !ok {
		return CorrelationCheck{}, configErrorf("no correlation limit configured for phase %d", phase)
	}

	count := 0
	for _, pos := range existing {
		if pos.CorrelationGroup == group {
			count++
		}
	}

	return CorrelationCheck{
		Accepted:     count < limit,
		CurrentCount: count,
		Limit:        limit,
	}, nil
}
