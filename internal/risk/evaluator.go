package risk

import "math"

// Reason explains an evaluation outcome.
type Reason string

const (
	// ReasonAccepted means the proposal passed every gate and carries a
	// positive recommended allocation.
	ReasonAccepted Reason = "accepted"
	// ReasonCorrelationLimit means the correlation group is already at its
	// phase limit.
	ReasonCorrelationLimit Reason = "correlation_limit"
	// ReasonNegativeExpectancy means the strategy's win/loss statistics give
	// a non-positive Kelly fraction; nothing should be staked on it.
	ReasonNegativeExpectancy Reason = "negative_expectancy"
)

// EvaluationInput carries everything one evaluation needs. The evaluator
// reads only this value; it fetches nothing itself.
type EvaluationInput struct {
	VIX              float64
	Equity           float64
	Phase            int
	CorrelationGroup string
	Stats            StrategyStats
	Existing         []Position
}

// EvaluationResult is the full verdict: whether to take the trade, why, and
// how much to allocate within the regime's buying-power cap.
type EvaluationResult struct {
	Accepted bool
	Reason   Reason

	Regime                 string
	MaxBuyingPowerFraction float64

	CorrelationCount int
	CorrelationLimit int

	// RecommendedAllocation is in account currency; AllocationFraction is the
	// same figure as a fraction of equity. Both are zero when not accepted.
	RecommendedAllocation float64
	AllocationFraction    float64
}

// Evaluator binds the three policy gates together: regime cap, correlation
// limit, then sizing. Policies are validated once at construction and
// immutable afterwards, so a single Evaluator is safe for concurrent use.
type Evaluator struct {
	regime        RegimePolicy
	correlation   CorrelationPolicy
	kellyMultiple float64
}

// NewEvaluator validates both policies and the fractional-Kelly multiple
// (use 1.0 for full Kelly, smaller to de-lever the formula output before the
// regime cap is applied).
func NewEvaluator(regime RegimePolicy, correlation CorrelationPolicy, kellyMultiple float64) (*Evaluator, error) {
	if err := regime.Validate(); err != nil {
		return nil, err
	}
	if err := correlation.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(kellyMultiple) || kellyMultiple <= 0 || kellyMultiple > 1 {
		return nil, &InvalidInputError{Field: "kellyMultiple", Value: kellyMultiple}
	}
	return &Evaluator{
		regime:        regime,
		correlation:   correlation,
		kellyMultiple: kellyMultiple,
	}, nil
}

// Evaluate runs the full gate sequence for one proposed position:
// classify the VIX regime, check the correlation limit, and if the proposal
// survives, size it within the regime's buying-power cap.
//
// Like CheckCorrelationLimit, this evaluates a single proposal. Batch
// proposals must be evaluated sequentially with accepted ones folded into
// in.Existing between calls.
func (e *Evaluator) Evaluate(in EvaluationInput) (EvaluationResult, error) {
	if math.IsNaN(in.Equity) || math.IsInf(in.Equity, 0) || in.Equity <= 0 {
		return EvaluationResult{}, &InvalidInputError{Field: "equity", Value: in.Equity}
	}

	regime, err := ClassifyRegime(in.VIX, e.regime)
	if err != nil {
		return EvaluationResult{}, err
	}

	res := EvaluationResult{
		Regime:                 regime.Label,
		MaxBuyingPowerFraction: regime.MaxBP,
	}

	check, err := CheckCorrelationLimit(in.CorrelationGroup, in.Existing, in.Phase, e.correlation)
	if err != nil {
		return EvaluationResult{}, err
	}
	res.CorrelationCount = check.CurrentCount
	res.CorrelationLimit = check.Limit
	if !check.Accepted {
		res.Reason = ReasonCorrelationLimit
		return res, nil
	}

	f, err := KellyFraction(in.Stats)
	if err != nil {
		return EvaluationResult{}, err
	}
	if f <= 0 {
		res.Reason = ReasonNegativeExpectancy
		return res, nil
	}

	fraction := clipFraction(f*e.kellyMultiple, regime.MaxBP)
	res.Accepted = true
	res.Reason = ReasonAccepted
	res.AllocationFraction = fraction
	res.RecommendedAllocation = in.Equity * fraction
	return res, nil
}
