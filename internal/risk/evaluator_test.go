package risk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	ev, err := NewEvaluator(testRegimePolicy(), testCorrelationPolicy(), 1.0)
	require.NoError(t, err)
	return ev
}

func TestNewEvaluator_RejectsBadPolicies(t *testing.T) {
	_, err := NewEvaluator(RegimePolicy{}, testCorrelationPolicy(), 1.0)
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = NewEvaluator(testRegimePolicy(), CorrelationPolicy{}, 1.0)
	assert.True(t, errors.As(err, &cfgErr))

	_, err = NewEvaluator(testRegimePolicy(), testCorrelationPolicy(), 0)
	var inputErr *InvalidInputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "kellyMultiple", inputErr.Field)
}

func TestEvaluate_AcceptedFlow(t *testing.T) {
	ev := newTestEvaluator(t)

	res, err := ev.Evaluate(EvaluationInput{
		VIX:              22, // normal band, 0.75 cap
		Equity:           80000,
		Phase:            4,
		CorrelationGroup: "EQUITY_INDEX",
		Stats:            StrategyStats{WinRate: 0.88, AvgWin: 200, AvgLoss: 50},
		Existing: []Position{
			{CorrelationGroup: "ENERGY"},
			{CorrelationGroup: "EQUITY_INDEX"},
		},
	})
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.Equal(t, ReasonAccepted, res.Reason)
	assert.Equal(t, "normal", res.Regime)
	assert.Equal(t, 0.75, res.MaxBuyingPowerFraction)
	assert.Equal(t, 1, res.CorrelationCount)
	assert.Equal(t, 3, res.CorrelationLimit)
	// Raw Kelly 0.85 clipped to the 0.75 regime cap.
	assert.InDelta(t, 0.75, res.AllocationFraction, 1e-12)
	assert.InDelta(t, 60000, res.RecommendedAllocation, 1e-9)
}

func TestEvaluate_CorrelationRejection(t *testing.T) {
	ev := newTestEvaluator(t)

	res, err := ev.Evaluate(EvaluationInput{
		VIX:              15,
		Equity:           45000,
		Phase:            1,
		CorrelationGroup: "ENERGY",
		Stats:            StrategyStats{WinRate: 0.8, AvgWin: 100, AvgLoss: 50},
		Existing: []Position{
			{CorrelationGroup: "ENERGY"},
			{CorrelationGroup: "ENERGY"},
		},
	})
	require.NoError(t, err)

	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonCorrelationLimit, res.Reason)
	assert.Equal(t, 2, res.CorrelationCount)
	assert.Equal(t, 2, res.CorrelationLimit)
	assert.Zero(t, res.RecommendedAllocation)
	assert.Zero(t, res.AllocationFraction)
	// Regime info still reported so the caller can explain the rejection.
	assert.Equal(t, "low", res.Regime)
	assert.Equal(t, 0.65, res.MaxBuyingPowerFraction)
}

func TestEvaluate_NegativeExpectancy(t *testing.T) {
	ev := newTestEvaluator(t)

	res, err := ev.Evaluate(EvaluationInput{
		VIX:              20,
		Equity:           50000,
		Phase:            2,
		CorrelationGroup: "METALS",
		Stats:            StrategyStats{WinRate: 0.4, AvgWin: 100, AvgLoss: 100},
	})
	require.NoError(t, err)

	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonNegativeExpectancy, res.Reason)
	assert.Zero(t, res.RecommendedAllocation)
}

func TestEvaluate_FractionalKelly(t *testing.T) {
	ev, err := NewEvaluator(testRegimePolicy(), testCorrelationPolicy(), 0.25)
	require.NoError(t, err)

	res, err := ev.Evaluate(EvaluationInput{
		VIX:              22,
		Equity:           100000,
		Phase:            3,
		CorrelationGroup: "EQUITY_INDEX",
		Stats:            StrategyStats{WinRate: 0.6, AvgWin: 100, AvgLoss: 100}, // raw f* = 0.2
	})
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.InDelta(t, 0.05, res.AllocationFraction, 1e-12)
	assert.InDelta(t, 5000, res.RecommendedAllocation, 1e-9)
}

func TestEvaluate_InvalidInputs(t *testing.T) {
	ev := newTestEvaluator(t)

	_, err := ev.Evaluate(EvaluationInput{
		VIX: 20, Equity: -1, Phase: 1, CorrelationGroup: "ENERGY",
		Stats: StrategyStats{WinRate: 0.5, AvgWin: 100, AvgLoss: 100},
	})
	var inputErr *InvalidInputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "equity", inputErr.Field)

	_, err = ev.Evaluate(EvaluationInput{
		VIX: 20, Equity: 10000, Phase: 42, CorrelationGroup: "ENERGY",
		Stats: StrategyStats{WinRate: 0.5, AvgWin: 100, AvgLoss: 100},
	})
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
}

func TestEvaluate_Idempotent(t *testing.T) {
	ev := newTestEvaluator(t)
	in := EvaluationInput{
		VIX:              27,
		Equity:           62000,
		Phase:            3,
		CorrelationGroup: "ENERGY",
		Stats:            StrategyStats{WinRate: 0.73, AvgWin: 150, AvgLoss: 90},
		Existing:         []Position{{CorrelationGroup: "ENERGY"}},
	}

	first, err := ev.Evaluate(in)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		got, err := ev.Evaluate(in)
		require.NoError(t, err)
		require.Equal(t, first, got)
	}
}
