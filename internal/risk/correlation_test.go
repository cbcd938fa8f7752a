package risk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCorrelationPolicy() CorrelationPolicy {
	return CorrelationPolicy{1: 2, 2: 2, 3: 3, 4: 3}
}

func TestCheckCorrelationLimit_Boundary(t *testing.T) {
	policy := testCorrelationPolicy()
	energy := func(n int) []Position {
		out := make([]Position, n)
		for i := range out {
			out[i] = Position{CorrelationGroup: "ENERGY", StrategyID: "futures_strangle", NotionalRisk: 2500}
		}
		return out
	}

	t.Run("below limit accepted", func(t *testing.T) {
		check, err := CheckCorrelationLimit("ENERGY", energy(1), 1, policy)
		require.NoError(t, err)
		assert.True(t, check.Accepted)
		assert.Equal(t, 1, check.CurrentCount)
		assert.Equal(t, 2, check.Limit)
	})

	t.Run("at limit rejected", func(t *testing.T) {
		check, err := CheckCorrelationLimit("ENERGY", energy(2), 1, policy)
		require.NoError(t, err)
		assert.False(t, check.Accepted)
		assert.Equal(t, 2, check.CurrentCount)
		assert.Equal(t, 2, check.Limit)
	})

	t.Run("empty portfolio accepted", func(t *testing.T) {
		check, err := CheckCorrelationLimit("ENERGY", nil, 1, policy)
		require.NoError(t, err)
		assert.True(t, check.Accepted)
		assert.Equal(t, 0, check.CurrentCount)
	})
}

func TestCheckCorrelationLimit_ExactMatchOnly(t *testing.T) {
	existing := []Position{
		{CorrelationGroup: "EQUITY_INDEX"},
		{CorrelationGroup: "equity_index"}, // different tag: matching is case-sensitive
		{CorrelationGroup: "EQUITY_INDEX_FUTURES"},
	}

	check, err := CheckCorrelationLimit("EQUITY_INDEX", existing, 1, testCorrelationPolicy())
	require.NoError(t, err)
	assert.Equal(t, 1, check.CurrentCount)
	assert.True(t, check.Accepted)
}

func TestCheckCorrelationLimit_UnconfiguredPhase(t *testing.T) {
	_, err := CheckCorrelationLimit("ENERGY", nil, 99, testCorrelationPolicy())
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
	assert.Contains(t, err.Error(), "phase 99")
}

func TestCheckCorrelationLimit_DoesNotMutateInput(t *testing.T) {
	existing := []Position{
		{CorrelationGroup: "METALS", StrategyID: "strangle", NotionalRisk: 1000},
		{CorrelationGroup: "ENERGY", StrategyID: "strangle", NotionalRisk: 2000},
	}
	snapshot := make([]Position, len(existing))
	copy(snapshot, existing)

	_, err := CheckCorrelationLimit("METALS", existing, 2, testCorrelationPolicy())
	require.NoError(t, err)
	assert.Equal(t, snapshot, existing)
}

func TestCheckCorrelationLimit_SequentialFold(t *testing.T) {
	// Two simultaneous ENERGY proposals against a phase-1 limit of 2 with one
	// position already open: only the first may pass, and only if the caller
	// folds it into the portfolio before the second check.
	policy := testCorrelationPolicy()
	portfolio := []Position{{CorrelationGroup: "ENERGY"}}

	first, err := CheckCorrelationLimit("ENERGY", portfolio, 1, policy)
	require.NoError(t, err)
	require.True(t, first.Accepted)
	portfolio = append(portfolio, Position{CorrelationGroup: "ENERGY"})

	second, err := CheckCorrelationLimit("ENERGY", portfolio, 1, policy)
	require.NoError(t, err)
	assert.False(t, second.Accepted)
	assert.Equal(t, 2, second.CurrentCount)
}

func TestCorrelationPolicy_Validate(t *testing.T) {
	cases := []struct {
		name    string
		policy  CorrelationPolicy
		wantErr string
	}{
		{"valid", testCorrelationPolicy(), ""},
		{"empty", CorrelationPolicy{}, "no phase entries"},
		{"zero limit", CorrelationPolicy{1: 0}, "must be > 0"},
		{"phase below one", CorrelationPolicy{0: 2}, "must be >= 1"},
		{"decreasing in phase", CorrelationPolicy{1: 3, 2: 2}, "below phase"},
		{"equal across phases ok", CorrelationPolicy{1: 2, 2: 2}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.policy.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
