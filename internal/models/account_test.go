package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBreakpoints = []float64{40000, 55000, 75000}

func TestPhaseForEquity(t *testing.T) {
	cases := []struct {
		name   string
		equity float64
		phase  int
	}{
		{"small account", 30000, 1},
		{"just below first breakpoint", 39999.99, 1},
		{"at first breakpoint", 40000, 2},
		{"mid tier", 50000, 2},
		{"third tier", 60000, 3},
		{"at final breakpoint", 75000, 4},
		{"large account", 250000, 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			phase, err := PhaseForEquity(tc.equity, testBreakpoints)
			require.NoError(t, err)
			assert.Equal(t, tc.phase, phase)
		})
	}
}

func TestPhaseForEquity_Monotonic(t *testing.T) {
	prev := 0
	for equity := 1000.0; equity <= 200000; equity += 500 {
		phase, err := PhaseForEquity(equity, testBreakpoints)
		require.NoError(t, err)
		require.GreaterOrEqual(t, phase, prev, "phase regressed at equity %.2f", equity)
		prev = phase
	}
}

func TestPhaseForEquity_Errors(t *testing.T) {
	_, err := PhaseForEquity(-10, testBreakpoints)
	assert.Error(t, err)

	_, err = PhaseForEquity(50000, nil)
	assert.Error(t, err)

	_, err = PhaseForEquity(50000, []float64{40000, 40000})
	assert.Error(t, err)
}

func TestNewAccountState(t *testing.T) {
	acct, err := NewAccountState(62000, testBreakpoints)
	require.NoError(t, err)
	assert.Equal(t, 62000.0, acct.Equity)
	assert.Equal(t, 3, acct.Phase)
}
