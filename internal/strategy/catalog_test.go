package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomking/trading-framework/internal/config"
	"github.com/tomking/trading-framework/internal/risk"
)

func testConfigs() []config.StrategyConfig {
	return []config.StrategyConfig{
		{
			ID:               "zero_dte_condor",
			Name:             "0DTE Iron Condor",
			Symbol:           "SPY",
			CorrelationGroup: "EQUITY_INDEX",
			MinPhase:         1,
			EntryDays:        []string{"Friday"},
			EntryStart:       "10:30",
			EntryEnd:         "11:00",
			TargetDTE:        0,
			ProfitTarget:     0.50,
			StopLossPct:      2.0,
			Stats:            risk.StrategyStats{WinRate: 0.88, AvgWin: 180, AvgLoss: 420},
		},
		{
			ID:               "futures_strangle",
			Name:             "Crude Strangle",
			Symbol:           "/CL",
			CorrelationGroup: "ENERGY",
			MinPhase:         3,
			EntryDays:        []string{"Monday", "Wednesday"},
			EntryStart:       "09:45",
			EntryEnd:         "15:30",
			TargetDTE:        45,
			ProfitTarget:     0.50,
			StopLossPct:      2.0,
			Stats:            risk.StrategyStats{WinRate: 0.70, AvgWin: 350, AvgLoss: 500},
		},
	}
}

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestNewCatalogRejectsBadWindows(t *testing.T) {
	bad := testConfigs()
	bad[0].EntryDays = []string{"Funday"}
	_, err := NewCatalog(bad, time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entry day")

	bad = testConfigs()
	bad[0].EntryEnd = "10:00"
	_, err = NewCatalog(bad, time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ends before it starts")

	bad = testConfigs()
	bad[1].ID = bad[0].ID
	_, err = NewCatalog(bad, time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate strategy id")
}

func TestEntryWindowBoundaries(t *testing.T) {
	loc := newYork(t)
	cat, err := NewCatalog(testConfigs(), loc)
	require.NoError(t, err)

	condor, ok := cat.ByID("zero_dte_condor")
	require.True(t, ok)

	// 2026-09-04 is a Friday.
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before open", time.Date(2026, 9, 4, 10, 29, 59, 0, loc), false},
		{"start inclusive", time.Date(2026, 9, 4, 10, 30, 0, 0, loc), true},
		{"mid window", time.Date(2026, 9, 4, 10, 45, 0, 0, loc), true},
		{"end exclusive", time.Date(2026, 9, 4, 11, 0, 0, 0, loc), false},
		{"wrong day", time.Date(2026, 9, 3, 10, 45, 0, 0, loc), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cat.InEntryWindow(condor, tc.at))
		})
	}
}

func TestEntryWindowCrossesTimezones(t *testing.T) {
	loc := newYork(t)
	cat, err := NewCatalog(testConfigs(), loc)
	require.NoError(t, err)

	condor, _ := cat.ByID("zero_dte_condor")

	// 14:45 UTC on a Friday is 10:45 in New York during DST.
	utcInstant := time.Date(2026, 9, 4, 14, 45, 0, 0, time.UTC)
	assert.True(t, cat.InEntryWindow(condor, utcInstant))
}

func TestPhaseGate(t *testing.T) {
	cat, err := NewCatalog(testConfigs(), time.UTC)
	require.NoError(t, err)

	strangle, ok := cat.ByID("futures_strangle")
	require.True(t, ok)
	assert.False(t, strangle.EligibleForPhase(2))
	assert.True(t, strangle.EligibleForPhase(3))
	assert.True(t, strangle.EligibleForPhase(4))
}

func TestTargetExpirationLandsOnFriday(t *testing.T) {
	cat, err := NewCatalog(testConfigs(), time.UTC)
	require.NoError(t, err)

	strangle, _ := cat.ByID("futures_strangle")
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) // Tuesday

	// Sept 1 + 45 days is Friday Oct 16; the expiration is its midnight.
	exp := strangle.TargetExpiration(now)
	assert.Equal(t, time.Friday, exp.Weekday())
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), exp)

	condor, _ := cat.ByID("zero_dte_condor")
	friday := time.Date(2026, 9, 4, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, friday.Truncate(24*time.Hour), condor.TargetExpiration(friday))
}

func TestCandidatesRespectWindowAndPhase(t *testing.T) {
	loc := newYork(t)
	cat, err := NewCatalog(testConfigs(), loc)
	require.NoError(t, err)

	// Friday 10:45 NY: only the condor window is open.
	friday := time.Date(2026, 9, 4, 10, 45, 0, 0, loc)
	candidates := cat.Candidates(friday, 1)
	require.Len(t, candidates, 1)
	assert.Equal(t, "zero_dte_condor", candidates[0].StrategyID)
	assert.Equal(t, "EQUITY_INDEX", candidates[0].CorrelationGroup)

	// Monday 10:00 NY, phase 2: strangle window open but phase-gated.
	monday := time.Date(2026, 9, 7, 10, 0, 0, 0, loc)
	assert.Empty(t, cat.Candidates(monday, 2))

	// Same instant at phase 3 unlocks it.
	candidates = cat.Candidates(monday, 3)
	require.Len(t, candidates, 1)
	assert.Equal(t, "futures_strangle", candidates[0].StrategyID)
}
