package mock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteSpreadAndDrift(t *testing.T) {
	m := NewProvider()

	quote, err := m.GetQuote("SPY")
	require.NoError(t, err)
	assert.Equal(t, "SPY", quote.Symbol)
	assert.Less(t, quote.Bid, quote.Ask)
	assert.InDelta(t, quote.Last, (quote.Bid+quote.Ask)/2, 0.001)

	// Unknown symbols still quote, anchored at the default level.
	other, err := m.GetQuote("IWM")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, other.Last, 5.0)
}

func TestVIXPinnedAndWalked(t *testing.T) {
	m := NewProvider().WithVIX(22.5)
	for i := 0; i < 5; i++ {
		vix, err := m.GetVIX()
		require.NoError(t, err)
		assert.Equal(t, 22.5, vix)
	}

	walked := NewProvider()
	vix, err := walked.GetVIX()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, vix, 9.0)
	assert.LessOrEqual(t, vix, 80.0)
}

func TestExpirationsAreFridays(t *testing.T) {
	m := NewProvider()
	expirations, err := m.GetExpirations("SPY")
	require.NoError(t, err)
	require.Len(t, expirations, 4)
	for _, exp := range expirations {
		day, err := time.Parse("2006-01-02", exp)
		require.NoError(t, err)
		assert.Equal(t, time.Friday, day.Weekday())
	}
}

func TestOptionChainShape(t *testing.T) {
	m := NewProvider()
	expiration := time.Now().AddDate(0, 0, 45).Format("2006-01-02")

	chain, err := m.GetOptionChain("SPY", expiration, true)
	require.NoError(t, err)
	require.NotEmpty(t, chain)
	assert.Equal(t, 42, len(chain)) // 21 strikes, put and call each

	for _, opt := range chain {
		assert.Contains(t, []string{"put", "call"}, opt.OptionType)
		assert.Greater(t, opt.Ask, 0.0)
		assert.LessOrEqual(t, opt.Bid, opt.Ask)
		require.NotNil(t, opt.Greeks)
		if opt.OptionType == "put" {
			assert.LessOrEqual(t, opt.Greeks.Delta, 0.0)
		} else {
			assert.GreaterOrEqual(t, opt.Greeks.Delta, 0.0)
		}
	}

	_, err = m.GetOptionChain("SPY", "not-a-date", false)
	require.Error(t, err)
}

func TestContextCancellation(t *testing.T) {
	m := NewProvider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.GetQuoteCtx(ctx, "SPY")
	require.ErrorIs(t, err, context.Canceled)

	_, err = m.GetAccountBalanceCtx(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEquityOverride(t *testing.T) {
	m := NewProvider().WithEquity(80000)
	balance, err := m.GetAccountBalance()
	require.NoError(t, err)
	assert.Equal(t, 80000.0, balance)
}
