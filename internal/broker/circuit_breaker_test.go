package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyBroker fails every call until healthy is flipped.
type flakyBroker struct {
	healthy bool
	calls   int
}

var errBrokerDown = errors.New("broker down")

func (f *flakyBroker) result() error {
	f.calls++
	if f.healthy {
		return nil
	}
	return errBrokerDown
}

func (f *flakyBroker) GetAccountBalance() (float64, error) {
	if err := f.result(); err != nil {
		return 0, err
	}
	return 50000, nil
}

func (f *flakyBroker) GetAccountBalanceCtx(ctx context.Context) (float64, error) {
	return f.GetAccountBalance()
}

func (f *flakyBroker) GetPositions() ([]PositionItem, error) {
	if err := f.result(); err != nil {
		return nil, err
	}
	return []PositionItem{}, nil
}

func (f *flakyBroker) GetPositionsCtx(ctx context.Context) ([]PositionItem, error) {
	return f.GetPositions()
}

func (f *flakyBroker) GetQuote(symbol string) (*QuoteItem, error) {
	if err := f.result(); err != nil {
		return nil, err
	}
	return &QuoteItem{Symbol: symbol, Last: 100}, nil
}

func (f *flakyBroker) GetQuoteCtx(ctx context.Context, symbol string) (*QuoteItem, error) {
	return f.GetQuote(symbol)
}

func (f *flakyBroker) GetVIX() (float64, error) {
	if err := f.result(); err != nil {
		return 0, err
	}
	return 18.5, nil
}

func (f *flakyBroker) GetExpirations(symbol string) ([]string, error) {
	if err := f.result(); err != nil {
		return nil, err
	}
	return []string{"2026-01-16"}, nil
}

func (f *flakyBroker) GetOptionChain(symbol, expiration string, withGreeks bool) ([]Option, error) {
	if err := f.result(); err != nil {
		return nil, err
	}
	return []Option{}, nil
}

func (f *flakyBroker) GetMarketClock() (*MarketClock, error) {
	if err := f.result(); err != nil {
		return nil, err
	}
	return &MarketClock{State: marketStateOpen}, nil
}

func (f *flakyBroker) IsTradingDay() (bool, error) {
	if err := f.result(); err != nil {
		return false, err
	}
	return true, nil
}

func TestCircuitBreakerPassesThroughWhenHealthy(t *testing.T) {
	underlying := &flakyBroker{healthy: true}
	cb := NewCircuitBreakerBroker(underlying)

	vix, err := cb.GetVIX()
	require.NoError(t, err)
	assert.Equal(t, 18.5, vix)

	balance, err := cb.GetAccountBalanceCtx(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50000.0, balance)
}

func TestCircuitBreakerTripsAfterRepeatedFailures(t *testing.T) {
	underlying := &flakyBroker{healthy: false}
	cb := NewCircuitBreakerBrokerWithSettings(underlying, CircuitBreakerSettings{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  3,
		FailureRatio: 0.5,
	})

	for i := 0; i < 3; i++ {
		_, err := cb.GetVIX()
		require.ErrorIs(t, err, errBrokerDown)
	}

	// Circuit is now open: calls fail fast without reaching the broker.
	callsBefore := underlying.calls
	_, err := cb.GetQuote("SPY")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, callsBefore, underlying.calls)
}
