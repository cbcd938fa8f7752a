// Package mock provides a synthetic market-data broker for offline runs.
// Prices follow a small random walk around per-symbol anchors so advisor
// cycles produce plausible, varying recommendations without network access.
package mock

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/tomking/trading-framework/internal/broker"
)

// Provider simulates a read-only broker feed.
type Provider struct {
	mu         sync.Mutex
	prices     map[string]float64
	vix        float64
	equity     float64
	alwaysOpen bool
}

// Ensure Provider implements Broker at compile time.
var _ broker.Broker = (*Provider)(nil)

// secureFloat64 generates a cryptographically secure random float64 between 0 and 1
func secureFloat64() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		// Fallback to a reasonable default if crypto/rand fails
		return 0.5
	}
	return float64(n.Int64()) / (1 << 53)
}

// secureInt63n generates a cryptographically secure random int64 between 0 and n-1
func secureInt63n(n int64) int64 {
	max := big.NewInt(n)
	r, err := rand.Int(rand.Reader, max)
	if err != nil {
		// Fallback to a reasonable default if crypto/rand fails
		return n / 2
	}
	return r.Int64()
}

// NewProvider seeds the walk with anchors for the symbols the default
// strategy catalogue trades.
func NewProvider() *Provider {
	return &Provider{
		prices: map[string]float64{
			"SPY": 510.0 + secureFloat64()*10,
			"/ES": 5100.0 + secureFloat64()*50,
			"/CL": 68.0 + secureFloat64()*4,
			"GLD": 215.0 + secureFloat64()*5,
		},
		vix:    15.0 + secureFloat64()*10, // normal-to-elevated band
		equity: 48000.0 + secureFloat64()*4000,
	}
}

// WithEquity overrides the simulated account equity.
func (m *Provider) WithEquity(equity float64) *Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = equity
	return m
}

// WithVIX pins the volatility reading instead of walking it.
func (m *Provider) WithVIX(vix float64) *Provider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vix = vix
	m.alwaysOpen = true
	return m
}

func (m *Provider) price(symbol string) float64 {
	current, ok := m.prices[symbol]
	if !ok {
		current = 100.0
	}
	// Small drift each read so repeated cycles see movement.
	current += (secureFloat64() - 0.5) * current * 0.002
	m.prices[symbol] = current
	return current
}

func (m *Provider) GetAccountBalance() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.equity, nil
}

func (m *Provider) GetAccountBalanceCtx(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return m.GetAccountBalance()
}

func (m *Provider) GetPositions() ([]broker.PositionItem, error) {
	return []broker.PositionItem{}, nil
}

func (m *Provider) GetPositionsCtx(ctx context.Context) ([]broker.PositionItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.GetPositions()
}

func (m *Provider) GetQuote(symbol string) (*broker.QuoteItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	last := m.price(symbol)
	spread := last * 0.0002
	return &broker.QuoteItem{
		Symbol:    symbol,
		Last:      last,
		Bid:       last - spread/2,
		Ask:       last + spread/2,
		PrevClose: last * (1 - (secureFloat64()-0.5)*0.01),
		Volume:    secureInt63n(100000000),
	}, nil
}

func (m *Provider) GetQuoteCtx(ctx context.Context, symbol string) (*broker.QuoteItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.GetQuote(symbol)
}

func (m *Provider) GetVIX() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.alwaysOpen {
		m.vix += (secureFloat64() - 0.5) * 0.6
		m.vix = math.Max(9, math.Min(80, m.vix))
	}
	return m.vix, nil
}

// GetExpirations returns the next four weekly Fridays.
func (m *Provider) GetExpirations(symbol string) ([]string, error) {
	expirations := make([]string, 0, 4)
	day := time.Now()
	for len(expirations) < 4 {
		day = day.AddDate(0, 0, 1)
		if day.Weekday() == time.Friday {
			expirations = append(expirations, day.Format("2006-01-02"))
		}
	}
	return expirations, nil
}

func (m *Provider) GetOptionChain(symbol, expiration string, withGreeks bool) ([]broker.Option, error) {
	expDate, err := time.Parse("2006-01-02", expiration)
	if err != nil {
		return nil, fmt.Errorf("invalid expiration format: %w", err)
	}
	dte := int(time.Until(expDate).Hours() / 24)
	if dte < 0 {
		dte = 0
	}

	m.mu.Lock()
	spot := m.price(symbol)
	vol := m.vix / 100.0
	m.mu.Unlock()

	var options []broker.Option

	strikeInterval := strikeStep(spot)
	startStrike := math.Floor(spot/strikeInterval)*strikeInterval - 10*strikeInterval
	endStrike := startStrike + 20*strikeInterval

	for strike := startStrike; strike <= endStrike; strike += strikeInterval {
		// Approximate delta from distance to spot with exponential decay.
		distance := math.Abs(strike - spot)
		deltaDecay := math.Exp(-distance / spot * 10)

		putDelta := -0.5 * deltaDecay
		if strike > spot {
			putDelta = -0.5 * (1 - deltaDecay)
		}
		callDelta := 0.5 * deltaDecay
		if strike < spot {
			callDelta = 0.5 * (1 - deltaDecay)
		}

		timeValue := math.Max(0, float64(dte)/365.0)
		putPrice := math.Max(0.05, vol*math.Sqrt(timeValue)*spot*math.Abs(putDelta))
		callPrice := math.Max(0.05, vol*math.Sqrt(timeValue)*spot*math.Abs(callDelta))

		put := broker.Option{
			Symbol:         fmt.Sprintf("%s%sP%08d", symbol, expDate.Format("060102"), int(strike*1000)),
			Underlying:     symbol,
			OptionType:     "put",
			ExpirationDate: expiration,
			Strike:         strike,
			Bid:            putPrice * 0.98,
			Ask:            putPrice * 1.02,
			Last:           putPrice,
			OpenInterest:   secureInt63n(50000),
		}
		call := broker.Option{
			Symbol:         fmt.Sprintf("%s%sC%08d", symbol, expDate.Format("060102"), int(strike*1000)),
			Underlying:     symbol,
			OptionType:     "call",
			ExpirationDate: expiration,
			Strike:         strike,
			Bid:            callPrice * 0.98,
			Ask:            callPrice * 1.02,
			Last:           callPrice,
			OpenInterest:   secureInt63n(50000),
		}

		if withGreeks {
			put.Greeks = &broker.Greeks{
				Delta: putDelta,
				Theta: -0.05 * vol,
				Vega:  0.10 * vol,
				MidIV: vol,
			}
			call.Greeks = &broker.Greeks{
				Delta: callDelta,
				Theta: -0.05 * vol,
				Vega:  0.10 * vol,
				MidIV: vol,
			}
		}

		options = append(options, put, call)
	}

	return options, nil
}

func (m *Provider) GetMarketClock() (*broker.MarketClock, error) {
	now := time.Now()
	state := "closed"
	if m.alwaysOpen || (now.Weekday() != time.Saturday && now.Weekday() != time.Sunday) {
		state = "open"
	}
	return &broker.MarketClock{
		State: state,
		Date:  now.Format("2006-01-02"),
	}, nil
}

func (m *Provider) IsTradingDay() (bool, error) {
	clock, err := m.GetMarketClock()
	if err != nil {
		return false, err
	}
	return clock.State == "open", nil
}

// strikeStep picks a chain spacing suited to the underlying's price level.
func strikeStep(spot float64) float64 {
	switch {
	case spot >= 1000:
		return 25
	case spot >= 100:
		return 5
	default:
		return 1
	}
}
