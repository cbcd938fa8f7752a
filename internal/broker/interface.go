package broker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"
)

// Broker defines the market-data and account surface the advisor consumes.
//
// The interface is deliberately read-only: there are no order-submission
// methods, so nothing built on top of it can route a live order. Simulated
// fills happen entirely inside the paper engine.
type Broker interface {
	// Account operations
	GetAccountBalance() (float64, error)
	GetAccountBalanceCtx(ctx context.Context) (float64, error)
	GetPositions() ([]PositionItem, error)
	GetPositionsCtx(ctx context.Context) ([]PositionItem, error)

	// Market data
	GetQuote(symbol string) (*QuoteItem, error)
	GetQuoteCtx(ctx context.Context, symbol string) (*QuoteItem, error)
	GetVIX() (float64, error)
	GetExpirations(symbol string) ([]string, error)
	GetOptionChain(symbol, expiration string, withGreeks bool) ([]Option, error)
	GetMarketClock() (*MarketClock, error)
	IsTradingDay() (bool, error)
}

// Ensure TastytradeClient implements Broker at compile time.
var _ Broker = (*TastytradeClient)(nil)

// TastytradeClient wraps TastytradeAPI to implement the Broker interface.
type TastytradeClient struct {
	*TastytradeAPI
	vixSymbol string
}

// NewTastytradeClient creates a new Tastytrade broker client. vixSymbol is
// the quote symbol used for volatility-index reads (normally "VIX").
func NewTastytradeClient(apiKey, accountID, baseURL, vixSymbol string) *TastytradeClient {
	if vixSymbol == "" {
		vixSymbol = "VIX"
	}
	return &TastytradeClient{
		TastytradeAPI: NewTastytradeAPI(apiKey, accountID, baseURL),
		vixSymbol:     vixSymbol,
	}
}

// GetVIX returns the latest volatility-index reading.
func (t *TastytradeClient) GetVIX() (float64, error) {
	quote, err := t.GetQuote(t.vixSymbol)
	if err != nil {
		return 0, err
	}
	return quote.Last, nil
}

// MidPrice returns the bid/ask midpoint for an option, falling back to last
// when the book is empty.
func MidPrice(opt Option) float64 {
	if opt.Bid > 0 && opt.Ask > 0 {
		return (opt.Bid + opt.Ask) / 2
	}
	return opt.Last
}

// CircuitBreakerBroker wraps a Broker with circuit breaker functionality so a
// flapping broker API degrades into fast failures instead of hung cycles.
type CircuitBreakerBroker struct {
	broker  Broker
	breaker *gobreaker.CircuitBreaker
}

// Ensure CircuitBreakerBroker implements Broker at compile time.
var _ Broker = (*CircuitBreakerBroker)(nil)

// execCircuitBreaker is a generic helper for circuit breaker wrapper methods
func execCircuitBreaker[T any](
	breaker *gobreaker.CircuitBreaker,
	broker Broker,
	fn func(Broker) (T, error),
) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn(broker) })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// CircuitBreakerSettings configures circuit breaker behavior
type CircuitBreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// NewCircuitBreakerBroker creates a new CircuitBreakerBroker with sensible defaults
func NewCircuitBreakerBroker(broker Broker) *CircuitBreakerBroker {
	return NewCircuitBreakerBrokerWithSettings(broker, CircuitBreakerSettings{
		MaxRequests:  3,                // Allow 3 requests when half-open
		Interval:     60 * time.Second, // Reset counts every minute
		Timeout:      30 * time.Second, // Open circuit for 30 seconds
		MinRequests:  5,                // Minimum requests before tripping
		FailureRatio: 0.6,              // Trip if 60% failure rate
	})
}

// NewCircuitBreakerBrokerWithSettings creates a CircuitBreakerBroker with custom settings
func NewCircuitBreakerBrokerWithSettings(broker Broker, settings CircuitBreakerSettings) *CircuitBreakerBroker {
	gbSettings := gobreaker.Settings{
		Name:        "BrokerCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s state changed from %s to %s", name, from, to)
		},
	}

	return &CircuitBreakerBroker{
		broker:  broker,
		breaker: gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// GetAccountBalance wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetAccountBalance() (float64, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (float64, error) { return b.GetAccountBalance() })
}

// GetAccountBalanceCtx wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetAccountBalanceCtx(ctx context.Context) (float64, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (float64, error) { return b.GetAccountBalanceCtx(ctx) })
}

// GetPositions wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetPositions() ([]PositionItem, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) ([]PositionItem, error) { return b.GetPositions() })
}

// GetPositionsCtx wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetPositionsCtx(ctx context.Context) ([]PositionItem, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) ([]PositionItem, error) { return b.GetPositionsCtx(ctx) })
}

// GetQuote wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetQuote(symbol string) (*QuoteItem, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (*QuoteItem, error) { return b.GetQuote(symbol) })
}

// GetQuoteCtx wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetQuoteCtx(ctx context.Context, symbol string) (*QuoteItem, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (*QuoteItem, error) { return b.GetQuoteCtx(ctx, symbol) })
}

// GetVIX wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetVIX() (float64, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (float64, error) { return b.GetVIX() })
}

// GetExpirations wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetExpirations(symbol string) ([]string, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) ([]string, error) { return b.GetExpirations(symbol) })
}

// GetOptionChain wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetOptionChain(symbol, expiration string, withGreeks bool) ([]Option, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) ([]Option, error) {
		return b.GetOptionChain(symbol, expiration, withGreeks)
	})
}

// GetMarketClock wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) GetMarketClock() (*MarketClock, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (*MarketClock, error) { return b.GetMarketClock() })
}

// IsTradingDay wraps the underlying broker call with circuit breaker
func (c *CircuitBreakerBroker) IsTradingDay() (bool, error) {
	return execCircuitBreaker(c.breaker, c.broker, func(b Broker) (bool, error) { return b.IsTradingDay() })
}
