// Package retry wraps broker market-data reads with bounded retries and
// jittered backoff so a single flaky fetch does not abort an advisor cycle.
package retry

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tomking/trading-framework/internal/broker"
)

type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
}

var DefaultConfig = Config{
	MaxRetries:     3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
	Timeout:        2 * time.Minute,
}

type Client struct {
	broker broker.Broker
	logger logrus.FieldLogger
	config Config
}

func NewClient(b broker.Broker, logger logrus.FieldLogger, config ...Config) *Client {
	cfg := DefaultConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	return &Client{
		broker: b,
		logger: logger,
		config: cfg,
	}
}

// GetVIXWithRetry fetches the volatility index, retrying transient failures.
func (c *Client) GetVIXWithRetry(ctx context.Context) (float64, error) {
	return doWithRetry(c, ctx, "vix", func() (float64, error) {
		return c.broker.GetVIX()
	})
}

// GetAccountBalanceWithRetry fetches account equity, retrying transient failures.
func (c *Client) GetAccountBalanceWithRetry(ctx context.Context) (float64, error) {
	return doWithRetry(c, ctx, "balance", func() (float64, error) {
		return c.broker.GetAccountBalanceCtx(ctx)
	})
}

// GetPositionsWithRetry fetches broker positions, retrying transient failures.
func (c *Client) GetPositionsWithRetry(ctx context.Context) ([]broker.PositionItem, error) {
	return doWithRetry(c, ctx, "positions", func() ([]broker.PositionItem, error) {
		return c.broker.GetPositionsCtx(ctx)
	})
}

// GetQuoteWithRetry fetches a quote, retrying transient failures.
func (c *Client) GetQuoteWithRetry(ctx context.Context, symbol string) (*broker.QuoteItem, error) {
	return doWithRetry(c, ctx, "quote:"+symbol, func() (*broker.QuoteItem, error) {
		return c.broker.GetQuoteCtx(ctx, symbol)
	})
}

func doWithRetry[T any](c *Client, ctx context.Context, op string, fn func() (T, error)) (T, error) {
	var zero T

	opCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var lastErr error
	backoff := c.config.InitialBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		select {
		case <-opCtx.Done():
			return zero, fmt.Errorf("%s fetch timed out after %v: %w", op, c.config.Timeout, opCtx.Err())
		default:
		}

		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		c.logger.WithError(err).Warnf("%s fetch attempt %d/%d failed", op, attempt+1, c.config.MaxRetries+1)

		if !isTransientError(err) || attempt == c.config.MaxRetries {
			break
		}

		select {
		case <-time.After(backoff):
			backoff = c.calculateNextBackoff(backoff)
		case <-opCtx.Done():
			return zero, fmt.Errorf("%s fetch timed out during backoff: %w", op, opCtx.Err())
		}
	}

	return zero, fmt.Errorf("%s fetch failed after %d attempts: %w", op, c.config.MaxRetries+1, lastErr)
}

func (c *Client) calculateNextBackoff(currentBackoff time.Duration) time.Duration {
	backoff := time.Duration(float64(currentBackoff) * 1.5)
	if backoff > c.config.MaxBackoff {
		backoff = c.config.MaxBackoff
	}

	maxJitter := int64(backoff / 4)
	if maxJitter > 0 {
		jitterVal, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
		if err != nil {
			c.logger.WithError(err).Warn("failed to generate backoff jitter")
		} else {
			backoff += time.Duration(jitterVal.Int64())
		}
	}

	return backoff
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	transientPatterns := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"server error",
		"rate limit",
		"429", // HTTP 429 Too Many Requests
		"502", // HTTP 502 Bad Gateway
		"503", // HTTP 503 Service Unavailable
		"504", // HTTP 504 Gateway Timeout
		"network",
		"dns",
		"tcp",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
