// Package broker provides the market-data client used by the advisor. It
// implements a read-only Tastytrade API client; order routing is deliberately
// absent from this package.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Market clock state constant
const marketStateOpen = "open"

// APIError represents an API error with status code and response body
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// TastytradeAPI is a minimal REST client for the endpoints the advisor needs.
type TastytradeAPI struct {
	client    *http.Client
	apiKey    string
	baseURL   string
	accountID string
	timeout   time.Duration
}

// NewTastytradeAPI creates a new API client. An empty baseURL selects the
// production endpoint.
func NewTastytradeAPI(apiKey, accountID, baseURL string) *TastytradeAPI {
	if baseURL == "" {
		baseURL = "https://api.tastyworks.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := 10 * time.Second
	return &TastytradeAPI{
		client:    &http.Client{Timeout: timeout},
		apiKey:    apiKey,
		baseURL:   baseURL,
		accountID: accountID,
		timeout:   timeout,
	}
}

// WithHTTPClient allows overriding the HTTP client (tests, custom transport).
func (t *TastytradeAPI) WithHTTPClient(c *http.Client) *TastytradeAPI {
	if c != nil {
		t.client = c
	}
	return t
}

// WithTimeout sets the HTTP client timeout duration.
func (t *TastytradeAPI) WithTimeout(timeout time.Duration) *TastytradeAPI {
	t.timeout = timeout
	if t.client != nil {
		t.client.Timeout = timeout
	}
	return t
}

// ============ API Response Structures ============

// QuoteItem represents a single quote.
type QuoteItem struct {
	Symbol    string  `json:"symbol"`
	Last      float64 `json:"last"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	PrevClose float64 `json:"prev-close"`
	Volume    int64   `json:"volume"`
}

// Greeks contains option Greeks data.
type Greeks struct {
	UpdatedAt string  `json:"updated-at"`
	Delta     float64 `json:"delta"`
	Gamma     float64 `json:"gamma"`
	Theta     float64 `json:"theta"`
	Vega      float64 `json:"vega"`
	MidIV     float64 `json:"mid-iv"`
}

// Option represents an option contract.
type Option struct {
	Greeks         *Greeks `json:"greeks,omitempty"`
	Symbol         string  `json:"symbol"`
	Underlying     string  `json:"underlying-symbol"`
	OptionType     string  `json:"option-type"` // put | call
	ExpirationDate string  `json:"expiration-date"`
	Strike         float64 `json:"strike-price"`
	Bid            float64 `json:"bid"`
	Ask            float64 `json:"ask"`
	Last           float64 `json:"last"`
	OpenInterest   int64   `json:"open-interest"`
}

// PositionItem represents a single open position reported by the broker.
type PositionItem struct {
	Symbol           string  `json:"symbol"`
	UnderlyingSymbol string  `json:"underlying-symbol"`
	InstrumentType   string  `json:"instrument-type"`
	Quantity         float64 `json:"quantity"`
	CostBasis        float64 `json:"cost-basis"`
}

// MarketClock describes the current market session.
type MarketClock struct {
	State     string `json:"state"` // open | closed
	NextState string `json:"next-state"`
	Date      string `json:"date"`
}

type balancePayload struct {
	NetLiquidatingValue float64 `json:"net-liquidating-value"`
	EquityBuyingPower   float64 `json:"equity-buying-power"`
}

type quotePayload struct {
	Items []QuoteItem `json:"items"`
}

type chainPayload struct {
	Items []Option `json:"items"`
}

type expirationsPayload struct {
	Expirations []string `json:"expirations"`
}

type positionsPayload struct {
	Items []PositionItem `json:"items"`
}

// dataEnvelope is the standard {"data": ...} wrapper around responses.
type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

// ============ Account ============

// GetAccountBalance returns the account's net liquidating value.
func (t *TastytradeAPI) GetAccountBalance() (float64, error) {
	return t.GetAccountBalanceCtx(context.Background())
}

// GetAccountBalanceCtx returns the account's net liquidating value.
func (t *TastytradeAPI) GetAccountBalanceCtx(ctx context.Context) (float64, error) {
	var resp dataEnvelope[balancePayload]
	endpoint := fmt.Sprintf("%s/accounts/%s/balances", t.baseURL, t.accountID)
	if err := t.makeRequestCtx(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Data.NetLiquidatingValue, nil
}

// GetPositions returns the account's open positions.
func (t *TastytradeAPI) GetPositions() ([]PositionItem, error) {
	return t.GetPositionsCtx(context.Background())
}

// GetPositionsCtx returns the account's open positions.
func (t *TastytradeAPI) GetPositionsCtx(ctx context.Context) ([]PositionItem, error) {
	var resp dataEnvelope[positionsPayload]
	endpoint := fmt.Sprintf("%s/accounts/%s/positions", t.baseURL, t.accountID)
	if err := t.makeRequestCtx(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Items, nil
}

// ============ Market data ============

// GetQuote returns the latest quote for a symbol.
func (t *TastytradeAPI) GetQuote(symbol string) (*QuoteItem, error) {
	return t.GetQuoteCtx(context.Background(), symbol)
}

// GetQuoteCtx returns the latest quote for a symbol.
func (t *TastytradeAPI) GetQuoteCtx(ctx context.Context, symbol string) (*QuoteItem, error) {
	var resp dataEnvelope[quotePayload]
	endpoint := fmt.Sprintf("%s/market-data/quotes?symbols=%s", t.baseURL, url.QueryEscape(symbol))
	if err := t.makeRequestCtx(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data.Items) == 0 {
		return nil, fmt.Errorf("no quote returned for %s", symbol)
	}
	return &resp.Data.Items[0], nil
}

// GetExpirations returns the available expiration dates for a symbol.
func (t *TastytradeAPI) GetExpirations(symbol string) ([]string, error) {
	var resp dataEnvelope[expirationsPayload]
	endpoint := fmt.Sprintf("%s/option-chains/%s/expirations", t.baseURL, url.PathEscape(symbol))
	if err := t.makeRequestCtx(context.Background(), http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Expirations, nil
}

// GetOptionChain returns the option chain for a symbol and expiration.
func (t *TastytradeAPI) GetOptionChain(symbol, expiration string, withGreeks bool) ([]Option, error) {
	var resp dataEnvelope[chainPayload]
	endpoint := fmt.Sprintf("%s/option-chains/%s?expiration=%s&greeks=%t",
		t.baseURL, url.PathEscape(symbol), url.QueryEscape(expiration), withGreeks)
	if err := t.makeRequestCtx(context.Background(), http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Items, nil
}

// GetMarketClock returns the current market session state.
func (t *TastytradeAPI) GetMarketClock() (*MarketClock, error) {
	var resp dataEnvelope[MarketClock]
	endpoint := fmt.Sprintf("%s/market-time/clock", t.baseURL)
	if err := t.makeRequestCtx(context.Background(), http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// IsTradingDay reports whether the market is currently open.
func (t *TastytradeAPI) IsTradingDay() (bool, error) {
	clock, err := t.GetMarketClock()
	if err != nil {
		return false, err
	}
	return clock.State == marketStateOpen, nil
}

// makeRequestCtx makes an HTTP request with context support for
// timeout/cancellation.
func (t *TastytradeAPI) makeRequestCtx(ctx context.Context, method, endpoint string,
	params url.Values, response interface{}) error {
	var req *http.Request
	var err error

	if method == http.MethodPost && params != nil {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(params.Encode()))
		if err != nil {
			return err
		}
		req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, http.NoBody)
		if err != nil {
			return err
		}
	}

	req.Header.Add("Authorization", "Bearer "+t.apiKey)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("User-Agent", "tomking-framework/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) // 64KB cap to avoid huge payloads
		if err != nil {
			return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s -> failed to read error body", method, endpoint)}
		}
		return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s -> %s", method, endpoint, string(body))}
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(response); err != nil && err != io.EOF {
		return err
	}
	return nil
}
