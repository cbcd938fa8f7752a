package broker

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *TastytradeClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewTastytradeClient("test-key", "TEST123", srv.URL, "VIX")
	return srv, client
}

func TestGetAccountBalance(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/TEST123/balances", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"net-liquidating-value":62345.67,"equity-buying-power":124691.34}}`))
	})

	balance, err := client.GetAccountBalance()
	require.NoError(t, err)
	assert.Equal(t, 62345.67, balance)
}

func TestGetQuoteAndVIX(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/market-data/quotes", r.URL.Path)
		symbol := r.URL.Query().Get("symbols")
		w.Header().Set("Content-Type", "application/json")
		switch symbol {
		case "VIX":
			_, _ = w.Write([]byte(`{"data":{"items":[{"symbol":"VIX","last":21.4}]}}`))
		case "SPY":
			_, _ = w.Write([]byte(`{"data":{"items":[{"symbol":"SPY","last":512.3,"bid":512.28,"ask":512.32}]}}`))
		default:
			_, _ = w.Write([]byte(`{"data":{"items":[]}}`))
		}
	})

	quote, err := client.GetQuote("SPY")
	require.NoError(t, err)
	assert.Equal(t, 512.3, quote.Last)

	vix, err := client.GetVIX()
	require.NoError(t, err)
	assert.Equal(t, 21.4, vix)

	_, err = client.GetQuote("NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no quote returned")
}

func TestGetPositions(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/TEST123/positions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"items":[
			{"symbol":"SPY 260116P00480000","underlying-symbol":"SPY","instrument-type":"Equity Option","quantity":-2,"cost-basis":-840},
			{"symbol":"/CLZ6","underlying-symbol":"/CL","instrument-type":"Future","quantity":1,"cost-basis":68000}
		]}}`))
	})

	positions, err := client.GetPositions()
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "SPY", positions[0].UnderlyingSymbol)
	assert.Equal(t, -2.0, positions[0].Quantity)
}

func TestGetOptionChain(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/option-chains/SPY", r.URL.Path)
		assert.Equal(t, "2026-01-16", r.URL.Query().Get("expiration"))
		assert.Equal(t, "true", r.URL.Query().Get("greeks"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"items":[
			{"symbol":"SPY 260116P00480000","option-type":"put","strike-price":480,"bid":4.1,"ask":4.3,"greeks":{"delta":-0.16}}
		]}}`))
	})

	chain, err := client.GetOptionChain("SPY", "2026-01-16", true)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, 480.0, chain[0].Strike)
	require.NotNil(t, chain[0].Greeks)
	assert.Equal(t, -0.16, chain[0].Greeks.Delta)
}

func TestMarketClock(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/market-time/clock", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"state":"open","next-state":"closed"}}`))
	})

	open, err := client.IsTradingDay()
	require.NoError(t, err)
	assert.True(t, open)
}

func TestAPIErrorPropagation(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"invalid_session"}}`))
	})

	_, err := client.GetAccountBalance()
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Body, "invalid_session")
}

func TestMidPrice(t *testing.T) {
	assert.Equal(t, 4.2, MidPrice(Option{Bid: 4.1, Ask: 4.3}))
	assert.Equal(t, 3.9, MidPrice(Option{Last: 3.9}))
}
