package twelvedata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfx/fxengine/internal/market"
	"github.com/quantfx/fxengine/internal/telemetry"
)

const seriesPayload = `{
	"values": [
		{"datetime": "2025-06-02 10:10:00", "open": "1.1002", "high": "1.1005", "low": "1.1001", "close": "1.1004"},
		{"datetime": "2025-06-02 10:05:00", "open": "1.1000", "high": "1.1003", "low": "1.0999", "close": "1.1002"},
		{"datetime": "2025-06-02 10:00:00", "open": "1.0998", "high": "1.1001", "low": "1.0997", "close": "1.1000"}
	],
	"status": "ok"
}`

func fastConfig(baseURL string) Config {
	cfg := DefaultConfig("test-key")
	cfg.BaseURL = baseURL
	cfg.RequestsPerMinute = 6000
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func TestFetchParsesAndOrdersSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "EUR/USD", r.URL.Query().Get("symbol"))
		assert.Equal(t, "5min", r.URL.Query().Get("interval"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		fmt.Fprint(w, seriesPayload)
	}))
	defer srv.Close()

	client, err := New(fastConfig(srv.URL))
	require.NoError(t, err)

	series, err := client.Fetch(context.Background(), "EUR/USD", market.TF5m, 3)
	require.NoError(t, err)
	require.Len(t, series, 3)

	// Oldest first, regardless of payload order.
	assert.True(t, series[0].Timestamp.Before(series[1].Timestamp))
	assert.True(t, series[1].Timestamp.Before(series[2].Timestamp))
	assert.InDelta(t, 1.1000, series[0].Close, 1e-9)
	assert.InDelta(t, 1.1004, series[2].Close, 1e-9)
	require.NoError(t, series.Validate())
}

func TestFetchRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			fmt.Fprint(w, `{"code": 429, "message": "rate limit exceeded", "status": "error"}`)
			return
		}
		fmt.Fprint(w, seriesPayload)
	}))
	defer srv.Close()

	client, err := New(fastConfig(srv.URL))
	require.NoError(t, err)

	series, err := client.Fetch(context.Background(), "EUR/USD", market.TF5m, 3)
	require.NoError(t, err)
	assert.Len(t, series, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchHTTP429Retries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, seriesPayload)
	}))
	defer srv.Close()

	client, err := New(fastConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), "EUR/USD", market.TF5m, 3)
	require.NoError(t, err)
}

func TestFetchAPIErrorIsTerminal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"status": "error", "message": "symbol not found"}`)
	}))
	defer srv.Close()

	client, err := New(fastConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), "BAD/PAIR", market.TF5m, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol not found")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "non-retryable errors fail fast")
}

func TestFetchRecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, seriesPayload)
	}))
	defer srv.Close()

	reg := telemetry.NewRegistry()
	client, err := New(fastConfig(srv.URL), WithMetrics(reg))
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), "EUR/USD", market.TF5m, 3)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `fxengine_provider_requests_total{provider="twelvedata",result="ok"} 1`)
}

func TestConfigValidation(t *testing.T) {
	require.NoError(t, DefaultConfig("key").Validate())
	assert.Error(t, DefaultConfig("").Validate())

	cfg := DefaultConfig("key")
	cfg.RequestsPerMinute = 0
	assert.Error(t, cfg.Validate())
}
