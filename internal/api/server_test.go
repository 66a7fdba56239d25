package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfx/fxengine/internal/analysis"
	"github.com/quantfx/fxengine/internal/market"
	"github.com/quantfx/fxengine/internal/scanner"
	"github.com/quantfx/fxengine/internal/telemetry"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	provider := market.NewSyntheticProvider(7, 0.0001, 0.0008)

	analyzer, err := analysis.New(provider, analysis.DefaultConfig())
	require.NoError(t, err)

	scanCfg := scanner.DefaultConfig()
	scanCfg.Pairs = []string{"EUR/USD", "USD/CHF"}
	sc, err := scanner.New(provider, scanCfg)
	require.NoError(t, err)

	handlers := NewHandlers(analyzer, sc, telemetry.NewRegistry())
	return NewServer(DefaultConfig(), handlers)
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
}

func TestSignalEndpoint(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/signal/EUR-USD?mtf=true", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var bundle analysis.Bundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	assert.Equal(t, "EUR/USD", bundle.Symbol)
	assert.NotNil(t, bundle.Snapshot)
	require.NotNil(t, bundle.Confluence)
	assert.Len(t, bundle.Confluence.Signals, 4)
}

func TestSignalEndpointWithoutMTF(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/signal/EURUSD", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var bundle analysis.Bundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	assert.Equal(t, "EUR/USD", bundle.Symbol)
	assert.Nil(t, bundle.Confluence)
}

func TestSignalEndpointRejectsBadMTFFlag(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/signal/EURUSD?mtf=sometimes", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "mtf")
	assert.NotEmpty(t, body.RequestID)
}

func TestScanEndpoint(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/scan", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result scanner.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.PairsScanned)
	assert.Len(t, result.All, 2)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t)

	// Exercise a handler first so counters exist.
	signalReq := httptest.NewRequest(http.MethodGet, "/v1/signal/EURUSD", nil)
	srv.router.ServeHTTP(httptest.NewRecorder(), signalReq)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fxengine_signals_total")
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
}

func TestNormalizeSymbol(t *testing.T) {
	cases := map[string]string{
		"EUR-USD": "EUR/USD",
		"EURUSD":  "EUR/USD",
		"eurusd":  "EUR/USD",
		"EUR/USD": "EUR/USD",
		"XAUUSD":  "XAU/USD",
		"":        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeSymbol(in), "input %q", in)
	}
}
