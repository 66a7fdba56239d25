package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type healthResponse struct {
	Status    string `json:"status"`
	UptimeSec int64  `json:"uptime_seconds"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		UptimeSec: int64(time.Since(h.started).Seconds()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Signal runs the full analysis pipeline for one symbol. Pairs are passed
// slash-free in the path (EUR-USD or EURUSD for EUR/USD). Query param
// mtf=true adds the timeframe-ladder confluence read.
func (h *Handlers) Signal(w http.ResponseWriter, r *http.Request) {
	symbol := normalizeSymbol(mux.Vars(r)["symbol"])
	if symbol == "" {
		writeError(w, r, http.StatusBadRequest, "symbol is required")
		return
	}

	withMTF := false
	if raw := r.URL.Query().Get("mtf"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "mtf must be a boolean")
			return
		}
		withMTF = parsed
	}

	start := time.Now()
	bundle, err := h.analyzer.Analyze(r.Context(), symbol, withMTF)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("signal request failed")
		writeError(w, r, http.StatusBadGateway, "analysis failed: "+err.Error())
		return
	}
	h.metrics.ObserveAnalysis("signal", start)
	h.metrics.SignalsEmitted.WithLabelValues(string(bundle.Signal.Direction)).Inc()

	writeJSON(w, http.StatusOK, bundle)
}

// Scan sweeps the configured pair basket and ranks setups.
func (h *Handlers) Scan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := h.scanner.ScanAll(r.Context())
	h.metrics.ObserveAnalysis("scan", start)
	h.metrics.ScanSweeps.Inc()

	writeJSON(w, http.StatusOK, result)
}

// NotFound is the catch-all route.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeError(w, r, http.StatusNotFound, "route not found")
}

// normalizeSymbol maps path-safe pair spellings to the provider's EUR/USD
// form. Six plain letters are split down the middle; dashes become slashes.
func normalizeSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "/")
	if len(s) == 6 && !strings.Contains(s, "/") {
		s = s[:3] + "/" + s[3:]
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		RequestID: requestIDFrom(r.Context()),
	})
}
