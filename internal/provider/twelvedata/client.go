// Package twelvedata implements the market-data provider boundary against the
// Twelve Data REST API. The free tier allows 8 requests per minute, so the
// client carries its own rate limiter, retry loop and circuit breaker; the
// core packages only ever see a clean, chronologically ordered PriceSeries.
package twelvedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/quantfx/fxengine/internal/market"
	"github.com/quantfx/fxengine/internal/telemetry"
)

const providerName = "twelvedata"

// Config holds the client settings.
type Config struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`

	// RequestsPerMinute matches the plan's rate limit (free tier: 8).
	RequestsPerMinute int `yaml:"requests_per_minute"`

	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// DefaultConfig returns free-tier safe settings.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:            apiKey,
		BaseURL:           "https://api.twelvedata.com",
		Timeout:           30 * time.Second,
		RequestsPerMinute: 8,
		MaxRetries:        3,
		RetryDelay:        8 * time.Second,
	}
}

// Validate checks client settings.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base url is required")
	}
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive, got %d", c.RequestsPerMinute)
	}
	return nil
}

// Client fetches time series from Twelve Data. It satisfies market.Provider.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics *telemetry.Registry
}

// Option customizes a Client.
type Option func(*Client)

// WithMetrics attaches a telemetry registry.
func WithMetrics(reg *telemetry.Registry) Option {
	return func(c *Client) { c.metrics = reg }
}

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("twelvedata config: %w", err)
	}

	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(
			rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        providerName,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("provider", name).
					Str("from", from.String()).Str("to", to.String()).
					Msg("circuit breaker state change")
			},
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// timeSeriesResponse mirrors the /time_series payload. OHLC values arrive as
// strings, newest bar first.
type timeSeriesResponse struct {
	Values []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
	} `json:"values"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Fetch retrieves count bars of symbol at the given timeframe, oldest first.
func (c *Client) Fetch(ctx context.Context, symbol string, tf market.Timeframe, count int) (market.PriceSeries, error) {
	start := time.Now()
	series, err := c.fetchWithRetry(ctx, symbol, tf, count)

	if c.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		c.metrics.ProviderRequests.WithLabelValues(providerName, result).Inc()
		c.metrics.ProviderLatency.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
	}
	return series, err
}

func (c *Client) fetchWithRetry(ctx context.Context, symbol string, tf market.Timeframe, count int) (market.PriceSeries, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Warn().Str("symbol", symbol).Int("attempt", attempt).
				Dur("delay", c.cfg.RetryDelay).Msg("retrying twelvedata request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cfg.RetryDelay):
			}
		}

		series, retryable, err := c.fetchOnce(ctx, symbol, tf, count)
		if err == nil {
			return series, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("twelvedata: retries exhausted: %w", lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, symbol string, tf market.Timeframe, count int) (market.PriceSeries, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, symbol, tf, count)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, false, fmt.Errorf("twelvedata: circuit open: %w", err)
		}
		var rlErr *rateLimitError
		if errors.As(err, &rlErr) {
			return nil, true, err
		}
		return nil, false, err
	}
	return out.(market.PriceSeries), false, nil
}

// rateLimitError marks API-level throttling responses (HTTP 200 with an
// embedded error code) that are worth retrying.
type rateLimitError struct{ msg string }

func (e *rateLimitError) Error() string { return e.msg }

func (c *Client) doRequest(ctx context.Context, symbol string, tf market.Timeframe, count int) (market.PriceSeries, error) {
	q := url.Values{}
	q.Set("symbol", symbol) // forex symbols keep the slash: EUR/USD
	q.Set("interval", string(tf))
	q.Set("outputsize", strconv.Itoa(count))
	q.Set("apikey", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/time_series?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &rateLimitError{msg: "http 429"}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twelvedata: unexpected status %d", resp.StatusCode)
	}

	var payload timeSeriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("twelvedata: decode: %w", err)
	}
	if payload.Code == http.StatusTooManyRequests {
		return nil, &rateLimitError{msg: payload.Message}
	}
	if payload.Status == "error" || len(payload.Values) == 0 {
		return nil, fmt.Errorf("twelvedata: %s", orDefault(payload.Message, "empty response"))
	}

	return parseSeries(payload)
}

// parseSeries converts the newest-first string payload into an oldest-first
// PriceSeries.
func parseSeries(payload timeSeriesResponse) (market.PriceSeries, error) {
	series := make(market.PriceSeries, 0, len(payload.Values))
	for _, v := range payload.Values {
		ts, err := time.Parse("2006-01-02 15:04:05", v.Datetime)
		if err != nil {
			// Daily bars come without a time component.
			ts, err = time.Parse("2006-01-02", v.Datetime)
			if err != nil {
				return nil, fmt.Errorf("twelvedata: bad datetime %q: %w", v.Datetime, err)
			}
		}
		bar := market.PriceBar{Timestamp: ts}
		for _, f := range []struct {
			dst *float64
			src string
		}{
			{&bar.Open, v.Open}, {&bar.High, v.High}, {&bar.Low, v.Low}, {&bar.Close, v.Close},
		} {
			*f.dst, err = strconv.ParseFloat(f.src, 64)
			if err != nil {
				return nil, fmt.Errorf("twelvedata: bad price %q: %w", f.src, err)
			}
		}
		series = append(series, bar)
	}

	sort.Slice(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("twelvedata: %w", err)
	}
	return series, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
