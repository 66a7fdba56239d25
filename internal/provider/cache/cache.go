// Package cache decorates any market.Provider with a Redis-backed series
// cache. Faster timeframes expire quickly, slower ones live longer; cache
// failures fall through to the wrapped provider so Redis never becomes a
// hard dependency.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/quantfx/fxengine/internal/market"
	"github.com/quantfx/fxengine/internal/telemetry"
)

// Config holds cache behavior. TTLs are per timeframe with a fallback.
type Config struct {
	KeyPrefix  string                             `yaml:"key_prefix"`
	DefaultTTL time.Duration                      `yaml:"default_ttl"`
	TTLs       map[market.Timeframe]time.Duration `yaml:"ttls"`
}

// DefaultConfig returns TTLs proportional to each timeframe's bar duration.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:  "fxengine:series:",
		DefaultTTL: 5 * time.Minute,
		TTLs: map[market.Timeframe]time.Duration{
			market.TF5m:  3 * time.Minute,
			market.TF15m: 10 * time.Minute,
			market.TF1h:  30 * time.Minute,
			market.TF4h:  2 * time.Hour,
			market.TF1d:  6 * time.Hour,
		},
	}
}

// Provider wraps another provider with Redis caching.
type Provider struct {
	inner   market.Provider
	client  *redis.Client
	cfg     Config
	metrics *telemetry.Registry
}

// Option customizes the cache provider.
type Option func(*Provider)

// WithMetrics attaches a telemetry registry.
func WithMetrics(reg *telemetry.Registry) Option {
	return func(p *Provider) { p.metrics = reg }
}

// New wraps inner with a cache backed by client.
func New(inner market.Provider, client *redis.Client, cfg Config, opts ...Option) *Provider {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "fxengine:series:"
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	p := &Provider{inner: inner, client: client, cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fetch serves from Redis when possible, otherwise delegates and stores the
// result. Cache read/write errors are logged and otherwise ignored.
func (p *Provider) Fetch(ctx context.Context, symbol string, tf market.Timeframe, count int) (market.PriceSeries, error) {
	key := p.key(symbol, tf, count)

	cached, err := p.client.Get(ctx, key).Bytes()
	if err == nil {
		var series market.PriceSeries
		if err := json.Unmarshal(cached, &series); err == nil {
			p.countHit(tf, true)
			return series, nil
		}
		log.Warn().Str("key", key).Msg("dropping undecodable cache entry")
		p.client.Del(ctx, key)
	} else if err != redis.Nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	p.countHit(tf, false)

	series, err := p.inner.Fetch(ctx, symbol, tf, count)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(series); err == nil {
		if err := p.client.Set(ctx, key, payload, p.ttl(tf)).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return series, nil
}

func (p *Provider) key(symbol string, tf market.Timeframe, count int) string {
	return fmt.Sprintf("%s%s:%s:%d", p.cfg.KeyPrefix, symbol, tf, count)
}

func (p *Provider) ttl(tf market.Timeframe) time.Duration {
	if ttl, ok := p.cfg.TTLs[tf]; ok {
		return ttl
	}
	return p.cfg.DefaultTTL
}

func (p *Provider) countHit(tf market.Timeframe, hit bool) {
	if p.metrics == nil {
		return
	}
	if hit {
		p.metrics.CacheHits.WithLabelValues(string(tf)).Inc()
	} else {
		p.metrics.CacheMisses.WithLabelValues(string(tf)).Inc()
	}
}
