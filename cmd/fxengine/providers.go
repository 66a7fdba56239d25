package main

import (
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/quantfx/fxengine/internal/config"
	"github.com/quantfx/fxengine/internal/market"
	"github.com/quantfx/fxengine/internal/provider/cache"
	"github.com/quantfx/fxengine/internal/provider/twelvedata"
	"github.com/quantfx/fxengine/internal/telemetry"
)

// buildProvider assembles the market-data stack from config: the selected
// source, optionally wrapped in the Redis series cache. The returned closer
// releases the Redis connection and is safe to call when nil-op.
func buildProvider(cfg config.Config, metrics *telemetry.Registry) (market.Provider, func() error, error) {
	var (
		provider market.Provider
		err      error
	)

	switch cfg.Provider.Source {
	case config.SourceTwelveData:
		provider, err = twelvedata.New(cfg.Provider.TwelveData, twelvedata.WithMetrics(metrics))
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("source", "twelvedata").Msg("market data provider ready")
	case config.SourceSynthetic:
		syn := cfg.Provider.Synthetic
		provider = market.NewSyntheticProvider(syn.Seed, syn.Drift, syn.Vol)
		log.Info().Str("source", "synthetic").Int64("seed", syn.Seed).Msg("market data provider ready")
	default:
		return nil, nil, fmt.Errorf("unknown provider source %q", cfg.Provider.Source)
	}

	closer := func() error { return nil }

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		provider = cache.New(provider, client, cfg.Redis.Cache, cache.WithMetrics(metrics))
		closer = client.Close
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis series cache enabled")
	}

	return provider, closer, nil
}
