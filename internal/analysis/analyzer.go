// Package analysis bundles the full per-symbol pipeline behind one call:
// fetch, indicator snapshot, signal verdict, exit bracket and optionally the
// multi-timeframe confluence. This is the seam the decision layer consumes.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantfx/fxengine/internal/exit"
	"github.com/quantfx/fxengine/internal/indicator"
	"github.com/quantfx/fxengine/internal/market"
	"github.com/quantfx/fxengine/internal/mtf"
	"github.com/quantfx/fxengine/internal/signal"
)

// Config drives the analysis pipeline for one symbol at a time.
type Config struct {
	Timeframe market.Timeframe `yaml:"timeframe"`
	Bars      int              `yaml:"bars"`

	Indicators indicator.Config `yaml:"indicators"`
	Scorer     signal.Config    `yaml:"scorer"`
	Exit       exit.Config      `yaml:"exit"`
	MTF        mtf.Config       `yaml:"mtf"`
}

// DefaultConfig returns the standard live-analysis parameters.
func DefaultConfig() Config {
	return Config{
		Timeframe:  market.TF5m,
		Bars:       250,
		Indicators: indicator.DefaultConfig(),
		Scorer:     signal.DefaultConfig(),
		Exit:       exit.DefaultConfig(),
		MTF:        mtf.DefaultConfig(),
	}
}

// Validate checks the pipeline parameters.
func (c Config) Validate() error {
	if c.Bars <= c.Indicators.WarmupBars() {
		return fmt.Errorf("bars %d does not cover the indicator warmup %d", c.Bars, c.Indicators.WarmupBars())
	}
	if err := c.Indicators.Validate(); err != nil {
		return err
	}
	if err := c.Scorer.Validate(); err != nil {
		return err
	}
	if err := c.Exit.Validate(); err != nil {
		return err
	}
	return c.MTF.Validate()
}

// Bundle is the structured output handed to the decision layer.
type Bundle struct {
	Symbol      string    `json:"symbol"`
	GeneratedAt time.Time `json:"generated_at"`

	Snapshot   *indicator.Snapshot `json:"snapshot"`
	Signal     signal.Result       `json:"signal"`
	Levels     exit.Levels         `json:"levels"`
	Confluence *mtf.Confluence     `json:"confluence,omitempty"`
}

// Analyzer runs the pipeline against one market-data provider.
type Analyzer struct {
	provider market.Provider
	mtf      *mtf.Analyzer
	cfg      Config
}

// New wires an Analyzer, validating the config once.
func New(provider market.Provider, cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("analysis config: %w", err)
	}
	ladder, err := mtf.New(provider, cfg.MTF)
	if err != nil {
		return nil, err
	}
	return &Analyzer{provider: provider, mtf: ladder, cfg: cfg}, nil
}

// Analyze produces the full bundle for one symbol. The confluence section is
// computed only when requested since it costs one fetch per ladder rung.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, withMTF bool) (*Bundle, error) {
	series, err := a.provider.Fetch(ctx, symbol, a.cfg.Timeframe, a.cfg.Bars)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", symbol, a.cfg.Timeframe, err)
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("series %s: %w", symbol, err)
	}

	snap, err := indicator.Compute(symbol, series, a.cfg.Indicators)
	if err != nil {
		return nil, err
	}
	verdict := signal.Score(snap, a.cfg.Scorer)

	atr := snap.ATR
	if !snap.ATRValid {
		atr = indicator.ATRResult{Factor: 1.0, Class: indicator.VolatilityNormal}
	}
	levels := exit.Calculate(symbol, snap.Close, verdict.Direction, atr, a.cfg.Exit)

	bundle := &Bundle{
		Symbol:      symbol,
		GeneratedAt: time.Now().UTC(),
		Snapshot:    snap,
		Signal:      verdict,
		Levels:      levels,
	}
	if withMTF {
		conf := a.mtf.Analyze(ctx, symbol)
		bundle.Confluence = &conf
	}

	log.Info().Str("symbol", symbol).
		Str("direction", string(verdict.Direction)).
		Int("confidence", verdict.Confidence).
		Bool("mtf", withMTF).
		Msg("analysis complete")
	return bundle, nil
}
