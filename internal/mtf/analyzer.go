// Package mtf analyzes one symbol across a ladder of timeframes and measures
// how strongly they agree. Each timeframe is fetched and scored independently
// and concurrently; results merge only at the join point.
package mtf

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/quantfx/fxengine/internal/indicator"
	"github.com/quantfx/fxengine/internal/market"
)

// Verdict is the cross-timeframe direction. Unlike a single-timeframe signal
// it has a fourth state for an even directional split.
type Verdict string

const (
	VerdictBullish Verdict = "BULLISH"
	VerdictBearish Verdict = "BEARISH"
	VerdictNeutral Verdict = "NEUTRAL"
	VerdictMixed   Verdict = "MIXED"
)

// Config fixes the timeframe ladder and its confluence weights. Slower
// timeframes carry more weight: an H4 trend outranks M5 noise.
type Config struct {
	Timeframes []market.Timeframe `yaml:"timeframes"` // fastest first
	Weights    []float64          `yaml:"weights"`
	Bars       int                `yaml:"bars"` // history fetched per timeframe

	RSIPeriod int                       `yaml:"rsi_period"`
	Bollinger indicator.BollingerConfig `yaml:"bollinger"`

	// AgreeCount is how many timeframes must share a direction before the
	// ladder as a whole is called directional.
	AgreeCount int `yaml:"agree_count"`
}

// DefaultConfig returns the standard M5 through H4 ladder.
func DefaultConfig() Config {
	return Config{
		Timeframes: []market.Timeframe{market.TF5m, market.TF15m, market.TF1h, market.TF4h},
		Weights:    []float64{1.0, 1.5, 2.0, 3.0},
		Bars:       60,
		RSIPeriod:  14,
		Bollinger:  indicator.BollingerConfig{Period: 20, K: 2},
		AgreeCount: 3,
	}
}

// Validate checks that the ladder and weights line up.
func (c Config) Validate() error {
	if len(c.Timeframes) < 2 {
		return fmt.Errorf("timeframe ladder needs at least 2 rungs, got %d", len(c.Timeframes))
	}
	if len(c.Weights) != len(c.Timeframes) {
		return fmt.Errorf("got %d weights for %d timeframes", len(c.Weights), len(c.Timeframes))
	}
	for i, w := range c.Weights {
		if w <= 0 {
			return fmt.Errorf("weight[%d] must be positive, got %.2f", i, w)
		}
	}
	if c.AgreeCount < 2 || c.AgreeCount > len(c.Timeframes) {
		return fmt.Errorf("agree_count %d out of range for %d timeframes", c.AgreeCount, len(c.Timeframes))
	}
	return nil
}

// TimeframeSignal is one rung's verdict. A fetch or computation failure
// leaves the rung NEUTRAL with zero strength and records the error.
type TimeframeSignal struct {
	Timeframe market.Timeframe    `json:"timeframe"`
	Direction indicator.Direction `json:"direction"`
	Score     int                 `json:"score"`
	Strength  float64             `json:"strength"`
	RSI       float64             `json:"rsi"`
	Weight    float64             `json:"weight"`
	Err       string              `json:"error,omitempty"`
}

// Confluence is the merged cross-timeframe picture.
type Confluence struct {
	Symbol  string            `json:"symbol"`
	Signals []TimeframeSignal `json:"signals"` // fastest first, ladder order
	Verdict Verdict           `json:"verdict"`
	// Score is the weighted agreement strength in [0,100].
	Score float64 `json:"score"`
	// Divergence is set when the fastest and slowest rungs point in
	// opposite directions, even if the overall verdict is directional.
	Divergence bool `json:"divergence"`
}

// Analyzer fans a symbol out across the ladder.
type Analyzer struct {
	provider market.Provider
	cfg      Config
}

// New builds an Analyzer. The config is validated once here so Analyze can
// stay error-free on the configuration axis.
func New(provider market.Provider, cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mtf config: %w", err)
	}
	return &Analyzer{provider: provider, cfg: cfg}, nil
}

// Analyze fetches and scores every timeframe concurrently, then merges.
// Individual rung failures degrade that rung, never the whole call.
func (a *Analyzer) Analyze(ctx context.Context, symbol string) Confluence {
	signals := make([]TimeframeSignal, len(a.cfg.Timeframes))

	var wg sync.WaitGroup
	for i, tf := range a.cfg.Timeframes {
		wg.Add(1)
		go func(i int, tf market.Timeframe) {
			defer wg.Done()
			signals[i] = a.scoreTimeframe(ctx, symbol, tf, a.cfg.Weights[i])
		}(i, tf)
	}
	wg.Wait()

	return merge(symbol, signals, a.cfg.AgreeCount)
}

// scoreTimeframe computes the lightweight per-rung score: moving-average
// trend up to +-3, RSI +-1, Bollinger position +-1.
func (a *Analyzer) scoreTimeframe(ctx context.Context, symbol string, tf market.Timeframe, weight float64) TimeframeSignal {
	sig := TimeframeSignal{Timeframe: tf, Direction: indicator.Neutral, RSI: 50, Weight: weight}

	series, err := a.provider.Fetch(ctx, symbol, tf, a.cfg.Bars)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Str("timeframe", string(tf)).
			Msg("timeframe fetch failed, degrading to neutral")
		sig.Err = err.Error()
		return sig
	}
	if err := series.Validate(); err != nil {
		sig.Err = err.Error()
		return sig
	}

	closes := make([]float64, series.Len())
	for i, bar := range series {
		closes[i] = bar.Close
	}

	score := 0
	ma20, err20 := indicator.SMA(closes, 20)
	ma50, err50 := indicator.SMA(closes, 50)
	price := closes[len(closes)-1]
	if err20 == nil && err50 == nil {
		switch {
		case ma20 > ma50:
			score += 2
		case ma20 < ma50:
			score -= 2
		}
		switch {
		case price > ma20:
			score++
		case price < ma20:
			score--
		}
	}

	if rsi, err := indicator.RSI(closes, a.cfg.RSIPeriod); err == nil {
		sig.RSI = rsi.Value
		switch {
		case rsi.Value > 55:
			score++
		case rsi.Value < 45:
			score--
		}
	}

	if bands, err := indicator.Bollinger(closes, a.cfg.Bollinger); err == nil && bands.Width > 0 {
		switch bands.Position {
		case indicator.AboveUpper:
			score++
		case indicator.BelowLower:
			score--
		}
	}

	sig.Score = score
	sig.Strength = math.Min(math.Abs(float64(score))*25, 100)
	switch {
	case score >= 2:
		sig.Direction = indicator.Bullish
	case score <= -2:
		sig.Direction = indicator.Bearish
	}
	return sig
}

// merge folds the rung signals into one verdict.
func merge(symbol string, signals []TimeframeSignal, agreeCount int) Confluence {
	conf := Confluence{Symbol: symbol, Signals: signals, Verdict: VerdictNeutral}

	var bulls, bears int
	var weighted, totalWeight float64
	for _, s := range signals {
		signed := 0.0
		switch s.Direction {
		case indicator.Bullish:
			bulls++
			signed = s.Strength
		case indicator.Bearish:
			bears++
			signed = -s.Strength
		}
		weighted += s.Weight * signed
		totalWeight += s.Weight
	}

	if totalWeight > 0 {
		conf.Score = math.Min(math.Abs(weighted)/totalWeight, 100)
	}

	switch {
	case bulls >= agreeCount:
		conf.Verdict = VerdictBullish
	case bears >= agreeCount:
		conf.Verdict = VerdictBearish
	case bulls == bears && bulls > 0:
		conf.Verdict = VerdictMixed
	}

	fastest, slowest := signals[0], signals[len(signals)-1]
	conf.Divergence = fastest.Direction != indicator.Neutral &&
		slowest.Direction != indicator.Neutral &&
		fastest.Direction != slowest.Direction

	return conf
}
