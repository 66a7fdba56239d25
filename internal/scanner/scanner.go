// Package scanner sweeps a basket of currency pairs in parallel and ranks
// the strongest technical setups. Each pair is scored additively from RSI,
// trend, Bollinger position and higher-timeframe alignment; failures degrade
// a single pair, never the sweep.
package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quantfx/fxengine/internal/exit"
	"github.com/quantfx/fxengine/internal/indicator"
	"github.com/quantfx/fxengine/internal/market"
)

// Action is a tradeable verdict for one pair. ERROR marks a pair whose scan
// failed and carries zero strength.
type Action string

const (
	Buy     Action = "BUY"
	Sell    Action = "SELL"
	Hold    Action = "NEUTRAL"
	Errored Action = "ERROR"
)

// DefaultPairs is the standard major-pair basket.
var DefaultPairs = []string{
	"EUR/USD", "GBP/USD", "USD/JPY", "USD/CHF",
	"AUD/USD", "USD/CAD", "NZD/USD", "EUR/GBP",
}

// pairCorrelations maps each pair to the pairs it normally moves with
// (positive) and against (negative). Used only for divergence warnings.
var pairCorrelations = map[string]struct{ positive, negative []string }{
	"EUR/USD": {[]string{"GBP/USD", "AUD/USD", "NZD/USD"}, []string{"USD/CHF", "USD/JPY", "USD/CAD"}},
	"GBP/USD": {[]string{"EUR/USD", "AUD/USD"}, []string{"USD/CHF", "USD/JPY"}},
	"USD/JPY": {[]string{"USD/CHF", "USD/CAD"}, []string{"EUR/USD", "GBP/USD"}},
	"USD/CHF": {[]string{"USD/JPY", "USD/CAD"}, []string{"EUR/USD", "GBP/USD"}},
	"AUD/USD": {[]string{"NZD/USD", "EUR/USD"}, []string{"USD/CAD"}},
	"USD/CAD": {[]string{"USD/JPY", "USD/CHF"}, []string{"AUD/USD", "NZD/USD"}},
	"NZD/USD": {[]string{"AUD/USD", "EUR/USD"}, []string{"USD/CAD"}},
	"EUR/GBP": {nil, nil},
}

// Config drives one sweep.
type Config struct {
	Pairs       []string         `yaml:"pairs"`
	MinStrength int              `yaml:"min_strength"` // 60
	Timeframe   market.Timeframe `yaml:"timeframe"`
	Bars        int              `yaml:"bars"`        // entry-timeframe history
	HigherBars  int              `yaml:"higher_bars"` // H1/H4 history

	Indicators indicator.Config `yaml:"indicators"`
	Exit       exit.Config      `yaml:"exit"`
}

// DefaultConfig returns the standard sweep parameters.
func DefaultConfig() Config {
	return Config{
		Pairs:       DefaultPairs,
		MinStrength: 60,
		Timeframe:   market.TF5m,
		Bars:        200,
		HigherBars:  60,
		Indicators:  indicator.DefaultConfig(),
		Exit:        exit.DefaultConfig(),
	}
}

// Validate checks sweep parameters.
func (c Config) Validate() error {
	if len(c.Pairs) == 0 {
		return fmt.Errorf("at least one pair is required")
	}
	if c.MinStrength < 0 || c.MinStrength > 100 {
		return fmt.Errorf("min_strength must be in [0,100], got %d", c.MinStrength)
	}
	if c.Bars <= c.Indicators.WarmupBars() {
		return fmt.Errorf("bars %d does not cover the indicator warmup %d", c.Bars, c.Indicators.WarmupBars())
	}
	return c.Exit.Validate()
}

// PairSignal is a fully-scored setup for one pair.
type PairSignal struct {
	Pair      string `json:"pair"`
	Direction Action `json:"direction"`
	Strength  int    `json:"strength"`

	Price      float64             `json:"price"`
	RSI        float64             `json:"rsi"`
	Trend      indicator.Direction `json:"trend"`
	TrendScore int                 `json:"trend_score"`

	H1Trend    indicator.Direction `json:"mtf_h1_trend"`
	H4Trend    indicator.Direction `json:"mtf_h4_trend"`
	MTFAligned bool                `json:"mtf_aligned"`

	ATRPips    float64                   `json:"atr_pips"`
	Volatility indicator.VolatilityClass `json:"volatility"`

	EntryPrice float64 `json:"entry_price"`
	TakeProfit float64 `json:"take_profit"`
	StopLoss   float64 `json:"stop_loss"`
	RiskReward float64 `json:"risk_reward"`

	Reasons []string `json:"reasons"`
	Err     string   `json:"error,omitempty"`
}

// Result is one completed sweep.
type Result struct {
	SweepID      string    `json:"sweep_id"`
	Timestamp    time.Time `json:"timestamp"`
	PairsScanned int       `json:"pairs_scanned"`

	Best *PairSignal  `json:"best_opportunity,omitempty"`
	Top  []PairSignal `json:"top_opportunities"`

	All map[string]PairSignal `json:"all_signals"`

	CorrelationWarnings []string  `json:"correlation_warnings"`
	USDSentiment        Sentiment `json:"usd_sentiment"`

	BullishPairs []string `json:"bullish_pairs"`
	BearishPairs []string `json:"bearish_pairs"`
	NeutralPairs []string `json:"neutral_pairs"`
}

// Scanner sweeps pairs against one market-data provider.
type Scanner struct {
	provider market.Provider
	cfg      Config
}

// New builds a Scanner, validating the config up front.
func New(provider market.Provider, cfg Config) (*Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scanner config: %w", err)
	}
	return &Scanner{provider: provider, cfg: cfg}, nil
}

// ScanAll sweeps every configured pair concurrently and ranks the outcome.
func (s *Scanner) ScanAll(ctx context.Context) Result {
	sweepID := uuid.NewString()
	log.Info().Str("sweep_id", sweepID).Int("pairs", len(s.cfg.Pairs)).Msg("starting pair sweep")

	signals := make([]PairSignal, len(s.cfg.Pairs))
	var wg sync.WaitGroup
	for i, pair := range s.cfg.Pairs {
		wg.Add(1)
		go func(i int, pair string) {
			defer wg.Done()
			signals[i] = s.ScanPair(ctx, pair)
		}(i, pair)
	}
	wg.Wait()

	res := Result{
		SweepID:      sweepID,
		Timestamp:    time.Now().UTC(),
		PairsScanned: len(s.cfg.Pairs),
		All:          make(map[string]PairSignal, len(signals)),
	}

	var candidates []PairSignal
	for _, sig := range signals {
		res.All[sig.Pair] = sig
		switch sig.Direction {
		case Buy:
			res.BullishPairs = append(res.BullishPairs, sig.Pair)
		case Sell:
			res.BearishPairs = append(res.BearishPairs, sig.Pair)
		default:
			res.NeutralPairs = append(res.NeutralPairs, sig.Pair)
		}
		if sig.Strength >= s.cfg.MinStrength && (sig.Direction == Buy || sig.Direction == Sell) {
			candidates = append(candidates, sig)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Strength != candidates[j].Strength {
			return candidates[i].Strength > candidates[j].Strength
		}
		return candidates[i].Pair < candidates[j].Pair
	})
	if len(candidates) > 3 {
		res.Top = candidates[:3]
	} else {
		res.Top = candidates
	}
	if len(candidates) > 0 {
		best := candidates[0]
		res.Best = &best
	}

	res.USDSentiment = usdSentiment(res.All)
	res.CorrelationWarnings = correlationWarnings(res.All)

	log.Info().
		Str("sweep_id", sweepID).
		Int("bullish", len(res.BullishPairs)).
		Int("bearish", len(res.BearishPairs)).
		Int("neutral", len(res.NeutralPairs)).
		Int("opportunities", len(candidates)).
		Msg("pair sweep complete")
	return res
}

// ScanPair analyzes one pair. Any failure returns an ERROR signal with zero
// strength instead of propagating.
func (s *Scanner) ScanPair(ctx context.Context, pair string) PairSignal {
	sig := PairSignal{
		Pair: pair, Direction: Hold, RSI: 50,
		Trend: indicator.Neutral, H1Trend: indicator.Neutral, H4Trend: indicator.Neutral,
		Volatility: indicator.VolatilityNormal,
	}

	series, err := s.provider.Fetch(ctx, pair, s.cfg.Timeframe, s.cfg.Bars)
	if err != nil {
		log.Warn().Err(err).Str("pair", pair).Msg("pair scan failed")
		sig.Direction = Errored
		sig.Err = err.Error()
		return sig
	}
	snap, err := indicator.Compute(pair, series, s.cfg.Indicators)
	if err != nil {
		sig.Direction = Errored
		sig.Err = err.Error()
		return sig
	}

	sig.Price = snap.Close
	if snap.RSIValid {
		sig.RSI = snap.RSI.Value
	}
	sig.Trend = snap.Trend.Direction
	sig.TrendScore = snap.Trend.Score
	if snap.ATRValid {
		sig.ATRPips = snap.ATR.Pips
		sig.Volatility = snap.ATR.Class
	}

	s.scoreSetup(&sig, snap)
	s.applyHigherTimeframes(ctx, &sig)

	if sig.Strength < 0 {
		sig.Strength = 0
	}
	if sig.Strength > 100 {
		sig.Strength = 100
	}

	s.attachLevels(&sig, snap)
	return sig
}

// scoreSetup applies the additive strength rules from the entry timeframe.
func (s *Scanner) scoreSetup(sig *PairSignal, snap *indicator.Snapshot) {
	if snap.RSIValid {
		switch snap.RSI.Zone {
		case indicator.Oversold:
			sig.Strength += 20
			sig.Direction = Buy
			sig.Reasons = append(sig.Reasons, fmt.Sprintf("RSI oversold (%.0f)", snap.RSI.Value))
		case indicator.Overbought:
			sig.Strength += 20
			sig.Direction = Sell
			sig.Reasons = append(sig.Reasons, fmt.Sprintf("RSI overbought (%.0f)", snap.RSI.Value))
		}
	}

	score := snap.Trend.Score
	switch {
	case score >= 3 || score <= -3:
		sig.Strength += 25
		if snap.Trend.Direction == indicator.Bullish {
			sig.Direction = Buy
			sig.Reasons = append(sig.Reasons, fmt.Sprintf("strong bullish trend (score %d)", score))
		} else if snap.Trend.Direction == indicator.Bearish {
			sig.Direction = Sell
			sig.Reasons = append(sig.Reasons, fmt.Sprintf("strong bearish trend (score %d)", score))
		}
	case score >= 2 || score <= -2:
		sig.Strength += 15
		if snap.Trend.Direction != indicator.Neutral {
			sig.Reasons = append(sig.Reasons, fmt.Sprintf("moderate %s trend", snap.Trend.Direction))
		}
	}

	if snap.BandsValid && snap.Bands.Width > 0 {
		switch snap.Bands.Position {
		case indicator.BelowLower:
			if sig.Direction != Sell {
				sig.Strength += 15
				if sig.Direction == Hold {
					sig.Direction = Buy
				}
				sig.Reasons = append(sig.Reasons, "price below lower Bollinger band")
			}
		case indicator.AboveUpper:
			if sig.Direction != Buy {
				sig.Strength += 15
				if sig.Direction == Hold {
					sig.Direction = Sell
				}
				sig.Reasons = append(sig.Reasons, "price above upper Bollinger band")
			}
		}
	}

	for i, ma := range snap.Trend.Signals {
		if i == 2 {
			break
		}
		sig.Strength += 10
		sig.Reasons = append(sig.Reasons, ma)
	}
}

// applyHigherTimeframes checks H1/H4 agreement with the pair's direction.
// H4 agreement adds the most, H4 opposition is penalized; fetch failures
// leave both trends neutral.
func (s *Scanner) applyHigherTimeframes(ctx context.Context, sig *PairSignal) {
	sig.H1Trend = s.higherTrend(ctx, sig.Pair, market.TF1h)
	sig.H4Trend = s.higherTrend(ctx, sig.Pair, market.TF4h)

	var expected indicator.Direction
	switch sig.Direction {
	case Buy:
		expected = indicator.Bullish
	case Sell:
		expected = indicator.Bearish
	default:
		return
	}

	switch {
	case sig.H4Trend == expected:
		sig.MTFAligned = true
		sig.Strength += 20
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("H4 aligned (%s)", sig.H4Trend))
	case sig.H4Trend == indicator.Neutral && sig.H1Trend == expected:
		sig.MTFAligned = true
		sig.Strength += 10
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("H1 aligned (%s)", sig.H1Trend))
	case sig.H4Trend != indicator.Neutral:
		sig.Strength -= 15
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("H4 divergent (%s)", sig.H4Trend))
	}
}

// higherTrend classifies one higher timeframe from its fast/mid MAs.
func (s *Scanner) higherTrend(ctx context.Context, pair string, tf market.Timeframe) indicator.Direction {
	series, err := s.provider.Fetch(ctx, pair, tf, s.cfg.HigherBars)
	if err != nil {
		return indicator.Neutral
	}
	closes := make([]float64, series.Len())
	for i, bar := range series {
		closes[i] = bar.Close
	}
	ma20, err20 := indicator.SMA(closes, 20)
	ma50, err50 := indicator.SMA(closes, 50)
	if err20 != nil || err50 != nil || len(closes) == 0 {
		return indicator.Neutral
	}
	price := closes[len(closes)-1]

	score := 0
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
	switch {
	case score >= 2:
		return indicator.Bullish
	case score <= -2:
		return indicator.Bearish
	}
	return indicator.Neutral
}

// attachLevels prices the suggested bracket for directional setups.
func (s *Scanner) attachLevels(sig *PairSignal, snap *indicator.Snapshot) {
	if sig.Direction != Buy && sig.Direction != Sell {
		return
	}
	dir := indicator.Bullish
	if sig.Direction == Sell {
		dir = indicator.Bearish
	}
	atr := snap.ATR
	if !snap.ATRValid {
		atr = indicator.ATRResult{Factor: 1.0, Class: indicator.VolatilityNormal}
	}
	levels := exit.Calculate(sig.Pair, snap.Close, dir, atr, s.cfg.Exit)
	sig.EntryPrice = levels.EntryPrice
	sig.TakeProfit = levels.TakeProfit
	sig.StopLoss = levels.StopLoss
	sig.RiskReward = levels.RiskReward
}
