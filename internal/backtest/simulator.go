// Package backtest replays a historical price series bar by bar, generating
// entries from the live scoring pipeline and resolving them against later
// bars. The replay is strictly causal: no computation at bar i may read a bar
// past i, and identical inputs always produce identical results.
package backtest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quantfx/fxengine/internal/exit"
	"github.com/quantfx/fxengine/internal/indicator"
	"github.com/quantfx/fxengine/internal/market"
	"github.com/quantfx/fxengine/internal/signal"
)

// TradeResult is the terminal state of a simulated trade.
type TradeResult string

const (
	Win  TradeResult = "WIN"
	Loss TradeResult = "LOSS"
	Open TradeResult = "OPEN"
)

// Trade is one simulated position. It is mutated only while the simulator
// resolves its exit and is terminal once Result leaves Open.
type Trade struct {
	EntryTime  time.Time           `json:"entry_time"`
	ExitTime   time.Time           `json:"exit_time"`
	Direction  indicator.Direction `json:"direction"`
	EntryPrice float64             `json:"entry_price"`
	ExitPrice  float64             `json:"exit_price"`
	TakeProfit float64             `json:"take_profit"`
	StopLoss   float64             `json:"stop_loss"`
	PnLPips    float64             `json:"pnl_pips"`
	Result     TradeResult         `json:"result"`
	Confidence int                 `json:"confidence"`
	Reason     string              `json:"reason"`
	MTFAligned bool                `json:"mtf_aligned,omitempty"`
}

// Config drives one backtest run.
type Config struct {
	Symbol        string           `yaml:"symbol"`
	Timeframe     market.Timeframe `yaml:"timeframe"`
	MinConfidence int              `yaml:"min_confidence"` // 60
	CooldownBars  int              `yaml:"cooldown_bars"`  // 5

	Indicators indicator.Config `yaml:"indicators"`
	Scorer     signal.Config    `yaml:"scorer"`
	Exit       exit.Config      `yaml:"exit"`
}

// DefaultConfig returns the standard replay parameters.
func DefaultConfig(symbol string, tf market.Timeframe) Config {
	return Config{
		Symbol:        symbol,
		Timeframe:     tf,
		MinConfidence: 60,
		CooldownBars:  5,
		Indicators:    indicator.DefaultConfig(),
		Scorer:        signal.DefaultConfig(),
		Exit:          exit.DefaultConfig(),
	}
}

// Validate checks the run parameters.
func (c Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		return fmt.Errorf("min_confidence must be in [0,100], got %d", c.MinConfidence)
	}
	if c.CooldownBars < 0 {
		return fmt.Errorf("cooldown_bars must be non-negative, got %d", c.CooldownBars)
	}
	if err := c.Indicators.Validate(); err != nil {
		return err
	}
	if err := c.Scorer.Validate(); err != nil {
		return err
	}
	return c.Exit.Validate()
}

// Simulator owns one replay configuration. It carries no mutable state
// between runs; every Run is independent and deterministic.
type Simulator struct {
	cfg Config
}

// New builds a Simulator, validating the config once up front.
func New(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backtest config: %w", err)
	}
	return &Simulator{cfg: cfg}, nil
}

// Run replays the series without any higher-timeframe filter.
func (s *Simulator) Run(series market.PriceSeries) (*Result, error) {
	return s.run(series, nil)
}

// RunWithMTF replays the series, filtering candidate entries against the
// trends of the two higher timeframes. Higher-timeframe trends are computed
// once over the supplied series, mirroring a scheduled trend refresh.
func (s *Simulator) RunWithMTF(series, h1, h4 market.PriceSeries, requireBoth bool) (*Result, error) {
	filter := &trendFilter{
		h1:          higherTimeframeTrend(h1),
		h4:          higherTimeframeTrend(h4),
		requireBoth: requireBoth,
	}
	return s.run(series, filter)
}

func (s *Simulator) run(series market.PriceSeries, filter *trendFilter) (*Result, error) {
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("backtest input: %w", err)
	}
	warmup := s.cfg.Indicators.WarmupBars()
	if series.Len() <= warmup+1 {
		return nil, fmt.Errorf("need more than %d bars for replay, got %d", warmup+1, series.Len())
	}

	runID := uuid.NewString()
	log.Info().Str("run_id", runID).Str("symbol", s.cfg.Symbol).
		Str("timeframe", string(s.cfg.Timeframe)).Int("bars", series.Len()).
		Bool("mtf_filter", filter != nil).Msg("starting backtest replay")

	closes := make([]float64, series.Len())
	for i, bar := range series {
		closes[i] = bar.Close
	}

	tracker := indicator.NewATRTracker(s.cfg.Indicators.ATR)

	var trades []Trade
	filtered := 0
	lastEntry := -1 << 30 // far enough back that the first entry is never blocked
	openUntil := -1

	for i := 0; i < series.Len(); i++ {
		tracker.Push(series[i])

		if i < warmup || i >= series.Len()-1 {
			continue
		}
		if i <= openUntil {
			continue // a position is still open at this bar
		}
		if i < lastEntry+s.cfg.CooldownBars {
			continue
		}

		snap, err := s.causalSnapshot(closes[:i+1])
		if err != nil {
			return nil, fmt.Errorf("bar %d (%s): %w", i, series[i].Timestamp.Format(time.RFC3339), err)
		}
		verdict := signal.Score(snap, s.cfg.Scorer)
		if verdict.Direction == indicator.Neutral || verdict.Confidence < s.cfg.MinConfidence {
			continue
		}

		if filter != nil {
			aligned, reason := filter.check(verdict.Direction)
			if !aligned {
				filtered++
				log.Debug().Str("run_id", runID).Int("bar", i).
					Str("direction", string(verdict.Direction)).Str("reason", reason).
					Msg("entry filtered by higher timeframes")
				continue
			}
		}

		atrRes, _ := tracker.Snapshot(s.cfg.Symbol)
		levels := exit.Calculate(s.cfg.Symbol, series[i].Close, verdict.Direction, atrRes, s.cfg.Exit)

		trade, exitIdx := s.resolveTrade(series, i, verdict, levels)
		if filter != nil {
			trade.MTFAligned = true
		}
		trades = append(trades, trade)
		lastEntry = i
		openUntil = exitIdx
	}

	metrics := computeMetrics(trades, series, s.cfg)
	metrics.RunID = runID
	if filter != nil {
		metrics.MTFEnabled = true
		metrics.FilteredByMTF = filtered
		metrics.H1Trend = filter.h1
		metrics.H4Trend = filter.h4
	}

	log.Info().Str("run_id", runID).Int("trades", metrics.TotalTrades).
		Float64("win_rate", metrics.WinRate).Float64("total_pips", metrics.TotalPips).
		Msg("backtest replay complete")
	return metrics, nil
}

// causalSnapshot computes the indicator state the scorer consumes from a
// close-price prefix. ATR is tracked incrementally elsewhere, so the
// snapshot's ATR slot stays unset.
func (s *Simulator) causalSnapshot(closes []float64) (*indicator.Snapshot, error) {
	snap := &indicator.Snapshot{
		Symbol: s.cfg.Symbol,
		Close:  closes[len(closes)-1],
		Bars:   len(closes),
		Trend:  indicator.TrendScore(closes, s.cfg.Indicators.Trend),
	}
	rsi, err := indicator.RSI(closes, s.cfg.Indicators.RSIPeriod)
	if err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}
	snap.RSI, snap.RSIValid = rsi, true

	bands, err := indicator.Bollinger(closes, s.cfg.Indicators.Bollinger)
	if err != nil {
		return nil, fmt.Errorf("bollinger: %w", err)
	}
	snap.Bands, snap.BandsValid = bands, true
	return snap, nil
}

// resolveTrade opens a position at bar i's close and walks forward until the
// bracket is hit or the data ends. When both levels fall inside one bar's
// range the stop wins the tie. Exits realize the exact bracket price, not the
// bar's open or close.
func (s *Simulator) resolveTrade(series market.PriceSeries, i int, verdict signal.Result, levels exit.Levels) (Trade, int) {
	entry := series[i]
	trade := Trade{
		EntryTime:  entry.Timestamp,
		Direction:  verdict.Direction,
		EntryPrice: entry.Close,
		TakeProfit: levels.TakeProfit,
		StopLoss:   levels.StopLoss,
		Result:     Open,
		Confidence: verdict.Confidence,
		Reason:     joinReasons(verdict.Reasons),
	}

	for j := i + 1; j < series.Len(); j++ {
		bar := series[j]
		if trade.Direction == indicator.Bullish {
			if bar.Low <= trade.StopLoss {
				trade.close(bar.Timestamp, trade.StopLoss, -levels.SLPips, Loss)
				return trade, j
			}
			if bar.High >= trade.TakeProfit {
				trade.close(bar.Timestamp, trade.TakeProfit, levels.TPPips, Win)
				return trade, j
			}
		} else {
			if bar.High >= trade.StopLoss {
				trade.close(bar.Timestamp, trade.StopLoss, -levels.SLPips, Loss)
				return trade, j
			}
			if bar.Low <= trade.TakeProfit {
				trade.close(bar.Timestamp, trade.TakeProfit, levels.TPPips, Win)
				return trade, j
			}
		}
	}

	// Data ran out with the position open: close at the final bar's close
	// and classify by realized sign. A dead-flat exit counts as a loss.
	last := series[series.Len()-1]
	pnl := market.Pips(s.cfg.Symbol, last.Close-trade.EntryPrice)
	if trade.Direction == indicator.Bearish {
		pnl = -pnl
	}
	result := Loss
	if pnl > 0 {
		result = Win
	}
	trade.close(last.Timestamp, last.Close, pnl, result)
	return trade, series.Len() - 1
}

func (t *Trade) close(at time.Time, price, pnlPips float64, result TradeResult) {
	t.ExitTime = at
	t.ExitPrice = price
	t.PnLPips = pnlPips
	t.Result = result
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += ", "
		}
		out += r
	}
	return out
}
