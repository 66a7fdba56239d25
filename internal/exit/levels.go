// Package exit derives take-profit and stop-loss brackets from current
// volatility. Wider markets get wider brackets so that routine noise does not
// stop a position out; calm markets get proportionally tighter ones.
package exit

import (
	"fmt"

	"github.com/quantfx/fxengine/internal/indicator"
	"github.com/quantfx/fxengine/internal/market"
)

// Config sets the ATR multiples used to place brackets. The take-profit
// multiple exceeds the stop multiple so every bracket has a positive expected
// risk/reward before win-rate considerations.
type Config struct {
	StopATR   float64 `yaml:"stop_atr"`   // 1.5
	TargetATR float64 `yaml:"target_atr"` // 2.5
	// NeutralScale shrinks both distances when no direction is held; the
	// resulting bracket brackets the price symmetrically for reference.
	NeutralScale float64 `yaml:"neutral_scale"` // 0.5
	// MinDistancePips floors the bracket width when ATR degenerates toward
	// zero on a flat series.
	MinDistancePips float64 `yaml:"min_distance_pips"` // 5
}

// DefaultConfig returns the standard bracket multiples.
func DefaultConfig() Config {
	return Config{
		StopATR:         1.5,
		TargetATR:       2.5,
		NeutralScale:    0.5,
		MinDistancePips: 5,
	}
}

// Validate rejects bracket configurations that cannot produce usable levels.
func (c Config) Validate() error {
	if c.StopATR <= 0 || c.TargetATR <= 0 {
		return fmt.Errorf("atr multiples must be positive, got stop=%.2f target=%.2f", c.StopATR, c.TargetATR)
	}
	if c.TargetATR <= c.StopATR {
		return fmt.Errorf("target_atr %.2f must exceed stop_atr %.2f", c.TargetATR, c.StopATR)
	}
	if c.NeutralScale <= 0 || c.NeutralScale > 1 {
		return fmt.Errorf("neutral_scale must be in (0,1], got %.2f", c.NeutralScale)
	}
	return nil
}

// Levels is a fully-priced bracket around an entry.
type Levels struct {
	EntryPrice   float64 `json:"entry_price"`
	TakeProfit   float64 `json:"take_profit"`
	StopLoss     float64 `json:"stop_loss"`
	TPDistance   float64 `json:"tp_distance"`
	SLDistance   float64 `json:"sl_distance"`
	TPPips       float64 `json:"tp_pips"`
	SLPips       float64 `json:"sl_pips"`
	RiskReward   float64 `json:"risk_reward"`
	ExitText     string  `json:"exit_condition"`
	VolatilityIn string  `json:"volatility"`
}

// Calculate places a bracket around price for the given direction. The ATR is
// pre-scaled by its volatility factor so HIGH regimes widen brackets and LOW
// regimes tighten them. A NEUTRAL direction yields a halved symmetric
// reference bracket: target above, stop below.
func Calculate(symbol string, price float64, dir indicator.Direction, atr indicator.ATRResult, cfg Config) Levels {
	unit := atr.Value * atr.Factor
	minDist := cfg.MinDistancePips * market.PipSize(symbol)
	if unit <= 0 {
		unit = minDist
	}

	slDist := cfg.StopATR * unit
	tpDist := cfg.TargetATR * unit
	if dir == indicator.Neutral {
		slDist *= cfg.NeutralScale
		tpDist *= cfg.NeutralScale
	}
	if slDist < minDist {
		slDist = minDist
	}
	if tpDist < minDist {
		tpDist = minDist
	}

	lv := Levels{EntryPrice: price, TPDistance: tpDist, SLDistance: slDist, VolatilityIn: string(atr.Class)}
	switch dir {
	case indicator.Bearish:
		lv.TakeProfit = price - tpDist
		lv.StopLoss = price + slDist
		lv.ExitText = fmt.Sprintf("exit at %.5f target or %.5f stop", lv.TakeProfit, lv.StopLoss)
	default: // bullish and neutral reference brackets point upward
		lv.TakeProfit = price + tpDist
		lv.StopLoss = price - slDist
		lv.ExitText = fmt.Sprintf("exit at %.5f target or %.5f stop", lv.TakeProfit, lv.StopLoss)
	}

	lv.TPPips = market.Pips(symbol, tpDist)
	lv.SLPips = market.Pips(symbol, slDist)
	if slDist > 0 {
		lv.RiskReward = tpDist / slDist
	}
	return lv
}
