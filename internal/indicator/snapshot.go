package indicator

import (
	"fmt"

	"github.com/quantfx/fxengine/internal/market"
)

// Config groups the parameters of every indicator in the library.
type Config struct {
	Trend     TrendConfig     `yaml:"trend"`
	RSIPeriod int             `yaml:"rsi_period"`
	Bollinger BollingerConfig `yaml:"bollinger"`
	ATR       ATRConfig       `yaml:"atr"`
}

// DefaultConfig returns the documented indicator constants.
func DefaultConfig() Config {
	return Config{
		Trend:     DefaultTrendConfig(),
		RSIPeriod: 14,
		Bollinger: DefaultBollingerConfig(),
		ATR:       DefaultATRConfig(),
	}
}

// Validate rejects parameter combinations no indicator can run with.
func (c Config) Validate() error {
	if c.Trend.FastPeriod <= 0 || c.Trend.MidPeriod <= c.Trend.FastPeriod {
		return fmt.Errorf("trend periods must satisfy 0 < fast < mid, got fast=%d mid=%d",
			c.Trend.FastPeriod, c.Trend.MidPeriod)
	}
	if c.RSIPeriod <= 0 {
		return fmt.Errorf("rsi period must be positive, got %d", c.RSIPeriod)
	}
	if c.Bollinger.Period <= 1 || c.Bollinger.K <= 0 {
		return fmt.Errorf("bollinger needs period > 1 and k > 0, got period=%d k=%.2f",
			c.Bollinger.Period, c.Bollinger.K)
	}
	if c.ATR.Period <= 0 {
		return fmt.Errorf("atr period must be positive, got %d", c.ATR.Period)
	}
	if c.ATR.LowPercentile < 0 || c.ATR.HighPercentile > 1 || c.ATR.LowPercentile >= c.ATR.HighPercentile {
		return fmt.Errorf("atr percentiles must satisfy 0 <= low < high <= 1")
	}
	return nil
}

// WarmupBars is the number of bars needed before every component of a
// snapshot except the optional slow MA is valid.
func (c Config) WarmupBars() int {
	warmup := c.Trend.MidPeriod
	if c.RSIPeriod+1 > warmup {
		warmup = c.RSIPeriod + 1
	}
	if c.Bollinger.Period > warmup {
		warmup = c.Bollinger.Period
	}
	if c.ATR.Period+1 > warmup {
		warmup = c.ATR.Period + 1
	}
	return warmup
}

// Snapshot is the full indicator state computed from a series prefix. Each
// component carries its own validity; consumers must check the flags before
// combining results.
type Snapshot struct {
	Symbol string  `json:"symbol"`
	Close  float64 `json:"close"`
	Bars   int     `json:"bars"`

	Trend Trend `json:"trend"`

	RSI      RSIResult `json:"rsi"`
	RSIValid bool      `json:"rsi_valid"`

	Bands      Bands `json:"bollinger"`
	BandsValid bool  `json:"bollinger_valid"`

	ATR      ATRResult `json:"atr"`
	ATRValid bool      `json:"atr_valid"`

	Patterns []Pattern `json:"patterns,omitempty"`
}

// Compute evaluates the whole library on a series prefix. It fails only on an
// empty series; short history surfaces as per-component validity instead.
func Compute(symbol string, series market.PriceSeries, cfg Config) (*Snapshot, error) {
	last, ok := series.Last()
	if !ok {
		return nil, fmt.Errorf("compute %s: empty series", symbol)
	}

	closes := make([]float64, series.Len())
	for i, b := range series {
		closes[i] = b.Close
	}

	snap := &Snapshot{
		Symbol: symbol,
		Close:  last.Close,
		Bars:   series.Len(),
		Trend:  TrendScore(closes, cfg.Trend),
	}

	if rsi, err := RSI(closes, cfg.RSIPeriod); err == nil {
		snap.RSI = rsi
		snap.RSIValid = true
	}
	if bands, err := Bollinger(closes, cfg.Bollinger); err == nil {
		snap.Bands = bands
		snap.BandsValid = true
	}
	if atr, err := ATRSnapshot(symbol, series, cfg.ATR); err == nil {
		snap.ATR = atr
		snap.ATRValid = true
	}
	snap.Patterns = CandlestickPatterns(series)

	return snap, nil
}
