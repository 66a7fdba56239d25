package indicator

import (
	"fmt"
	"math"
	"sort"

	"github.com/quantfx/fxengine/internal/market"
)

// VolatilityClass buckets the current ATR against its own history.
type VolatilityClass string

const (
	VolatilityLow    VolatilityClass = "LOW"
	VolatilityNormal VolatilityClass = "NORMAL"
	VolatilityHigh   VolatilityClass = "HIGH"
)

// ATRConfig holds ATR and volatility-classification parameters.
type ATRConfig struct {
	Period int `yaml:"period"` // 14

	// Percentile cut points over the ATR history observed so far.
	LowPercentile  float64 `yaml:"low_percentile"`  // 0.20
	HighPercentile float64 `yaml:"high_percentile"` // 0.80

	// Exit-distance multipliers per class.
	LowFactor    float64 `yaml:"low_factor"`    // 0.75
	NormalFactor float64 `yaml:"normal_factor"` // 1.0
	HighFactor   float64 `yaml:"high_factor"`   // 1.5
}

// DefaultATRConfig returns the documented ATR constants.
func DefaultATRConfig() ATRConfig {
	return ATRConfig{
		Period:         14,
		LowPercentile:  0.20,
		HighPercentile: 0.80,
		LowFactor:      0.75,
		NormalFactor:   1.0,
		HighFactor:     1.5,
	}
}

// ATRResult is a volatility snapshot: the raw ATR, its pip equivalent, and
// the class/factor used to scale exit distances.
type ATRResult struct {
	Value  float64         `json:"value"`
	Pips   float64         `json:"pips"`
	Class  VolatilityClass `json:"class"`
	Factor float64         `json:"factor"`
}

// TrueRange is max(high−low, |high−prevClose|, |low−prevClose|).
func TrueRange(bar market.PriceBar, prevClose float64) float64 {
	return math.Max(bar.High-bar.Low,
		math.Max(math.Abs(bar.High-prevClose), math.Abs(bar.Low-prevClose)))
}

// ATR returns the rolling mean of the true range over the last period bars.
// Needs period+1 bars for the previous close of the oldest window bar.
func ATR(series market.PriceSeries, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("atr: invalid period %d", period)
	}
	if series.Len() < period+1 {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for i := series.Len() - period; i < series.Len(); i++ {
		sum += TrueRange(series[i], series[i-1].Close)
	}
	return sum / float64(period), nil
}

// ATRSnapshot computes the current ATR and classifies it against the ATR
// values observable at every earlier bar of the same series. Only bars in the
// given series contribute, so a causal prefix yields a causal classification.
func ATRSnapshot(symbol string, series market.PriceSeries, cfg ATRConfig) (ATRResult, error) {
	tracker := NewATRTracker(cfg)
	for _, bar := range series {
		tracker.Push(bar)
	}
	res, ok := tracker.Snapshot(symbol)
	if !ok {
		return ATRResult{}, ErrInsufficientData
	}
	return res, nil
}

// ATRTracker maintains ATR state incrementally during replay: a rolling true
// range window plus a sorted history of observed ATR values for percentile
// classification in O(log n) per bar.
type ATRTracker struct {
	cfg       ATRConfig
	window    *RollingWindow
	history   []float64 // sorted ascending
	prevClose float64
	bars      int
}

// NewATRTracker creates an incremental ATR tracker.
func NewATRTracker(cfg ATRConfig) *ATRTracker {
	return &ATRTracker{cfg: cfg, window: NewRollingWindow(cfg.Period)}
}

// Push feeds the next bar in chronological order.
func (t *ATRTracker) Push(bar market.PriceBar) {
	if t.bars > 0 {
		t.window.Push(TrueRange(bar, t.prevClose))
		if t.window.Full() {
			atr := t.window.Mean()
			i := sort.SearchFloat64s(t.history, atr)
			t.history = append(t.history, 0)
			copy(t.history[i+1:], t.history[i:])
			t.history[i] = atr
		}
	}
	t.prevClose = bar.Close
	t.bars++
}

// Snapshot returns the current ATR classification, or false while the true
// range window is still warming up.
func (t *ATRTracker) Snapshot(symbol string) (ATRResult, bool) {
	if !t.window.Full() {
		return ATRResult{}, false
	}
	value := t.window.Mean()
	class, factor := t.classify(value)
	return ATRResult{
		Value:  value,
		Pips:   market.Pips(symbol, value),
		Class:  class,
		Factor: factor,
	}, true
}

func (t *ATRTracker) classify(value float64) (VolatilityClass, float64) {
	low := percentileSorted(t.history, t.cfg.LowPercentile)
	high := percentileSorted(t.history, t.cfg.HighPercentile)
	switch {
	case value < low:
		return VolatilityLow, t.cfg.LowFactor
	case value > high:
		return VolatilityHigh, t.cfg.HighFactor
	default:
		return VolatilityNormal, t.cfg.NormalFactor
	}
}

// percentileSorted interpolates the p-th percentile of an ascending slice.
func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
