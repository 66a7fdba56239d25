package indicator

import (
	"math"
	"time"

	"github.com/quantfx/fxengine/internal/market"
)

// PatternName identifies a candlestick pattern.
type PatternName string

const (
	Doji             PatternName = "DOJI"
	Hammer           PatternName = "HAMMER"
	ShootingStar     PatternName = "SHOOTING_STAR"
	BullishEngulfing PatternName = "BULLISH_ENGULFING"
	BearishEngulfing PatternName = "BEARISH_ENGULFING"
)

// Pattern is a candlestick pattern hit with its directional implication.
type Pattern struct {
	Name      PatternName `json:"name"`
	Bias      Direction   `json:"bias"`
	Timestamp time.Time   `json:"timestamp"`
}

const patternLookback = 5

// CandlestickPatterns scans the last five bars for dojis and the latest bar
// for hammer/shooting-star wick asymmetry and engulfing bodies.
func CandlestickPatterns(series market.PriceSeries) []Pattern {
	if series.Len() < patternLookback {
		return nil
	}

	var patterns []Pattern

	// Doji: wick-to-body ratio above 10:1.
	for _, bar := range series[series.Len()-patternLookback:] {
		body := math.Abs(bar.Close - bar.Open)
		wick := bar.High - bar.Low
		if wick > 0 && body*10 < wick {
			patterns = append(patterns, Pattern{Name: Doji, Bias: Neutral, Timestamp: bar.Timestamp})
		}
	}

	last := series[series.Len()-1]
	body := math.Abs(last.Close - last.Open)
	lowerWick := math.Min(last.Open, last.Close) - last.Low
	upperWick := last.High - math.Max(last.Open, last.Close)

	if lowerWick > body*2 && upperWick < body*0.5 {
		patterns = append(patterns, Pattern{Name: Hammer, Bias: Bullish, Timestamp: last.Timestamp})
	}
	if upperWick > body*2 && lowerWick < body*0.5 {
		patterns = append(patterns, Pattern{Name: ShootingStar, Bias: Bearish, Timestamp: last.Timestamp})
	}

	prev := series[series.Len()-2]
	prevLo := math.Min(prev.Open, prev.Close)
	prevHi := math.Max(prev.Open, prev.Close)
	currLo := math.Min(last.Open, last.Close)
	currHi := math.Max(last.Open, last.Close)

	if currLo < prevLo && currHi > prevHi {
		if last.Close > last.Open {
			patterns = append(patterns, Pattern{Name: BullishEngulfing, Bias: Bullish, Timestamp: last.Timestamp})
		} else {
			patterns = append(patterns, Pattern{Name: BearishEngulfing, Bias: Bearish, Timestamp: last.Timestamp})
		}
	}
	return patterns
}
