package market

import (
	"fmt"
	"strings"
	"time"
)

// PriceBar is a single OHLC bar. Bars are immutable once produced.
type PriceBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
}

// PriceSeries is a chronologically ordered sequence of bars. The analysis
// core never mutates a series it is handed; callers own the backing array.
type PriceSeries []PriceBar

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s) }

// Last returns the most recent bar. The second return is false on an empty series.
func (s PriceSeries) Last() (PriceBar, bool) {
	if len(s) == 0 {
		return PriceBar{}, false
	}
	return s[len(s)-1], true
}

// Prefix returns the causal view [0..i] inclusive. It shares the backing
// array, so the result must be treated as read-only.
func (s PriceSeries) Prefix(i int) PriceSeries {
	if i < 0 {
		return nil
	}
	if i >= len(s) {
		return s
	}
	return s[:i+1]
}

// Validate checks chronological ordering and bar sanity. Providers are
// expected to hand the core clean data; this is the boundary check.
func (s PriceSeries) Validate() error {
	for i, b := range s {
		if b.High < b.Low {
			return fmt.Errorf("bar %d: high %.6f below low %.6f", i, b.High, b.Low)
		}
		if b.Close > b.High || b.Close < b.Low {
			return fmt.Errorf("bar %d: close %.6f outside [%.6f, %.6f]", i, b.Close, b.Low, b.High)
		}
		if i > 0 && b.Timestamp.Before(s[i-1].Timestamp) {
			return fmt.Errorf("bar %d: timestamp %s precedes bar %d", i, b.Timestamp, i-1)
		}
	}
	return nil
}

// PipSize returns the minimal quoted increment for a currency pair.
// JPY-quoted pairs tick in hundredths; everything else in ten-thousandths.
func PipSize(symbol string) float64 {
	if strings.HasSuffix(strings.ToUpper(symbol), "JPY") {
		return 0.01
	}
	return 0.0001
}

// Pips converts a price distance to pips for the given pair.
func Pips(symbol string, distance float64) float64 {
	return distance / PipSize(symbol)
}
