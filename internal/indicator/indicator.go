// Package indicator computes technical indicators over a price series.
// Every function reads only the bars it is given; callers enforce causality
// by passing a prefix of history, and nothing here touches the wall clock.
package indicator

import "errors"

// ErrInsufficientData is returned when a series is shorter than the window an
// indicator needs. Callers must check for it before combining results.
var ErrInsufficientData = errors.New("insufficient data for indicator window")

// Direction is a directional bias label shared by the trend classifier and
// the signal scorer.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
	Neutral Direction = "NEUTRAL"
)

// Opposite returns the opposing direction; NEUTRAL maps to itself.
func (d Direction) Opposite() Direction {
	switch d {
	case Bullish:
		return Bearish
	case Bearish:
		return Bullish
	default:
		return Neutral
	}
}
