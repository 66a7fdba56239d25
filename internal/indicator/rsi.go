package indicator

import "fmt"

// RSIZone classifies an RSI reading.
type RSIZone string

const (
	Overbought RSIZone = "OVERBOUGHT"
	Oversold   RSIZone = "OVERSOLD"
	RSINeutral RSIZone = "NEUTRAL"
)

// RSIResult is a bounded momentum reading in [0, 100].
type RSIResult struct {
	Value float64 `json:"value"`
	Zone  RSIZone `json:"zone"`
}

// RSI computes the Relative Strength Index over the simple rolling mean of
// positive and negative deltas (non-exponential). Needs period+1 closes.
//
// Degenerate windows are defined, not faulted: a window with zero average
// loss but positive gains is maximal bullish (100); a perfectly flat window
// has no momentum either way and reads 50.
func RSI(closes []float64, period int) (RSIResult, error) {
	if period <= 0 {
		return RSIResult{}, fmt.Errorf("rsi: invalid period %d", period)
	}
	if len(closes) < period+1 {
		return RSIResult{}, ErrInsufficientData
	}

	gains, losses := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	var value float64
	switch {
	case avgLoss == 0 && avgGain == 0:
		value = 50.0
	case avgLoss == 0:
		value = 100.0
	default:
		rs := avgGain / avgLoss
		value = 100.0 - 100.0/(1.0+rs)
	}

	return RSIResult{Value: value, Zone: classifyRSI(value)}, nil
}

func classifyRSI(value float64) RSIZone {
	switch {
	case value >= 70:
		return Overbought
	case value <= 30:
		return Oversold
	default:
		return RSINeutral
	}
}
