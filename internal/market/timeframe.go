package market

import (
	"fmt"
	"time"
)

// Timeframe identifies a bar interval using the provider's interval notation.
type Timeframe string

const (
	TF5m  Timeframe = "5min"
	TF15m Timeframe = "15min"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1day"
)

// Duration returns the bar interval length.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF5m:
		return 5 * time.Minute
	case TF15m:
		return 15 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	case TF1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

// ParseTimeframe validates a timeframe string from config or CLI flags.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if tf.Duration() == 0 {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}
