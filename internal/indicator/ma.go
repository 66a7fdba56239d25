package indicator

import "fmt"

// SMA returns the arithmetic mean of the last period closes.
func SMA(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("sma: invalid period %d", period)
	}
	if len(closes) < period {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period), nil
}

// TrendConfig holds the moving-average periods and comparison weights used by
// the trend classifier. The defaults match the tuned "aggressive" constants;
// they are configuration, not fixed truths.
type TrendConfig struct {
	FastPeriod int `yaml:"fast_period"` // 20
	MidPeriod  int `yaml:"mid_period"`  // 50
	SlowPeriod int `yaml:"slow_period"` // 200

	FastMidWeight   int `yaml:"fast_mid_weight"`   // MA fast vs mid: ±2
	MidSlowWeight   int `yaml:"mid_slow_weight"`   // MA mid vs slow: ±1
	PriceFastWeight int `yaml:"price_fast_weight"` // close vs MA fast: ±2

	// Threshold is the |score| at which the label turns directional.
	// Intentionally low to maximize trade frequency.
	Threshold int `yaml:"threshold"` // 1
}

// DefaultTrendConfig returns the documented trend constants.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		FastPeriod:      20,
		MidPeriod:       50,
		SlowPeriod:      200,
		FastMidWeight:   2,
		MidSlowWeight:   1,
		PriceFastWeight: 2,
		Threshold:       1,
	}
}

// MAValue is a moving average with an explicit insufficient-data marker.
type MAValue struct {
	Period int     `json:"period"`
	Value  float64 `json:"value"`
	Valid  bool    `json:"valid"`
}

// Trend is the composite moving-average trend classification.
type Trend struct {
	Direction Direction `json:"direction"`
	Score     int       `json:"score"`
	Signals   []string  `json:"signals"`
	FastMA    MAValue   `json:"fast_ma"`
	MidMA     MAValue   `json:"mid_ma"`
	SlowMA    MAValue   `json:"slow_ma"`
	// Valid is false when there is not enough history for the fast and mid
	// averages; Direction is NEUTRAL and Score 0 in that case.
	Valid bool `json:"valid"`
}

// TrendScore classifies directional bias from moving-average relationships.
// The slow MA comparison only contributes when enough history exists.
func TrendScore(closes []float64, cfg TrendConfig) Trend {
	t := Trend{Direction: Neutral}

	t.FastMA = maValue(closes, cfg.FastPeriod)
	t.MidMA = maValue(closes, cfg.MidPeriod)
	t.SlowMA = maValue(closes, cfg.SlowPeriod)
	if !t.FastMA.Valid || !t.MidMA.Valid {
		return t
	}
	t.Valid = true

	close := closes[len(closes)-1]

	switch {
	case t.FastMA.Value > t.MidMA.Value:
		t.Score += cfg.FastMidWeight
		t.Signals = append(t.Signals, fmt.Sprintf("MA%d>MA%d", cfg.FastPeriod, cfg.MidPeriod))
	case t.FastMA.Value < t.MidMA.Value:
		t.Score -= cfg.FastMidWeight
		t.Signals = append(t.Signals, fmt.Sprintf("MA%d<MA%d", cfg.FastPeriod, cfg.MidPeriod))
	}

	if t.SlowMA.Valid {
		switch {
		case t.MidMA.Value > t.SlowMA.Value:
			t.Score += cfg.MidSlowWeight
			t.Signals = append(t.Signals, fmt.Sprintf("MA%d>MA%d", cfg.MidPeriod, cfg.SlowPeriod))
		case t.MidMA.Value < t.SlowMA.Value:
			t.Score -= cfg.MidSlowWeight
			t.Signals = append(t.Signals, fmt.Sprintf("MA%d<MA%d", cfg.MidPeriod, cfg.SlowPeriod))
		}
	}

	switch {
	case close > t.FastMA.Value:
		t.Score += cfg.PriceFastWeight
		t.Signals = append(t.Signals, fmt.Sprintf("Price>MA%d", cfg.FastPeriod))
	case close < t.FastMA.Value:
		t.Score -= cfg.PriceFastWeight
		t.Signals = append(t.Signals, fmt.Sprintf("Price<MA%d", cfg.FastPeriod))
	}

	switch {
	case t.Score >= cfg.Threshold:
		t.Direction = Bullish
	case t.Score <= -cfg.Threshold:
		t.Direction = Bearish
	}
	return t
}

func maValue(closes []float64, period int) MAValue {
	v := MAValue{Period: period}
	ma, err := SMA(closes, period)
	if err != nil {
		return v
	}
	v.Value = ma
	v.Valid = true
	return v
}
