package indicator

import (
	"fmt"
	"math"
)

// BandPosition locates the current close relative to the Bollinger bands.
type BandPosition string

const (
	AboveUpper BandPosition = "ABOVE_UPPER"
	BelowLower BandPosition = "BELOW_LOWER"
	UpperHalf  BandPosition = "UPPER_HALF"
	LowerHalf  BandPosition = "LOWER_HALF"
)

// BollingerConfig holds band parameters.
type BollingerConfig struct {
	Period int     `yaml:"period"` // 20
	K      float64 `yaml:"k"`      // 2
}

// DefaultBollingerConfig returns the standard 20-period, 2-sigma bands.
func DefaultBollingerConfig() BollingerConfig {
	return BollingerConfig{Period: 20, K: 2}
}

// Bands holds a Bollinger band snapshot. Width is upper minus lower; a zero
// width means the window was constant and the bands carry no extremity
// information — Position then only reflects which side of the middle the
// close sits on.
type Bands struct {
	Upper    float64      `json:"upper"`
	Middle   float64      `json:"middle"`
	Lower    float64      `json:"lower"`
	Width    float64      `json:"width"`
	Position BandPosition `json:"position"`
}

// Bollinger computes middle = SMA(period) and upper/lower = middle ± k·stddev
// using the sample standard deviation of the window.
func Bollinger(closes []float64, cfg BollingerConfig) (Bands, error) {
	if cfg.Period <= 1 {
		return Bands{}, fmt.Errorf("bollinger: invalid period %d", cfg.Period)
	}
	if len(closes) < cfg.Period {
		return Bands{}, ErrInsufficientData
	}

	window := closes[len(closes)-cfg.Period:]
	sum, sumSq := 0.0, 0.0
	for _, c := range window {
		sum += c
		sumSq += c * c
	}
	n := float64(cfg.Period)
	mean := sum / n
	variance := (sumSq - sum*sum/n) / (n - 1)
	if variance < 0 {
		variance = 0 // float cancellation on near-constant windows
	}
	std := math.Sqrt(variance)

	b := Bands{
		Middle: mean,
		Upper:  mean + cfg.K*std,
		Lower:  mean - cfg.K*std,
	}
	b.Width = b.Upper - b.Lower

	close := closes[len(closes)-1]
	switch {
	case b.Width > 0 && close >= b.Upper:
		b.Position = AboveUpper
	case b.Width > 0 && close <= b.Lower:
		b.Position = BelowLower
	case close > b.Middle:
		b.Position = UpperHalf
	default:
		b.Position = LowerHalf
	}
	return b, nil
}
