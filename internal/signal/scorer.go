// Package signal turns an indicator snapshot into a directional verdict with
// a confidence score and an auditable reason trail. The scorer is a pure
// function: identical snapshots produce identical results, and it never calls
// out to the validation layer that may later confirm or override it.
package signal

import (
	"fmt"

	"github.com/quantfx/fxengine/internal/indicator"
)

// Mode names which scoring branch produced a result.
type Mode string

const (
	// TrendFollowing is used when the trend score is strong: momentum
	// indicators confirm rather than contradict the trend.
	TrendFollowing Mode = "trend_following"
	// MeanReversion is used in weak or absent trends: oversold/overbought
	// extremes are faded.
	MeanReversion Mode = "mean_reversion"
)

// Config holds the scorer's thresholds and confidence shape. Defaults are the
// tuned "aggressive" constants; they are deliberately configuration.
type Config struct {
	// StrongTrendScore is the |trend score| at which the scorer switches
	// from mean-reversion to trend-following.
	StrongTrendScore int `yaml:"strong_trend_score"` // 2

	// Trend-following RSI confirmation levels (bullish side; bearish is
	// mirrored around 100).
	TrendRSIConfirm float64 `yaml:"trend_rsi_confirm"` // 50
	TrendRSIStrong  float64 `yaml:"trend_rsi_strong"`  // 60

	// Mean-reversion RSI tiers (bullish side; bearish mirrored).
	ReversionRSIHard float64 `yaml:"reversion_rsi_hard"` // 30
	ReversionRSISoft float64 `yaml:"reversion_rsi_soft"` // 45

	// DirectionThreshold is the |composite score| at which the label turns
	// directional.
	DirectionThreshold int `yaml:"direction_threshold"` // 1

	// Confidence = min(Base + PerPoint·|score|, Max) when directional,
	// else the flat Neutral baseline.
	BaseConfidence     int `yaml:"base_confidence"`      // 60
	ConfidencePerPoint int `yaml:"confidence_per_point"` // 8
	MaxConfidence      int `yaml:"max_confidence"`       // 95
	NeutralConfidence  int `yaml:"neutral_confidence"`   // 40
}

// DefaultConfig returns the documented scoring constants.
func DefaultConfig() Config {
	return Config{
		StrongTrendScore:   2,
		TrendRSIConfirm:    50,
		TrendRSIStrong:     60,
		ReversionRSIHard:   30,
		ReversionRSISoft:   45,
		DirectionThreshold: 1,
		BaseConfidence:     60,
		ConfidencePerPoint: 8,
		MaxConfidence:      95,
		NeutralConfidence:  40,
	}
}

// Validate rejects nonsensical threshold combinations.
func (c Config) Validate() error {
	if c.StrongTrendScore <= 0 {
		return fmt.Errorf("strong_trend_score must be positive, got %d", c.StrongTrendScore)
	}
	if c.DirectionThreshold <= 0 {
		return fmt.Errorf("direction_threshold must be positive, got %d", c.DirectionThreshold)
	}
	if c.MaxConfidence > 100 || c.BaseConfidence < 0 || c.NeutralConfidence < 0 {
		return fmt.Errorf("confidence bounds must stay within [0,100]")
	}
	return nil
}

// Result is the scorer's verdict. Reasons are appended in evaluation order so
// the decision layer can audit exactly which rules fired.
type Result struct {
	Direction  indicator.Direction `json:"direction"`
	Confidence int                 `json:"confidence"`
	Score      int                 `json:"score"`
	Mode       Mode                `json:"mode"`
	Reasons    []string            `json:"reasons"`
}

// Score combines the snapshot's indicators into a composite verdict.
// Components flagged invalid contribute nothing; degenerate zero-width
// Bollinger bands carry no extremity information and are skipped.
func Score(snap *indicator.Snapshot, cfg Config) Result {
	res := Result{Direction: indicator.Neutral, Mode: MeanReversion}

	trend := snap.Trend
	res.Score = trend.Score
	res.Reasons = append(res.Reasons, trend.Signals...)

	strongTrend := trend.Valid && abs(trend.Score) >= cfg.StrongTrendScore
	if strongTrend {
		res.Mode = TrendFollowing
		scoreTrendFollowing(&res, snap, cfg)
	} else {
		scoreMeanReversion(&res, snap, cfg)
	}

	switch {
	case res.Score >= cfg.DirectionThreshold:
		res.Direction = indicator.Bullish
	case res.Score <= -cfg.DirectionThreshold:
		res.Direction = indicator.Bearish
	}

	if res.Direction == indicator.Neutral {
		res.Confidence = clampConfidence(cfg.NeutralConfidence)
	} else {
		res.Confidence = clampConfidence(min(cfg.BaseConfidence+cfg.ConfidencePerPoint*abs(res.Score), cfg.MaxConfidence))
	}
	return res
}

// scoreTrendFollowing rewards momentum that confirms the established trend.
func scoreTrendFollowing(res *Result, snap *indicator.Snapshot, cfg Config) {
	bull := snap.Trend.Score > 0

	if snap.RSIValid {
		rsi := snap.RSI.Value
		if bull {
			if rsi >= cfg.TrendRSIConfirm {
				res.Score++
				res.Reasons = append(res.Reasons, fmt.Sprintf("RSI %.1f confirms uptrend", rsi))
			}
			if rsi >= cfg.TrendRSIStrong {
				res.Score++
				res.Reasons = append(res.Reasons, fmt.Sprintf("RSI %.1f strong bullish momentum", rsi))
			}
		} else {
			if rsi <= 100-cfg.TrendRSIConfirm {
				res.Score--
				res.Reasons = append(res.Reasons, fmt.Sprintf("RSI %.1f confirms downtrend", rsi))
			}
			if rsi <= 100-cfg.TrendRSIStrong {
				res.Score--
				res.Reasons = append(res.Reasons, fmt.Sprintf("RSI %.1f strong bearish momentum", rsi))
			}
		}
	}

	if snap.BandsValid && snap.Bands.Width > 0 {
		if bull && snap.Bands.Position == indicator.AboveUpper {
			res.Score++
			res.Reasons = append(res.Reasons, "Bollinger breakout above upper band")
		}
		if !bull && snap.Bands.Position == indicator.BelowLower {
			res.Score--
			res.Reasons = append(res.Reasons, "Bollinger breakdown below lower band")
		}
	}
}

// scoreMeanReversion fades extremes when no strong trend exists. Tiers are
// exclusive: the hard threshold supersedes the soft one.
func scoreMeanReversion(res *Result, snap *indicator.Snapshot, cfg Config) {
	if snap.RSIValid {
		rsi := snap.RSI.Value
		switch {
		case rsi <= cfg.ReversionRSIHard:
			res.Score += 2
			res.Reasons = append(res.Reasons, fmt.Sprintf("RSI %.1f oversold", rsi))
		case rsi <= cfg.ReversionRSISoft:
			res.Score++
			res.Reasons = append(res.Reasons, fmt.Sprintf("RSI %.1f leaning oversold", rsi))
		case rsi >= 100-cfg.ReversionRSIHard:
			res.Score -= 2
			res.Reasons = append(res.Reasons, fmt.Sprintf("RSI %.1f overbought", rsi))
		case rsi >= 100-cfg.ReversionRSISoft:
			res.Score--
			res.Reasons = append(res.Reasons, fmt.Sprintf("RSI %.1f leaning overbought", rsi))
		}
	}

	if snap.BandsValid && snap.Bands.Width > 0 {
		switch snap.Bands.Position {
		case indicator.BelowLower:
			res.Score += 2
			res.Reasons = append(res.Reasons, "Price below lower Bollinger band")
		case indicator.LowerHalf:
			res.Score++
			res.Reasons = append(res.Reasons, "Price in lower Bollinger half")
		case indicator.AboveUpper:
			res.Score -= 2
			res.Reasons = append(res.Reasons, "Price above upper Bollinger band")
		case indicator.UpperHalf:
			res.Score--
			res.Reasons = append(res.Reasons, "Price in upper Bollinger half")
		}
	}
}

func clampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
