package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfx/fxengine/internal/indicator"
	"github.com/quantfx/fxengine/internal/market"
)

func seriesFromCloses(closes []float64) market.PriceSeries {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	bars := make(market.PriceSeries, len(closes))
	for i, c := range closes {
		bars[i] = market.PriceBar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c + 0.0002,
			Low:       c - 0.0002,
			Close:     c,
		}
	}
	return bars
}

func snapshotFromCloses(t *testing.T, closes []float64) *indicator.Snapshot {
	t.Helper()
	snap, err := indicator.Compute("EUR/USD", seriesFromCloses(closes), indicator.DefaultConfig())
	require.NoError(t, err)
	return snap
}

func TestScoreFlatSeriesNeutral(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 1.1000
	}
	res := Score(snapshotFromCloses(t, closes), DefaultConfig())

	assert.Equal(t, indicator.Neutral, res.Direction)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 40, res.Confidence)
	assert.Equal(t, MeanReversion, res.Mode)
	assert.Empty(t, res.Reasons)
}

func TestScoreSustainedBreakoutBullish(t *testing.T) {
	closes := make([]float64, 280)
	for i := 0; i < 220; i++ {
		closes[i] = 1.1000
	}
	for i := 220; i < 280; i++ {
		closes[i] = 1.1000 + float64(i-219)*0.0020
	}
	res := Score(snapshotFromCloses(t, closes), DefaultConfig())

	assert.Equal(t, indicator.Bullish, res.Direction)
	assert.Equal(t, TrendFollowing, res.Mode)
	assert.GreaterOrEqual(t, res.Confidence, 80)
	assert.NotEmpty(t, res.Reasons)
}

func TestScoreSustainedDeclineBearish(t *testing.T) {
	closes := make([]float64, 280)
	for i := 0; i < 220; i++ {
		closes[i] = 1.3000
	}
	for i := 220; i < 280; i++ {
		closes[i] = 1.3000 - float64(i-219)*0.0020
	}
	res := Score(snapshotFromCloses(t, closes), DefaultConfig())

	assert.Equal(t, indicator.Bearish, res.Direction)
	assert.Equal(t, TrendFollowing, res.Mode)
	assert.GreaterOrEqual(t, res.Confidence, 80)
}

func TestScoreMeanReversionOversold(t *testing.T) {
	// A steady climb followed by a sharp pullback: the MA comparisons cancel
	// out (fast above mid, price below fast) so the trend score stays weak,
	// while RSI and band position flag an oversold extreme.
	closes := make([]float64, 60)
	for i := 0; i < 55; i++ {
		closes[i] = 1.0900 + float64(i)*0.0005
	}
	for i := 55; i < 60; i++ {
		closes[i] = closes[54] - float64(i-54)*0.0030
	}
	res := Score(snapshotFromCloses(t, closes), DefaultConfig())

	assert.Equal(t, MeanReversion, res.Mode)
	assert.Equal(t, indicator.Bullish, res.Direction, "oversold extreme should be faded upward")
	assert.NotEmpty(t, res.Reasons)
}

func TestScoreConfidenceShape(t *testing.T) {
	cfg := DefaultConfig()

	flat := make([]float64, 60)
	for i := range flat {
		flat[i] = 1.1000
	}
	neutral := Score(snapshotFromCloses(t, flat), cfg)
	assert.Equal(t, cfg.NeutralConfidence, neutral.Confidence)

	closes := make([]float64, 280)
	for i := 0; i < 220; i++ {
		closes[i] = 1.1000
	}
	for i := 220; i < 280; i++ {
		closes[i] = 1.1000 + float64(i-219)*0.0020
	}
	directional := Score(snapshotFromCloses(t, closes), cfg)
	assert.LessOrEqual(t, directional.Confidence, cfg.MaxConfidence)
	assert.GreaterOrEqual(t, directional.Confidence, cfg.BaseConfidence)
}

func TestScoreDeterministic(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 1.2000 + 0.0010*float64(i%13) - 0.0004*float64(i%5)
	}
	snap := snapshotFromCloses(t, closes)
	cfg := DefaultConfig()

	first := Score(snap, cfg)
	second := Score(snap, cfg)
	assert.Equal(t, first, second)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.StrongTrendScore = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxConfidence = 120
	assert.Error(t, cfg.Validate())
}
