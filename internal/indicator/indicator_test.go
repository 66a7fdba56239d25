package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfx/fxengine/internal/market"
)

// barsFromCloses builds a series where every bar is a flat candle at the
// close value, spaced one hour apart.
func barsFromCloses(closes []float64) market.PriceSeries {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	series := make(market.PriceSeries, len(closes))
	for i, c := range closes {
		series[i] = market.PriceBar{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      c, High: c, Low: c, Close: c,
		}
	}
	return series
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestSMA(t *testing.T) {
	_, err := SMA([]float64{1, 2}, 3)
	assert.ErrorIs(t, err, ErrInsufficientData)

	v, err := SMA([]float64{1, 2, 3, 4}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, v, 1e-12)
}

func TestTrendScoreBreakout(t *testing.T) {
	// Long flat base then a sharp sustained rise: MA20 > MA50 > MA200 with
	// price above all of them.
	closes := append(constant(220, 1.0), ramp(60, 1.0, 0.002)...)
	trend := TrendScore(closes, DefaultTrendConfig())

	require.True(t, trend.Valid)
	require.True(t, trend.SlowMA.Valid)
	assert.Equal(t, Bullish, trend.Direction)
	assert.GreaterOrEqual(t, trend.Score, 3)
	assert.Contains(t, trend.Signals, "MA20>MA50")
	assert.Contains(t, trend.Signals, "Price>MA20")
}

func TestTrendScoreFlat(t *testing.T) {
	trend := TrendScore(constant(260, 1.0850), DefaultTrendConfig())
	require.True(t, trend.Valid)
	assert.Equal(t, Neutral, trend.Direction)
	assert.Equal(t, 0, trend.Score)
	assert.Empty(t, trend.Signals)
}

func TestTrendScoreInsufficient(t *testing.T) {
	trend := TrendScore(constant(30, 1.0), DefaultTrendConfig())
	assert.False(t, trend.Valid)
	assert.Equal(t, Neutral, trend.Direction)
}

func TestRSIBounds(t *testing.T) {
	cases := [][]float64{
		ramp(30, 1.0, 0.001),
		ramp(30, 2.0, -0.001),
		{1, 1.1, 0.9, 1.2, 0.8, 1.3, 0.7, 1.4, 0.6, 1.5, 1, 1.1, 0.9, 1.2, 0.8},
	}
	for _, closes := range cases {
		res, err := RSI(closes, 14)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Value, 0.0)
		assert.LessOrEqual(t, res.Value, 100.0)
	}
}

func TestRSIMonotonicWindowIsMaximal(t *testing.T) {
	res, err := RSI(ramp(20, 1.0, 0.01), 14)
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Value)
	assert.Equal(t, Overbought, res.Zone)
}

func TestRSIFlatWindowIsFifty(t *testing.T) {
	res, err := RSI(constant(20, 1.0850), 14)
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.Value)
	assert.Equal(t, RSINeutral, res.Zone)
}

func TestRSIInsufficient(t *testing.T) {
	_, err := RSI(constant(14, 1.0), 14)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestBollingerOrdering(t *testing.T) {
	closes := []float64{1, 1.2, 0.9, 1.1, 1.05, 1.3, 0.95, 1.15, 1.02, 1.08,
		1.12, 0.98, 1.22, 1.04, 1.06, 1.18, 0.92, 1.14, 1.01, 1.09}
	b, err := Bollinger(closes, DefaultBollingerConfig())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, b.Upper, b.Middle)
	assert.GreaterOrEqual(t, b.Middle, b.Lower)
	assert.Greater(t, b.Width, 0.0)
}

func TestBollingerFlatWindowDegenerates(t *testing.T) {
	b, err := Bollinger(constant(20, 1.0850), DefaultBollingerConfig())
	require.NoError(t, err)
	assert.Equal(t, 0.0, b.Width)
	assert.Equal(t, b.Upper, b.Lower)
	// Close sits exactly on the middle: boundary resolves to the lower half.
	assert.Equal(t, LowerHalf, b.Position)
}

func TestBollingerPositions(t *testing.T) {
	// Alternating window keeps the bands wide so the final close can land in
	// each of the four regions.
	window := func(last float64) []float64 {
		out := make([]float64, 0, 20)
		for i := 0; i < 19; i++ {
			if i%2 == 0 {
				out = append(out, 0.9)
			} else {
				out = append(out, 1.1)
			}
		}
		return append(out, last)
	}
	for _, tc := range []struct {
		close float64
		want  BandPosition
	}{
		{2.0, AboveUpper},
		{0.2, BelowLower},
		{1.05, UpperHalf},
		{0.95, LowerHalf},
	} {
		b, err := Bollinger(window(tc.close), DefaultBollingerConfig())
		require.NoError(t, err)
		assert.Equal(t, tc.want, b.Position, "close %.2f", tc.close)
	}
}

func TestATRNonNegativeAndZeroOnlyWhenFlat(t *testing.T) {
	flat := barsFromCloses(constant(30, 1.0850))
	atr, err := ATR(flat, 14)
	require.NoError(t, err)
	assert.Equal(t, 0.0, atr)

	moving := barsFromCloses(ramp(30, 1.0, 0.001))
	atr, err = ATR(moving, 14)
	require.NoError(t, err)
	assert.Greater(t, atr, 0.0)
}

func TestATRMatchesTrueRangeMean(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	series := market.PriceSeries{
		{Timestamp: base, Open: 1.0, High: 1.0, Low: 1.0, Close: 1.0},
		{Timestamp: base.Add(time.Hour), Open: 1.0, High: 1.02, Low: 0.99, Close: 1.01},
		{Timestamp: base.Add(2 * time.Hour), Open: 1.01, High: 1.05, Low: 1.00, Close: 1.04},
	}
	atr, err := ATR(series, 2)
	require.NoError(t, err)
	// TR1 = max(0.03, 0.02, 0.01) = 0.03; TR2 = max(0.05, 0.04, 0.01) = 0.05.
	assert.InDelta(t, 0.04, atr, 1e-12)
}

func TestATRTrackerMatchesBatchSnapshot(t *testing.T) {
	series := barsFromCloses(ramp(60, 1.0, 0.0005))
	cfg := DefaultATRConfig()

	batch, err := ATRSnapshot("EUR/USD", series, cfg)
	require.NoError(t, err)

	tracker := NewATRTracker(cfg)
	for _, bar := range series {
		tracker.Push(bar)
	}
	incr, ok := tracker.Snapshot("EUR/USD")
	require.True(t, ok)

	assert.InDelta(t, batch.Value, incr.Value, 1e-12)
	assert.Equal(t, batch.Class, incr.Class)
	assert.Equal(t, batch.Factor, incr.Factor)
}

func TestVolatilityClassification(t *testing.T) {
	cfg := DefaultATRConfig()
	tracker := NewATRTracker(cfg)

	// Calm regime followed by a violent expansion: the latest ATR must land
	// above its own 80th percentile.
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	price := 1.0
	for i := 0; i < 120; i++ {
		span := 0.001
		if i >= 110 {
			span = 0.02
		}
		tracker.Push(market.PriceBar{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      price, High: price + span, Low: price - span, Close: price,
		})
	}
	res, ok := tracker.Snapshot("EUR/USD")
	require.True(t, ok)
	assert.Equal(t, VolatilityHigh, res.Class)
	assert.Equal(t, cfg.HighFactor, res.Factor)
	assert.Greater(t, res.Pips, 0.0)
}

func TestPercentileSorted(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 1.0, percentileSorted(sorted, 0))
	assert.Equal(t, 5.0, percentileSorted(sorted, 1))
	assert.InDelta(t, 3.0, percentileSorted(sorted, 0.5), 1e-12)
	assert.InDelta(t, 1.8, percentileSorted(sorted, 0.2), 1e-12)
}

func TestRollingWindow(t *testing.T) {
	w := NewRollingWindow(3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		w.Push(v)
	}
	assert.True(t, w.Full())
	assert.InDelta(t, 4.0, w.Mean(), 1e-12)
	assert.InDelta(t, 1.0, w.StdDev(), 1e-12)
}

func TestCandlestickDoji(t *testing.T) {
	series := barsFromCloses(constant(5, 1.0))
	last := &series[len(series)-1]
	last.Open, last.Close = 1.0, 1.0005
	last.High, last.Low = 1.02, 0.98

	patterns := CandlestickPatterns(series)
	require.NotEmpty(t, patterns)
	assert.Equal(t, Doji, patterns[0].Name)
}

func TestCandlestickHammerAndStar(t *testing.T) {
	series := barsFromCloses(constant(5, 1.0))
	last := &series[len(series)-1]
	last.Open, last.Close = 1.000, 1.004
	last.Low = 0.990 // lower wick 0.010 > 2x body 0.004
	last.High = 1.005

	names := patternNames(CandlestickPatterns(series))
	assert.Contains(t, names, Hammer)

	last.Open, last.Close = 1.004, 1.000
	last.High = 1.014
	last.Low = 0.999
	names = patternNames(CandlestickPatterns(series))
	assert.Contains(t, names, ShootingStar)
}

func TestCandlestickEngulfing(t *testing.T) {
	series := barsFromCloses(constant(5, 1.0))
	prev := &series[len(series)-2]
	prev.Open, prev.Close = 1.002, 1.001
	prev.High, prev.Low = 1.003, 1.000

	last := &series[len(series)-1]
	last.Open, last.Close = 1.000, 1.004
	last.High, last.Low = 1.005, 0.999

	names := patternNames(CandlestickPatterns(series))
	assert.Contains(t, names, BullishEngulfing)
}

func patternNames(patterns []Pattern) []PatternName {
	names := make([]PatternName, len(patterns))
	for i, p := range patterns {
		names[i] = p.Name
	}
	return names
}

func TestSnapshotFlatSeries(t *testing.T) {
	series := barsFromCloses(constant(60, 1.0850))
	snap, err := Compute("EUR/USD", series, DefaultConfig())
	require.NoError(t, err)

	assert.True(t, snap.Trend.Valid)
	assert.Equal(t, Neutral, snap.Trend.Direction)
	require.True(t, snap.RSIValid)
	assert.Equal(t, 50.0, snap.RSI.Value)
	require.True(t, snap.BandsValid)
	assert.Equal(t, LowerHalf, snap.Bands.Position)
	require.True(t, snap.ATRValid)
	assert.Equal(t, 0.0, snap.ATR.Value)
}

func TestSnapshotShortHistoryFlagsInvalid(t *testing.T) {
	series := barsFromCloses(constant(10, 1.0))
	snap, err := Compute("EUR/USD", series, DefaultConfig())
	require.NoError(t, err)

	assert.False(t, snap.Trend.Valid)
	assert.False(t, snap.RSIValid)
	assert.False(t, snap.BandsValid)
	assert.False(t, snap.ATRValid)
}

func TestSnapshotIdempotent(t *testing.T) {
	p := market.NewSyntheticProvider(7, 0.0001, 0.001)
	series, err := p.Fetch(nil, "EUR/USD", market.TF5m, 300)
	require.NoError(t, err)

	a, err := Compute("EUR/USD", series, DefaultConfig())
	require.NoError(t, err)
	b, err := Compute("EUR/USD", series, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Repeated invocation is bit-identical down to the float level.
	assert.True(t, a.ATR.Value == b.ATR.Value && !math.IsNaN(a.ATR.Value))
}

func TestConfigWarmup(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 50, cfg.WarmupBars())
}
