package market

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"
)

// SyntheticProvider generates reproducible OHLC data for offline backtests
// and demos. The same symbol/timeframe/count always yields the same series.
type SyntheticProvider struct {
	seed  int64
	drift float64
	vol   float64
}

// NewSyntheticProvider creates a provider with a fixed seed. Drift is the
// per-bar fractional trend; vol the per-bar fractional volatility.
func NewSyntheticProvider(seed int64, drift, vol float64) *SyntheticProvider {
	if vol <= 0 {
		vol = 0.0008
	}
	return &SyntheticProvider{seed: seed, drift: drift, vol: vol}
}

// Fetch generates count bars ending at a fixed reference time so results do
// not depend on the wall clock.
func (p *SyntheticProvider) Fetch(_ context.Context, symbol string, tf Timeframe, count int) (PriceSeries, error) {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	h.Write([]byte(tf))
	rng := rand.New(rand.NewSource(p.seed ^ int64(h.Sum64())))

	base := basePrice(symbol)
	end := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	start := end.Add(-time.Duration(count) * tf.Duration())

	series := make(PriceSeries, 0, count)
	price := base
	for i := 0; i < count; i++ {
		change := rng.NormFloat64()*p.vol*price + p.drift*price
		next := math.Max(price+change, base*0.2)

		spread := p.vol * price
		open := price
		close := next
		high := math.Max(open, close) + rng.Float64()*spread
		low := math.Min(open, close) - rng.Float64()*spread

		series = append(series, PriceBar{
			Timestamp: start.Add(time.Duration(i) * tf.Duration()),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
		})
		price = next
	}
	return series, nil
}

func basePrice(symbol string) float64 {
	switch symbol {
	case "EUR/USD":
		return 1.0850
	case "GBP/USD":
		return 1.2700
	case "USD/JPY":
		return 155.00
	case "USD/CHF":
		return 0.9100
	case "AUD/USD":
		return 0.6600
	case "USD/CAD":
		return 1.3700
	case "NZD/USD":
		return 0.6100
	case "EUR/GBP":
		return 0.8500
	default:
		return 1.0000
	}
}
