package backtest

import (
	"fmt"

	"github.com/quantfx/fxengine/internal/indicator"
	"github.com/quantfx/fxengine/internal/market"
)

// trendFilter gates candidate entries on the trends of the two higher
// timeframes. The H4 trend dominates: when it agrees with the candidate the
// trade proceeds regardless of H1; when it actively opposes, the trade is
// always blocked.
type trendFilter struct {
	h1          indicator.Direction
	h4          indicator.Direction
	requireBoth bool
}

func (f *trendFilter) check(dir indicator.Direction) (bool, string) {
	if dir == indicator.Neutral {
		return false, "candidate direction is neutral"
	}
	opposite := dir.Opposite()

	h1OK := f.h1 == dir || f.h1 == indicator.Neutral
	h4OK := f.h4 == dir || f.h4 == indicator.Neutral

	if f.h4 == dir {
		if h1OK {
			return true, fmt.Sprintf("H4+H1 aligned (%s)", f.h4)
		}
		return true, fmt.Sprintf("H4 aligned (%s), H1 divergent", f.h4)
	}

	if f.requireBoth {
		if h1OK && h4OK {
			return true, "both higher timeframes neutral or aligned"
		}
		return false, fmt.Sprintf("not aligned (H1=%s, H4=%s)", f.h1, f.h4)
	}

	if f.h1 == dir && f.h4 != opposite {
		return true, fmt.Sprintf("H1 aligned (%s), H4 neutral", f.h1)
	}
	if f.h4 == opposite {
		return false, fmt.Sprintf("H4 against candidate (%s)", f.h4)
	}
	return false, fmt.Sprintf("no clear alignment (H1=%s, H4=%s)", f.h1, f.h4)
}

// higherTimeframeTrend classifies a higher timeframe's direction from its
// fast/mid moving averages and the last close. A short or flat series reads
// as neutral.
func higherTimeframeTrend(series market.PriceSeries) indicator.Direction {
	closes := make([]float64, series.Len())
	for i, bar := range series {
		closes[i] = bar.Close
	}

	ma20, err20 := indicator.SMA(closes, 20)
	ma50, err50 := indicator.SMA(closes, 50)
	if err20 != nil || err50 != nil {
		return indicator.Neutral
	}
	price := closes[len(closes)-1]

	score := 0
	switch {
	case ma20 > ma50:
		score += 2
	case ma20 < ma50:
		score -= 2
	}
	switch {
	case price > ma20:
		score++
	case price < ma20:
		score--
	}

	switch {
	case score >= 2:
		return indicator.Bullish
	case score <= -2:
		return indicator.Bearish
	}
	return indicator.Neutral
}
