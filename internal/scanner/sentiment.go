package scanner

import (
	"fmt"
	"sort"
	"strings"
)

// Sentiment is the aggregate dollar read across the basket.
type Sentiment string

const (
	StrongUSD  Sentiment = "STRONG_USD"
	BullishUSD Sentiment = "BULLISH_USD"
	NeutralUSD Sentiment = "NEUTRAL"
	BearishUSD Sentiment = "BEARISH_USD"
	WeakUSD    Sentiment = "WEAK_USD"
)

// usdSentiment aggregates strength-weighted USD pressure: buying a USD-base
// pair or selling a USD-quote pair both count as dollar strength.
func usdSentiment(signals map[string]PairSignal) Sentiment {
	var strong, weak int
	for pair, sig := range signals {
		if sig.Direction != Buy && sig.Direction != Sell {
			continue
		}
		switch {
		case strings.HasPrefix(pair, "USD"):
			if sig.Direction == Buy {
				strong += sig.Strength
			} else {
				weak += sig.Strength
			}
		case strings.HasSuffix(pair, "USD"):
			if sig.Direction == Sell {
				strong += sig.Strength
			} else {
				weak += sig.Strength
			}
		}
	}

	diff := strong - weak
	switch {
	case diff > 100:
		return StrongUSD
	case diff > 50:
		return BullishUSD
	case diff < -100:
		return WeakUSD
	case diff < -50:
		return BearishUSD
	}
	return NeutralUSD
}

// correlationWarnings flags directional disagreements between pairs that
// normally move together and agreements between pairs that normally oppose.
func correlationWarnings(signals map[string]PairSignal) []string {
	seen := make(map[string]struct{})
	var warnings []string
	add := func(w string) {
		if _, dup := seen[w]; !dup {
			seen[w] = struct{}{}
			warnings = append(warnings, w)
		}
	}

	// Deterministic iteration keeps sweep output stable for tests and diffs.
	pairs := make([]string, 0, len(signals))
	for pair := range signals {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)

	for _, pair := range pairs {
		sig := signals[pair]
		if sig.Direction != Buy && sig.Direction != Sell {
			continue
		}
		corr, ok := pairCorrelations[pair]
		if !ok {
			continue
		}
		for _, other := range corr.positive {
			otherSig, ok := signals[other]
			if !ok || (otherSig.Direction != Buy && otherSig.Direction != Sell) {
				continue
			}
			if otherSig.Direction != sig.Direction {
				add(fmt.Sprintf("%s (%s) vs %s (%s): expected same direction (positive correlation)",
					pair, sig.Direction, other, otherSig.Direction))
			}
		}
		for _, other := range corr.negative {
			otherSig, ok := signals[other]
			if !ok || (otherSig.Direction != Buy && otherSig.Direction != Sell) {
				continue
			}
			if otherSig.Direction == sig.Direction {
				add(fmt.Sprintf("%s (%s) and %s (%s): expected opposite direction (negative correlation)",
					pair, sig.Direction, other, otherSig.Direction))
			}
		}
	}
	return warnings
}
