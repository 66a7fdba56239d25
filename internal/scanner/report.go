package scanner

import (
	"fmt"
	"sort"
	"strings"
)

// Report renders a sweep as a ranked text summary.
func Report(res Result) string {
	var b strings.Builder
	line := strings.Repeat("=", 60)

	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b, "MULTI-PAIR SCANNER REPORT")
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "Timestamp:     %s\n", res.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Pairs scanned: %d\n", res.PairsScanned)
	fmt.Fprintf(&b, "USD sentiment: %s\n", res.USDSentiment)
	fmt.Fprintln(&b, strings.Repeat("-", 60))

	fmt.Fprintln(&b, "TOP OPPORTUNITIES")
	if len(res.Top) == 0 {
		fmt.Fprintln(&b, "  no strong opportunities found")
	}
	for i, opp := range res.Top {
		aligned := "mtf divergent"
		if opp.MTFAligned {
			aligned = "mtf aligned"
		}
		fmt.Fprintf(&b, "  %d. %s  %s  strength %d%%  (%s)\n", i+1, opp.Pair, opp.Direction, opp.Strength, aligned)
		fmt.Fprintf(&b, "     price %.5f  rr 1:%.2f  tp %.5f  sl %.5f\n",
			opp.Price, opp.RiskReward, opp.TakeProfit, opp.StopLoss)
		if len(opp.Reasons) > 0 {
			limit := len(opp.Reasons)
			if limit > 3 {
				limit = 3
			}
			fmt.Fprintf(&b, "     %s\n", strings.Join(opp.Reasons[:limit], ", "))
		}
	}

	fmt.Fprintln(&b, strings.Repeat("-", 60))
	fmt.Fprintln(&b, "MARKET SUMMARY")
	fmt.Fprintf(&b, "  bullish (%d): %s\n", len(res.BullishPairs), joinOrNone(res.BullishPairs))
	fmt.Fprintf(&b, "  bearish (%d): %s\n", len(res.BearishPairs), joinOrNone(res.BearishPairs))
	fmt.Fprintf(&b, "  neutral (%d): %s\n", len(res.NeutralPairs), joinOrNone(res.NeutralPairs))

	if len(res.CorrelationWarnings) > 0 {
		fmt.Fprintln(&b, "CORRELATION WARNINGS")
		limit := len(res.CorrelationWarnings)
		if limit > 3 {
			limit = 3
		}
		for _, w := range res.CorrelationWarnings[:limit] {
			fmt.Fprintf(&b, "  %s\n", w)
		}
	}

	fmt.Fprintln(&b, strings.Repeat("-", 60))
	fmt.Fprintf(&b, "%-10s %-6s %-5s %-5s %-9s %-9s\n", "PAIR", "DIR", "STR", "RSI", "TREND", "MTF H4")
	for _, pair := range orderedPairs(res) {
		s := res.All[pair]
		fmt.Fprintf(&b, "%-10s %-6s %-5d %-5.0f %-9s %-9s\n",
			pair, s.Direction, s.Strength, s.RSI, s.Trend, s.H4Trend)
	}
	fmt.Fprintln(&b, line)
	return b.String()
}

func joinOrNone(pairs []string) string {
	if len(pairs) == 0 {
		return "none"
	}
	return strings.Join(pairs, ", ")
}

func orderedPairs(res Result) []string {
	pairs := make([]string, 0, len(res.All))
	for pair := range res.All {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs) // stable listing regardless of map order
	return pairs
}
