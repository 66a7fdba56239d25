package backtest

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Report renders a replay result as a human-readable text summary.
func Report(res *Result) string {
	var b strings.Builder
	line := strings.Repeat("=", 60)

	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b, "BACKTEST REPORT")
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "Run:        %s\n", res.RunID)
	fmt.Fprintf(&b, "Symbol:     %s  (%s)\n", res.Symbol, res.Timeframe)
	fmt.Fprintf(&b, "Period:     %s .. %s\n",
		res.PeriodStart.Format(time.RFC3339), res.PeriodEnd.Format(time.RFC3339))
	fmt.Fprintln(&b, strings.Repeat("-", 60))

	fmt.Fprintf(&b, "Trades:     %d  (%d wins / %d losses)\n", res.TotalTrades, res.Wins, res.Losses)
	fmt.Fprintf(&b, "Win rate:   %.1f%%\n", res.WinRate)
	fmt.Fprintf(&b, "Total pips: %+.1f\n", res.TotalPips)
	fmt.Fprintf(&b, "Avg win:    %.1f pips   Avg loss: %.1f pips\n", res.AvgWinPips, res.AvgLossPips)
	if math.IsInf(res.ProfitFactor, 1) {
		fmt.Fprintln(&b, "PF:         inf (no losing trades)")
	} else {
		fmt.Fprintf(&b, "PF:         %.2f\n", res.ProfitFactor)
	}
	fmt.Fprintf(&b, "Max DD:     %.1f pips\n", res.MaxDrawdownPips)
	fmt.Fprintf(&b, "Max losing streak: %d\n", res.MaxConsecutiveLosses)
	fmt.Fprintf(&b, "Sharpe-like:       %.2f\n", res.SharpeRatio)

	if res.MTFEnabled {
		fmt.Fprintln(&b, strings.Repeat("-", 60))
		fmt.Fprintf(&b, "MTF filter: H1=%s H4=%s, %d entries filtered\n",
			res.H1Trend, res.H4Trend, res.FilteredByMTF)
	}
	fmt.Fprintln(&b, line)
	return b.String()
}
