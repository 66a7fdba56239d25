package backtest

import (
	"math"
	"time"

	"github.com/quantfx/fxengine/internal/indicator"
	"github.com/quantfx/fxengine/internal/market"
)

// sharpeAnnualization scales the per-trade Sharpe-like ratio by the trading
// day constant. The scaling is trade-count based, not time based; it is kept
// as-is so reported figures stay comparable across runs.
const sharpeAnnualization = 252

// Result aggregates a finished replay. It is derived wholesale from the trade
// list and never updated incrementally.
type Result struct {
	RunID     string           `json:"run_id"`
	Symbol    string           `json:"symbol"`
	Timeframe market.Timeframe `json:"timeframe"`

	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	TotalTrades int     `json:"total_trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"` // percent

	TotalPips    float64 `json:"total_pips"`
	AvgWinPips   float64 `json:"avg_win_pips"`
	AvgLossPips  float64 `json:"avg_loss_pips"` // reported positive
	ProfitFactor float64 `json:"profit_factor"` // +Inf when lossless

	MaxDrawdownPips      float64 `json:"max_drawdown_pips"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	SharpeRatio          float64 `json:"sharpe_ratio"`

	MTFEnabled    bool                `json:"mtf_enabled"`
	FilteredByMTF int                 `json:"filtered_by_mtf,omitempty"`
	H1Trend       indicator.Direction `json:"h1_trend,omitempty"`
	H4Trend       indicator.Direction `json:"h4_trend,omitempty"`

	Trades []Trade `json:"trades"`
}

func computeMetrics(trades []Trade, series market.PriceSeries, cfg Config) *Result {
	res := &Result{
		Symbol:    cfg.Symbol,
		Timeframe: cfg.Timeframe,
		Trades:    trades,
	}
	if series.Len() > 0 {
		res.PeriodStart = series[0].Timestamp
		res.PeriodEnd = series[series.Len()-1].Timestamp
	}
	if len(trades) == 0 {
		return res
	}

	res.TotalTrades = len(trades)
	var grossProfit, grossLoss float64
	for _, t := range trades {
		res.TotalPips += t.PnLPips
		if t.Result == Win {
			res.Wins++
			grossProfit += t.PnLPips
		} else {
			res.Losses++
			grossLoss += -t.PnLPips
		}
	}
	res.WinRate = float64(res.Wins) / float64(res.TotalTrades) * 100
	if res.Wins > 0 {
		res.AvgWinPips = grossProfit / float64(res.Wins)
	}
	if res.Losses > 0 {
		res.AvgLossPips = grossLoss / float64(res.Losses)
	}
	if grossLoss > 0 {
		res.ProfitFactor = grossProfit / grossLoss
	} else {
		res.ProfitFactor = math.Inf(1)
	}

	res.MaxDrawdownPips = maxDrawdown(trades)
	res.MaxConsecutiveLosses = maxLossStreak(trades)
	res.SharpeRatio = sharpeLike(trades)
	return res
}

// maxDrawdown is the largest peak-to-trough drop of the cumulative-pnl curve.
func maxDrawdown(trades []Trade) float64 {
	var cumulative, peak, drawdown float64
	for _, t := range trades {
		cumulative += t.PnLPips
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > drawdown {
			drawdown = dd
		}
	}
	return drawdown
}

func maxLossStreak(trades []Trade) int {
	longest, current := 0, 0
	for _, t := range trades {
		if t.Result == Loss {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}

// sharpeLike is mean pnl over population stddev, scaled by the square root of
// the annualization constant. Needs at least two trades and nonzero variance.
func sharpeLike(trades []Trade) float64 {
	if len(trades) < 2 {
		return 0
	}
	var sum float64
	for _, t := range trades {
		sum += t.PnLPips
	}
	mean := sum / float64(len(trades))

	var sumSq float64
	for _, t := range trades {
		d := t.PnLPips - mean
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(len(trades)))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(sharpeAnnualization)
}
