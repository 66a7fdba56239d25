package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantfx/fxengine/internal/backtest"
	"github.com/quantfx/fxengine/internal/market"
	"github.com/quantfx/fxengine/internal/telemetry"
)

func newBacktestCmd() *cobra.Command {
	var (
		timeframe     string
		bars          int
		minConfidence int
		withMTF       bool
		requireBoth   bool
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "backtest SYMBOL",
		Short: "Replay the signal pipeline over history and report trade metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			tf, err := market.ParseTimeframe(timeframe)
			if err != nil {
				return err
			}
			symbol := strings.ToUpper(args[0])

			metrics := telemetry.NewRegistry()
			provider, closeProvider, err := buildProvider(cfg, metrics)
			if err != nil {
				return err
			}
			defer closeProvider()

			btCfg := backtest.DefaultConfig(symbol, tf)
			btCfg.MinConfidence = minConfidence
			btCfg.Indicators = cfg.Analysis.Indicators
			btCfg.Scorer = cfg.Analysis.Scorer
			btCfg.Exit = cfg.Analysis.Exit

			sim, err := backtest.New(btCfg)
			if err != nil {
				return err
			}

			series, err := provider.Fetch(cmd.Context(), symbol, tf, bars)
			if err != nil {
				return err
			}

			var result *backtest.Result
			if withMTF {
				h1, err := provider.Fetch(cmd.Context(), symbol, market.TF1h, 60)
				if err != nil {
					return err
				}
				h4, err := provider.Fetch(cmd.Context(), symbol, market.TF4h, 60)
				if err != nil {
					return err
				}
				result, err = sim.RunWithMTF(series, h1, h4, requireBoth)
				if err != nil {
					return err
				}
			} else {
				result, err = sim.Run(series)
				if err != nil {
					return err
				}
			}

			metrics.BacktestTrades.WithLabelValues("win").Add(float64(result.Wins))
			metrics.BacktestTrades.WithLabelValues("loss").Add(float64(result.Losses))

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Print(backtest.Report(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&timeframe, "timeframe", string(market.TF5m), "bar timeframe (5min, 15min, 1h, 4h, 1day)")
	cmd.Flags().IntVar(&bars, "bars", 1000, "bars of history to replay")
	cmd.Flags().IntVar(&minConfidence, "min-confidence", 60, "minimum signal confidence to enter")
	cmd.Flags().BoolVar(&withMTF, "mtf", false, "gate entries on H1/H4 trend alignment")
	cmd.Flags().BoolVar(&requireBoth, "require-both", false, "with --mtf, require both H1 and H4 to align")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the raw result as JSON")
	return cmd
}
