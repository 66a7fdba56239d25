package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantfx/fxengine/internal/analysis"
	"github.com/quantfx/fxengine/internal/telemetry"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		withMTF bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Score one pair and print its signal with exit bracket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			metrics := telemetry.NewRegistry()
			provider, closeProvider, err := buildProvider(cfg, metrics)
			if err != nil {
				return err
			}
			defer closeProvider()

			analyzer, err := analysis.New(provider, cfg.Analysis)
			if err != nil {
				return err
			}

			bundle, err := analyzer.Analyze(cmd.Context(), strings.ToUpper(args[0]), withMTF)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(bundle)
			}

			printBundle(bundle)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withMTF, "mtf", false, "include the multi-timeframe confluence read")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the raw bundle as JSON")
	return cmd
}

func printBundle(b *analysis.Bundle) {
	fmt.Printf("=== %s ===\n", b.Symbol)
	fmt.Printf("Price:      %.5f\n", b.Snapshot.Close)
	fmt.Printf("Signal:     %s (%s, confidence %d%%, score %+d)\n",
		b.Signal.Direction, b.Signal.Mode, b.Signal.Confidence, b.Signal.Score)
	if len(b.Signal.Reasons) > 0 {
		fmt.Printf("Reasons:    %s\n", strings.Join(b.Signal.Reasons, ", "))
	}
	fmt.Printf("RSI:        %.1f\n", b.Snapshot.RSI.Value)
	fmt.Printf("Volatility: %s (ATR %.5f)\n", b.Snapshot.ATR.Class, b.Snapshot.ATR.Value)
	fmt.Printf("Exits:      %s\n", b.Levels.ExitText)
	fmt.Printf("            TP %.5f (%.1f pips)  SL %.5f (%.1f pips)  R:R %.2f\n",
		b.Levels.TakeProfit, b.Levels.TPPips, b.Levels.StopLoss, b.Levels.SLPips, b.Levels.RiskReward)

	if b.Confluence != nil {
		fmt.Printf("\nTimeframe ladder: %s (score %.0f)\n", b.Confluence.Verdict, b.Confluence.Score)
		for _, sig := range b.Confluence.Signals {
			if sig.Err != "" {
				fmt.Printf("  %-6s unavailable (%s)\n", sig.Timeframe, sig.Err)
				continue
			}
			fmt.Printf("  %-6s %s (strength %.0f, RSI %.1f)\n", sig.Timeframe, sig.Direction, sig.Strength, sig.RSI)
		}
		if b.Confluence.Divergence {
			fmt.Println("  warning: fast and slow timeframes point in opposite directions")
		}
	}
}
