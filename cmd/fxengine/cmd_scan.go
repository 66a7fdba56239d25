package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantfx/fxengine/internal/scanner"
	"github.com/quantfx/fxengine/internal/telemetry"
)

func newScanCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Sweep the pair basket and rank trade setups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			sc, err := scanner.New(provider, cfg.Scanner)
			if err != nil {
				return err
			}

			result := sc.ScanAll(cmd.Context())
			metrics.ScanSweeps.Inc()

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Print(scanner.Report(result))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the raw sweep result as JSON")
	return cmd
}
