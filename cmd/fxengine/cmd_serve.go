package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quantfx/fxengine/internal/analysis"
	"github.com/quantfx/fxengine/internal/api"
	"github.com/quantfx/fxengine/internal/scanner"
	"github.com/quantfx/fxengine/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with signal, scan and metrics endpoints",
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

			analyzer, err := analysis.New(provider, cfg.Analysis)
			if err != nil {
				return err
			}
			sc, err := scanner.New(provider, cfg.Scanner)
			if err != nil {
				return err
			}

			srv := api.NewServer(cfg.HTTP, api.NewHandlers(analyzer, sc, metrics))

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-stop:
				log.Info().Str("signal", sig.String()).Msg("shutting down")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}
