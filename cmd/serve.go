package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/circuit-gate/config"
	"github.com/angeloszaimis/circuit-gate/internal/httpserver"
	"github.com/angeloszaimis/circuit-gate/pkg/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gate",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to start", slog.Any("err", err))
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("Error releasing rule source", slog.Any("err", err))
		}
	}()

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(a),
		httpserver.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		return err
	}

	log.Info("Circuit gate listening",
		slog.String("address", cfg.Server.Address),
		slog.String("upstream", cfg.Upstream.URL),
		slog.String("rules_source", cfg.Rules.Source))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down gracefully...")
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		log.Error("Server error", slog.Any("err", err))
		return err
	}
	return nil
}
