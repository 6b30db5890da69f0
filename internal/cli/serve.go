package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/finfeex/internal/analysis"
	"github.com/insightdelivered/finfeex/internal/api"
	"github.com/insightdelivered/finfeex/internal/logging"
	"github.com/insightdelivered/finfeex/internal/metrics"
	"github.com/insightdelivered/finfeex/internal/narrative"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(e *env) *cobra.Command {
	var (
		port      int
		staticDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (and the web UI when a static directory is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				e.cfg.Server.Port = port
			}
			if cmd.Flags().Changed("static") {
				e.cfg.Server.StaticDir = staticDir
			}
			return runServe(cmd.Context(), e)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "listen port (defaults to config)")
	cmd.Flags().StringVar(&staticDir, "static", "", "directory with the built web UI")
	return cmd
}

func runServe(ctx context.Context, e *env) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := e.cfg
	rec := metrics.New()

	var summarizer narrative.Summarizer
	if cfg.AI.Enabled {
		s, closeFn, err := e.summarizer(ctx)
		if err != nil {
			return err
		}
		defer closeFn()
		summarizer = s
	}

	h := api.NewHandler(api.Options{
		Service:    e.service(rec),
		Summarizer: summarizer,
		Metrics:    rec,
		Logger:     e.logger,
		Defaults: analysis.Params{
			EstimatedAnnualTxns: cfg.Analysis.EstimatedAnnualTxns,
			AssumedTxnValue:     cfg.Analysis.AssumedTxnValue,
			Recipient:           cfg.Analysis.Recipient,
		},
		MaxUploadBytes: cfg.MaxUploadBytes(),
		SummaryTimeout: time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		StaticDir:      cfg.Server.StaticDir,
		Version:        e.version,
	})
	app := api.NewApp(h, api.ServerConfig{
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MetricsEnabled: cfg.Server.MetricsEnabled,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr)
	}()

	e.logger.Info("FinFeeX server listening",
		logging.F("addr", addr),
		logging.F("static_dir", cfg.Server.StaticDir),
		logging.F("ai_summary", summarizer != nil),
	)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	e.logger.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
