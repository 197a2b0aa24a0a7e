package cli

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rickgao/feedwarden/internal/engine"
	"github.com/rickgao/feedwarden/internal/metrics"
	"github.com/rickgao/feedwarden/internal/model"
	"github.com/rickgao/feedwarden/internal/poller"
	"github.com/rickgao/feedwarden/internal/router"
	"github.com/rickgao/feedwarden/internal/server"
	"github.com/rickgao/feedwarden/internal/stream"
	"github.com/rickgao/feedwarden/internal/telegram"
	"github.com/rickgao/feedwarden/internal/version"
)

const (
	actionBuffer    = 64
	shutdownTimeout = 30 * time.Second
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll the feed and handle retraction requests until stopped",
		Long: `Run ticks immediately and then every feed.poll_interval, listens for
Unpublish button presses, and serves /health, /metrics, /events and
/debug/state on metrics.port. SIGINT or SIGTERM shuts down gracefully:
the running tick is cancelled, in-flight retractions finish, and state
is flushed.

Example:
  feedwarden run --config configs/feedwarden.yaml
  TELEGRAM_BOT_TOKEN=... TELEGRAM_CHAT_ID=-100123 ADMIN_IDS=42 feedwarden run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd.Context(), rootOpts)
		},
	}
}

func runService(parent context.Context, opts *RootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, logCloser, err := newLogger(cfg, opts)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	logger.Info("starting feedwarden",
		"version", version.Version,
		"commit", version.Commit,
		"config", opts.ConfigPath,
	)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Observers
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(reg)
	hub := stream.NewHub(stream.DefaultConfig(), logger.With("component", "events"))

	a, err := newApp(ctx, cfg, logger, engine.WithObserver(engine.MultiObserver(collector, hub)))
	if err != nil {
		return err
	}

	actions := make(chan model.Action, actionBuffer)
	rtr := router.New(
		router.Config{Concurrency: cfg.Engine.RetractConcurrency},
		actions,
		a.engine,
		logger.With("component", "router"),
	)
	listener := telegram.NewListener(a.bot, logger.With("component", "listener"))
	pl := poller.New(poller.Config{
		Interval: cfg.Feed.PollInterval,
		Timeout:  cfg.Engine.TickTimeout,
	}, a.engine, logger.With("component", "poller"))

	// Ops server first; a bind failure aborts before any tick runs.
	var ops *server.Server
	if cfg.MetricsEnabled() {
		handler := server.NewHandler(server.Options{
			InstanceID:  cfg.Instance.ID,
			Version:     version.String(),
			Engine:      a.engine,
			Poller:      pl,
			Router:      rtr,
			Events:      hub,
			Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			MetricsPath: cfg.Metrics.Path,
			StaleAfter:  3*cfg.Feed.PollInterval + cfg.Engine.TickTimeout,
		}, logger)
		ops = server.New(cfg.Metrics.Port, handler, logger.With("component", "ops"))
		if err := ops.Start(ctx); err != nil {
			_ = a.close(context.WithoutCancel(ctx))
			return WrapExitError(ExitCommandError, "failed to start ops server", err)
		}
	}

	if err := rtr.Start(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to start router", err)
	}

	var listenWG sync.WaitGroup
	listenWG.Add(1)
	go func() {
		defer listenWG.Done()
		if err := listener.Listen(ctx, actions); err != nil {
			logger.Error("action listener failed", "error", err)
		}
	}()

	if err := pl.Start(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to start poller", err)
	}

	logger.Info("feedwarden running",
		"poll_interval", cfg.Feed.PollInterval,
		"destinations", len(cfg.Telegram.Destinations),
	)

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := pl.Stop(shutdownCtx); err != nil {
		logger.Warn("poller stop timed out", "error", err)
	}
	listenWG.Wait()
	_ = rtr.Stop(shutdownCtx)

	flushErr := a.close(shutdownCtx)

	_ = hub.Close()
	if ops != nil {
		if err := ops.Stop(shutdownCtx); err != nil {
			logger.Warn("ops server stop failed", "error", err)
		}
	}

	logger.Info("feedwarden stopped")
	if flushErr != nil {
		return WrapExitError(ExitFailure, "shutdown incomplete", flushErr)
	}
	return nil
}
