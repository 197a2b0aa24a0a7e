package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/feedwarden/internal/engine"
)

// NewTickCommand creates the tick command.
func NewTickCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run one poll and announce cycle, then exit",
		Long: `Tick polls the feed once, announces new articles and persists state.
Use it to drive feedwarden from cron or a scheduled job instead of run.
Retraction requests are only handled by run.

Exit status is 1 when the feed could not be polled.

Example:
  feedwarden tick --config configs/feedwarden.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTick(cmd.Context(), rootOpts, cmd.OutOrStdout())
		},
	}
}

func runTick(parent context.Context, opts *RootOptions, w io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, logCloser, err := newLogger(cfg, opts)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	tctx, cancel := context.WithTimeout(ctx, cfg.Engine.TickTimeout)
	report, tickErr := a.engine.Tick(tctx)
	cancel()

	closeCtx, closeCancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Engine.PersistTimeout)
	defer closeCancel()
	flushErr := a.close(closeCtx)

	if err := writeTickReport(w, opts.Format, report); err != nil {
		return WrapExitError(ExitCommandError, "failed to write report", err)
	}

	switch {
	case errors.Is(tickErr, engine.ErrFeedUnavailable):
		return WrapExitError(ExitFailure, "feed unavailable", tickErr)
	case tickErr != nil:
		return WrapExitError(ExitFailure, "tick failed", tickErr)
	case flushErr != nil:
		return WrapExitError(ExitFailure, "state not persisted", flushErr)
	}
	return nil
}

// tickOutput is the JSON form of a tick report.
type tickOutput struct {
	TickID     string   `json:"tick_id"`
	StartedAt  string   `json:"started_at"`
	DurationMS int64    `json:"duration_ms"`
	Fetched    int      `json:"fetched"`
	Known      int      `json:"known"`
	Deferred   int      `json:"deferred"`
	Announced  []string `json:"announced"`
	Deliveries int      `json:"deliveries"`
	Failures   int      `json:"failures"`
	FeedError  string   `json:"feed_error,omitempty"`
}

func writeTickReport(w io.Writer, format string, r engine.TickReport) error {
	out := tickOutput{
		TickID:     r.TickID,
		DurationMS: r.Duration.Milliseconds(),
		Fetched:    r.Fetched,
		Known:      r.Known,
		Deferred:   r.Deferred,
		Announced:  r.Announced,
		Deliveries: r.Deliveries,
		Failures:   r.Failures,
	}
	if out.Announced == nil {
		out.Announced = []string{}
	}
	if !r.StartedAt.IsZero() {
		out.StartedAt = r.StartedAt.UTC().Format(time.RFC3339)
	}
	if r.FeedError != nil {
		out.FeedError = r.FeedError.Error()
	}

	if format == "json" {
		return writeJSON(w, out)
	}

	if out.FeedError != "" {
		_, err := fmt.Fprintf(w, "tick %s: %s\n", out.TickID, out.FeedError)
		return err
	}
	announced := "none"
	if len(out.Announced) > 0 {
		announced = strings.Join(out.Announced, ", ")
	}
	_, err := fmt.Fprintf(w,
		"tick %s: fetched=%d known=%d deferred=%d deliveries=%d failures=%d duration=%dms\nannounced: %s\n",
		out.TickID, out.Fetched, out.Known, out.Deferred, out.Deliveries, out.Failures, out.DurationMS, announced,
	)
	return err
}
