package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/feedwarden/internal/config"
	"github.com/rickgao/feedwarden/internal/engine"
	"github.com/rickgao/feedwarden/internal/store"
)

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the persisted announcement and retraction state",
		Long: `State opens the configured store read-only and prints the announced ids,
the retraction audit records and the live message mapping. Only the
storage section of the configuration is needed.

Example:
  feedwarden state --config configs/feedwarden.yaml
  feedwarden state --format json | jq '.retracted'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(cmd.Context(), rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func runState(ctx context.Context, opts *RootOptions, w, errW io.Writer) error {
	cfg, err := config.LoadWithDefaults(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if err := cfg.ValidateStorage(); err != nil {
		return WrapExitError(ExitCommandError, "invalid storage config", err)
	}

	// Diagnostics go to stderr only when asked for.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Verbose {
		logger = slog.New(slog.NewTextHandler(errW, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	st, err := store.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer st.Close()

	// Load through the engine so the output matches what run would restore.
	eng := engine.New(engine.Config{}, nil, nil, st, logger)
	if err := eng.Load(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to load state", err)
	}
	state := eng.Snapshot()

	if opts.Format == "json" {
		return writeJSON(w, state)
	}
	return writeStateText(w, state)
}

func writeStateText(w io.Writer, s engine.State) error {
	var b strings.Builder

	fmt.Fprintf(&b, "announced: %d\n", len(s.Announced))
	fmt.Fprintf(&b, "retracted: %d\n", len(s.Retracted))
	for _, r := range s.Retracted {
		fmt.Fprintf(&b, "  %s", r.ItemID)
		if r.Owner != "" {
			fmt.Fprintf(&b, " owner=%s", r.Owner)
		}
		if r.Slug != "" {
			fmt.Fprintf(&b, " slug=%s", r.Slug)
		}
		if r.RetractedBy != "" {
			fmt.Fprintf(&b, " by=%s", r.RetractedBy)
		}
		if !r.RetractedAt.IsZero() {
			fmt.Fprintf(&b, " at=%s", r.RetractedAt.UTC().Format(time.RFC3339))
		}
		b.WriteByte('\n')
	}

	ids := make([]string, 0, len(s.Messages))
	var total int
	for id, refs := range s.Messages {
		ids = append(ids, id)
		total += len(refs)
	}
	sort.Strings(ids)

	fmt.Fprintf(&b, "live messages: %d across %d items\n", total, len(ids))
	for _, id := range ids {
		refs := make([]string, 0, len(s.Messages[id]))
		for _, ref := range s.Messages[id] {
			refs = append(refs, ref.String())
		}
		fmt.Fprintf(&b, "  %s %s\n", id, strings.Join(refs, " "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
