package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/feedwarden/internal/engine"
	"github.com/rickgao/feedwarden/internal/poller"
	"github.com/rickgao/feedwarden/internal/router"
	"github.com/rickgao/feedwarden/internal/stream"
)

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusStarting  = "starting"  // No tick has completed yet
	StatusDegraded  = "degraded"  // Last poll failed
	StatusUnhealthy = "unhealthy" // No tick for longer than StaleAfter
)

// StateSource is the engine view served by the handler.
type StateSource interface {
	Stats() engine.Stats
	Snapshot() engine.State
}

// Options wires the handler. Nil components are left out of the output.
type Options struct {
	InstanceID  string
	Version     string
	Engine      StateSource
	Poller      interface{ Stats() poller.Stats }
	Router      interface{ Stats() router.Stats }
	Events      *stream.Hub
	Metrics     http.Handler
	MetricsPath string        // Default: /metrics
	StaleAfter  time.Duration // Zero disables the staleness check
	Now         func() time.Time
}

// Health is the /health response body.
type Health struct {
	Status     string         `json:"status"`
	InstanceID string         `json:"instance_id,omitempty"`
	Version    string         `json:"version,omitempty"`
	Components map[string]any `json:"components"`
}

type engineHealth struct {
	Announced       int        `json:"announced"`
	Retracted       int        `json:"retracted"`
	TrackedItems    int        `json:"tracked_items"`
	TrackedMessages int        `json:"tracked_messages"`
	LastTick        *tickState `json:"last_tick,omitempty"`
}

type tickState struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Fetched    int       `json:"fetched"`
	Announced  int       `json:"announced"`
	Deferred   int       `json:"deferred"`
	Deliveries int       `json:"deliveries"`
	Failures   int       `json:"failures"`
	FeedError  string    `json:"feed_error,omitempty"`
}

// NewHandler builds the ops mux.
func NewHandler(opts Options, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		health := buildHealth(opts)
		code := http.StatusOK
		if health.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, health, logger)
	})

	mux.HandleFunc("GET /debug/state", func(w http.ResponseWriter, r *http.Request) {
		if opts.Engine == nil {
			http.Error(w, "engine not configured", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, opts.Engine.Snapshot(), logger)
	})

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, opts.Metrics)
	}
	if opts.Events != nil {
		mux.Handle("GET /events", opts.Events)
	}

	return mux
}

func buildHealth(opts Options) Health {
	health := Health{
		Status:     StatusHealthy,
		InstanceID: opts.InstanceID,
		Version:    opts.Version,
		Components: make(map[string]any),
	}

	if opts.Engine != nil {
		stats := opts.Engine.Stats()
		eh := engineHealth{
			Announced:       stats.Announced,
			Retracted:       stats.Retracted,
			TrackedItems:    stats.TrackedItems,
			TrackedMessages: stats.TrackedMessages,
		}

		last := stats.LastTick
		switch {
		case last.TickID == "":
			health.Status = StatusStarting
		case opts.StaleAfter > 0 && opts.Now().Sub(last.StartedAt) > opts.StaleAfter:
			health.Status = StatusUnhealthy
		case last.FeedError != nil:
			health.Status = StatusDegraded
		}

		if last.TickID != "" {
			ts := &tickState{
				ID:         last.TickID,
				StartedAt:  last.StartedAt.UTC(),
				DurationMS: last.Duration.Milliseconds(),
				Fetched:    last.Fetched,
				Announced:  len(last.Announced),
				Deferred:   last.Deferred,
				Deliveries: last.Deliveries,
				Failures:   last.Failures,
			}
			if last.FeedError != nil {
				ts.FeedError = last.FeedError.Error()
			}
			eh.LastTick = ts
		}
		health.Components["engine"] = eh
	}

	if opts.Poller != nil {
		health.Components["poller"] = opts.Poller.Stats()
	}
	if opts.Router != nil {
		health.Components["router"] = opts.Router.Stats()
	}
	if opts.Events != nil {
		health.Components["events"] = opts.Events.Stats()
	}

	return health
}

func writeJSON(w http.ResponseWriter, code int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write response", "error", err)
	}
}
