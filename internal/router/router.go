package router

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rickgao/feedwarden/internal/engine"
	"github.com/rickgao/feedwarden/internal/model"
)

// MaxTokenBytes is the longest action token accepted; Telegram caps callback data at 64 bytes.
const MaxTokenBytes = 64

// Retractor runs retraction requests.
type Retractor interface {
	Retract(ctx context.Context, req engine.RetractionRequest) engine.RetractionResult
}

// Router consumes inbound actions and dispatches retraction requests.
type Router interface {
	// Start begins routing actions from the input channel.
	Start(ctx context.Context) error

	// Stop waits for in-flight requests, up to ctx's deadline.
	Stop(ctx context.Context) error

	// Stats returns current router statistics.
	Stats() Stats
}

// Config holds router settings.
type Config struct {
	Concurrency int // Retractions handled in parallel (default: 4)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Concurrency: 4}
}

// Stats contains runtime statistics.
type Stats struct {
	ActionsReceived int64
	Malformed       int64
	Dispatched      int64
	Acknowledged    int64
	Rejected        int64
	Failed          int64
	InFlight        int64
}

// router is the internal implementation.
type router struct {
	cfg       Config
	logger    *slog.Logger
	input     <-chan model.Action
	retractor Retractor

	sem chan struct{}

	// Lifecycle
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inflight sync.WaitGroup

	mu    sync.RWMutex
	stats Stats
}

// New creates a router reading from input.
func New(cfg Config, input <-chan model.Action, retractor Retractor, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}

	return &router{
		cfg:       cfg,
		logger:    logger,
		input:     input,
		retractor: retractor,
		sem:       make(chan struct{}, cfg.Concurrency),
	}
}

// Start begins routing actions.
func (r *router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Info("action router started", "concurrency", r.cfg.Concurrency)
	return nil
}

// Stop stops reading new actions and waits for in-flight retractions.
// Retractions are not cancelled: an unpublish already sent must be cleaned up.
func (r *router) Stop(ctx context.Context) error {
	r.logger.Info("stopping action router")

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		r.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("action router stopped")
	case <-ctx.Done():
		r.logger.Warn("action router stop timed out")
	}
	return nil
}

// Stats returns current statistics.
func (r *router) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// routeLoop is the main routing goroutine.
func (r *router) routeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case action, ok := <-r.input:
			if !ok {
				r.logger.Info("input channel closed")
				return
			}
			r.route(action)
		}
	}
}

// route validates one action and dispatches it. Blocks while all workers are busy.
func (r *router) route(action model.Action) {
	r.count(func(s *Stats) { s.ActionsReceived++ })

	itemID, ok := ParseToken(action.Data)
	if !ok {
		r.logger.Debug("ignoring malformed action",
			"action_id", action.ID,
			"from", action.From,
			"data_len", len(action.Data),
		)
		r.count(func(s *Stats) { s.Malformed++ })
		return
	}

	select {
	case r.sem <- struct{}{}:
	case <-r.ctx.Done():
		return
	}

	r.count(func(s *Stats) {
		s.Dispatched++
		s.InFlight++
	})
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		defer func() { <-r.sem }()

		// Detached from the router lifecycle so shutdown never interrupts a
		// retraction midway; the engine bounds it with its own timeout.
		res := r.retractor.Retract(context.WithoutCancel(r.ctx), engine.RequestFromAction(action, itemID))

		r.count(func(s *Stats) {
			s.InFlight--
			switch res.State {
			case engine.StateAcknowledged:
				s.Acknowledged++
			case engine.StateRejected:
				s.Rejected++
			default:
				s.Failed++
			}
		})
	}()
}

func (r *router) count(fn func(*Stats)) {
	r.mu.Lock()
	fn(&r.stats)
	r.mu.Unlock()
}

// ParseToken extracts the item id from action data, rejecting data over the
// transport callback limit.
func ParseToken(data string) (itemID string, ok bool) {
	if len(data) > MaxTokenBytes {
		return "", false
	}
	return engine.ParseActionToken(data)
}
