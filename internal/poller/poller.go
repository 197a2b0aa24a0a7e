package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/feedwarden/internal/engine"
)

// Ticker runs one synchronization cycle.
type Ticker interface {
	Tick(ctx context.Context) (engine.TickReport, error)
}

// TickerFunc is a function adapter for Ticker.
type TickerFunc func(context.Context) (engine.TickReport, error)

func (f TickerFunc) Tick(ctx context.Context) (engine.TickReport, error) {
	return f(ctx)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Time between triggers (default: 1m)
	Timeout  time.Duration // Upper bound for one tick (default: 5m)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: time.Minute,
		Timeout:  5 * time.Minute,
	}
}

// Stats holds poller counters.
type Stats struct {
	Triggered int64 // Ticks started
	Skipped   int64 // Triggers dropped because a tick was running
	Failed    int64 // Ticks that returned an error
}

// Poller triggers Tick on a fixed interval.
type Poller struct {
	cfg    Config
	ticker Ticker
	logger *slog.Logger

	inFlight  atomic.Bool
	triggered atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, ticker Ticker, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	d := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = d.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	return &Poller{
		cfg:    cfg,
		ticker: ticker,
		logger: logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("poller started",
		"interval", p.cfg.Interval,
		"timeout", p.cfg.Timeout,
	)

	return nil
}

// Stop cancels the loop and waits for any running tick.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Triggered: p.triggered.Load(),
		Skipped:   p.skipped.Load(),
		Failed:    p.failed.Load(),
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Tick immediately on start.
	p.trigger()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.trigger()
		}
	}
}

// trigger starts a tick unless one is still running.
func (p *Poller) trigger() {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		p.logger.Warn("previous tick still running, skipping trigger")
		return
	}
	p.triggered.Add(1)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inFlight.Store(false)
		p.tick()
	}()
}

func (p *Poller) tick() {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	_, err := p.ticker.Tick(ctx)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrTickInProgress):
		// A manual tick holds the engine; this trigger is a no-op.
		p.skipped.Add(1)
		p.logger.Debug("engine busy, skipping trigger")
	case errors.Is(err, engine.ErrFeedUnavailable):
		// Already logged by the engine; the next trigger retries.
		p.failed.Add(1)
	default:
		p.failed.Add(1)
		p.logger.Warn("tick failed", "error", err)
	}
}
