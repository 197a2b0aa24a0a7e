package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/feedwarden/internal/engine"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPoller_TicksImmediately(t *testing.T) {
	var calls atomic.Int32
	ticker := TickerFunc(func(context.Context) (engine.TickReport, error) {
		calls.Add(1)
		return engine.TickReport{}, nil
	})

	p := New(Config{Interval: time.Hour, Timeout: time.Second}, ticker, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, func() bool { return calls.Load() == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := p.Stats().Triggered; got != 1 {
		t.Errorf("Triggered = %d, want 1", got)
	}
}

func TestPoller_TicksOnInterval(t *testing.T) {
	var calls atomic.Int32
	ticker := TickerFunc(func(context.Context) (engine.TickReport, error) {
		calls.Add(1)
		return engine.TickReport{}, nil
	})

	p := New(Config{Interval: 10 * time.Millisecond, Timeout: time.Second}, ticker, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Stop(context.Background())

	waitFor(t, func() bool { return calls.Load() >= 3 })
}

func TestPoller_SkipsWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	ticker := TickerFunc(func(context.Context) (engine.TickReport, error) {
		started <- struct{}{}
		<-release
		return engine.TickReport{}, nil
	})

	p := New(Config{Interval: time.Hour, Timeout: time.Second}, ticker, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.ctx = ctx

	p.trigger()
	<-started
	p.trigger()
	p.trigger()

	close(release)
	p.wg.Wait()

	stats := p.Stats()
	if stats.Triggered != 1 {
		t.Errorf("Triggered = %d, want 1", stats.Triggered)
	}
	if stats.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", stats.Skipped)
	}

	// The flag clears once the tick returns.
	p.trigger()
	<-started
	p.wg.Wait()
	if got := p.Stats().Triggered; got != 2 {
		t.Errorf("Triggered = %d, want 2", got)
	}
}

func TestPoller_TickTimeout(t *testing.T) {
	errs := make(chan error, 1)
	ticker := TickerFunc(func(ctx context.Context) (engine.TickReport, error) {
		<-ctx.Done()
		errs <- ctx.Err()
		return engine.TickReport{}, ctx.Err()
	})

	p := New(Config{Interval: time.Hour, Timeout: 20 * time.Millisecond}, ticker, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.ctx = ctx

	p.trigger()
	p.wg.Wait()

	if err := <-errs; !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("tick ctx err = %v, want %v", err, context.DeadlineExceeded)
	}
	if got := p.Stats().Failed; got != 1 {
		t.Errorf("Failed = %d, want 1", got)
	}
}

func TestPoller_ErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantSkipped int64
		wantFailed  int64
	}{
		{"ok", nil, 0, 0},
		{"engine busy", engine.ErrTickInProgress, 1, 0},
		{"feed down", engine.ErrFeedUnavailable, 0, 1},
		{"other", errors.New("boom"), 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticker := TickerFunc(func(context.Context) (engine.TickReport, error) {
				return engine.TickReport{}, tt.err
			})
			p := New(Config{}, ticker, nil)
			p.ctx = context.Background()

			p.trigger()
			p.wg.Wait()

			stats := p.Stats()
			if stats.Skipped != tt.wantSkipped {
				t.Errorf("Skipped = %d, want %d", stats.Skipped, tt.wantSkipped)
			}
			if stats.Failed != tt.wantFailed {
				t.Errorf("Failed = %d, want %d", stats.Failed, tt.wantFailed)
			}
		})
	}
}

func TestPoller_StopWaitsForTick(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	ticker := TickerFunc(func(ctx context.Context) (engine.TickReport, error) {
		close(started)
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		finished.Store(true)
		return engine.TickReport{}, ctx.Err()
	})

	p := New(Config{Interval: time.Hour, Timeout: time.Minute}, ticker, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-started

	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !finished.Load() {
		t.Error("Stop() returned before the running tick finished")
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{}, nil, nil)
	if p.cfg.Interval != time.Minute {
		t.Errorf("Interval = %v, want %v", p.cfg.Interval, time.Minute)
	}
	if p.cfg.Timeout != 5*time.Minute {
		t.Errorf("Timeout = %v, want %v", p.cfg.Timeout, 5*time.Minute)
	}
}
