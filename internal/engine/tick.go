package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/feedwarden/internal/model"
)

// TickReport summarizes one tick.
type TickReport struct {
	TickID     string
	StartedAt  time.Time
	Duration   time.Duration
	Fetched    int      // Items returned by the feed
	Known      int      // Items skipped because already announced or retracted
	Deferred   int      // New items left for a later tick by the per-tick cap
	Announced  []string // Item ids announced, in announcement order
	Deliveries int      // Successful sends
	Failures   int      // Failed sends
	FeedError  error    // Non-nil when the poll failed
}

// Tick runs one poll, filter, announce, persist cycle.
//
// Returns ErrTickInProgress if another tick is running, and an error wrapping
// ErrFeedUnavailable when the poll failed; both mean "nothing announced this
// cycle" and are not fatal.
func (e *Engine) Tick(ctx context.Context) (TickReport, error) {
	if !e.tickMu.TryLock() {
		e.emit(Event{Kind: EventTickSkipped})
		return TickReport{}, ErrTickInProgress
	}
	defer e.tickMu.Unlock()

	report := TickReport{
		TickID:    e.newID(),
		StartedAt: e.now(),
	}
	logger := e.logger.With("tick_id", report.TickID)

	fctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	items, err := e.feed.FetchLatest(fctx, e.cfg.FetchLimit)
	cancel()
	if err != nil {
		if !errors.Is(err, ErrFeedUnavailable) {
			err = fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
		}
		report.FeedError = err
		report.Duration = e.now().Sub(report.StartedAt)
		logger.Warn("feed poll failed, skipping cycle", "error", err)
		e.emit(Event{Kind: EventFeedUnavailable, CorrelationID: report.TickID, Error: err.Error()})
		e.finishTick(ctx, report)
		return report, err
	}
	report.Fetched = len(items)

	fresh := e.selectNew(items, &report)

	// Feed order is newest first; announce oldest of the batch first.
	for i := len(fresh) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			logger.Warn("tick cancelled, leaving remaining items for next cycle",
				"remaining", i+1,
			)
			break
		}
		item := fresh[i]
		if e.IsKnown(item.ID) {
			continue
		}
		for _, o := range e.announce(ctx, report.TickID, item) {
			if o.OK() {
				report.Deliveries++
			} else {
				report.Failures++
			}
		}
		report.Announced = append(report.Announced, item.ID)
	}

	report.Duration = e.now().Sub(report.StartedAt)
	e.finishTick(ctx, report)

	logger.Info("tick complete",
		"fetched", report.Fetched,
		"known", report.Known,
		"deferred", report.Deferred,
		"announced", len(report.Announced),
		"deliveries", report.Deliveries,
		"failures", report.Failures,
		"duration", report.Duration,
	)
	return report, nil
}

// selectNew filters out known items and applies the per-tick cap, keeping
// the newest new items. Order stays newest first.
func (e *Engine) selectNew(items []model.Item, report *TickReport) []model.Item {
	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[string]struct{}, len(items))
	fresh := make([]model.Item, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}

		if e.dedup.IsKnown(item.ID) {
			report.Known++
			continue
		}
		fresh = append(fresh, item)
	}

	if len(fresh) > e.cfg.MaxItemsPerTick {
		report.Deferred = len(fresh) - e.cfg.MaxItemsPerTick
		fresh = fresh[:e.cfg.MaxItemsPerTick]
	}
	return fresh
}

// finishTick persists once per cycle and publishes the report.
func (e *Engine) finishTick(ctx context.Context, report TickReport) {
	_ = e.Flush(ctx)

	e.mu.Lock()
	e.lastTick = report
	e.mu.Unlock()

	e.emit(Event{
		Kind:          EventTickCompleted,
		CorrelationID: report.TickID,
		Count:         len(report.Announced),
		Duration:      report.Duration,
		Error:         errString(report.FeedError),
	})
}
