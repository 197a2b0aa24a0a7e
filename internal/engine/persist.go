package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rickgao/feedwarden/internal/model"
)

// dirtySet tracks which records changed since the last successful save.
type dirtySet struct {
	announced bool
	retracted bool
	messages  bool
}

func (d dirtySet) any() bool {
	return d.announced || d.retracted || d.messages
}

// Flush writes every record that changed since its last successful save.
// Failures are logged and reported as events; the in-memory state stays
// authoritative and the record is retried on the next flush.
func (e *Engine) Flush(ctx context.Context) error {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	e.mu.Lock()
	pending := e.dirty
	e.dirty = dirtySet{}
	var (
		announced []string
		retracted []model.RetractionRecord
		messages  map[string][]model.MessageRef
	)
	if pending.announced {
		announced = e.dedup.Announced()
	}
	if pending.retracted {
		retracted = e.dedup.Retracted()
	}
	if pending.messages {
		messages = e.registry.snapshot()
	}
	e.mu.Unlock()

	if !pending.any() {
		return nil
	}

	// Saves must complete even when the caller's context is already done.
	base := context.WithoutCancel(ctx)
	var failed dirtySet
	var firstErr error

	save := func(name string, fn func(context.Context) error) bool {
		sctx, cancel := context.WithTimeout(base, e.cfg.PersistTimeout)
		defer cancel()
		if err := fn(sctx); err != nil {
			e.logger.Error("failed to persist record", "record", name, "error", err)
			e.emit(Event{Kind: EventPersistFailed, Error: fmt.Sprintf("%s: %v", name, err)})
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: save %s: %v", ErrPersistenceFailed, name, err)
			}
			return false
		}
		return true
	}

	if pending.announced {
		failed.announced = !save("announced", func(c context.Context) error {
			return e.store.SaveAnnounced(c, announced)
		})
	}
	if pending.retracted {
		failed.retracted = !save("retracted", func(c context.Context) error {
			return e.store.SaveRetracted(c, retracted)
		})
	}
	if pending.messages {
		failed.messages = !save("messages", func(c context.Context) error {
			return e.store.SaveMessages(c, messages)
		})
	}

	if failed.any() {
		e.mu.Lock()
		e.dirty.announced = e.dirty.announced || failed.announced
		e.dirty.retracted = e.dirty.retracted || failed.retracted
		e.dirty.messages = e.dirty.messages || failed.messages
		e.mu.Unlock()
	}
	return firstErr
}

func newCorrelationID() string {
	return uuid.NewString()
}
