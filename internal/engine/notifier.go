package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/feedwarden/internal/model"
)

// DeliveryOutcome is the result of sending one item to one destination.
type DeliveryOutcome struct {
	Destination string
	Handle      string // Empty on failure
	Err         error  // Wraps ErrSendFailed on failure
}

// OK reports whether the send succeeded.
func (o DeliveryOutcome) OK() bool {
	return o.Err == nil
}

// Announce fans item out to every configured destination and marks it
// announced. Outcomes are returned in destination order.
func (e *Engine) Announce(ctx context.Context, item model.Item) []DeliveryOutcome {
	return e.announce(ctx, e.newID(), item)
}

// announce sends to all destinations concurrently, joins, then marks the
// item announced regardless of individual outcomes.
func (e *Engine) announce(ctx context.Context, correlationID string, item model.Item) []DeliveryOutcome {
	a := model.Announcement{
		Item:        item,
		ActionLabel: e.cfg.ActionLabel,
		ActionToken: ActionToken(item.ID),
	}

	outcomes := make([]DeliveryOutcome, len(e.cfg.Destinations))

	var g errgroup.Group
	g.SetLimit(e.cfg.SendConcurrency)
	for i, dest := range e.cfg.Destinations {
		g.Go(func() error {
			// Never short-circuit: each destination reports its own outcome.
			outcomes[i] = e.deliver(ctx, correlationID, dest, a)
			return nil
		})
	}
	_ = g.Wait()

	e.mu.Lock()
	if e.dedup.MarkAnnounced(item.ID) {
		e.dirty.announced = true
	}
	e.mu.Unlock()

	var delivered int
	for _, o := range outcomes {
		if o.OK() {
			delivered++
		}
	}
	e.logger.Info("item announced",
		"correlation_id", correlationID,
		"item_id", item.ID,
		"destinations", len(outcomes),
		"delivered", delivered,
	)
	e.emit(Event{Kind: EventAnnounced, CorrelationID: correlationID, ItemID: item.ID, Count: delivered})

	return outcomes
}

// deliver sends one announcement and records the resulting message.
func (e *Engine) deliver(ctx context.Context, correlationID, dest string, a model.Announcement) DeliveryOutcome {
	start := e.now()

	sctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	handle, err := e.transport.Send(sctx, dest, a)
	cancel()

	if err != nil {
		derr := &DeliveryError{Kind: ErrSendFailed, ItemID: a.Item.ID, Destination: dest, Err: err}
		e.logger.Warn("failed to send announcement",
			"correlation_id", correlationID,
			"item_id", a.Item.ID,
			"destination", dest,
			"error", err,
		)
		e.emit(Event{
			Kind:          EventDeliveryFailed,
			CorrelationID: correlationID,
			ItemID:        a.Item.ID,
			Destination:   dest,
			Error:         err.Error(),
		})
		return DeliveryOutcome{Destination: dest, Err: derr}
	}

	ref := model.MessageRef{Destination: dest, Handle: handle}
	if !e.recordDelivery(a.Item.ID, ref) {
		// The item was retracted while this send was in flight.
		e.logger.Info("item retracted during fan-out, deleting late message",
			"correlation_id", correlationID,
			"item_id", a.Item.ID,
			"message", ref.String(),
		)
		_ = e.deleteMessage(ctx, correlationID, a.Item.ID, ref)
		return DeliveryOutcome{Destination: dest, Handle: handle}
	}

	e.emit(Event{
		Kind:          EventDelivered,
		CorrelationID: correlationID,
		ItemID:        a.Item.ID,
		Destination:   dest,
		Duration:      e.now().Sub(start),
	})
	return DeliveryOutcome{Destination: dest, Handle: handle}
}

// recordDelivery stores ref unless the item has been retracted.
func (e *Engine) recordDelivery(itemID string, ref model.MessageRef) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dedup.IsRetracted(itemID) {
		return false
	}
	if prev, replaced := e.registry.Record(itemID, ref); replaced {
		e.logger.Warn("replaced live message for destination",
			"item_id", itemID,
			"previous", prev.String(),
			"current", ref.String(),
		)
	}
	e.dirty.messages = true
	return true
}

// deleteMessage removes one displayed message, best-effort.
func (e *Engine) deleteMessage(ctx context.Context, correlationID, itemID string, ref model.MessageRef) error {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.RequestTimeout)
	defer cancel()

	if err := e.transport.Delete(dctx, ref); err != nil {
		derr := &DeliveryError{Kind: ErrDeleteFailed, ItemID: itemID, Destination: ref.Destination, Err: err}
		e.logger.Warn("failed to delete message",
			"correlation_id", correlationID,
			"item_id", itemID,
			"message", ref.String(),
			"error", err,
		)
		e.emit(Event{
			Kind:          EventDeleteFailed,
			CorrelationID: correlationID,
			ItemID:        itemID,
			Destination:   ref.Destination,
			Error:         err.Error(),
		})
		return derr
	}
	return nil
}
