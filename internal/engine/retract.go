package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/feedwarden/internal/model"
)

// RetractionState is a step of the retraction state machine.
type RetractionState int

const (
	StateReceived RetractionState = iota
	StateAuthorized
	StateDetailsFetched
	StateUnpublished
	StateCleaned
	StateAcknowledged
	StateRejected
	StateFailed
)

var stateNames = [...]string{
	StateReceived:       "received",
	StateAuthorized:     "authorized",
	StateDetailsFetched: "details_fetched",
	StateUnpublished:    "unpublished",
	StateCleaned:        "cleaned",
	StateAcknowledged:   "acknowledged",
	StateRejected:       "rejected",
	StateFailed:         "failed",
}

func (s RetractionState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can happen.
func (s RetractionState) Terminal() bool {
	return s == StateAcknowledged || s == StateRejected || s == StateFailed
}

// Acknowledgment texts shown to the requester.
const (
	AckUnauthorized       = "Unauthorized access!"
	AckMissingCredentials = "API key is missing!"
	AckDetailsUnavailable = "Failed to fetch article details."
	AckUnpublishFailed    = "Failed to unpublish the article."
	AckRetracted          = "Article unpublished successfully!"
)

// RetractionRequest is one inbound request to retract an item.
type RetractionRequest struct {
	ItemID    string
	Requester string // Identity checked against the admin set
	ActionID  string // Transport id to acknowledge; empty skips the acknowledgment
	Origin    string // Destination the request came from
	Handle    string // Message the request came from; deleted even when untracked
}

// RequestFromAction builds a retraction request from a button press.
func RequestFromAction(a model.Action, itemID string) RetractionRequest {
	return RetractionRequest{
		ItemID:    itemID,
		Requester: a.From,
		ActionID:  a.ID,
		Origin:    a.Destination,
		Handle:    a.Handle,
	}
}

// RetractionResult is the terminal outcome of a request.
type RetractionResult struct {
	RequestID string
	ItemID    string
	State     RetractionState // Acknowledged, Rejected or Failed
	Err       error           // nil when Acknowledged
	Detail    model.ItemDetail
	Deleted   []model.MessageRef
	Orphaned  []model.MessageRef // Messages whose deletion failed; no longer tracked
	Ack       string
}

// Retract runs the retraction state machine for one request:
//
//	Received -> Authorized -> DetailsFetched -> Unpublished -> Cleaned -> Acknowledged
//
// Authorization failure ends in Rejected; a failed detail lookup or unpublish
// ends in Failed. No state is mutated before the unpublish succeeds, so a
// failed request can be re-triggered safely. The authorization check and the
// unpublish call happen once per request.
func (e *Engine) Retract(ctx context.Context, req RetractionRequest) RetractionResult {
	res := RetractionResult{
		RequestID: e.newID(),
		ItemID:    strings.TrimSpace(req.ItemID),
		State:     StateReceived,
	}
	logger := e.logger.With(
		"request_id", res.RequestID,
		"item_id", res.ItemID,
		"requester", req.Requester,
		"origin", req.Origin,
	)

	rctx, cancel := context.WithTimeout(ctx, e.cfg.RetractTimeout)
	defer cancel()

	// Received -> Authorized
	if !e.cfg.Admins.Contains(req.Requester) {
		logger.Warn("unauthorized retraction attempt")
		res = terminate(res, StateRejected, ErrUnauthorized, AckUnauthorized)
		e.acknowledge(ctx, logger, req.ActionID, res.Ack)
		e.emit(Event{Kind: EventRetractionRejected, CorrelationID: res.RequestID, ItemID: res.ItemID, Error: res.Err.Error()})
		return res
	}
	res.State = StateAuthorized

	if c, ok := e.feed.(credentialed); ok && !c.HasCredentials() {
		logger.Error("cannot retract without feed credentials")
		res = terminate(res, StateFailed, fmt.Errorf("%w: %w", ErrUnpublishFailed, ErrMissingCredentials), AckMissingCredentials)
		return e.fail(ctx, logger, req, res)
	}

	// Authorized -> DetailsFetched
	detail, err := e.fetchDetail(rctx, res.ItemID)
	if err != nil {
		logger.Warn("failed to fetch item details", "error", err)
		res = terminate(res, StateFailed, wrapKind(ErrDetailFetchFailed, err), AckDetailsUnavailable)
		return e.fail(ctx, logger, req, res)
	}
	res.Detail = detail
	res.State = StateDetailsFetched

	// DetailsFetched -> Unpublished
	if err := e.unpublish(rctx, res.ItemID); err != nil {
		logger.Warn("failed to unpublish item", "error", err)
		res = terminate(res, StateFailed, wrapKind(ErrUnpublishFailed, err), AckUnpublishFailed)
		return e.fail(ctx, logger, req, res)
	}
	res.State = StateUnpublished
	logger.Info("item unpublished", "owner", detail.Owner, "slug", detail.Slug)

	// Unpublished -> Cleaned. From here on the retraction is committed, so
	// cleanup runs to completion even if the request deadline passes.
	cctx := context.WithoutCancel(ctx)
	refs := e.commitRetraction(model.RetractionRecord{
		ItemID:      res.ItemID,
		Owner:       detail.Owner,
		Slug:        detail.Slug,
		RetractedBy: strings.TrimSpace(req.Requester),
		RetractedAt: e.now().UTC(),
		RequestID:   res.RequestID,
	})
	refs = withOrigin(refs, req)
	res.Deleted, res.Orphaned = e.deleteAll(cctx, res.RequestID, res.ItemID, refs)
	res.State = StateCleaned
	_ = e.Flush(cctx)

	// Cleaned -> Acknowledged
	res.Ack = AckRetracted
	e.acknowledge(cctx, logger, req.ActionID, res.Ack)
	res.State = StateAcknowledged

	logger.Info("retraction complete",
		"deleted", len(res.Deleted),
		"orphaned", len(res.Orphaned),
	)
	e.emit(Event{
		Kind:          EventRetracted,
		CorrelationID: res.RequestID,
		ItemID:        res.ItemID,
		Count:         len(res.Deleted),
	})
	return res
}

func (e *Engine) fetchDetail(ctx context.Context, id string) (model.ItemDetail, error) {
	if err := ctx.Err(); err != nil {
		return model.ItemDetail{}, err
	}
	dctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()
	return e.feed.ItemDetail(dctx, id)
}

func (e *Engine) unpublish(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	uctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()
	return e.feed.Unpublish(uctx, id)
}

// commitRetraction marks the item retracted and takes its registry entries
// in one step, so no concurrent delivery can be recorded in between.
func (e *Engine) commitRetraction(rec model.RetractionRecord) []model.MessageRef {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dedup.MarkRetracted(rec) {
		e.dirty.retracted = true
	}
	refs := e.registry.Clear(rec.ItemID)
	if len(refs) > 0 {
		e.dirty.messages = true
	}
	return refs
}

// withOrigin adds the message the request came from when the registry does
// not hold it, such as a send that completed after it was given up on.
func withOrigin(refs []model.MessageRef, req RetractionRequest) []model.MessageRef {
	origin := model.MessageRef{
		Destination: strings.TrimSpace(req.Origin),
		Handle:      strings.TrimSpace(req.Handle),
	}
	if origin.Destination == "" || origin.Handle == "" {
		return refs
	}
	for _, ref := range refs {
		if ref == origin {
			return refs
		}
	}
	return append(refs, origin)
}

// deleteAll attempts every deletion independently. Results keep registry order.
func (e *Engine) deleteAll(ctx context.Context, requestID, itemID string, refs []model.MessageRef) (deleted, orphaned []model.MessageRef) {
	errs := make([]error, len(refs))

	var g errgroup.Group
	g.SetLimit(e.cfg.SendConcurrency)
	for i, ref := range refs {
		g.Go(func() error {
			errs[i] = e.deleteMessage(ctx, requestID, itemID, ref)
			return nil
		})
	}
	_ = g.Wait()

	for i, ref := range refs {
		if errs[i] != nil {
			orphaned = append(orphaned, ref)
		} else {
			deleted = append(deleted, ref)
		}
	}
	return deleted, orphaned
}

// terminate moves res to a terminal state.
func terminate(res RetractionResult, state RetractionState, err error, ack string) RetractionResult {
	res.State = state
	res.Err = err
	res.Ack = ack
	return res
}

// fail acknowledges a Failed request and reports it.
func (e *Engine) fail(ctx context.Context, logger *slog.Logger, req RetractionRequest, res RetractionResult) RetractionResult {
	e.acknowledge(ctx, logger, req.ActionID, res.Ack)
	e.emit(Event{Kind: EventRetractionFailed, CorrelationID: res.RequestID, ItemID: res.ItemID, Error: res.Err.Error()})
	return res
}

func (e *Engine) acknowledge(ctx context.Context, logger *slog.Logger, actionID, text string) {
	if actionID == "" {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.RequestTimeout)
	defer cancel()
	if err := e.transport.Acknowledge(actx, actionID, text); err != nil {
		logger.Warn("failed to acknowledge action", "action_id", actionID, "error", err)
	}
}

// wrapKind tags err with kind unless it already carries it.
func wrapKind(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
