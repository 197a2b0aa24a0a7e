package engine

import (
	"errors"
	"fmt"
)

// Error kinds. Adapters wrap these so callers can match with errors.Is.
var (
	ErrFeedUnavailable   = errors.New("feed unavailable")
	ErrSendFailed        = errors.New("send failed")
	ErrDetailFetchFailed = errors.New("detail fetch failed")
	ErrUnpublishFailed   = errors.New("unpublish failed")
	ErrDeleteFailed      = errors.New("delete failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrMissingCredentials is returned when the feed source cannot unpublish
	// because no API key is configured.
	ErrMissingCredentials = errors.New("missing feed credentials")

	// ErrTickInProgress is returned by Tick when another tick is still running.
	ErrTickInProgress = errors.New("tick already in progress")
)

// DeliveryError describes a failed operation against one destination.
type DeliveryError struct {
	Kind        error // ErrSendFailed or ErrDeleteFailed
	ItemID      string
	Destination string
	Err         error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%v: item %s to %s: %v", e.Kind, e.ItemID, e.Destination, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *DeliveryError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
