package engine

import "time"

// EventKind identifies what happened inside the engine.
type EventKind string

const (
	EventTickCompleted      EventKind = "tick_completed"
	EventTickSkipped        EventKind = "tick_skipped"
	EventFeedUnavailable    EventKind = "feed_unavailable"
	EventDelivered          EventKind = "delivered"
	EventDeliveryFailed     EventKind = "delivery_failed"
	EventAnnounced          EventKind = "announced"
	EventRetracted          EventKind = "retracted"
	EventRetractionRejected EventKind = "retraction_rejected"
	EventRetractionFailed   EventKind = "retraction_failed"
	EventDeleteFailed       EventKind = "delete_failed"
	EventPersistFailed      EventKind = "persist_failed"
)

// Event is emitted to the Observer after the state change it describes.
type Event struct {
	Kind          EventKind     `json:"kind"`
	Time          time.Time     `json:"time"`
	CorrelationID string        `json:"correlation_id,omitempty"` // tick or request id
	ItemID        string        `json:"item_id,omitempty"`
	Destination   string        `json:"destination,omitempty"`
	Count         int           `json:"count,omitempty"`
	Duration      time.Duration `json:"duration,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// Observer receives engine events. Implementations must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc is a function adapter for Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// MultiObserver fans events out to several observers in order.
func MultiObserver(observers ...Observer) Observer {
	list := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return ObserverFunc(func(e Event) {
		for _, o := range list {
			o.Observe(e)
		}
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
