package model

import (
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Feed Types
// -----------------------------------------------------------------------------

// Item is one feed entry as seen by the engine.
type Item struct {
	ID    string // Stable identifier, never reused
	Title string // Display title
	Link  string // Absolute URL
}

// ItemDetail is the extra information fetched before a retraction.
type ItemDetail struct {
	ID    string
	Owner string // Author handle (Forem username)
	Slug  string // Canonical slug
}

// -----------------------------------------------------------------------------
// Delivery Types
// -----------------------------------------------------------------------------

// MessageRef locates one displayed announcement.
type MessageRef struct {
	Destination string `json:"destination"`
	Handle      string `json:"handle"`
}

func (r MessageRef) String() string {
	return r.Destination + "/" + r.Handle
}

// Announcement is the payload sent to every destination for an item.
type Announcement struct {
	Item        Item
	ActionLabel string // Button text (e.g. "Unpublish")
	ActionToken string // Opaque token returned by the button (e.g. "retract:42")
}

// Text renders the message body.
// Format: "<title> - <link> (Article ID: <id>)"
func (a Announcement) Text() string {
	return fmt.Sprintf("%s - %s (Article ID: %s)", a.Item.Title, a.Item.Link, a.Item.ID)
}

// -----------------------------------------------------------------------------
// Retraction Types
// -----------------------------------------------------------------------------

// RetractionRecord is the audit entry kept for every retracted item.
type RetractionRecord struct {
	ItemID      string    `json:"item_id"`
	Owner       string    `json:"owner,omitempty"`
	Slug        string    `json:"slug,omitempty"`
	RetractedBy string    `json:"retracted_by,omitempty"`
	RetractedAt time.Time `json:"retracted_at"`
	RequestID   string    `json:"request_id,omitempty"`
}

// Action is an inbound button press from a destination.
type Action struct {
	ID          string    // Transport id used to acknowledge the press
	From        string    // Requester identity
	Data        string    // Raw action token
	Destination string    // Chat the press came from
	Handle      string    // Message the button belongs to
	ReceivedAt  time.Time // Local receive time
}
