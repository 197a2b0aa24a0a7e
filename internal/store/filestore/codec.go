package filestore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// flexID decodes an id written either as a JSON string or a JSON number.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// retraction is the on-disk retraction record. It also accepts the legacy
// shapes: a bare id, {articleId, username, title} and {articleId, slug, deletedBy}.
type retraction struct {
	ItemID      string    `json:"item_id"`
	Owner       string    `json:"owner,omitempty"`
	Slug        string    `json:"slug,omitempty"`
	RetractedBy string    `json:"retracted_by,omitempty"`
	RetractedAt time.Time `json:"retracted_at"`
	RequestID   string    `json:"request_id,omitempty"`
}

func (r *retraction) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var id flexID
		if err := id.UnmarshalJSON(data); err != nil {
			return err
		}
		*r = retraction{ItemID: string(id)}
		return nil
	}

	var wire struct {
		ItemID      flexID    `json:"item_id"`
		Owner       string    `json:"owner"`
		Slug        string    `json:"slug"`
		RetractedBy flexID    `json:"retracted_by"`
		RetractedAt time.Time `json:"retracted_at"`
		RequestID   string    `json:"request_id"`

		ArticleID flexID `json:"articleId"`
		Username  string `json:"username"`
		Title     string `json:"title"`
		DeletedBy flexID `json:"deletedBy"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*r = retraction{
		ItemID:      string(firstID(wire.ItemID, wire.ArticleID)),
		Owner:       firstNonEmpty(wire.Owner, wire.Username),
		Slug:        firstNonEmpty(wire.Slug, wire.Title),
		RetractedBy: string(firstID(wire.RetractedBy, wire.DeletedBy)),
		RetractedAt: wire.RetractedAt,
		RequestID:   wire.RequestID,
	}
	return nil
}

// messageRef is the on-disk message location. It also accepts the legacy
// {chatId, messageId} shape.
type messageRef struct {
	Destination string `json:"destination"`
	Handle      string `json:"handle"`
}

func (m *messageRef) UnmarshalJSON(data []byte) error {
	var wire struct {
		Destination flexID `json:"destination"`
		Handle      flexID `json:"handle"`
		ChatID      flexID `json:"chatId"`
		MessageID   flexID `json:"messageId"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*m = messageRef{
		Destination: string(firstID(wire.Destination, wire.ChatID)),
		Handle:      string(firstID(wire.Handle, wire.MessageID)),
	}
	return nil
}

func firstID(ids ...flexID) flexID {
	for _, id := range ids {
		if id != "" {
			return id
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
