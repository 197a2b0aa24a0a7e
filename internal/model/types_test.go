package model

import (
	"testing"
	"time"
)

func TestAnnouncementText(t *testing.T) {
	a := Announcement{
		Item: Item{
			ID:    "2417",
			Title: "Running an XDC node",
			Link:  "https://www.xdc.dev/alice/running-an-xdc-node-3k2p",
		},
		ActionLabel: "Unpublish",
		ActionToken: "retract:2417",
	}

	want := "Running an XDC node - https://www.xdc.dev/alice/running-an-xdc-node-3k2p (Article ID: 2417)"
	if got := a.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestMessageRefString(t *testing.T) {
	ref := MessageRef{Destination: "-1001234", Handle: "88"}
	if got := ref.String(); got != "-1001234/88" {
		t.Errorf("String() = %q, want %q", got, "-1001234/88")
	}
}

func TestRetractionRecordZeroValues(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	r := RetractionRecord{ItemID: "7", RetractedAt: now}

	if r.Owner != "" || r.Slug != "" {
		t.Errorf("unexpected metadata: owner=%q slug=%q", r.Owner, r.Slug)
	}
	if !r.RetractedAt.Equal(now) {
		t.Errorf("RetractedAt = %v, want %v", r.RetractedAt, now)
	}
}
