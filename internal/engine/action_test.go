package engine

import "testing"

func TestParseActionToken(t *testing.T) {
	tests := []struct {
		data   string
		wantID string
		wantOK bool
	}{
		{"retract:123", "123", true},
		{"retract: 123 ", "123", true},
		{"unpublish_456", "456", true},
		{"retract:", "", false},
		{"retract:   ", "", false},
		{"retract:1:2", "", false},
		{"retract:1 2", "", false},
		{"delete:123", "", false},
		{"", "", false},
		{"123", "", false},
	}

	for _, tt := range tests {
		id, ok := ParseActionToken(tt.data)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("ParseActionToken(%q) = (%q, %v), want (%q, %v)", tt.data, id, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestActionTokenRoundTrip(t *testing.T) {
	for _, id := range []string{"1", "98765", "abc-def"} {
		got, ok := ParseActionToken(ActionToken(id))
		if !ok || got != id {
			t.Errorf("ParseActionToken(ActionToken(%q)) = (%q, %v), want (%q, true)", id, got, ok, id)
		}
	}
}

func TestRetractionStateTerminal(t *testing.T) {
	terminal := map[RetractionState]bool{
		StateReceived:       false,
		StateAuthorized:     false,
		StateDetailsFetched: false,
		StateUnpublished:    false,
		StateCleaned:        false,
		StateAcknowledged:   true,
		StateRejected:       true,
		StateFailed:         true,
	}
	for s, want := range terminal {
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
		}
	}
	if got := RetractionState(42).String(); got != "state(42)" {
		t.Errorf("String() = %q, want %q", got, "state(42)")
	}
}
