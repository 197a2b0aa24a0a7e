package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/rickgao/feedwarden/internal/engine"
)

// value returns the counter or gauge value of name with the given label pairs.
func value(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !hasLabels(m, labels) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestCollector_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	events := []engine.Event{
		{Kind: engine.EventDelivered},
		{Kind: engine.EventDelivered},
		{Kind: engine.EventDeliveryFailed},
		{Kind: engine.EventAnnounced},
		{Kind: engine.EventTickCompleted, Time: now, Duration: 2 * time.Second},
		{Kind: engine.EventTickCompleted, Time: now, Error: "feed unavailable"},
		{Kind: engine.EventTickSkipped},
		{Kind: engine.EventRetracted},
		{Kind: engine.EventRetractionRejected},
		{Kind: engine.EventRetractionFailed},
		{Kind: engine.EventRetractionFailed},
		{Kind: engine.EventDeleteFailed},
		{Kind: engine.EventPersistFailed},
	}
	for _, e := range events {
		c.Observe(e)
	}

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"feedwarden_deliveries_total", map[string]string{"result": "ok"}, 2},
		{"feedwarden_deliveries_total", map[string]string{"result": "failed"}, 1},
		{"feedwarden_items_announced_total", nil, 1},
		{"feedwarden_ticks_total", map[string]string{"result": "ok"}, 1},
		{"feedwarden_ticks_total", map[string]string{"result": "feed_unavailable"}, 1},
		{"feedwarden_ticks_total", map[string]string{"result": "skipped"}, 1},
		{"feedwarden_tick_duration_seconds", nil, 2},
		{"feedwarden_retractions_total", map[string]string{"state": "acknowledged"}, 1},
		{"feedwarden_retractions_total", map[string]string{"state": "rejected"}, 1},
		{"feedwarden_retractions_total", map[string]string{"state": "failed"}, 2},
		{"feedwarden_deletes_failed_total", nil, 1},
		{"feedwarden_persist_failures_total", nil, 1},
		{"feedwarden_last_tick_timestamp_seconds", nil, float64(now.Unix())},
	}

	for _, tt := range tests {
		if got := value(t, reg, tt.name, tt.labels); got != tt.want {
			t.Errorf("%s%v = %v, want %v", tt.name, tt.labels, got, tt.want)
		}
	}
}

func TestCollector_IgnoresUnknownEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.Observe(engine.Event{Kind: "something_else"})

	if got := value(t, reg, "feedwarden_items_announced_total", nil); got != 0 {
		t.Errorf("items_announced_total = %v, want 0", got)
	}
}
