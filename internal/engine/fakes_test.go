package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/feedwarden/internal/auth"
	"github.com/rickgao/feedwarden/internal/model"
)

var errBoom = errors.New("boom")

// fakeFeed serves a fixed item list and records retraction calls.
type fakeFeed struct {
	mu sync.Mutex

	items       []model.Item
	fetchErr    error
	details     map[string]model.ItemDetail
	detailErr   error
	unpubErr    error
	noCreds     bool
	fetches     int
	unpublished []string
	detailCalls int
}

func (f *fakeFeed) FetchLatest(_ context.Context, limit int) ([]model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	items := append([]model.Item(nil), f.items...)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeFeed) ItemDetail(_ context.Context, id string) (model.ItemDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if f.detailErr != nil {
		return model.ItemDetail{}, f.detailErr
	}
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return model.ItemDetail{ID: id, Owner: "owner-" + id, Slug: "slug-" + id}, nil
}

func (f *fakeFeed) Unpublish(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unpubErr != nil {
		return f.unpubErr
	}
	f.unpublished = append(f.unpublished, id)
	return nil
}

func (f *fakeFeed) HasCredentials() bool {
	return !f.noCreds
}

func (f *fakeFeed) setItems(items ...model.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

func (f *fakeFeed) unpublishCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.unpublished)
}

// sentMessage is one successful Send seen by fakeTransport.
type sentMessage struct {
	Destination string
	ItemID      string
	Token       string
	Handle      string
}

// fakeTransport assigns sequential handles and records every call.
type fakeTransport struct {
	mu sync.Mutex

	nextHandle int
	sendErr    map[string]error // by destination
	deleteErr  map[string]error // by destination
	ackErr     error
	onSend     func(dest string, a model.Announcement)

	sent    []sentMessage
	deleted []model.MessageRef
	acks    map[string]string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sendErr:   make(map[string]error),
		deleteErr: make(map[string]error),
		acks:      make(map[string]string),
	}
}

func (t *fakeTransport) Send(_ context.Context, dest string, a model.Announcement) (string, error) {
	if t.onSend != nil {
		t.onSend(dest, a)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.sendErr[dest]; err != nil {
		return "", err
	}
	t.nextHandle++
	handle := fmt.Sprintf("%d", t.nextHandle)
	t.sent = append(t.sent, sentMessage{Destination: dest, ItemID: a.Item.ID, Token: a.ActionToken, Handle: handle})
	return handle, nil
}

func (t *fakeTransport) Delete(_ context.Context, ref model.MessageRef) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.deleteErr[ref.Destination]; err != nil {
		return err
	}
	t.deleted = append(t.deleted, ref)
	return nil
}

func (t *fakeTransport) Acknowledge(_ context.Context, actionID, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ackErr != nil {
		return t.ackErr
	}
	t.acks[actionID] = text
	return nil
}

func (t *fakeTransport) sentFor(itemID string) []sentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []sentMessage
	for _, s := range t.sent {
		if s.ItemID == itemID {
			out = append(out, s)
		}
	}
	return out
}

func (t *fakeTransport) sentItems() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, s := range t.sent {
		out = append(out, s.ItemID)
	}
	return out
}

func (t *fakeTransport) ack(actionID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acks[actionID]
}

// memStore keeps persisted records in memory.
type memStore struct {
	mu sync.Mutex

	announced []string
	retracted []model.RetractionRecord
	messages  map[string][]model.MessageRef

	saveErr error
	loadErr error
	saves   map[string]int
}

func newMemStore() *memStore {
	return &memStore{saves: make(map[string]int)}
}

func (s *memStore) LoadAnnounced(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.announced...), s.loadErr
}

func (s *memStore) LoadRetracted(context.Context) ([]model.RetractionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RetractionRecord(nil), s.retracted...), s.loadErr
}

func (s *memStore) LoadMessages(context.Context) (map[string][]model.MessageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]model.MessageRef, len(s.messages))
	for k, v := range s.messages {
		out[k] = append([]model.MessageRef(nil), v...)
	}
	return out, s.loadErr
}

func (s *memStore) SaveAnnounced(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves["announced"]++
	s.announced = append([]string(nil), ids...)
	return nil
}

func (s *memStore) SaveRetracted(_ context.Context, recs []model.RetractionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves["retracted"]++
	s.retracted = append([]model.RetractionRecord(nil), recs...)
	return nil
}

func (s *memStore) SaveMessages(_ context.Context, msgs map[string][]model.MessageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves["messages"]++
	s.messages = msgs
	return nil
}

func (s *memStore) setSaveErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

func (s *memStore) saveCount(record string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[record]
}

// eventLog collects observed events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Observe(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Kind)
	}
	return out
}

func (l *eventLog) count(kind EventKind) int {
	n := 0
	for _, k := range l.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

// harness wires an engine to fakes.
type harness struct {
	engine    *Engine
	feed      *fakeFeed
	transport *fakeTransport
	store     *memStore
	events    *eventLog
}

const adminID = "9001"

func newHarness(destinations ...string) *harness {
	if len(destinations) == 0 {
		destinations = []string{"-100111", "-100222"}
	}
	h := &harness{
		feed:      &fakeFeed{details: make(map[string]model.ItemDetail)},
		transport: newFakeTransport(),
		store:     newMemStore(),
		events:    &eventLog{},
	}
	cfg := DefaultConfig()
	cfg.Destinations = destinations
	cfg.Admins = auth.ParseAdmins([]string{adminID})
	cfg.RequestTimeout = 2 * time.Second
	cfg.RetractTimeout = 5 * time.Second

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var seq int
	var idMu sync.Mutex

	h.engine = New(cfg, h.feed, h.transport, h.store, discardLogger(),
		WithObserver(h.events),
		WithClock(func() time.Time { return clock }),
		WithIDGenerator(func() string {
			idMu.Lock()
			defer idMu.Unlock()
			seq++
			return fmt.Sprintf("corr-%d", seq)
		}),
	)
	return h
}

func destinationsOf(refs []model.MessageRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.Destination)
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func items(ids ...string) []model.Item {
	out := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Item{ID: id, Title: "Title " + id, Link: "https://www.xdc.dev/a/" + id})
	}
	return out
}
