package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/feedwarden/internal/auth"
	"github.com/rickgao/feedwarden/internal/model"
)

// FeedSource is the upstream content feed.
type FeedSource interface {
	// FetchLatest returns at most limit items, newest first.
	FetchLatest(ctx context.Context, limit int) ([]model.Item, error)

	// ItemDetail returns owner handle and slug for an item.
	ItemDetail(ctx context.Context, id string) (model.ItemDetail, error)

	// Unpublish sets published=false upstream. Repeated calls must not fail
	// for an item that is already unpublished.
	Unpublish(ctx context.Context, id string) error
}

// credentialed is implemented by feed sources that need credentials to
// unpublish and can tell up front whether they have them.
type credentialed interface {
	HasCredentials() bool
}

// Transport delivers announcements to destinations.
type Transport interface {
	// Send posts an announcement and returns the transport message handle.
	Send(ctx context.Context, destination string, a model.Announcement) (string, error)

	// Delete removes a previously sent message.
	Delete(ctx context.Context, ref model.MessageRef) error

	// Acknowledge answers an inbound action with a user-visible text.
	Acknowledge(ctx context.Context, actionID, text string) error
}

// Store is the durability layer for the three engine records.
// Each record loads and saves independently; a missing record loads empty.
type Store interface {
	LoadAnnounced(ctx context.Context) ([]string, error)
	LoadRetracted(ctx context.Context) ([]model.RetractionRecord, error)
	LoadMessages(ctx context.Context) (map[string][]model.MessageRef, error)

	SaveAnnounced(ctx context.Context, ids []string) error
	SaveRetracted(ctx context.Context, records []model.RetractionRecord) error
	SaveMessages(ctx context.Context, messages map[string][]model.MessageRef) error
}

// Config holds engine settings.
type Config struct {
	Destinations    []string      // Ordered, fixed for the process lifetime
	Admins          auth.Admins   // Identities allowed to retract
	FetchLimit      int           // Items requested from the feed per tick (default: 10)
	MaxItemsPerTick int           // New items announced per tick (default: 10)
	SendConcurrency int           // Parallel sends per item (default: 4)
	RequestTimeout  time.Duration // Per network call (default: 15s)
	RetractTimeout  time.Duration // Whole retraction up to the unpublish commit (default: 45s)
	PersistTimeout  time.Duration // Per record save (default: 10s)
	ActionLabel     string        // Button text (default: "Unpublish")
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		FetchLimit:      10,
		MaxItemsPerTick: 10,
		SendConcurrency: 4,
		RequestTimeout:  15 * time.Second,
		RetractTimeout:  45 * time.Second,
		PersistTimeout:  10 * time.Second,
		ActionLabel:     "Unpublish",
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.FetchLimit <= 0 {
		c.FetchLimit = d.FetchLimit
	}
	if c.MaxItemsPerTick <= 0 {
		c.MaxItemsPerTick = d.MaxItemsPerTick
	}
	if c.SendConcurrency <= 0 {
		c.SendConcurrency = d.SendConcurrency
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.RetractTimeout <= 0 {
		c.RetractTimeout = d.RetractTimeout
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = d.PersistTimeout
	}
	if c.ActionLabel == "" {
		c.ActionLabel = d.ActionLabel
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides correlation id generation (tests).
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.newID = gen
	}
}

// Engine is the notification and retraction synchronization engine.
type Engine struct {
	cfg       Config
	feed      FeedSource
	transport Transport
	store     Store
	logger    *slog.Logger
	observer  Observer
	now       func() time.Time
	newID     func() string

	// mu guards dedup, registry and the dirty flags.
	mu       sync.Mutex
	dedup    *DedupStore
	registry *MessageRegistry
	dirty    dirtySet
	lastTick TickReport

	// tickMu is held for the whole duration of a tick.
	tickMu sync.Mutex

	// persistMu orders snapshot+write pairs so older state never overwrites newer.
	persistMu sync.Mutex
}

// New creates an Engine with empty state. Call Load to restore persisted state.
func New(cfg Config, feed FeedSource, transport Transport, store Store, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	cfg.Destinations = append([]string(nil), cfg.Destinations...)

	e := &Engine{
		cfg:       cfg,
		feed:      feed,
		transport: transport,
		store:     store,
		logger:    logger,
		observer:  ObserverFunc(func(Event) {}),
		now:       time.Now,
		newID:     newCorrelationID,
		dedup:     NewDedupStore(),
		registry:  NewMessageRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Destinations returns the configured destination list.
func (e *Engine) Destinations() []string {
	return append([]string(nil), e.cfg.Destinations...)
}

// Load restores the three persisted records. Any record that fails to load
// aborts startup; a record that does not exist yet loads empty.
func (e *Engine) Load(ctx context.Context) error {
	announced, err := e.store.LoadAnnounced(ctx)
	if err != nil {
		return fmt.Errorf("%w: load announced: %v", ErrPersistenceFailed, err)
	}
	retracted, err := e.store.LoadRetracted(ctx)
	if err != nil {
		return fmt.Errorf("%w: load retracted: %v", ErrPersistenceFailed, err)
	}
	messages, err := e.store.LoadMessages(ctx)
	if err != nil {
		return fmt.Errorf("%w: load messages: %v", ErrPersistenceFailed, err)
	}

	e.mu.Lock()
	e.dedup.restore(announced, retracted)
	e.registry.restore(messages)
	// Registry entries of retracted items are orphans from an interrupted cleanup.
	var dropped int
	for _, id := range e.registry.Items() {
		if e.dedup.IsRetracted(id) {
			dropped += len(e.registry.Clear(id))
			e.dirty.messages = true
		}
	}
	stats := e.statsLocked()
	e.mu.Unlock()

	if dropped > 0 {
		e.logger.Warn("dropped registry entries of retracted items", "messages", dropped)
	}
	e.logger.Info("engine state loaded",
		"announced", stats.Announced,
		"retracted", stats.Retracted,
		"tracked_items", stats.TrackedItems,
		"tracked_messages", stats.TrackedMessages,
	)
	return nil
}

// IsKnown reports whether id was announced or retracted.
func (e *Engine) IsKnown(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dedup.IsKnown(id)
}

// EntriesFor returns the live messages for an item.
func (e *Engine) EntriesFor(id string) []model.MessageRef {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.EntriesFor(id)
}

// State is a deep copy of the engine records.
type State struct {
	Announced []string                      `json:"announced"`
	Retracted []model.RetractionRecord      `json:"retracted"`
	Messages  map[string][]model.MessageRef `json:"messages"`
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Announced: e.dedup.Announced(),
		Retracted: e.dedup.Retracted(),
		Messages:  e.registry.snapshot(),
	}
}

// Stats summarizes the engine state.
type Stats struct {
	Announced       int
	Retracted       int
	TrackedItems    int
	TrackedMessages int
	LastTick        TickReport
}

// Stats returns current counts and the last completed tick.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statsLocked()
}

func (e *Engine) statsLocked() Stats {
	return Stats{
		Announced:       len(e.dedup.announced),
		Retracted:       len(e.dedup.retracted),
		TrackedItems:    len(e.registry.entries),
		TrackedMessages: e.registry.Len(),
		LastTick:        e.lastTick,
	}
}

func (e *Engine) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = e.now().UTC()
	}
	e.observer.Observe(ev)
}
