package engine

import (
	"sort"

	"github.com/rickgao/feedwarden/internal/model"
)

// MessageRegistry maps item ids to the messages currently displayed for them.
// A destination holds at most one live message per item.
// It is not safe for concurrent use; Engine serializes access.
type MessageRegistry struct {
	entries map[string][]model.MessageRef
}

// NewMessageRegistry creates an empty registry.
func NewMessageRegistry() *MessageRegistry {
	return &MessageRegistry{entries: make(map[string][]model.MessageRef)}
}

// Record stores ref for itemID. An existing entry for the same destination
// is replaced in place and returned.
func (r *MessageRegistry) Record(itemID string, ref model.MessageRef) (replaced model.MessageRef, ok bool) {
	refs := r.entries[itemID]
	for i, existing := range refs {
		if existing.Destination == ref.Destination {
			refs[i] = ref
			return existing, true
		}
	}
	r.entries[itemID] = append(refs, ref)
	return model.MessageRef{}, false
}

// EntriesFor returns a copy of the live entries for itemID, in record order.
func (r *MessageRegistry) EntriesFor(itemID string) []model.MessageRef {
	refs := r.entries[itemID]
	if len(refs) == 0 {
		return nil
	}
	out := make([]model.MessageRef, len(refs))
	copy(out, refs)
	return out
}

// Clear removes the mapping for itemID and returns what it held.
func (r *MessageRegistry) Clear(itemID string) []model.MessageRef {
	refs := r.entries[itemID]
	delete(r.entries, itemID)
	return refs
}

// Items returns the tracked item ids in sorted order.
func (r *MessageRegistry) Items() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live messages across all items.
func (r *MessageRegistry) Len() int {
	n := 0
	for _, refs := range r.entries {
		n += len(refs)
	}
	return n
}

// snapshot returns a deep copy of the mapping.
func (r *MessageRegistry) snapshot() map[string][]model.MessageRef {
	out := make(map[string][]model.MessageRef, len(r.entries))
	for id, refs := range r.entries {
		cp := make([]model.MessageRef, len(refs))
		copy(cp, refs)
		out[id] = cp
	}
	return out
}

// restore replaces the contents with a persisted mapping, dropping
// duplicate destinations (last one wins) and empty entries.
func (r *MessageRegistry) restore(entries map[string][]model.MessageRef) {
	r.entries = make(map[string][]model.MessageRef, len(entries))
	for id, refs := range entries {
		for _, ref := range refs {
			r.Record(id, ref)
		}
	}
}
