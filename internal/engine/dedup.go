package engine

import (
	"sort"

	"github.com/rickgao/feedwarden/internal/model"
)

// DedupStore tracks item ids that were announced or retracted.
// It is not safe for concurrent use; Engine serializes access.
type DedupStore struct {
	announced map[string]struct{}
	retracted map[string]model.RetractionRecord
}

// NewDedupStore creates an empty store.
func NewDedupStore() *DedupStore {
	return &DedupStore{
		announced: make(map[string]struct{}),
		retracted: make(map[string]model.RetractionRecord),
	}
}

// IsKnown reports whether id was announced or retracted.
func (d *DedupStore) IsKnown(id string) bool {
	if _, ok := d.announced[id]; ok {
		return true
	}
	_, ok := d.retracted[id]
	return ok
}

// IsRetracted reports whether id was retracted.
func (d *DedupStore) IsRetracted(id string) bool {
	_, ok := d.retracted[id]
	return ok
}

// MarkAnnounced adds id to the announced set. Returns false if it was already there.
func (d *DedupStore) MarkAnnounced(id string) bool {
	if _, ok := d.announced[id]; ok {
		return false
	}
	d.announced[id] = struct{}{}
	return true
}

// MarkRetracted records a retraction. The first record for an id wins;
// returns false if the id was already retracted.
func (d *DedupStore) MarkRetracted(rec model.RetractionRecord) bool {
	if _, ok := d.retracted[rec.ItemID]; ok {
		return false
	}
	d.retracted[rec.ItemID] = rec
	return true
}

// Retraction returns the audit record for id.
func (d *DedupStore) Retraction(id string) (model.RetractionRecord, bool) {
	rec, ok := d.retracted[id]
	return rec, ok
}

// Announced returns the announced ids in sorted order.
func (d *DedupStore) Announced() []string {
	ids := make([]string, 0, len(d.announced))
	for id := range d.announced {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Retracted returns the retraction records ordered by time, then id.
func (d *DedupStore) Retracted() []model.RetractionRecord {
	recs := make([]model.RetractionRecord, 0, len(d.retracted))
	for _, r := range d.retracted {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].RetractedAt.Equal(recs[j].RetractedAt) {
			return recs[i].RetractedAt.Before(recs[j].RetractedAt)
		}
		return recs[i].ItemID < recs[j].ItemID
	})
	return recs
}

// restore replaces the contents with previously persisted records.
func (d *DedupStore) restore(announced []string, retracted []model.RetractionRecord) {
	d.announced = make(map[string]struct{}, len(announced))
	for _, id := range announced {
		if id != "" {
			d.announced[id] = struct{}{}
		}
	}
	d.retracted = make(map[string]model.RetractionRecord, len(retracted))
	for _, r := range retracted {
		if r.ItemID != "" {
			d.retracted[r.ItemID] = r
		}
	}
}
