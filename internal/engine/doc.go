// Package engine implements the article notification and retraction engine.
//
// The engine owns three pieces of state:
//   - Dedup Store: item ids already announced, and item ids retracted (with audit metadata)
//   - Message Registry: item id -> displayed messages (destination, handle)
//
// Both structures live behind a single mutex. Ticks (poll, filter, announce,
// persist) and retractions (authorize, fetch details, unpublish, clean up,
// acknowledge) are the only writers. Network calls are made outside the lock
// and bounded by per-request timeouts.
//
// Delivery policy: an item is marked announced once fan-out to every
// destination has been attempted, whatever the individual outcomes.
// Destinations whose send failed never receive that item.
package engine
