// Package metrics exports engine activity as Prometheus metrics.
//
// Key metrics:
//   - Tick outcomes and durations
//   - Per-destination delivery results
//   - Retraction outcomes and failed message deletions
//   - Persistence failures
package metrics
