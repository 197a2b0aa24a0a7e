// Package poller schedules engine ticks.
//
// The poller:
//   - Ticks once immediately on start, then on every interval
//   - Bounds each tick with a timeout
//   - Skips a trigger while the previous tick is still running
package poller
