// Package server exposes the ops HTTP endpoints:
//
//	/health       engine state sizes and last tick outcome
//	/metrics      Prometheus scrape endpoint
//	/events       WebSocket stream of engine events
//	/debug/state  full engine state as JSON
package server
