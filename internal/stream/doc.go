// Package stream pushes engine events to WebSocket subscribers.
//
// Every event is encoded once and fanned out to all connected clients.
// A client whose send buffer is full is disconnected rather than allowed
// to slow down the engine.
package stream
