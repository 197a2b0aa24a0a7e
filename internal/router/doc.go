// Package router dispatches inbound button presses to the retraction flow.
//
// Actions arrive on a channel fed by the transport listener. Each action
// whose data is a well-formed retract token becomes an
// engine.RetractionRequest; anything else is counted and ignored.
package router
