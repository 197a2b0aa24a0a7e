// Package model defines shared data types used across feedwarden.
//
// Conventions:
//   - Item IDs are opaque strings; the Forem numeric id is stringified at the edge.
//   - Destinations are transport chat identifiers kept as strings.
//   - Message handles are opaque strings assigned by the transport.
//   - Timestamps are time.Time in UTC.
package model
