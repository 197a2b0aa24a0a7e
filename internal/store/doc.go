// Package store opens the persistence backend selected by configuration.
//
// Every backend keeps three independent records: announced item ids,
// retraction records, and the item to message mapping. A record that was
// never written loads empty.
package store
