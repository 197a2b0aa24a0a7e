// Package database provides PostgreSQL connection pool management for the
// postgres storage backend.
package database
