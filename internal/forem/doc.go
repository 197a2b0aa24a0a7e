// Package forem provides a client for the Forem articles REST API.
//
// Endpoints used:
//   - GET /api/articles/latest (public)
//   - GET /api/articles/{id}
//   - PUT /api/articles/{id} (requires api-key)
//
// Default base URL: https://www.xdc.dev
package forem
