// Package feed adapts the Forem articles API to the engine's feed source.
//
// FetchLatest normalizes the latest-articles listing into model.Item values,
// newest first. ItemDetail and Unpublish back the retraction flow.
package feed
