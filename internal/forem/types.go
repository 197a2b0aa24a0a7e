package forem

import (
	"encoding/json"
	"time"
)

// APIArticle is an article as returned by the Forem API.
// List and detail responses share this shape; detail responses fill more fields.
type APIArticle struct {
	ID                   json.Number `json:"id"`
	Title                string      `json:"title"`
	Description          string      `json:"description"`
	URL                  string      `json:"url"`
	Path                 string      `json:"path"`
	Slug                 string      `json:"slug"`
	Published            *bool       `json:"published,omitempty"`
	PublishedAt          *time.Time  `json:"published_at,omitempty"`
	ReadablePublishDate  string      `json:"readable_publish_date"`
	CommentsCount        int         `json:"comments_count"`
	PublicReactionsCount int         `json:"public_reactions_count"`
	User                 APIUser     `json:"user"`
}

// APIUser is the author of an article.
type APIUser struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// LatestOptions are the query parameters of GET /api/articles/latest.
type LatestOptions struct {
	Page    int
	PerPage int
}

// unpublishRequest is the body of the unpublish call.
type unpublishRequest struct {
	Article unpublishFields `json:"article"`
}

type unpublishFields struct {
	Published bool `json:"published"`
}
