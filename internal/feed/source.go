package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rickgao/feedwarden/internal/engine"
	"github.com/rickgao/feedwarden/internal/forem"
	"github.com/rickgao/feedwarden/internal/model"
)

// Client is the subset of the Forem client used by Source.
type Client interface {
	GetLatestArticles(ctx context.Context, opts forem.LatestOptions) ([]forem.APIArticle, error)
	GetArticle(ctx context.Context, id string) (*forem.APIArticle, error)
	UnpublishArticle(ctx context.Context, id string) error
	BaseURL() string
	HasAPIKey() bool
}

// Source implements engine.FeedSource on top of the Forem API.
type Source struct {
	client Client
	logger *slog.Logger
}

// NewSource creates a feed source.
func NewSource(client Client, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{client: client, logger: logger}
}

// FetchLatest returns at most limit items, newest first.
// Any transport or decoding failure wraps engine.ErrFeedUnavailable.
func (s *Source) FetchLatest(ctx context.Context, limit int) ([]model.Item, error) {
	articles, err := s.client.GetLatestArticles(ctx, forem.LatestOptions{PerPage: limit})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrFeedUnavailable, err)
	}

	items := Normalize(articles, s.client.BaseURL())
	if dropped := len(articles) - len(items); dropped > 0 {
		s.logger.Debug("dropped unusable feed entries", "count", dropped)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// ItemDetail returns the author handle and slug of an article.
func (s *Source) ItemDetail(ctx context.Context, id string) (model.ItemDetail, error) {
	article, err := s.client.GetArticle(ctx, id)
	if err != nil {
		return model.ItemDetail{}, fmt.Errorf("%w: %w", engine.ErrDetailFetchFailed, err)
	}
	return model.ItemDetail{
		ID:    id,
		Owner: article.User.Username,
		Slug:  article.Slug,
	}, nil
}

// Unpublish sets published=false on an article.
func (s *Source) Unpublish(ctx context.Context, id string) error {
	if err := s.client.UnpublishArticle(ctx, id); err != nil {
		if errors.Is(err, forem.ErrMissingAPIKey) {
			return fmt.Errorf("%w: %w: %w", engine.ErrUnpublishFailed, engine.ErrMissingCredentials, err)
		}
		return fmt.Errorf("%w: %w", engine.ErrUnpublishFailed, err)
	}
	return nil
}

// HasCredentials reports whether the source can unpublish.
func (s *Source) HasCredentials() bool {
	return s.client.HasAPIKey()
}

// Normalize converts API articles to items. Entries without an id are
// dropped and duplicate ids keep their first occurrence. Order is preserved.
func Normalize(articles []forem.APIArticle, baseURL string) []model.Item {
	items := make([]model.Item, 0, len(articles))
	seen := make(map[string]struct{}, len(articles))

	for _, a := range articles {
		id := strings.TrimSpace(a.ID.String())
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		items = append(items, model.Item{
			ID:    id,
			Title: strings.TrimSpace(a.Title),
			Link:  articleLink(a, baseURL),
		})
	}
	return items
}

// articleLink prefers the absolute url and falls back to base URL + path.
func articleLink(a forem.APIArticle, baseURL string) string {
	if u := strings.TrimSpace(a.URL); u != "" {
		return u
	}
	path := strings.TrimSpace(a.Path)
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(baseURL, "/") + path
}
