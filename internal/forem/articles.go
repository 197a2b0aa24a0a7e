package forem

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetLatestArticles fetches the most recently published articles, newest first.
func (c *Client) GetLatestArticles(ctx context.Context, opts LatestOptions) ([]APIArticle, error) {
	query := url.Values{}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(opts.PerPage))
	}

	var articles []APIArticle
	if err := c.get(ctx, "/api/articles/latest", query, false, &articles); err != nil {
		return nil, fmt.Errorf("get latest articles: %w", err)
	}

	return articles, nil
}

// GetArticle fetches a single article by id.
func (c *Client) GetArticle(ctx context.Context, id string) (*APIArticle, error) {
	var article APIArticle
	if err := c.get(ctx, "/api/articles/"+url.PathEscape(id), nil, true, &article); err != nil {
		return nil, fmt.Errorf("get article %s: %w", id, err)
	}
	return &article, nil
}

// UnpublishArticle sets published=false on an article. The call is made once.
func (c *Client) UnpublishArticle(ctx context.Context, id string) error {
	payload := unpublishRequest{Article: unpublishFields{Published: false}}
	if err := c.put(ctx, "/api/articles/"+url.PathEscape(id), payload, nil); err != nil {
		return fmt.Errorf("unpublish article %s: %w", id, err)
	}
	return nil
}
