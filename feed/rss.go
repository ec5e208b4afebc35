package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// GoogleNewsSearchURL is the RSS search endpoint queries are appended to.
const GoogleNewsSearchURL = "https://news.google.com/rss/search?q="

const defaultFetchTimeout = 30 * time.Second

// RSS fetches headlines from an RSS or Atom feed.
type RSS struct {
	parser  *gofeed.Parser
	baseURL string
}

// RSSOption configures an RSS source.
type RSSOption func(*RSS)

// WithHTTPClient replaces the HTTP client used for fetching.
func WithHTTPClient(c *http.Client) RSSOption {
	return func(r *RSS) { r.parser.Client = c }
}

// WithSearchURL replaces the search endpoint. The escaped query is appended
// to it.
func WithSearchURL(base string) RSSOption {
	return func(r *RSS) { r.baseURL = base }
}

// NewRSS creates an RSS source backed by Google News search.
func NewRSS(opts ...RSSOption) *RSS {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: defaultFetchTimeout}
	p.UserAgent = "georisk/1.0"

	r := &RSS{parser: p, baseURL: GoogleNewsSearchURL}
	for _, o := range opts {
		o(r)
	}
	return r
}

// URL returns the feed URL for query. A query that is already an http(s)
// URL is used as is.
func (r *RSS) URL(query string) string {
	if strings.HasPrefix(query, "http://") || strings.HasPrefix(query, "https://") {
		return query
	}
	if query == "" {
		query = DefaultQuery
	}
	return r.baseURL + url.QueryEscape(query)
}

// Fetch implements Source. Entries without a title are dropped.
func (r *RSS) Fetch(ctx context.Context, query string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	target := r.URL(query)
	parsed, err := r.parser.ParseURLWithContext(target, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}

	items := make([]Item, 0, min(limit, len(parsed.Items)))
	for _, entry := range parsed.Items {
		if len(items) == limit {
			break
		}
		title := strings.TrimSpace(entry.Title)
		if title == "" {
			continue
		}
		item := Item{Title: title, Link: strings.TrimSpace(entry.Link)}
		if entry.PublishedParsed != nil {
			item.Published = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			item.Published = *entry.UpdatedParsed
		}
		items = append(items, item)
	}
	return items, nil
}
