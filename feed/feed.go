// Package feed supplies headlines to the pipeline.
package feed

import (
	"context"
	"time"
)

// DefaultQuery is the news search used when none is configured.
const DefaultQuery = "lithium mining geopolitics tax OR copper strike"

// DefaultLimit caps the number of headlines taken from one fetch.
const DefaultLimit = 10

// Item is one headline with its link.
type Item struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Published time.Time `json:"published,omitzero"`
}

// Source returns at most limit items for query, in feed order.
type Source interface {
	Fetch(ctx context.Context, query string, limit int) ([]Item, error)
}

// Static is a Source that always returns the same items, truncated to the
// requested limit. It serves headline files and manual runs.
type Static []Item

// Fetch implements Source.
func (s Static) Fetch(_ context.Context, _ string, limit int) ([]Item, error) {
	items := []Item(s)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
