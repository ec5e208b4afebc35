// Package graph turns parsed signals into knowledge-graph writes: it
// computes the same-day hype for a mineral and upserts the Article with its
// Country and Mineral links.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brunobiangulo/georisk/extract"
	"github.com/brunobiangulo/georisk/store"
)

var (
	// ErrInvalidScore is returned by Upsert when the score is not an integer.
	ErrInvalidScore = errors.New("georisk: invalid risk score")
	// ErrGraphWrite wraps any failure of the graph store.
	ErrGraphWrite = errors.New("georisk: graph store error")
)

// Builder writes signals into a graph store.
type Builder struct {
	store store.Graph
}

// NewBuilder creates a Builder on top of s.
func NewBuilder(s store.Graph) *Builder {
	return &Builder{store: s}
}

// Hype returns the number of Articles concerning mineral dated on the day of
// asOf, plus one for the Article about to be written. It never writes.
func (b *Builder) Hype(ctx context.Context, mineral string, asOf time.Time) (int, error) {
	n, err := b.store.CountArticlesForMineral(ctx, mineral, Day(asOf))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrGraphWrite, err)
	}
	return n + 1, nil
}

// Upsert merges the signal's Country and Mineral, creates a new Article
// dated at, and links it to both, in one store transaction.
//
// A score that is not an integer fails with ErrInvalidScore before anything
// is written. Integers outside [MinRisk, MaxRisk] are logged and stored
// unchanged.
func (b *Builder) Upsert(ctx context.Context, sig extract.Signal, hype int, at time.Time) (int64, error) {
	risk, inRange, err := ParseScore(sig.Score)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidScore, sig.Score)
	}
	if !inRange {
		slog.Warn("graph: risk score out of range, storing as given",
			"score", risk, "min", MinRisk, "max", MaxRisk,
			"country", sig.Country, "mineral", sig.Mineral)
	}

	start := time.Now()
	id, err := b.store.WriteArticle(ctx, store.Article{
		Title:     sig.Headline,
		Link:      sig.Link,
		Risk:      risk,
		Hype:      hype,
		History:   sig.HistoricalNote,
		Date:      Day(at),
		Timestamp: at,
		Country:   sig.Country,
		Mineral:   sig.Mineral,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrGraphWrite, err)
	}

	slog.Debug("graph: article stored",
		"article_id", id, "country", sig.Country, "mineral", sig.Mineral,
		"risk", risk, "hype", hype,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return id, nil
}
