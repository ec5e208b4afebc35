package georisk

import (
	"errors"

	"github.com/brunobiangulo/georisk/extract"
	"github.com/brunobiangulo/georisk/graph"
)

var (
	// ErrFetchFailure is returned by Run when the feed is unreachable or
	// returns no headlines. It is the only error that ends a run.
	ErrFetchFailure = errors.New("georisk: headline fetch failed")

	// ErrExtractionFailure marks a headline whose model call failed or
	// returned nothing.
	ErrExtractionFailure = errors.New("georisk: extraction failed")

	// ErrMalformedResponse marks a model reply without the four
	// pipe-delimited fields.
	ErrMalformedResponse = extract.ErrMalformedResponse

	// ErrInvalidScore marks a reply whose score is not an integer.
	ErrInvalidScore = graph.ErrInvalidScore

	// ErrGraphWrite marks a failed graph store call.
	ErrGraphWrite = graph.ErrGraphWrite

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("georisk: invalid configuration")

	// ErrNoEmbedder is returned by similarity search when no embedding
	// provider or vector index is configured.
	ErrNoEmbedder = errors.New("georisk: embeddings not configured")
)
