// Package store persists the risk knowledge graph: Country and Mineral
// entities, Article records, and the two relationships linking each Article
// to them. Backends: SQLite (with optional sqlite-vec article embeddings),
// Neo4j, and an in-memory graph for dry runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Entity kinds.
const (
	KindCountry = "country"
	KindMineral = "mineral"
)

// Relationship types. An Article has exactly one of each.
const (
	RelAffectsSupplyIn  = "AFFECTS_SUPPLY_IN"
	RelConcernsResource = "CONCERNS_RESOURCE"
)

var (
	// ErrUnsupportedURI is returned by Open for a URI scheme no backend handles.
	ErrUnsupportedURI = errors.New("georisk: unsupported storage uri")
	// ErrNoVectorIndex is returned by vector operations when the store was
	// opened without an embedding dimension.
	ErrNoVectorIndex = errors.New("georisk: vector index not configured")
)

// Entity is a Country or Mineral node. Entities are content-addressed by
// (name, kind).
type Entity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Article is one processed headline. Country and Mineral name the entities
// the Article is linked to.
type Article struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Risk      int       `json:"risk"`
	Hype      int       `json:"hype"`
	History   string    `json:"history"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
	Country   string    `json:"country"`
	Mineral   string    `json:"mineral"`
}

// MineralHype summarises the Articles concerning one mineral on one day.
type MineralHype struct {
	Mineral  string  `json:"mineral"`
	Date     string  `json:"date"`
	Articles int     `json:"articles"`
	MaxHype  int     `json:"max_hype"`
	AvgRisk  float64 `json:"avg_risk"`
}

// Exposure summarises how often a country appears alongside a mineral.
type Exposure struct {
	Country  string  `json:"country"`
	Articles int     `json:"articles"`
	AvgRisk  float64 `json:"avg_risk"`
	MaxRisk  int     `json:"max_risk"`
}

// ScoredArticle is a vector search hit.
type ScoredArticle struct {
	Article
	Score float64 `json:"score"`
}

// Stats holds node and edge counts.
type Stats struct {
	Countries int `json:"countries"`
	Minerals  int `json:"minerals"`
	Articles  int `json:"articles"`
	Edges     int `json:"edges"`
}

// Graph is the storage contract of the pipeline.
type Graph interface {
	// CountArticlesForMineral counts Articles with the given date linked
	// via CONCERNS_RESOURCE to the named mineral.
	CountArticlesForMineral(ctx context.Context, mineral, date string) (int, error)

	// WriteArticle merges the Country and Mineral named by a, creates a new
	// Article, and links it to both, all in one transaction. It returns the
	// new Article's ID.
	WriteArticle(ctx context.Context, a Article) (int64, error)

	// ListArticles returns Articles for date, or all Articles when date is
	// empty, oldest first.
	ListArticles(ctx context.Context, date string) ([]Article, error)

	// MineralHype groups Articles by mineral and day. An empty date covers
	// every day.
	MineralHype(ctx context.Context, date string) ([]MineralHype, error)

	// Exposure lists the countries co-mentioned with a mineral.
	Exposure(ctx context.Context, mineral string) ([]Exposure, error)

	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// VectorIndex is implemented by backends that can store article embeddings.
type VectorIndex interface {
	InsertArticleEmbedding(ctx context.Context, articleID int64, embedding []float32) error
	SimilarArticles(ctx context.Context, embedding []float32, k int) ([]ScoredArticle, error)
}

// Options configures Open.
type Options struct {
	URI          string
	Username     string
	Password     string
	Database     string
	EmbeddingDim int
}

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendNeo4j  = "neo4j"
	BackendMemory = "memory"
)

var neo4jSchemes = []string{"neo4j", "neo4j+s", "neo4j+ssc", "bolt", "bolt+s", "bolt+ssc"}

// ResolveURI maps a storage URI to a backend and its target. Neo4j URIs are
// returned unchanged; sqlite:// URIs and bare paths resolve to a file path;
// memory:// selects the in-process graph.
func ResolveURI(uri string) (backend, target string, err error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", "", fmt.Errorf("%w: empty", ErrUnsupportedURI)
	}

	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return BackendSQLite, uri, nil
	}
	scheme = strings.ToLower(scheme)
	if scheme == "memory" {
		return BackendMemory, "", nil
	}
	if scheme == "sqlite" || scheme == "sqlite3" {
		if rest == "" {
			return "", "", fmt.Errorf("%w: %s has no path", ErrUnsupportedURI, uri)
		}
		return BackendSQLite, rest, nil
	}
	for _, s := range neo4jSchemes {
		if scheme == s {
			return BackendNeo4j, uri, nil
		}
	}
	return "", "", fmt.Errorf("%w: scheme %q", ErrUnsupportedURI, scheme)
}

// Open connects to the backend named by opts.URI and ensures its schema.
func Open(ctx context.Context, opts Options) (Graph, error) {
	backend, target, err := ResolveURI(opts.URI)
	if err != nil {
		return nil, err
	}
	switch backend {
	case BackendNeo4j:
		return NewNeo4j(ctx, target, opts.Username, opts.Password, opts.Database)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return NewSQLite(target, opts.EmbeddingDim)
	}
}
