// Package georisk turns news headlines into a geopolitical supply-risk
// knowledge graph. Each headline is analyzed by a language model, the
// pipe-delimited reply is parsed into a Signal, the same-day hype of its
// mineral is computed, and an Article linked to its Country and Mineral is
// written to the graph store.
package georisk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brunobiangulo/georisk/extract"
	"github.com/brunobiangulo/georisk/feed"
	"github.com/brunobiangulo/georisk/graph"
	"github.com/brunobiangulo/georisk/llm"
	"github.com/brunobiangulo/georisk/store"
)

// Engine is the main entry point of the pipeline.
type Engine interface {
	// Run fetches headlines and processes each one in order. Per-headline
	// failures are recorded in the Report; only ErrFetchFailure (or context
	// cancellation) returns an error.
	Run(ctx context.Context) (*Report, error)

	// Process runs one headline through extraction, parsing, hype and
	// storage.
	Process(ctx context.Context, item feed.Item) ItemResult

	// Preview runs extraction, parsing and hype for a headline without
	// writing anything.
	Preview(ctx context.Context, headline string) ItemResult

	// Articles returns stored Articles for a day ("" for all).
	Articles(ctx context.Context, date string) ([]store.Article, error)

	// Hype returns per-mineral hype summaries for a day ("" for all).
	Hype(ctx context.Context, date string) ([]store.MineralHype, error)

	// Exposure lists the countries linked to a mineral.
	Exposure(ctx context.Context, mineral string) ([]store.Exposure, error)

	// Similar finds stored Articles closest to text. Needs an embedding
	// provider and a vector-capable store.
	Similar(ctx context.Context, text string, k int) ([]store.ScoredArticle, error)

	// Stats returns node and edge counts.
	Stats(ctx context.Context) (*store.Stats, error)

	// Today returns the current calendar day in the configured timezone.
	Today() string

	// Close releases the graph store if the engine opened it.
	Close() error
}

// Option overrides a collaborator New would otherwise build from Config.
type Option func(*engine)

// WithSource sets the headline source.
func WithSource(s feed.Source) Option {
	return func(e *engine) { e.source = s }
}

// WithChat sets the chat provider used for headline analysis.
func WithChat(p llm.Provider) Option {
	return func(e *engine) { e.chatLLM = p }
}

// WithEmbedder sets the embedding provider.
func WithEmbedder(p llm.Provider) Option {
	return func(e *engine) { e.embedLLM = p }
}

// WithGraph sets the graph store. The caller keeps ownership and must close
// it.
func WithGraph(g store.Graph) Option {
	return func(e *engine) {
		e.graph = g
		e.ownsGraph = false
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *engine) { e.now = now }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *engine) { e.log = l }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg       Config
	loc       *time.Location
	source    feed.Source
	chatLLM   llm.Provider
	embedLLM  llm.Provider
	analyzer  *extract.Analyzer
	graph     store.Graph
	ownsGraph bool
	builder   *graph.Builder
	now       func() time.Time
	log       *slog.Logger
}

// New validates cfg and wires the pipeline. Collaborators not supplied via
// options are built from cfg. The graph store is opened last.
func New(ctx context.Context, cfg Config, opts ...Option) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.location()
	if err != nil {
		return nil, fmt.Errorf("%w: timezone: %w", ErrInvalidConfig, err)
	}

	e := &engine{
		cfg:       cfg,
		loc:       loc,
		ownsGraph: true,
		now:       time.Now,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}

	if e.source == nil {
		if cfg.Feed.Path != "" {
			e.source = feed.NewFile(cfg.Feed.Path)
		} else {
			e.source = feed.NewRSS()
		}
	}

	if e.chatLLM == nil {
		e.chatLLM, err = llm.NewProvider(cfg.Chat)
		if err != nil {
			return nil, fmt.Errorf("creating chat provider: %w", err)
		}
	}
	e.analyzer = extract.NewAnalyzer(e.chatLLM, cfg.Chat.Model)

	if e.embedLLM == nil && cfg.Embedding.Provider != "" {
		e.embedLLM, err = llm.NewProvider(cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("creating embedding provider: %w", err)
		}
	}

	if e.graph == nil {
		e.graph, err = store.Open(ctx, store.Options{
			URI:          cfg.Storage.URI,
			Username:     cfg.Storage.Username,
			Password:     cfg.Storage.Password,
			Database:     cfg.Storage.Database,
			EmbeddingDim: cfg.Storage.EmbeddingDim,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: opening store: %w", ErrGraphWrite, err)
		}
	}
	e.builder = graph.NewBuilder(e.graph)

	return e, nil
}

// Articles implements Engine.
func (e *engine) Articles(ctx context.Context, date string) ([]store.Article, error) {
	return e.graph.ListArticles(ctx, date)
}

// Hype implements Engine.
func (e *engine) Hype(ctx context.Context, date string) ([]store.MineralHype, error) {
	return e.graph.MineralHype(ctx, date)
}

// Exposure implements Engine.
func (e *engine) Exposure(ctx context.Context, mineral string) ([]store.Exposure, error) {
	return e.graph.Exposure(ctx, mineral)
}

// Stats implements Engine.
func (e *engine) Stats(ctx context.Context) (*store.Stats, error) {
	return e.graph.Stats(ctx)
}

// Similar implements Engine.
func (e *engine) Similar(ctx context.Context, text string, k int) ([]store.ScoredArticle, error) {
	idx, ok := e.vectorIndex()
	if !ok {
		return nil, ErrNoEmbedder
	}
	vecs, err := e.embedLLM.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embedding query: empty vector")
	}
	return idx.SimilarArticles(ctx, vecs[0], k)
}

// Today implements Engine.
func (e *engine) Today() string {
	return graph.Day(e.clock())
}

// Close implements Engine.
func (e *engine) Close() error {
	if !e.ownsGraph || e.graph == nil {
		return nil
	}
	return e.graph.Close()
}

// clock reads the current instant in the configured timezone.
func (e *engine) clock() time.Time {
	return e.now().In(e.loc)
}

func (e *engine) vectorIndex() (store.VectorIndex, bool) {
	if e.embedLLM == nil {
		return nil, false
	}
	idx, ok := e.graph.(store.VectorIndex)
	return idx, ok
}

// embedArticle stores the headline embedding for a new Article. Failures
// are logged; the Article is already committed.
func (e *engine) embedArticle(ctx context.Context, log *slog.Logger, articleID int64, text string) {
	idx, ok := e.vectorIndex()
	if !ok {
		return
	}
	vecs, err := e.embedLLM.Embed(ctx, []string{text})
	if err == nil && (len(vecs) == 0 || len(vecs[0]) == 0) {
		err = fmt.Errorf("empty vector")
	}
	if err == nil {
		err = idx.InsertArticleEmbedding(ctx, articleID, vecs[0])
	}
	if err != nil {
		log.Warn("pipeline: embedding failed", "article_id", articleID, "error", err)
	}
}
