package georisk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/brunobiangulo/georisk/extract"
	"github.com/brunobiangulo/georisk/feed"
	"github.com/brunobiangulo/georisk/graph"
)

// State is where a headline ended up in the pipeline.
type State string

// Headline states, in pipeline order. Skipped is terminal and may follow
// any earlier state.
const (
	StateFetched    State = "fetched"
	StateExtracted  State = "extracted"
	StateParsed     State = "parsed"
	StateAggregated State = "aggregated"
	StateStored     State = "stored"
	StateSkipped    State = "skipped"
)

// Stage names the step a skipped headline failed in.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageParse     Stage = "parse"
	StageAggregate Stage = "aggregate"
	StageStore     Stage = "store"
)

// ItemResult is the outcome of one headline.
type ItemResult struct {
	Headline  string          `json:"headline"`
	Link      string          `json:"link,omitempty"`
	State     State           `json:"state"`
	Stage     Stage           `json:"stage,omitempty"`
	Err       error           `json:"-"`
	Error     string          `json:"error,omitempty"`
	Raw       string          `json:"raw,omitempty"`
	Signal    *extract.Signal `json:"signal,omitempty"`
	Hype      int             `json:"hype,omitempty"`
	Date      string          `json:"date,omitempty"`
	ArticleID int64           `json:"article_id,omitempty"`
	Elapsed   time.Duration   `json:"elapsed"`
}

// Report summarises a run.
type Report struct {
	RunID    string        `json:"run_id"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Fetched  int           `json:"fetched"`
	Stored   int           `json:"stored"`
	Skipped  int           `json:"skipped"`
	Items    []ItemResult  `json:"items"`
	SkipsBy  map[Stage]int `json:"skips_by_stage,omitempty"`
}

func (r *Report) add(res ItemResult) {
	r.Items = append(r.Items, res)
	switch res.State {
	case StateStored:
		r.Stored++
	case StateSkipped:
		r.Skipped++
		if r.SkipsBy == nil {
			r.SkipsBy = make(map[Stage]int)
		}
		r.SkipsBy[res.Stage]++
	}
}

// Run implements Engine.
func (e *engine) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Started: time.Now()}
	log := e.log.With("run_id", report.RunID)

	items, err := e.fetch(ctx)
	if err != nil {
		report.Finished = time.Now()
		log.Error("pipeline: fetch failed", "error", err)
		return report, err
	}
	report.Fetched = len(items)
	log.Info("pipeline: run started", "headlines", len(items), "item_delay", e.cfg.ItemDelay)

	var limiter *rate.Limiter
	if e.cfg.ItemDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(e.cfg.ItemDelay), 1)
	}

	for i, item := range items {
		err := ctx.Err()
		if err == nil && limiter != nil {
			err = limiter.Wait(ctx)
		}
		if err != nil {
			for _, rest := range items[i:] {
				report.add(e.skip(log, ItemResult{Headline: rest.Title, Link: rest.Link, State: StateFetched}, StageExtract, err))
			}
			report.Finished = time.Now()
			return report, fmt.Errorf("run interrupted: %w", err)
		}
		report.add(e.process(ctx, log, item, true))
	}
	if err := ctx.Err(); err != nil {
		report.Finished = time.Now()
		return report, fmt.Errorf("run interrupted: %w", err)
	}

	report.Finished = time.Now()
	log.Info("pipeline: run finished",
		"fetched", report.Fetched, "stored", report.Stored, "skipped", report.Skipped,
		"elapsed", report.Finished.Sub(report.Started).Round(time.Millisecond))
	return report, nil
}

// Process implements Engine.
func (e *engine) Process(ctx context.Context, item feed.Item) ItemResult {
	return e.process(ctx, e.log, item, true)
}

// Preview implements Engine.
func (e *engine) Preview(ctx context.Context, headline string) ItemResult {
	return e.process(ctx, e.log, feed.Item{Title: headline}, false)
}

func (e *engine) fetch(ctx context.Context) ([]feed.Item, error) {
	fetchCtx := ctx
	if e.cfg.Feed.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, e.cfg.Feed.Timeout)
		defer cancel()
	}

	limit := e.cfg.Feed.MaxHeadlines
	if limit == 0 {
		limit = feed.DefaultLimit
	}
	items, err := e.source.Fetch(fetchCtx, e.cfg.Feed.Query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailure, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: feed returned no headlines", ErrFetchFailure)
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// process moves one headline through the state machine. With write unset
// it stops after the hype is computed.
func (e *engine) process(ctx context.Context, log *slog.Logger, item feed.Item, write bool) ItemResult {
	start := time.Now()
	res := ItemResult{Headline: item.Title, Link: item.Link, State: StateFetched}
	done := func(r ItemResult) ItemResult {
		r.Elapsed = time.Since(start).Round(time.Millisecond)
		return r
	}

	raw, err := e.analyzer.Analyze(ctx, item.Title)
	if err != nil {
		return done(e.skip(log, res, StageExtract, fmt.Errorf("%w: %w", ErrExtractionFailure, err)))
	}
	res.State = StateExtracted
	res.Raw = raw

	sig, err := extract.Parse(raw)
	if err != nil {
		return done(e.skip(log, res, StageParse, err))
	}
	sig.Headline = item.Title
	sig.Link = item.Link
	res.State = StateParsed
	res.Signal = &sig

	// One clock read feeds both the hype query and the stored date.
	now := e.clock()
	res.Date = graph.Day(now)

	hype, err := e.builder.Hype(ctx, sig.Mineral, now)
	if err != nil {
		return done(e.skip(log, res, StageAggregate, err))
	}
	res.State = StateAggregated
	res.Hype = hype

	if !write {
		return done(res)
	}

	id, err := e.builder.Upsert(ctx, sig, hype, now)
	if err != nil {
		return done(e.skip(log, res, StageStore, err))
	}
	res.State = StateStored
	res.ArticleID = id

	e.embedArticle(ctx, log, id, item.Title)

	log.Info("pipeline: headline stored",
		"headline", item.Title, "article_id", id,
		"country", sig.Country, "mineral", sig.Mineral, "score", sig.Score, "hype", hype,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return done(res)
}

// skip marks res as skipped at stage and logs why.
func (e *engine) skip(log *slog.Logger, res ItemResult, stage Stage, err error) ItemResult {
	level := slog.LevelWarn
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		level = slog.LevelInfo
	}
	log.Log(context.Background(), level, "pipeline: headline skipped",
		"headline", res.Headline, "stage", stage, "reached", res.State, "error", err)

	res.State = StateSkipped
	res.Stage = stage
	res.Err = err
	if err != nil {
		res.Error = err.Error()
	}
	return res
}
