//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, dim int) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"), dim)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var testTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleArticle(country, mineral string, risk int) Article {
	return Article{
		Title:     country + " moves on " + mineral,
		Link:      "https://news.example.com/" + country,
		Risk:      risk,
		Hype:      1,
		History:   "Echoes an earlier nationalization",
		Date:      "2026-03-14",
		Timestamp: testTime,
		Country:   country,
		Mineral:   mineral,
	}
}

func TestNewSQLite(t *testing.T) {
	s := newTestStore(t, 0)
	assert.Equal(t, 0, s.EmbeddingDim())

	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].version, v)
}

func TestNewSQLiteCreatesParentDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "dir", "graph.db")
	s, err := NewSQLite(dbPath, 0)
	require.NoError(t, err)
	s.Close()
}

func TestReopenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "graph.db")
	s, err := NewSQLite(dbPath, 4)
	require.NoError(t, err)
	_, err = s.WriteArticle(context.Background(), sampleArticle("Chile", "Lithium", 8))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLite(dbPath, 4)
	require.NoError(t, err)
	defer s.Close()
	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Articles)
}

func TestWriteArticle(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	id, err := s.WriteArticle(ctx, sampleArticle("Chile", "Lithium", 8))
	require.NoError(t, err)
	assert.NotZero(t, id)

	articles, err := s.ListArticles(ctx, "")
	require.NoError(t, err)
	require.Len(t, articles, 1)

	got := articles[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Chile", got.Country)
	assert.Equal(t, "Lithium", got.Mineral)
	assert.Equal(t, 8, got.Risk)
	assert.Equal(t, 1, got.Hype)
	assert.Equal(t, "2026-03-14", got.Date)
	assert.True(t, testTime.Equal(got.Timestamp))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Countries: 1, Minerals: 1, Articles: 1, Edges: 2}, stats)
}

func TestWriteArticleMergesEntities(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	first, err := s.WriteArticle(ctx, sampleArticle("Chile", "Lithium", 8))
	require.NoError(t, err)
	second, err := s.WriteArticle(ctx, sampleArticle("Chile", "Lithium", 6))
	require.NoError(t, err)
	_, err = s.WriteArticle(ctx, sampleArticle("Peru", "Copper", 5))
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "identical input creates distinct articles")

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Countries)
	assert.Equal(t, 2, stats.Minerals)
	assert.Equal(t, 3, stats.Articles)
	assert.Equal(t, 6, stats.Edges)

	countries, err := s.Entities(ctx, KindCountry)
	require.NoError(t, err)
	require.Len(t, countries, 2)
	assert.Equal(t, "Chile", countries[0].Name)
	assert.Equal(t, "Peru", countries[1].Name)
}

func TestEntityNamesAreScopedByKind(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	// "Global" can be both a country sentinel and, oddly, a mineral name.
	_, err := s.WriteArticle(ctx, sampleArticle("Global", "Global", 3))
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Countries)
	assert.Equal(t, 1, stats.Minerals)
}

func TestCountArticlesForMineral(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	n, err := s.CountArticlesForMineral(ctx, "Lithium", "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for i := 0; i < 3; i++ {
		_, err := s.WriteArticle(ctx, sampleArticle("Chile", "Lithium", 7))
		require.NoError(t, err)
	}
	yesterday := sampleArticle("Chile", "Lithium", 7)
	yesterday.Date = "2026-03-13"
	_, err = s.WriteArticle(ctx, yesterday)
	require.NoError(t, err)
	_, err = s.WriteArticle(ctx, sampleArticle("Peru", "Copper", 7))
	require.NoError(t, err)

	n, err = s.CountArticlesForMineral(ctx, "Lithium", "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.CountArticlesForMineral(ctx, "Lithium", "2026-03-13")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.CountArticlesForMineral(ctx, "lithium", "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, 0, n, "names match exactly")
}

func TestCountIgnoresCountryWithMineralName(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	_, err := s.WriteArticle(ctx, sampleArticle("Copper", "Nickel", 4))
	require.NoError(t, err)

	n, err := s.CountArticlesForMineral(ctx, "Copper", "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestListArticlesByDate(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	_, err := s.WriteArticle(ctx, sampleArticle("Chile", "Lithium", 8))
	require.NoError(t, err)
	old := sampleArticle("Peru", "Copper", 5)
	old.Date = "2026-03-01"
	_, err = s.WriteArticle(ctx, old)
	require.NoError(t, err)

	today, err := s.ListArticles(ctx, "2026-03-14")
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, "Chile", today[0].Country)

	all, err := s.ListArticles(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMineralHype(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	for i, risk := range []int{8, 6} {
		a := sampleArticle("Chile", "Lithium", risk)
		a.Hype = i + 1
		_, err := s.WriteArticle(ctx, a)
		require.NoError(t, err)
	}
	_, err := s.WriteArticle(ctx, sampleArticle("Peru", "Copper", 5))
	require.NoError(t, err)

	hype, err := s.MineralHype(ctx, "2026-03-14")
	require.NoError(t, err)
	require.Len(t, hype, 2)
	assert.Equal(t, MineralHype{Mineral: "Lithium", Date: "2026-03-14", Articles: 2, MaxHype: 2, AvgRisk: 7}, hype[0])
	assert.Equal(t, "Copper", hype[1].Mineral)

	none, err := s.MineralHype(ctx, "2020-01-01")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestExposure(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	for _, a := range []Article{
		sampleArticle("Chile", "Lithium", 8),
		sampleArticle("Chile", "Lithium", 4),
		sampleArticle("Bolivia", "Lithium", 9),
		sampleArticle("Peru", "Copper", 5),
	} {
		_, err := s.WriteArticle(ctx, a)
		require.NoError(t, err)
	}

	exp, err := s.Exposure(ctx, "Lithium")
	require.NoError(t, err)
	require.Len(t, exp, 2)
	assert.Equal(t, Exposure{Country: "Chile", Articles: 2, AvgRisk: 6, MaxRisk: 8}, exp[0])
	assert.Equal(t, Exposure{Country: "Bolivia", Articles: 1, AvgRisk: 9, MaxRisk: 9}, exp[1])
}

func TestConcurrentWrites(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.WriteArticle(ctx, sampleArticle("Chile", "Lithium", 7))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Countries)
	assert.Equal(t, 8, stats.Articles)
}

func TestArticleEmbeddings(t *testing.T) {
	s := newTestStore(t, 4)
	ctx := context.Background()

	chile, err := s.WriteArticle(ctx, sampleArticle("Chile", "Lithium", 8))
	require.NoError(t, err)
	peru, err := s.WriteArticle(ctx, sampleArticle("Peru", "Copper", 5))
	require.NoError(t, err)

	require.NoError(t, s.InsertArticleEmbedding(ctx, chile, []float32{1, 0, 0, 0}))
	require.NoError(t, s.InsertArticleEmbedding(ctx, peru, []float32{0, 1, 0, 0}))

	hits, err := s.SimilarArticles(ctx, []float32{0.9, 0.1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, chile, hits[0].ID)
	assert.Equal(t, "Chile", hits[0].Country)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	err = s.InsertArticleEmbedding(ctx, chile, []float32{1, 0})
	assert.Error(t, err)
}

func TestEmbeddingsDisabled(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	assert.ErrorIs(t, s.InsertArticleEmbedding(ctx, 1, []float32{1}), ErrNoVectorIndex)
	_, err := s.SimilarArticles(ctx, []float32{1}, 3)
	assert.ErrorIs(t, err, ErrNoVectorIndex)
}

func TestOpenDispatchesToSQLite(t *testing.T) {
	g, err := Open(context.Background(), Options{URI: "sqlite://" + filepath.Join(t.TempDir(), "graph.db")})
	require.NoError(t, err)
	defer g.Close()
	_, ok := g.(*SQLite)
	assert.True(t, ok)
}
