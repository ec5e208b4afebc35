package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/georisk"
	"github.com/brunobiangulo/georisk/feed"
	"github.com/brunobiangulo/georisk/llm"
	"github.com/brunobiangulo/georisk/store"
)

type cannedChat map[string]string

func (c cannedChat) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	user := req.Messages[len(req.Messages)-1].Content
	for headline, reply := range c {
		if strings.Contains(user, headline) {
			return &llm.ChatResponse{Content: reply}, nil
		}
	}
	return &llm.ChatResponse{Content: "no structured data available"}, nil
}

func (cannedChat) Embed(context.Context, []string) ([][]float32, error) {
	return nil, nil
}

var testHeadlines = []feed.Item{
	{Title: "Chile nationalizes lithium reserves", Link: "https://news.example.com/chile"},
	{Title: "Argentina lithium export curbs", Link: "https://news.example.com/argentina"},
	{Title: "Vague market chatter"},
}

var testReplies = cannedChat{
	"Chile nationalizes lithium reserves": "Chile | Lithium | 8 | Echoes 1938 Mexican oil nationalization",
	"Argentina lithium export curbs":      "Argentina | Lithium | 6 | 2012 YPF expropriation",
}

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// testApp returns an app whose engines share one in-memory graph and answer
// from testReplies.
func testApp(t *testing.T, g *store.Memory) (*app, *bytes.Buffer) {
	t.Helper()
	t.Setenv("GEORISK_CHAT_API_KEY", "gsk-test")
	t.Setenv("GEORISK_STORAGE_URI", "memory://")
	t.Setenv("GEORISK_ITEM_DELAY", "0s")

	out := &bytes.Buffer{}
	a := newApp(out, &bytes.Buffer{})
	a.newEngine = func(ctx context.Context, cfg georisk.Config) (georisk.Engine, error) {
		return georisk.New(ctx, cfg,
			georisk.WithChat(testReplies),
			georisk.WithGraph(g),
			georisk.WithSource(feed.Static(testHeadlines)),
			georisk.WithClock(func() time.Time { return testNow }),
		)
	}
	return a, out
}

func execute(t *testing.T, a *app, args ...string) error {
	t.Helper()
	cmd := a.root()
	cmd.SetArgs(args)
	cmd.SetOut(a.out)
	return cmd.ExecuteContext(context.Background())
}

func TestRunCommand(t *testing.T) {
	g := store.NewMemory()
	a, out := testApp(t, g)

	require.NoError(t, execute(t, a, "run"))
	assert.Contains(t, out.String(), "fetched 3, stored 2, skipped 1")
	assert.Contains(t, out.String(), "skipped(parse)")

	stats, err := g.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Articles)
}

func TestRunCommandJSON(t *testing.T) {
	a, out := testApp(t, store.NewMemory())

	require.NoError(t, execute(t, a, "run", "--json", "--max", "1"))
	assert.Contains(t, out.String(), `"stored": 1`)
	assert.Contains(t, out.String(), `"fetched": 1`)
}

func TestAnalyzeCommand(t *testing.T) {
	g := store.NewMemory()
	a, out := testApp(t, g)

	require.NoError(t, execute(t, a, "analyze", "Chile nationalizes lithium reserves"))
	assert.Contains(t, out.String(), `"state": "aggregated"`)
	assert.Contains(t, out.String(), `"country": "Chile"`)

	stats, err := g.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Articles)
}

func TestAnalyzeCommandMalformed(t *testing.T) {
	a, _ := testApp(t, store.NewMemory())

	err := execute(t, a, "analyze", "Vague market chatter")
	assert.ErrorIs(t, err, georisk.ErrMalformedResponse)
}

func TestHypeAndExposureCommands(t *testing.T) {
	g := store.NewMemory()
	a, out := testApp(t, g)
	require.NoError(t, execute(t, a, "run"))

	out.Reset()
	require.NoError(t, execute(t, a, "hype", "--date", "2026-03-14"))
	assert.Contains(t, out.String(), "Lithium")
	assert.Regexp(t, `2026-03-14\s+Lithium\s+2\s+2\s+7\.0`, out.String())

	out.Reset()
	require.NoError(t, execute(t, a, "exposure", "Lithium"))
	assert.Contains(t, out.String(), "Chile")
	assert.Contains(t, out.String(), "Argentina")
}

func TestStatsCommand(t *testing.T) {
	g := store.NewMemory()
	a, out := testApp(t, g)
	require.NoError(t, execute(t, a, "run"))

	out.Reset()
	require.NoError(t, execute(t, a, "stats"))
	assert.Contains(t, out.String(), `"articles": 2`)
	assert.Contains(t, out.String(), `"countries": 2`)
}

func TestExportCommand(t *testing.T) {
	g := store.NewMemory()
	a, out := testApp(t, g)
	require.NoError(t, execute(t, a, "run"))

	out.Reset()
	require.NoError(t, execute(t, a, "export", "--format", "atom"))
	parsed, err := gofeed.NewParser().ParseString(out.String())
	require.NoError(t, err)
	assert.Len(t, parsed.Items, 2)

	path := filepath.Join(t.TempDir(), "risk.xlsx")
	require.NoError(t, execute(t, a, "export", "--format", "xlsx", "--out", path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	assert.Error(t, execute(t, a, "export", "--format", "xlsx"))
	assert.Error(t, execute(t, a, "export", "--format", "pdf", "--out", filepath.Join(t.TempDir(), "x")))
}

func TestSimilarWithoutEmbeddings(t *testing.T) {
	a, _ := testApp(t, store.NewMemory())
	err := execute(t, a, "similar", "lithium")
	assert.ErrorIs(t, err, georisk.ErrNoEmbedder)
}

func TestConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "georisk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  uri: bolt://graph.internal:7687
  username: neo4j
chat:
  provider: groq
  model: llama-3.1-8b-instant
feed:
  max_headlines: 25
item_delay: 3s
timezone: America/Santiago
`), 0o644))

	t.Setenv("GEORISK_FEED_MAX_HEADLINES", "7")
	t.Setenv("GROQ_API_KEY", "gsk-legacy")
	t.Setenv("NEO4J_PASSWORD", "secret")

	a := newApp(&bytes.Buffer{}, &bytes.Buffer{})
	a.cfgFile = path
	cfg, err := a.config()
	require.NoError(t, err)

	assert.Equal(t, "bolt://graph.internal:7687", cfg.Storage.URI)
	assert.Equal(t, "neo4j", cfg.Storage.Username)
	assert.Equal(t, "secret", cfg.Storage.Password)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.Chat.Model)
	assert.Equal(t, "gsk-legacy", cfg.Chat.APIKey)
	assert.Equal(t, 7, cfg.Feed.MaxHeadlines)
	assert.Equal(t, 3*time.Second, cfg.ItemDelay)
	assert.Equal(t, "America/Santiago", cfg.Timezone)
	assert.Equal(t, feed.DefaultQuery, cfg.Feed.Query)
	assert.Equal(t, 30*time.Second, cfg.Feed.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestConfigMissingFile(t *testing.T) {
	a := newApp(&bytes.Buffer{}, &bytes.Buffer{})
	a.cfgFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := a.config()
	assert.Error(t, err)
}

func TestInvalidLogFlags(t *testing.T) {
	a, _ := testApp(t, store.NewMemory())
	assert.Error(t, execute(t, a, "--log-level", "loud", "stats"))
	assert.Error(t, execute(t, newApp(&bytes.Buffer{}, &bytes.Buffer{}), "--log-format", "xml", "stats"))
}
