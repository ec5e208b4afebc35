package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGraph(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, a := range []Article{
		{Country: "Chile", Mineral: "Lithium", Risk: 8, Hype: 1, Date: "2026-03-14"},
		{Country: "Chile", Mineral: "Lithium", Risk: 6, Hype: 2, Date: "2026-03-14"},
		{Country: "Bolivia", Mineral: "Lithium", Risk: 9, Hype: 1, Date: "2026-03-13"},
		{Country: "Peru", Mineral: "Copper", Risk: 5, Hype: 1, Date: "2026-03-14"},
	} {
		_, err := m.WriteArticle(ctx, a)
		require.NoError(t, err)
	}

	n, err := m.CountArticlesForMineral(ctx, "Lithium", "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Countries: 3, Minerals: 2, Articles: 4, Edges: 8}, stats)

	today, err := m.ListArticles(ctx, "2026-03-14")
	require.NoError(t, err)
	assert.Len(t, today, 3)

	hype, err := m.MineralHype(ctx, "")
	require.NoError(t, err)
	require.Len(t, hype, 3)
	assert.Equal(t, MineralHype{Mineral: "Lithium", Date: "2026-03-14", Articles: 2, MaxHype: 2, AvgRisk: 7}, hype[0])
	assert.Equal(t, "Copper", hype[1].Mineral)
	assert.Equal(t, "2026-03-13", hype[2].Date)

	exp, err := m.Exposure(ctx, "Lithium")
	require.NoError(t, err)
	require.Len(t, exp, 2)
	assert.Equal(t, Exposure{Country: "Chile", Articles: 2, AvgRisk: 7, MaxRisk: 8}, exp[0])
	assert.Equal(t, "Bolivia", exp[1].Country)
}

func TestOpenMemory(t *testing.T) {
	g, err := Open(context.Background(), Options{URI: "memory://"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, g)
	assert.NoError(t, g.Close())
}
