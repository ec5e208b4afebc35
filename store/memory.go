package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
)

// Memory is an in-process Graph used for dry runs and tests. Contents are
// lost on Close.
type Memory struct {
	mu       sync.Mutex
	entities map[string]int64 // kind + "\x00" + name
	nextID   int64
	articles []Article
}

var _ Graph = (*Memory)(nil)

// NewMemory returns an empty in-memory graph.
func NewMemory() *Memory {
	return &Memory{entities: make(map[string]int64)}
}

func (m *Memory) mergeEntity(name, kind string) {
	key := kind + "\x00" + name
	if _, ok := m.entities[key]; ok {
		return
	}
	m.nextID++
	m.entities[key] = m.nextID
}

// CountArticlesForMineral implements Graph.
func (m *Memory) CountArticlesForMineral(_ context.Context, mineral, date string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, a := range m.articles {
		if a.Mineral == mineral && a.Date == date {
			n++
		}
	}
	return n, nil
}

// WriteArticle implements Graph.
func (m *Memory) WriteArticle(_ context.Context, a Article) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mergeEntity(a.Country, KindCountry)
	m.mergeEntity(a.Mineral, KindMineral)
	m.nextID++
	a.ID = m.nextID
	m.articles = append(m.articles, a)
	return a.ID, nil
}

// ListArticles implements Graph.
func (m *Memory) ListArticles(_ context.Context, date string) ([]Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Article
	for _, a := range m.articles {
		if date == "" || a.Date == date {
			out = append(out, a)
		}
	}
	return out, nil
}

// MineralHype implements Graph.
func (m *Memory) MineralHype(_ context.Context, date string) ([]MineralHype, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type key struct{ mineral, date string }
	groups := make(map[key]*MineralHype)
	riskSum := make(map[key]int)
	for _, a := range m.articles {
		if date != "" && a.Date != date {
			continue
		}
		k := key{a.Mineral, a.Date}
		h, ok := groups[k]
		if !ok {
			h = &MineralHype{Mineral: a.Mineral, Date: a.Date}
			groups[k] = h
		}
		h.Articles++
		h.MaxHype = max(h.MaxHype, a.Hype)
		riskSum[k] += a.Risk
	}

	out := make([]MineralHype, 0, len(groups))
	for k, h := range groups {
		h.AvgRisk = float64(riskSum[k]) / float64(h.Articles)
		out = append(out, *h)
	}
	slices.SortFunc(out, func(a, b MineralHype) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Articles, a.Articles); c != 0 {
			return c
		}
		return cmp.Compare(a.Mineral, b.Mineral)
	})
	return out, nil
}

// Exposure implements Graph.
func (m *Memory) Exposure(_ context.Context, mineral string) ([]Exposure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byCountry := make(map[string]*Exposure)
	riskSum := make(map[string]int)
	for _, a := range m.articles {
		if a.Mineral != mineral {
			continue
		}
		e, ok := byCountry[a.Country]
		if !ok {
			e = &Exposure{Country: a.Country}
			byCountry[a.Country] = e
		}
		e.Articles++
		e.MaxRisk = max(e.MaxRisk, a.Risk)
		riskSum[a.Country] += a.Risk
	}

	out := make([]Exposure, 0, len(byCountry))
	for c, e := range byCountry {
		e.AvgRisk = float64(riskSum[c]) / float64(e.Articles)
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b Exposure) int {
		if c := cmp.Compare(b.Articles, a.Articles); c != 0 {
			return c
		}
		return cmp.Compare(a.Country, b.Country)
	})
	return out, nil
}

// Stats implements Graph.
func (m *Memory) Stats(_ context.Context) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &Stats{Articles: len(m.articles), Edges: 2 * len(m.articles)}
	for key := range m.entities {
		if kind, _, _ := strings.Cut(key, "\x00"); kind == KindCountry {
			stats.Countries++
		} else {
			stats.Minerals++
		}
	}
	return stats, nil
}

// Close implements Graph.
func (m *Memory) Close() error {
	return nil
}
