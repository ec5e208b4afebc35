package store

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4j stores the graph natively: (:Country), (:Mineral) and (:Article)
// nodes joined by AFFECTS_SUPPLY_IN and CONCERNS_RESOURCE edges.
type Neo4j struct {
	driver   neo4j.DriverWithContext
	database string
}

var _ Graph = (*Neo4j)(nil)

var neo4jSchema = []string{
	"CREATE CONSTRAINT country_name IF NOT EXISTS FOR (c:Country) REQUIRE c.name IS UNIQUE",
	"CREATE CONSTRAINT mineral_name IF NOT EXISTS FOR (m:Mineral) REQUIRE m.name IS UNIQUE",
	"CREATE INDEX article_date IF NOT EXISTS FOR (a:Article) ON (a.date)",
}

// NewNeo4j connects to a Neo4j server, verifies connectivity and ensures
// the uniqueness constraints that back the entity merges. An empty database
// uses the server default.
func NewNeo4j(ctx context.Context, uri, username, password, database string) (*Neo4j, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}

	n := &Neo4j{driver: driver, database: database}
	if err := n.ensureSchema(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("creating neo4j schema: %w", err)
	}
	return n, nil
}

// Close releases the driver's connection pool.
func (n *Neo4j) Close() error {
	return n.driver.Close(context.Background())
}

func (n *Neo4j) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return n.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: n.database})
}

func (n *Neo4j) ensureSchema(ctx context.Context) error {
	session := n.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range neo4jSchema {
		result, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return err
		}
		if _, err := result.Consume(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CountArticlesForMineral implements Graph.
func (n *Neo4j) CountArticlesForMineral(ctx context.Context, mineral, date string) (int, error) {
	records, err := n.read(ctx, `
		MATCH (a:Article)-[:CONCERNS_RESOURCE]->(m:Mineral {name: $mineral})
		WHERE a.date = $date
		RETURN count(a) AS total
	`, map[string]any{"mineral": mineral, "date": date})
	if err != nil {
		return 0, fmt.Errorf("counting articles for %s: %w", mineral, err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	return getIntFromRecord(records[0], "total"), nil
}

// WriteArticle implements Graph.
func (n *Neo4j) WriteArticle(ctx context.Context, a Article) (int64, error) {
	session := n.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	id, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MERGE (c:Country {name: $country})
			MERGE (m:Mineral {name: $mineral})
			CREATE (a:Article {
				title: $title,
				link: $link,
				risk: $risk,
				hype: $hype,
				history: $history,
				date: $date,
				timestamp: $timestamp
			})
			MERGE (a)-[:AFFECTS_SUPPLY_IN]->(c)
			MERGE (a)-[:CONCERNS_RESOURCE]->(m)
			RETURN id(a) AS id
		`, map[string]any{
			"country":   a.Country,
			"mineral":   a.Mineral,
			"title":     a.Title,
			"link":      a.Link,
			"risk":      a.Risk,
			"hype":      a.Hype,
			"history":   a.History,
			"date":      a.Date,
			"timestamp": a.Timestamp,
		})
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		return getInt64FromRecord(record, "id"), nil
	})
	if err != nil {
		return 0, fmt.Errorf("writing article: %w", err)
	}
	return id.(int64), nil
}

// ListArticles implements Graph.
func (n *Neo4j) ListArticles(ctx context.Context, date string) ([]Article, error) {
	records, err := n.read(ctx, `
		MATCH (c:Country)<-[:AFFECTS_SUPPLY_IN]-(a:Article)-[:CONCERNS_RESOURCE]->(m:Mineral)
		WHERE $date = '' OR a.date = $date
		RETURN id(a) AS id, a.title AS title, a.link AS link, a.risk AS risk,
			a.hype AS hype, a.history AS history, a.date AS date,
			a.timestamp AS timestamp, c.name AS country, m.name AS mineral
		ORDER BY id(a)
	`, map[string]any{"date": date})
	if err != nil {
		return nil, err
	}

	articles := make([]Article, 0, len(records))
	for _, r := range records {
		articles = append(articles, Article{
			ID:        getInt64FromRecord(r, "id"),
			Title:     getStringFromRecord(r, "title"),
			Link:      getStringFromRecord(r, "link"),
			Risk:      getIntFromRecord(r, "risk"),
			Hype:      getIntFromRecord(r, "hype"),
			History:   getStringFromRecord(r, "history"),
			Date:      getStringFromRecord(r, "date"),
			Timestamp: getTimeFromRecord(r, "timestamp"),
			Country:   getStringFromRecord(r, "country"),
			Mineral:   getStringFromRecord(r, "mineral"),
		})
	}
	return articles, nil
}

// MineralHype implements Graph.
func (n *Neo4j) MineralHype(ctx context.Context, date string) ([]MineralHype, error) {
	records, err := n.read(ctx, `
		MATCH (a:Article)-[:CONCERNS_RESOURCE]->(m:Mineral)
		WHERE $date = '' OR a.date = $date
		WITH m.name AS mineral, a.date AS date,
			count(a) AS articles, max(a.hype) AS max_hype, avg(a.risk) AS avg_risk
		RETURN mineral, date, articles, max_hype, avg_risk
		ORDER BY date DESC, articles DESC, mineral
	`, map[string]any{"date": date})
	if err != nil {
		return nil, err
	}

	out := make([]MineralHype, 0, len(records))
	for _, r := range records {
		out = append(out, MineralHype{
			Mineral:  getStringFromRecord(r, "mineral"),
			Date:     getStringFromRecord(r, "date"),
			Articles: getIntFromRecord(r, "articles"),
			MaxHype:  getIntFromRecord(r, "max_hype"),
			AvgRisk:  getFloat64FromRecord(r, "avg_risk"),
		})
	}
	return out, nil
}

// Exposure implements Graph.
func (n *Neo4j) Exposure(ctx context.Context, mineral string) ([]Exposure, error) {
	records, err := n.read(ctx, `
		MATCH (c:Country)<-[:AFFECTS_SUPPLY_IN]-(a:Article)-[:CONCERNS_RESOURCE]->(:Mineral {name: $mineral})
		WITH c.name AS country, count(a) AS articles, avg(a.risk) AS avg_risk, max(a.risk) AS max_risk
		RETURN country, articles, avg_risk, max_risk
		ORDER BY articles DESC, country
	`, map[string]any{"mineral": mineral})
	if err != nil {
		return nil, err
	}

	out := make([]Exposure, 0, len(records))
	for _, r := range records {
		out = append(out, Exposure{
			Country:  getStringFromRecord(r, "country"),
			Articles: getIntFromRecord(r, "articles"),
			AvgRisk:  getFloat64FromRecord(r, "avg_risk"),
			MaxRisk:  getIntFromRecord(r, "max_risk"),
		})
	}
	return out, nil
}

// Stats implements Graph.
func (n *Neo4j) Stats(ctx context.Context) (*Stats, error) {
	records, err := n.read(ctx, `
		CALL { MATCH (c:Country) RETURN count(c) AS countries }
		CALL { MATCH (m:Mineral) RETURN count(m) AS minerals }
		CALL { MATCH (a:Article) RETURN count(a) AS articles }
		CALL { MATCH (:Article)-[r:AFFECTS_SUPPLY_IN|CONCERNS_RESOURCE]->() RETURN count(r) AS edges }
		RETURN countries, minerals, articles, edges
	`, nil)
	if err != nil {
		return nil, err
	}
	stats := &Stats{}
	if len(records) > 0 {
		r := records[0]
		stats.Countries = getIntFromRecord(r, "countries")
		stats.Minerals = getIntFromRecord(r, "minerals")
		stats.Articles = getIntFromRecord(r, "articles")
		stats.Edges = getIntFromRecord(r, "edges")
	}
	return stats, nil
}

// read runs a query in a managed read transaction and collects all records.
func (n *Neo4j) read(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := n.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.([]*neo4j.Record), nil
}

// --- record helpers ---

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getIntFromRecord(record *neo4j.Record, key string) int {
	return int(getInt64FromRecord(record, key))
}

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func getFloat64FromRecord(record *neo4j.Record, key string) float64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func getTimeFromRecord(record *neo4j.Record, key string) time.Time {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return time.Time{}
	}
	switch v := val.(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
