package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// SQLite stores the graph in relational tables: entities, articles, and an
// article-to-entity relationships table.
type SQLite struct {
	db           *sql.DB
	embeddingDim int
}

var (
	_ Graph       = (*SQLite)(nil)
	_ VectorIndex = (*SQLite)(nil)
)

// NewSQLite opens (or creates) a SQLite database at dbPath and initialises
// the schema. A positive embeddingDim also creates the sqlite-vec table.
func NewSQLite(dbPath string, embeddingDim int) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL()); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if embeddingDim > 0 {
		if _, err := db.Exec(vectorSQL(embeddingDim)); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating vector table: %w", err)
		}
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &SQLite{db: db, embeddingDim: embeddingDim}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// EmbeddingDim returns the configured embedding dimension, 0 when the
// vector table is disabled.
func (s *SQLite) EmbeddingDim() int {
	return s.embeddingDim
}

// --- Graph operations ---

// CountArticlesForMineral implements Graph.
func (s *SQLite) CountArticlesForMineral(ctx context.Context, mineral, date string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM articles a
		JOIN relationships r ON r.article_id = a.id AND r.relation_type = ?
		JOIN entities m ON m.id = r.entity_id AND m.entity_type = ?
		WHERE m.name = ? AND a.date = ?
	`, RelConcernsResource, KindMineral, mineral, date).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting articles for %s: %w", mineral, err)
	}
	return n, nil
}

// WriteArticle implements Graph.
func (s *SQLite) WriteArticle(ctx context.Context, a Article) (int64, error) {
	var articleID int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		countryID, err := upsertEntity(ctx, tx, a.Country, KindCountry)
		if err != nil {
			return fmt.Errorf("merging country %q: %w", a.Country, err)
		}
		mineralID, err := upsertEntity(ctx, tx, a.Mineral, KindMineral)
		if err != nil {
			return fmt.Errorf("merging mineral %q: %w", a.Mineral, err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO articles (title, link, risk, hype, history, date, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, a.Title, a.Link, a.Risk, a.Hype, a.History, a.Date, a.Timestamp.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("creating article: %w", err)
		}
		articleID, err = res.LastInsertId()
		if err != nil {
			return err
		}

		edges := []struct {
			entityID int64
			relType  string
		}{
			{countryID, RelAffectsSupplyIn},
			{mineralID, RelConcernsResource},
		}
		for _, e := range edges {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO relationships (article_id, entity_id, relation_type)
				VALUES (?, ?, ?)
				ON CONFLICT(article_id, relation_type) DO NOTHING
			`, articleID, e.entityID, e.relType); err != nil {
				return fmt.Errorf("linking %s: %w", e.relType, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return articleID, nil
}

// ListArticles implements Graph.
func (s *SQLite) ListArticles(ctx context.Context, date string) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx, articleSelect+`
		WHERE (? = '' OR a.date = ?)
		ORDER BY a.id
	`, RelAffectsSupplyIn, RelConcernsResource, date, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArticles(rows)
}

// Entities returns every entity of the given kind, ordered by name.
func (s *SQLite) Entities(ctx context.Context, kind string) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, entity_type FROM entities WHERE entity_type = ? ORDER BY name", kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Kind); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MineralHype implements Graph.
func (s *SQLite) MineralHype(ctx context.Context, date string) ([]MineralHype, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.name, a.date, COUNT(*), MAX(a.hype), AVG(a.risk)
		FROM articles a
		JOIN relationships r ON r.article_id = a.id AND r.relation_type = ?
		JOIN entities m ON m.id = r.entity_id
		WHERE (? = '' OR a.date = ?)
		GROUP BY m.name, a.date
		ORDER BY a.date DESC, COUNT(*) DESC, m.name
	`, RelConcernsResource, date, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MineralHype
	for rows.Next() {
		var h MineralHype
		if err := rows.Scan(&h.Mineral, &h.Date, &h.Articles, &h.MaxHype, &h.AvgRisk); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Exposure implements Graph.
func (s *SQLite) Exposure(ctx context.Context, mineral string) ([]Exposure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name, COUNT(*), AVG(a.risk), MAX(a.risk)
		FROM articles a
		JOIN relationships rm ON rm.article_id = a.id AND rm.relation_type = ?
		JOIN entities m ON m.id = rm.entity_id
		JOIN relationships rc ON rc.article_id = a.id AND rc.relation_type = ?
		JOIN entities c ON c.id = rc.entity_id
		WHERE m.name = ?
		GROUP BY c.name
		ORDER BY COUNT(*) DESC, c.name
	`, RelConcernsResource, RelAffectsSupplyIn, mineral)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Exposure
	for rows.Next() {
		var e Exposure
		if err := rows.Scan(&e.Country, &e.Articles, &e.AvgRisk, &e.MaxRisk); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats implements Graph.
func (s *SQLite) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	queries := []struct {
		query string
		args  []any
		dest  *int
	}{
		{"SELECT COUNT(*) FROM entities WHERE entity_type = ?", []any{KindCountry}, &stats.Countries},
		{"SELECT COUNT(*) FROM entities WHERE entity_type = ?", []any{KindMineral}, &stats.Minerals},
		{"SELECT COUNT(*) FROM articles", nil, &stats.Articles},
		{"SELECT COUNT(*) FROM relationships", nil, &stats.Edges},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- Embedding operations ---

// InsertArticleEmbedding stores a vector embedding for an article.
func (s *SQLite) InsertArticleEmbedding(ctx context.Context, articleID int64, embedding []float32) error {
	if s.embeddingDim <= 0 {
		return ErrNoVectorIndex
	}
	if len(embedding) != s.embeddingDim {
		return fmt.Errorf("embedding has %d dimensions, index expects %d", len(embedding), s.embeddingDim)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_articles (article_id, embedding) VALUES (?, ?)",
		articleID, serializeFloat32(embedding))
	return err
}

// SimilarArticles performs a KNN search returning the k nearest articles.
func (s *SQLite) SimilarArticles(ctx context.Context, embedding []float32, k int) ([]ScoredArticle, error) {
	if s.embeddingDim <= 0 {
		return nil, ErrNoVectorIndex
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.article_id, v.distance
		FROM vec_articles v
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(embedding), k)
	if err != nil {
		return nil, err
	}

	type hit struct {
		id       int64
		distance float64
	}
	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.id, &h.distance); err != nil {
			rows.Close()
			return nil, err
		}
		hits = append(hits, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]ScoredArticle, 0, len(hits))
	for _, h := range hits {
		a, err := s.article(ctx, h.id)
		if err != nil {
			return nil, fmt.Errorf("loading article %d: %w", h.id, err)
		}
		results = append(results, ScoredArticle{Article: *a, Score: 1.0 - h.distance})
	}
	return results, nil
}

// --- helpers ---

// articleSelect joins an article with its country and mineral. Callers
// supply the two relation types as the first two arguments.
const articleSelect = `
	SELECT a.id, a.title, a.link, a.risk, a.hype, a.history, a.date, a.timestamp,
		c.name, m.name
	FROM articles a
	JOIN relationships rc ON rc.article_id = a.id AND rc.relation_type = ?
	JOIN entities c ON c.id = rc.entity_id
	JOIN relationships rm ON rm.article_id = a.id AND rm.relation_type = ?
	JOIN entities m ON m.id = rm.entity_id
`

func (s *SQLite) article(ctx context.Context, id int64) (*Article, error) {
	rows, err := s.db.QueryContext(ctx, articleSelect+" WHERE a.id = ?",
		RelAffectsSupplyIn, RelConcernsResource, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	articles, err := scanArticles(rows)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, sql.ErrNoRows
	}
	return &articles[0], nil
}

func scanArticles(rows *sql.Rows) ([]Article, error) {
	var out []Article
	for rows.Next() {
		var a Article
		var link, history sql.NullString
		var ts string
		if err := rows.Scan(&a.ID, &a.Title, &link, &a.Risk, &a.Hype, &history,
			&a.Date, &ts, &a.Country, &a.Mineral); err != nil {
			return nil, err
		}
		a.Link = link.String
		a.History = history.String
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			a.Timestamp = t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// upsertEntity merges an entity by (name, kind) and returns its ID.
func upsertEntity(ctx context.Context, tx *sql.Tx, name, kind string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO entities (name, entity_type) VALUES (?, ?)
		ON CONFLICT(name, entity_type) DO UPDATE SET name = excluded.name
		RETURNING id
	`, name, kind).Scan(&id)
	return id, err
}

func (s *SQLite) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
