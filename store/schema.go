package store

import "fmt"

// schemaSQL returns the DDL for the graph tables.
func schemaSQL() string {
	return `
-- Country and Mineral nodes, unique per (name, kind)
CREATE TABLE IF NOT EXISTS entities (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(name, entity_type)
);

-- One row per processed headline; never merged
CREATE TABLE IF NOT EXISTS articles (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    link TEXT,
    risk INTEGER NOT NULL,
    hype INTEGER NOT NULL,
    history TEXT,
    date TEXT NOT NULL,
    timestamp TEXT NOT NULL
);

-- Article edges; at most one of each type per article
CREATE TABLE IF NOT EXISTS relationships (
    article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    entity_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    relation_type TEXT NOT NULL,
    PRIMARY KEY (article_id, relation_type)
);

CREATE INDEX IF NOT EXISTS idx_articles_date ON articles(date);
CREATE INDEX IF NOT EXISTS idx_relationships_entity ON relationships(entity_id, relation_type);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(entity_type);
`
}

// vectorSQL returns the DDL for the article embedding table.
func vectorSQL(embeddingDim int) string {
	return fmt.Sprintf(`
CREATE VIRTUAL TABLE IF NOT EXISTS vec_articles USING vec0(
    article_id INTEGER PRIMARY KEY,
    embedding float[%d]
);
`, embeddingDim)
}
