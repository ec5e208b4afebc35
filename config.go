package georisk

import (
	"fmt"
	"time"

	"github.com/brunobiangulo/georisk/feed"
	"github.com/brunobiangulo/georisk/llm"
	"github.com/brunobiangulo/georisk/store"
)

// Config holds all configuration for the georisk engine.
type Config struct {
	Storage StorageConfig `json:"storage" yaml:"storage" mapstructure:"storage"`

	// Chat is the model that analyzes headlines.
	Chat llm.Config `json:"chat" yaml:"chat" mapstructure:"chat"`

	// Embedding is optional. When set and the store has a vector index,
	// every stored Article is embedded for similarity search.
	Embedding llm.Config `json:"embedding" yaml:"embedding" mapstructure:"embedding"`

	Feed FeedConfig `json:"feed" yaml:"feed" mapstructure:"feed"`

	// ItemDelay paces headline processing; at most one headline starts per
	// delay. Zero disables pacing.
	ItemDelay time.Duration `json:"item_delay" yaml:"item_delay" mapstructure:"item_delay"`

	// Timezone decides which calendar day an Article belongs to. IANA name,
	// "UTC" or "Local".
	Timezone string `json:"timezone" yaml:"timezone" mapstructure:"timezone"`
}

// StorageConfig selects and authenticates the graph store.
type StorageConfig struct {
	// URI is a neo4j://, neo4j+s://, bolt:// URI, a sqlite:// URI or bare
	// SQLite path, or memory:// for a throwaway graph.
	URI      string `json:"uri" yaml:"uri" mapstructure:"uri"`
	Username string `json:"username" yaml:"username" mapstructure:"username"`
	Password string `json:"password" yaml:"password" mapstructure:"password"`
	// Database selects a Neo4j database; empty uses the server default.
	Database string `json:"database" yaml:"database" mapstructure:"database"`
	// EmbeddingDim sizes the SQLite vector table. Must match the embedding
	// model. Zero disables it.
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim" mapstructure:"embedding_dim"`
}

// FeedConfig configures where headlines come from.
type FeedConfig struct {
	// Query is a news search query or a full RSS/Atom URL.
	Query string `json:"query" yaml:"query" mapstructure:"query"`
	// Path reads headlines from a .txt or .xlsx file instead of RSS.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
	// MaxHeadlines caps the headlines processed per run.
	MaxHeadlines int           `json:"max_headlines" yaml:"max_headlines" mapstructure:"max_headlines"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// DefaultConfig returns a Config that analyzes Google News headlines with
// Groq and stores the graph in georisk.db in the working directory.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			URI: "georisk.db",
		},
		Chat: llm.Config{
			Provider: "groq",
			Model:    llm.DefaultGroqModel,
		},
		Feed: FeedConfig{
			Query:        feed.DefaultQuery,
			MaxHeadlines: feed.DefaultLimit,
			Timeout:      30 * time.Second,
		},
		ItemDelay: time.Second,
		Timezone:  "UTC",
	}
}

// Validate reports the first missing or inconsistent setting. The chat API
// key and the storage URI are always required; Neo4j also requires a
// username and password.
func (c *Config) Validate() error {
	if c.Chat.Provider == "" {
		return fmt.Errorf("%w: chat provider is required", ErrInvalidConfig)
	}
	if c.Chat.APIKey == "" && c.Chat.Provider != "ollama" {
		return fmt.Errorf("%w: chat api key is required", ErrInvalidConfig)
	}

	backend, _, err := store.ResolveURI(c.Storage.URI)
	if err != nil {
		return fmt.Errorf("%w: storage uri: %w", ErrInvalidConfig, err)
	}
	if backend == store.BackendNeo4j {
		if c.Storage.Username == "" {
			return fmt.Errorf("%w: storage username is required for neo4j", ErrInvalidConfig)
		}
		if c.Storage.Password == "" {
			return fmt.Errorf("%w: storage password is required for neo4j", ErrInvalidConfig)
		}
	}
	if c.Storage.EmbeddingDim < 0 {
		return fmt.Errorf("%w: embedding_dim must not be negative", ErrInvalidConfig)
	}
	if c.Embedding.Provider != "" && backend == store.BackendSQLite && c.Storage.EmbeddingDim == 0 {
		return fmt.Errorf("%w: embedding provider set but embedding_dim is 0", ErrInvalidConfig)
	}

	if c.Feed.MaxHeadlines < 0 {
		return fmt.Errorf("%w: max_headlines must not be negative", ErrInvalidConfig)
	}
	if c.ItemDelay < 0 {
		return fmt.Errorf("%w: item_delay must not be negative", ErrInvalidConfig)
	}
	if _, err := c.location(); err != nil {
		return fmt.Errorf("%w: timezone: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
