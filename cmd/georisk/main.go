// Command georisk fetches news headlines, scores their supply-risk signal
// with a language model and records the results in a knowledge graph.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/brunobiangulo/georisk"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// app carries what every subcommand shares: output streams, the resolved
// configuration, and the engine constructor.
type app struct {
	out    io.Writer
	errOut io.Writer
	v      *viper.Viper

	cfgFile   string
	logLevel  string
	logFormat string

	newEngine func(ctx context.Context, cfg georisk.Config) (georisk.Engine, error)
}

func newApp(out, errOut io.Writer) *app {
	return &app{
		out:    out,
		errOut: errOut,
		v:      viper.New(),
		newEngine: func(ctx context.Context, cfg georisk.Config) (georisk.Engine, error) {
			return georisk.New(ctx, cfg)
		},
	}
}

func (a *app) root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "georisk",
		Short:         "Track geopolitical supply risk for critical minerals from news headlines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupLogging()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "text", "log format: text or json")
	pf.String("storage", "", "graph store uri (neo4j://, bolt://, sqlite://, memory:// or a file path)")
	a.v.BindPFlag("storage.uri", pf.Lookup("storage"))

	cmd.AddCommand(
		a.runCmd(),
		a.analyzeCmd(),
		a.hypeCmd(),
		a.exposureCmd(),
		a.similarCmd(),
		a.statsCmd(),
		a.exportCmd(),
		a.serveCmd(),
	)
	return cmd
}

func (a *app) setupLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q", a.logLevel)
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(a.logFormat) {
	case "json":
		h = slog.NewJSONHandler(a.errOut, opts)
	case "text", "":
		h = slog.NewTextHandler(a.errOut, opts)
	default:
		return fmt.Errorf("invalid --log-format %q", a.logFormat)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// config resolves the engine configuration. Precedence, highest first:
// flags, GEORISK_* environment variables, legacy provider variables, the
// config file, defaults.
func (a *app) config() (georisk.Config, error) {
	v := a.v
	d := georisk.DefaultConfig()
	defaults := map[string]any{
		"storage.uri":           d.Storage.URI,
		"storage.username":      d.Storage.Username,
		"storage.password":      d.Storage.Password,
		"storage.database":      d.Storage.Database,
		"storage.embedding_dim": d.Storage.EmbeddingDim,
		"chat.provider":         d.Chat.Provider,
		"chat.model":            d.Chat.Model,
		"chat.base_url":         d.Chat.BaseURL,
		"chat.api_key":          d.Chat.APIKey,
		"embedding.provider":    d.Embedding.Provider,
		"embedding.model":       d.Embedding.Model,
		"embedding.base_url":    d.Embedding.BaseURL,
		"embedding.api_key":     d.Embedding.APIKey,
		"feed.query":            d.Feed.Query,
		"feed.path":             d.Feed.Path,
		"feed.max_headlines":    d.Feed.MaxHeadlines,
		"feed.timeout":          d.Feed.Timeout,
		"item_delay":            d.ItemDelay,
		"timezone":              d.Timezone,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("georisk")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	legacy := map[string]string{
		"storage.uri":      "NEO4J_URI",
		"storage.username": "NEO4J_USER",
		"storage.password": "NEO4J_PASSWORD",
	}
	for key, env := range legacy {
		v.BindEnv(key, "GEORISK_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}

	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return georisk.Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg georisk.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return georisk.Config{}, fmt.Errorf("parsing config: %w", err)
	}

	// Fallback: well-known provider env vars for API keys.
	cfg.Chat.APIKey = providerKey(cfg.Chat.Provider, cfg.Chat.APIKey)
	cfg.Embedding.APIKey = providerKey(cfg.Embedding.Provider, cfg.Embedding.APIKey)
	return cfg, nil
}

func providerKey(provider, key string) string {
	if key != "" {
		return key
	}
	switch provider {
	case "groq":
		return os.Getenv("GROQ_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "openrouter":
		return os.Getenv("OPENROUTER_API_KEY")
	}
	return ""
}

// engine builds the engine for one command invocation.
func (a *app) engine(ctx context.Context) (georisk.Engine, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	return a.newEngine(ctx, cfg)
}
