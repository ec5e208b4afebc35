package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	var addr, apiKey, corsOrigins string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph over HTTP and run the pipeline on demand",
		Long: `Serve read endpoints over the stored graph (articles, hype, exposure,
similarity, stats, Atom/RSS feeds) plus POST /run and POST /analyze.

Set --api-key (or GEORISK_API_KEY) to require "Authorization: Bearer <key>"
on every endpoint except /health.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.engine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if apiKey == "" {
				apiKey = a.v.GetString("api_key")
			}
			if corsOrigins == "" {
				corsOrigins = a.v.GetString("cors_origins")
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           newHandler(e).routes(apiKey, corsOrigins),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      0, // POST /run lasts as long as the feed
				IdleTimeout:       120 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				slog.Info("server: starting", "addr", addr)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			slog.Info("server: shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("server: shutdown error", "error", err)
				return err
			}
			slog.Info("server: stopped")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":8080", "listen address")
	f.StringVar(&apiKey, "api-key", "", "bearer token required by the API")
	f.StringVar(&corsOrigins, "cors-origins", "", "value for Access-Control-Allow-Origin")
	return cmd
}
