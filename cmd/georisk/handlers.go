package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/brunobiangulo/georisk"
	"github.com/brunobiangulo/georisk/report"
)

type handler struct {
	engine georisk.Engine

	// running guards POST /run; one pipeline run at a time.
	running sync.Mutex
}

func newHandler(e georisk.Engine) *handler {
	return &handler{engine: e}
}

// routes builds the mux and wraps it: recovery -> cors -> auth -> logging -> mux.
func (h *handler) routes(apiKey, corsOrigins string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /articles", h.handleArticles)
	mux.HandleFunc("GET /hype", h.handleHype)
	mux.HandleFunc("GET /exposure/{mineral}", h.handleExposure)
	mux.HandleFunc("GET /similar", h.handleSimilar)
	mux.HandleFunc("GET /stats", h.handleStats)
	mux.HandleFunc("GET /feed.atom", h.handleFeed(report.FormatAtom))
	mux.HandleFunc("GET /feed.rss", h.handleFeed(report.FormatRSS))
	mux.HandleFunc("POST /run", h.handleRun)
	mux.HandleFunc("POST /analyze", h.handleAnalyze)

	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)
	return handler
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"today":  h.engine.Today(),
	})
}

// GET /articles?date=YYYY-MM-DD
func (h *handler) handleArticles(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	articles, err := h.engine.Articles(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list articles")
		slog.Error("server: list articles", "date", date, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": articles})
}

// GET /hype?date=YYYY-MM-DD, defaulting to today; date=all covers every day.
func (h *handler) handleHype(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	switch date {
	case "":
		date = h.engine.Today()
	case "all":
		date = ""
	default:
		if _, ok := dateParam(w, r); !ok {
			return
		}
	}
	rows, err := h.engine.Hype(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute hype")
		slog.Error("server: hype", "date", date, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "minerals": rows})
}

// GET /exposure/{mineral}
func (h *handler) handleExposure(w http.ResponseWriter, r *http.Request) {
	mineral := r.PathValue("mineral")
	rows, err := h.engine.Exposure(r.Context(), mineral)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute exposure")
		slog.Error("server: exposure", "mineral", mineral, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mineral": mineral, "countries": rows})
}

// GET /similar?q=...&k=5
func (h *handler) handleSimilar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	k := 5
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "k must be between 1 and 100")
			return
		}
		k = n
	}

	hits, err := h.engine.Similar(r.Context(), q, k)
	if errors.Is(err, georisk.ErrNoEmbedder) {
		writeError(w, http.StatusNotImplemented, "similarity search is not configured")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "similarity search failed")
		slog.Error("server: similar", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

// GET /stats
func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read stats")
		slog.Error("server: stats", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /feed.atom, GET /feed.rss
func (h *handler) handleFeed(format string) http.HandlerFunc {
	contentType := "application/atom+xml; charset=utf-8"
	if format == report.FormatRSS {
		contentType = "application/rss+xml; charset=utf-8"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		date, ok := dateParam(w, r)
		if !ok {
			return
		}
		articles, err := h.engine.Articles(r.Context(), date)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list articles")
			slog.Error("server: feed", "format", format, "error", err)
			return
		}
		w.Header().Set("Content-Type", contentType)
		if err := report.WriteFeed(w, format, feedInfo(time.Now()), articles); err != nil {
			slog.Error("server: writing feed", "format", format, "error", err)
		}
	}
}

// POST /run
func (h *handler) handleRun(w http.ResponseWriter, r *http.Request) {
	if !h.running.TryLock() {
		writeError(w, http.StatusConflict, "a run is already in progress")
		return
	}
	defer h.running.Unlock()

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	rep, err := h.engine.Run(ctx)
	if rep != nil {
		w.Header().Set(runIDHeader, rep.RunID)
	}
	if errors.Is(err, georisk.ErrFetchFailure) {
		slog.Error("server: run", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "report": rep})
		return
	}
	if err != nil {
		slog.Error("server: run", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "report": rep})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// POST /analyze {"headline": "..."}
func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Headline string `json:"headline"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Headline == "" {
		writeError(w, http.StatusBadRequest, "headline is required")
		return
	}

	res := h.engine.Preview(ctx, req.Headline)
	status := http.StatusOK
	if res.State == georisk.StateSkipped {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

// dateParam validates the optional date query parameter.
func dateParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := r.URL.Query().Get("date")
	if date == "" {
		return "", true
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return "", false
	}
	return date, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
