// Package server exposes the normalizer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"pageload-etl/internal/config"
	"pageload-etl/internal/logger"
	"pageload-etl/internal/model"
	"pageload-etl/internal/pipeline"
	"pageload-etl/internal/report"
	"pageload-etl/internal/source"
)

// NormalizeResponse is the body returned by POST /normalize.
type NormalizeResponse struct {
	Entries []model.Entry  `json:"entries"`
	Report  *report.Report `json:"report"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter wires the HTTP routes.
func NewRouter(cfg config.Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "pageload-etl"})
	})
	r.Post("/normalize", normalizeHandler(cfg))

	return r
}

// normalizeHandler accepts a JSON array or JSONL capture. The page URL comes
// from the url query parameter, falling back to the configured page_url.
func normalizeHandler(cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.ContextWithRequestID(r.Context(), middleware.GetReqID(r.Context()))

		reqCfg := cfg
		if u := r.URL.Query().Get("url"); u != "" {
			reqCfg.PageURL = u
		}
		if reqCfg.PageURL == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing url query parameter"})
			return
		}

		body := r.Body
		if cfg.MaxBodyBytes > 0 {
			body = http.MaxBytesReader(w, r.Body, cfg.MaxBodyBytes)
		}

		res, err := source.Read(body)
		if err != nil {
			status := http.StatusBadRequest
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				status = http.StatusRequestEntityTooLarge
			}
			logger.WarnContext(ctx, "rejecting capture", "error", err)
			writeJSON(w, status, errorResponse{Error: err.Error()})
			return
		}

		rep := report.NewReport()
		rep.TotalEntries = res.Total()
		rep.DecodeFailed = res.Failed

		entries := pipeline.Process(ctx, res.Entries, reqCfg, rep)
		rep.WrittenOK = len(entries)
		for _, e := range entries {
			if method, ok := e.Method(); ok {
				rep.AddMethod(method)
			}
		}

		writeJSON(w, http.StatusOK, NormalizeResponse{Entries: entries, Report: rep})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "error", err)
	}
}

// Serve listens on cfg.ListenAddr until ctx is canceled, then shuts down
// gracefully within cfg.ShutdownTimeoutSeconds.
func Serve(ctx context.Context, cfg config.Config) error {
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		timeout := time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		logger.Info("shutting down", "timeout", timeout.String())
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
