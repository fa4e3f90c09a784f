// Package server exposes the generation, app store and analytics endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/santiagomed/conjure/analytics"
	"github.com/santiagomed/conjure/llm"
	"github.com/santiagomed/conjure/logger"
	"github.com/santiagomed/conjure/schema"
	"github.com/santiagomed/conjure/store"
)

// Generator streams model output for the three generation endpoints.
type Generator interface {
	Models() []schema.Model
	Check(model string) error
	GenerateIdea(ctx context.Context, model string, settings schema.AISettings, w io.Writer) error
	RefinePrompt(ctx context.Context, model, prompt string, settings schema.AISettings, w io.Writer) error
	GenerateCode(ctx context.Context, model string, messages []schema.Message, settings schema.AISettings, w io.Writer) error
}

// Analyzer computes token analytics for an exchange.
type Analyzer interface {
	Compute(ctx context.Context, req schema.TokenAnalyticsRequest) (*schema.TokenAnalytics, error)
}

type Server struct {
	generator Generator
	analyzer  Analyzer
	apps      store.AppRepository
	saved     store.SavedGenerationRepository
	logger    logger.Logger
	timeout   time.Duration
}

func New(g Generator, a Analyzer, apps store.AppRepository, saved store.SavedGenerationRepository, timeout time.Duration, l logger.Logger) *Server {
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &Server{
		generator: g,
		analyzer:  a,
		apps:      apps,
		saved:     saved,
		logger:    l,
		timeout:   timeout,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate-idea", s.handleGenerateIdea)
	mux.HandleFunc("POST /api/refine-prompt", s.handleRefinePrompt)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/apps", s.handleCreateApp)
	mux.HandleFunc("GET /api/apps/{id}", s.handleGetApp)
	mux.HandleFunc("POST /api/token-analytics", s.handleTokenAnalytics)
	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("POST /api/saved", s.handleSave)
	mux.HandleFunc("GET /api/saved", s.handleListSaved)
	mux.HandleFunc("GET /api/saved/{id}", s.handleGetSaved)
	mux.HandleFunc("DELETE /api/saved/{id}", s.handleDeleteSaved)
	mux.HandleFunc("GET /api/saved/{id}/download", s.handleDownloadSaved)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return s.logRequests(mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(fmt.Sprintf("Listening on %s", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.WithField("status", rec.status).
			WithField("duration", time.Since(start).String()).
			Debug(fmt.Sprintf("%s %s", r.Method, r.URL.Path))
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var upstream *upstreamError
	switch {
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.Is(err, llm.ErrUnknownModel),
		errors.Is(err, llm.ErrMissingAPIKey),
		errors.Is(err, analytics.ErrUnknownModel),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
