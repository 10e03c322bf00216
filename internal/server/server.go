// Package server provides the HTTP API with lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/softia/softia-go/internal/config"
	"github.com/softia/softia-go/internal/models"
	"github.com/softia/softia-go/internal/service"
)

// shutdownTimeout bounds how long in-flight requests may run during shutdown.
const shutdownTimeout = 10 * time.Second

// Pipeline starts a dataset generation and training run.
type Pipeline interface {
	Run(ctx context.Context, useCase string, numSamples int, documents []string) (*service.RunResult, error)
}

// Predictor serves completions from a fine-tuned model.
type Predictor interface {
	Predict(ctx context.Context, path, prompt string, maxLength, numSequences int) (string, error)
}

// TaskStore exposes training task lookups.
type TaskStore interface {
	Get(id string) (*models.TrainingTask, bool)
	List() []models.TaskSnapshot
}

// Server wraps the HTTP server with dependencies and lifecycle management.
type Server struct {
	http     *http.Server
	logger   *slog.Logger
	pipeline Pipeline
	models   Predictor
	tasks    TaskStore
	baseDir  string
}

// New creates the API server. baseDir is the directory fine-tuned models are
// written under.
func New(cfg config.ServerConfig, logger *slog.Logger, pipeline Pipeline, predictor Predictor, tasks TaskStore, baseDir string) *Server {
	s := &Server{
		logger:   logger,
		pipeline: pipeline,
		models:   predictor,
		tasks:    tasks,
		baseDir:  baseDir,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/train", s.handleTrain)
		r.Post("/chat", s.handleChat)
		r.Get("/models", s.handleListModels)
		r.Get("/training/status/{taskID}", s.handleTrainingStatus)
		r.Get("/training/tasks", s.handleListTasks)
	})

	s.http = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	return s
}

// Handler returns the routing handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves HTTP until the context is cancelled, then drains in-flight
// requests and returns.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
