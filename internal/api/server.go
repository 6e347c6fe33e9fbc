package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/helliott20/prunerr-sub001/internal/api/handlers"
	"github.com/helliott20/prunerr-sub001/internal/api/middleware"
	"github.com/helliott20/prunerr-sub001/internal/config"
	"github.com/helliott20/prunerr-sub001/internal/controllers"
	"github.com/helliott20/prunerr-sub001/internal/metrics"
	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/helliott20/prunerr-sub001/internal/scheduler"
	"github.com/sirupsen/logrus"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	logger *logrus.Logger
}

// Deps are the services the HTTP surface exposes
type Deps struct {
	DB         *models.Database
	Queue      *controllers.QueueController
	DeleteCtrl *controllers.DeleteController
	Scheduler  *scheduler.Scheduler
	Defaults   controllers.ScanDefaults
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, deps Deps, logger *logrus.Logger) *Server {
	s := &Server{logger: logger}

	mux := http.NewServeMux()
	s.setupRoutes(mux, deps)

	s.server = &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     middleware.Logging(mux, logger),
		ReadTimeout: 15 * time.Second,
		// No write timeout: the delete-now stream stays open for as long as
		// the executor runs.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux, deps Deps) {
	healthHandler := handlers.NewHealthHandler(s.logger)
	mux.Handle("GET /health", healthHandler)

	statusHandler := handlers.NewStatusHandler(deps.DB, deps.Queue, deps.Scheduler, s.logger)
	mux.Handle("GET /status", statusHandler)

	mux.Handle("GET /metrics", metrics.Handler())

	mediaHandler := handlers.NewMediaHandler(deps.DB, s.logger)
	mux.HandleFunc("GET /api/media", mediaHandler.List)
	mux.HandleFunc("POST /api/media/{id}/protect", mediaHandler.Protect)

	rulesHandler := handlers.NewRulesHandler(deps.DB, s.logger)
	mux.HandleFunc("GET /api/rules", rulesHandler.List)
	mux.HandleFunc("POST /api/rules", rulesHandler.Create)

	queueHandler := handlers.NewQueueHandler(deps.Queue, deps.DeleteCtrl, deps.Scheduler, deps.Defaults, s.logger)
	mux.HandleFunc("GET /api/queue", queueHandler.List)
	mux.HandleFunc("POST /api/media/{id}/queue", queueHandler.Mark)
	mux.HandleFunc("DELETE /api/queue/{id}", queueHandler.Unmark)
	mux.HandleFunc("POST /api/queue/process", queueHandler.Process)

	deleteHandler := handlers.NewDeleteHandler(deps.DB, deps.DeleteCtrl, deps.Defaults, s.logger)
	mux.HandleFunc("POST /api/media/{id}/delete", deleteHandler.ServeHTTP)

	tasksHandler := handlers.NewTasksHandler(deps.Scheduler, s.logger)
	mux.HandleFunc("GET /api/tasks", tasksHandler.List)
	mux.HandleFunc("POST /api/tasks/{name}/run", tasksHandler.Run)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
