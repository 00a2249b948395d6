package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanonone/wikihop/pkg/render"
	"github.com/sanonone/wikihop/pkg/search"
)

// taskRetention is how long finished tasks stay queryable.
const taskRetention = time.Hour

// Server exposes a search engine over HTTP.
type Server struct {
	Engine *search.Engine

	httpServer  *http.Server
	taskManager *TaskManager
	renderer    *render.Renderer
	authToken   string

	// tasks run under ctx and are cancelled on Shutdown.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer wires the routes and middleware around eng. An empty authToken
// disables authentication.
func NewServer(eng *search.Engine, httpAddr string, authToken string, renderer *render.Renderer) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("server: nil engine")
	}
	if renderer == nil {
		renderer = render.New("", false)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		Engine:      eng,
		taskManager: NewTaskManager(),
		renderer:    renderer,
		authToken:   authToken,
		ctx:         ctx,
		cancel:      cancel,
	}

	mux := http.NewServeMux()
	s.registerHTTPHandlers(mux)

	// Chain middlewares: Recovery -> Logging -> Auth -> Mux
	var handler http.Handler = mux
	handler = s.authMiddleware(handler)
	handler = s.LoggingMiddleware(handler)
	handler = s.RecoveryMiddleware(handler)

	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET /healthz", s.handleHealthz)
	rootMux.Handle("GET /metrics", promhttp.Handler())
	rootMux.Handle("/", handler)
	s.httpServer = &http.Server{
		Addr:              httpAddr,
		Handler:           rootMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	go s.expireTasks()

	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server startup failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, cancels running searches and waits
// for them. It does not close the store.
func (s *Server) Shutdown(timeout time.Duration) {
	slog.Info("Starting graceful shutdown of HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	s.cancel()
	s.wg.Wait()
}

func (s *Server) expireTasks() {
	ticker := time.NewTicker(taskRetention / 4)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if n := s.taskManager.Expire(time.Now().Add(-taskRetention)); n > 0 {
				slog.Debug("expired finished search tasks", "count", n)
			}
		}
	}
}
