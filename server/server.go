package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/poiesic/coursesearch/core"
	"github.com/poiesic/coursesearch/storage"
	"golang.org/x/time/rate"
)

// Searcher answers search requests.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]*core.Course, error)
}

// Server is the HTTP front of the search engine.
type Server struct {
	searcher Searcher
	pinger   storage.Pinger
	frontend string
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *slog.Logger
	handler  http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithFrontend serves the static files in dir at /.
func WithFrontend(dir string) Option {
	return func(s *Server) {
		s.frontend = dir
	}
}

// WithRateLimit allows rps searches per second with bursts of burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRequestTimeout bounds the time spent on one search.
// Default is 30 seconds.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a server answering searches with searcher and reporting
// readiness with pinger.
func New(searcher Searcher, pinger storage.Pinger, opts ...Option) (*Server, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if pinger == nil {
		return nil, ErrPingerRequired
	}

	s := &Server{
		searcher: searcher,
		pinger:   pinger,
		timeout:  30 * time.Second,
		logger:   slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.frontend != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.frontend)))
	}

	s.handler = gzhttp.GzipHandler(s.withRequestID(s.withCORS(mux)))
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
