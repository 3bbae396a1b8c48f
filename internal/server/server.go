package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nao1215/opendir/internal/metrics"
	"github.com/nao1215/opendir/internal/model"
)

const (
	// shutdownTimeout bounds graceful shutdown after the context ends.
	shutdownTimeout = 10 * time.Second

	// maxBodyBytes caps JSON request bodies.
	maxBodyBytes = 1 << 20
)

// Store is the part of database.Store used by the API.
type Store interface {
	Search(ctx context.Context, q model.SearchQuery) ([]model.SearchResult, error)
	Stats(ctx context.Context) (*model.Stats, error)
	CrawledURLs(ctx context.Context, status model.CrawlStatus) ([]model.CrawlTarget, error)
	AddURL(ctx context.Context, rawURL string) (bool, error)
	DeleteURL(ctx context.Context, rawURL string) error
	Ping(ctx context.Context) error
}

// Crawler runs a crawl for one root. *crawler.Engine implements it.
type Crawler interface {
	Crawl(ctx context.Context, rootURL string) (*model.CrawlResult, error)
}

// Server serves the JSON API.
type Server struct {
	store       Store
	crawler     Crawler
	metrics     *metrics.Metrics
	logger      *slog.Logger
	searchLimit int
	now         func() time.Time
	router      chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics enables the /metrics route and search counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithSearchLimit sets the limit used when a search request has none.
func WithSearchLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.searchLimit = n
		}
	}
}

// New builds a Server and its routes.
func New(store Store, crawler Crawler, opts ...Option) *Server {
	s := &Server{
		store:   store,
		crawler: crawler,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/crawl", s.handleCrawl)
		r.Get("/search", s.handleSearch)
		r.Get("/stats", s.handleStats)
		r.Get("/urls", s.handleListURLs)
		r.Post("/urls", s.handleAddURL)
		r.Delete("/urls", s.handleDeleteURL)
		r.Get("/health", s.handleHealth)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("api server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down api server: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
