// Package server exposes resolution over HTTP.
//
// Routes:
//
//	POST /v1/resolve                       resolve a root coordinate
//	GET  /v1/history/{group}/{artifact}    provenance ledger for an artifact
//	GET  /maven2/*                         the local cache as a read-only Maven repository
//	GET  /healthz                          liveness
//	GET  /metrics                          Prometheus metrics
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/libresolve/pkg/artifact"
	"github.com/matzehuels/libresolve/pkg/audit"
	"github.com/matzehuels/libresolve/pkg/resolve"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Config wires a Server.
type Config struct {
	Resolver     *resolve.Resolver
	Repositories []artifact.Repository // used when a request names none
	CacheDir     string
	Audit        audit.Store         // nil disables the ledger
	Gatherer     prometheus.Gatherer // nil disables /metrics
	Logger       *log.Logger

	// AllowedRepositories lists the repository URLs a request may name.
	// When empty, requests may only name Repositories.
	AllowedRepositories []string
}

// Server handles the HTTP API. Build it with New.
type Server struct {
	resolver *resolve.Resolver
	repos    []artifact.Repository
	allowed  map[string]bool
	cacheDir string
	audit    audit.Store
	logger   *log.Logger
	router   chi.Router
}

// New builds the router.
func New(cfg Config) *Server {
	s := &Server{
		resolver: cfg.Resolver,
		repos:    cfg.Repositories,
		cacheDir: cfg.CacheDir,
		audit:    cfg.Audit,
		logger:   cfg.Logger,
	}
	s.allowed = allowList(cfg.AllowedRepositories, cfg.Repositories)
	if s.audit == nil {
		s.audit = audit.NewNullStore()
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/resolve", s.handleResolve)
		r.Get("/history/{group}/{artifact}", s.handleHistory)
	})
	r.Get("/maven2/*", s.handleRepository)
	r.Head("/maven2/*", s.handleRepository)

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

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
	s.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func allowList(urls []string, defaults []artifact.Repository) map[string]bool {
	if len(urls) == 0 {
		urls = artifact.URLs(defaults)
	}
	allowed := make(map[string]bool, len(urls))
	for _, u := range urls {
		allowed[artifact.NewRepository(u).URL] = true
	}
	return allowed
}
