// Package server exposes the repository system over HTTP.
//
//	POST /v1/resolve        collect, resolve and report
//	POST /v1/collect        collect only
//	GET  /v1/collect/last   the most recent collection
//	GET  /v1/reports        saved reports, newest first
//	GET  /v1/reports/{id}   one saved report
//	GET  /healthz           liveness
//
// Every response body is JSON. Collection and resolution problems do not
// fail a request: they are part of the returned report.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/depresolve/pkg/session"
	"github.com/matzehuels/depresolve/pkg/store"
	"github.com/matzehuels/depresolve/pkg/system"
)

// DefaultTimeout bounds a single resolve or collect request.
const DefaultTimeout = 5 * time.Minute

// Options configures a Server.
type Options struct {
	System  *system.Tracking
	Session *session.Session

	// Store keeps saved reports. The report endpoints answer 501 without it.
	Store store.Store

	Logger  *log.Logger
	Timeout time.Duration
}

// WithDefaults fills zero fields.
func (o Options) WithDefaults() Options {
	if o.Logger == nil {
		o.Logger = o.Session.Logger()
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Server serves the HTTP API.
type Server struct {
	opts   Options
	router chi.Router
}

// New creates a server and registers its routes.
func New(opts Options) *Server {
	s := &Server{opts: opts.WithDefaults()}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/resolve", s.handleResolve)
		r.Post("/collect", s.handleCollect)
		r.Get("/collect/last", s.handleLastCollect)
		r.Get("/reports", s.handleListReports)
		r.Get("/reports/{id}", s.handleGetReport)
	})
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
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.opts.Logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.opts.Logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
