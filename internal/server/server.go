// Package server exposes a catalog over a read-only HTTP API.
//
//	GET /healthz               liveness probe
//	GET /tables                discovered table names (JSON)
//	GET /schema                schema dump
//	GET /tables/{table}/csv    table rows as CSV
//	GET /tables/{table}/sql    table rows as INSERT statements
//
// Every dump is served through the catalog, so each one is produced at most
// once per process no matter how many clients ask for it.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/mdbread/internal/catalog"
	"github.com/koustreak/mdbread/internal/logger"
)

// Catalog is the part of *catalog.Catalog the API reads from.
type Catalog interface {
	Path() string
	Tables() []string
	Schema(ctx context.Context) (string, error)
	Data(ctx context.Context, table string, f catalog.Format) (string, error)
	Cached(table string, f catalog.Format) bool
}

// Server serves one catalog.
type Server struct {
	cfg    *Config
	cat    Catalog
	log    *logger.Logger
	router chi.Router
}

// New builds a Server. A nil cfg uses DefaultConfig; a nil log discards output.
func New(cfg *Config, cat Catalog, log *logger.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{cfg: cfg, cat: cat, log: log}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/schema", s.handleSchema)
	r.Route("/tables", func(r chi.Router) {
		r.Get("/", s.handleTables)
		r.Get("/{table}/csv", s.handleData(catalog.FormatCSV))
		r.Get("/{table}/sql", s.handleData(catalog.FormatSQL))
	})
	return r
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on cfg.Addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return s.log.WithContext(context.Background()) },
	}

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ln)
	}()

	s.log.InfoWith("serving catalog", map[string]interface{}{
		"addr": ln.Addr().String(),
		"file": s.cat.Path(),
	})

	select {
	case err := <-done:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-done
	s.log.Info("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// tableInfo describes one table in the /tables listing.
type tableInfo struct {
	Name   string   `json:"name"`
	Cached []string `json:"cached"`
}

type tablesResponse struct {
	File   string      `json:"file"`
	Tables []tableInfo `json:"tables"`
}

func (s *Server) handleTables(w http.ResponseWriter, _ *http.Request) {
	resp := tablesResponse{File: s.cat.Path(), Tables: []tableInfo{}}
	for _, t := range s.cat.Tables() {
		info := tableInfo{Name: t, Cached: []string{}}
		for _, f := range catalog.Formats {
			if s.cat.Cached(t, f) {
				info.Cached = append(info.Cached, f.String())
			}
		}
		resp.Tables = append(resp.Tables, info)
	}
	writeJSON(w, resp)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.cat.Schema(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeText(w, "application/sql; charset=utf-8", schema)
}

func (s *Server) handleData(f catalog.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := tableParam(r)
		data, err := s.cat.Data(r.Context(), table, f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeText(w, f.ContentType(), data)
	}
}

// tableParam returns the decoded {table} segment. chi matches on the raw
// path when it carries escapes, so names with %2F arrive still encoded.
func tableParam(r *http.Request) string {
	table := chi.URLParam(r, "table")
	if r.URL.RawPath == "" {
		return table
	}
	if unescaped, err := url.PathUnescape(table); err == nil {
		return unescaped
	}
	return table
}

func writeText(w http.ResponseWriter, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
