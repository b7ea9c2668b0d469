// Package api exposes the catalog over HTTP: JSON endpoints for the
// entity families plus the websocket change feed. The serve command is
// the only consumer; handlers stay thin and defer semantics to the
// catalog facade.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/schemakeep/schemakeep/internal/catalog"
	"github.com/schemakeep/schemakeep/internal/ws"
)

// Server is the REST server over one open catalog.
type Server struct {
	catalog *catalog.Catalog
	hub     *ws.Hub
	logger  *slog.Logger
	listen  string
	server  *http.Server
}

// Option configures the API server.
type Option func(*Server)

// WithHub attaches the websocket change-feed hub.
func WithHub(hub *ws.Hub) Option {
	return func(s *Server) {
		s.hub = hub
	}
}

// New creates an API server over the given catalog.
func New(cat *catalog.Catalog, logger *slog.Logger, listen string, opts ...Option) *Server {
	s := &Server{
		catalog: cat,
		logger:  logger,
		listen:  listen,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the full route set as a standalone handler, for tests
// and for embedding in an outer server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return requestLogger(s.logger, mux)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.listen,
		Handler: s.Handler(),
	}

	s.logger.Info("starting catalog server", "listen", s.listen)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	mux.HandleFunc("GET /api/tables", s.handleListTables)
	mux.HandleFunc("POST /api/tables", s.handleAddTable)
	mux.HandleFunc("GET /api/tables/{key}", s.handleGetTable)
	mux.HandleFunc("PUT /api/tables/{id}", s.handleUpdateTable)
	mux.HandleFunc("DELETE /api/tables/{key}", s.handleRemoveTable)
	mux.HandleFunc("GET /api/tables/{key}/statistic", s.handleGetTableStatistic)
	mux.HandleFunc("PUT /api/tables/{key}/statistic", s.handleSetTableStatistic)
	mux.HandleFunc("GET /api/tables/{id}/column-statistics", s.handleListColumnStatistics)
	mux.HandleFunc("DELETE /api/tables/{id}/column-statistics", s.handleRemoveColumnStatistics)
	mux.HandleFunc("GET /api/tables/{id}/column-statistics/{position}", s.handleGetColumnStatistic)
	mux.HandleFunc("PUT /api/tables/{id}/column-statistics/{position}", s.handlePutColumnStatistic)
	mux.HandleFunc("DELETE /api/tables/{id}/column-statistics/{position}", s.handleRemoveColumnStatistic)

	mux.HandleFunc("GET /api/indexes", s.handleListIndexes)
	mux.HandleFunc("POST /api/indexes", s.handleAddIndex)
	mux.HandleFunc("GET /api/indexes/{key}", s.handleGetIndex)
	mux.HandleFunc("PUT /api/indexes/{id}", s.handleUpdateIndex)
	mux.HandleFunc("DELETE /api/indexes/{key}", s.handleRemoveIndex)

	mux.HandleFunc("GET /api/datatypes", s.handleListDataTypes)
	mux.HandleFunc("GET /api/datatypes/{key}", s.handleGetDataType)

	if s.hub != nil {
		mux.HandleFunc("/api/ws", s.hub.HandleWebSocket)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
