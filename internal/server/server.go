// Package server provides the HTTP API backing the notes front end.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/globalfish/notes/internal/config"
	"github.com/globalfish/notes/internal/indexer"
	"github.com/globalfish/notes/internal/rag"
	"github.com/globalfish/notes/internal/storage"
	"github.com/globalfish/notes/internal/vector"
)

// Server is the HTTP server for the notes API.
type Server struct {
	pipeline *rag.Pipeline
	indexer  *indexer.Indexer
	storage  storage.Storage
	store    vector.VectorStore
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. store may be nil
// when no vector store is configured; ask requests then report degraded mode.
func NewServer(
	pipeline *rag.Pipeline,
	idx *indexer.Indexer,
	st storage.Storage,
	store vector.VectorStore,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		pipeline: pipeline,
		indexer:  idx,
		storage:  st,
		store:    store,
		config:   cfg,
		logger:   logger,
	}
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Post("/api/v1/index", s.handleIndex)
	r.Get("/api/v1/notes", s.handleListNotes)
	r.Post("/api/v1/notes", s.handleCreateNote)
	r.Get("/api/v1/notes/{fileID}", s.handleGetNote)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
