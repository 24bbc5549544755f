// Package server exposes the store's read surface over HTTP and streams
// store-update events to live clients.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/feedcached/feedcached/internal/eventbus"
	"github.com/feedcached/feedcached/internal/store"
)

// Server serves the read API for one store instance.
type Server struct {
	addr       string
	store      *store.Store
	bus        *eventbus.Bus
	httpServer *http.Server
}

// New creates an API server.
func New(host string, port int, st *store.Store, bus *eventbus.Bus) *Server {
	return &Server{
		addr:  fmt.Sprintf("%s:%d", host, port),
		store: st,
		bus:   bus,
	}
}

// routes builds the request mux. Split out from Run so tests can drive the
// handlers without binding a port.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/{namespace}", s.handleCollections)
	mux.HandleFunc("GET /api/{namespace}/items", s.handleItems)
	mux.HandleFunc("GET /api/{namespace}/items/{id}", s.handleItemByID)
	mux.HandleFunc("GET /api/{namespace}/{collection}", s.handleSearch)

	return mux
}

// Run starts the API server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.routes(),
	}

	log.Info().Str("addr", s.addr).Msg("Starting API server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("API server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
