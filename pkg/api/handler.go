package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/kestrelai/graphlens/pkg/config"
	"github.com/kestrelai/graphlens/pkg/engine"
	"github.com/kestrelai/graphlens/pkg/logx"
)

var log = logx.Get("api")

// Server is the Graph Construction Engine's single-endpoint HTTP
// facade (spec.md §6.2: "GET /graph?refresh=bool&threshold=float").
//
// Grounded on the teacher's pkg/server New/Start/Stop/Addr shape, cut
// down to the one route this facade actually serves; no router
// library is used, matching the teacher's plain http.NewServeMux.
type Server struct {
	engine *engine.Engine
	cfg    *config.Config

	httpServer *http.Server
	listener   net.Listener
	closed     atomic.Bool
}

// New builds a Server around eng, reading default listen address and
// default threshold from cfg.
func New(eng *engine.Engine, cfg *config.Config) *Server {
	return &Server{engine: eng, cfg: cfg}
}

// Start begins listening and serving in the background; it returns
// once the listener is bound, not once the server stops.
func (s *Server) Start() error {
	if s.closed.Load() {
		return fmt.Errorf("api: server already stopped")
	}

	listener, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("api: listen on %s: %w", s.cfg.Server.Addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/graph", s.handleGraph)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the server's bound listen address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Server.Addr
}

// handleGraph serves GET /graph: builds (or reuses the cached) graph
// at the requested threshold and writes the sanitized JSON facade.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	threshold := s.cfg.Similarity.Threshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			http.Error(w, "invalid threshold", http.StatusBadRequest)
			return
		}
		threshold = v
	}

	refresh := false
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "invalid refresh", http.StatusBadRequest)
			return
		}
		refresh = v
	}

	g, err := s.engine.Build(r.Context(), threshold, refresh, time.Now().UnixMilli())
	if err != nil {
		// Store-level failures are reported in meta.error by the engine
		// itself (spec.md §7 kind 1); Build only returns err for
		// programmer-facing faults, which are a 500.
		log.Error("graph build failed", "err", err)
		http.Error(w, "build failed", http.StatusInternalServerError)
		return
	}

	resp := Build(g, s.engine.CacheStats())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("encode response failed", "err", err)
	}
}

// handleHealth is a liveness probe distinct from /graph so callers can
// check the facade is up without paying for a pipeline run.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
