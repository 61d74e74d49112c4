// Package webhook exposes the watch daemon's small HTTP surface: health,
// session listing, and an explicit sweep trigger.
package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/user/clawrelay/internal/types"
)

// SweepFunc triggers one cleanup sweep and returns the number of sessions
// removed.
type SweepFunc func(ctx context.Context) (int, error)

// Server is a lightweight HTTP handler for the watch daemon.
type Server struct {
	threads types.ThreadStore
	sweep   SweepFunc
	mux     *http.ServeMux
}

// NewServer creates a webhook Server over the given thread store and sweep
// trigger.
func NewServer(threads types.ThreadStore, sweep SweepFunc) *Server {
	s := &Server{
		threads: threads,
		sweep:   sweep,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /sweep", s.handleSweep)
	s.mux.HandleFunc("GET /api/sessions", s.handleSessions)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	removed, err := s.sweep(r.Context())
	if err != nil {
		slog.Error("triggered sweep failed", "error", err)
		http.Error(w, `{"error":"sweep failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"removed": removed})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	records, err := s.threads.List(r.Context())
	if err != nil {
		slog.Error("list sessions failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*types.ThreadRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
