// Package api serves the evaluation run history over HTTP.
package api

import (
	"net/http"

	"github.com/banshee-data/cocoeval/internal/db"
)

// RunStore is the subset of db.RunStore the handlers need.
type RunStore interface {
	List(limit int) ([]*db.Run, error)
	Get(runID string) (*db.Run, error)
	Delete(runID string) error
}

// Server exposes stored evaluation runs.
type Server struct {
	runs RunStore
}

// NewServer creates a Server backed by runs.
func NewServer(runs RunStore) *Server {
	return &Server{runs: runs}
}

// ServeMux returns the routes of the run browser.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/runs/{id}", s.run)
	mux.HandleFunc("/api/runs/{id}/summary", s.runSummary)
	mux.HandleFunc("/charts/runs/{id}", s.categoryChart)
	return mux
}
