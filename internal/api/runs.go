package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/cocoeval/internal/db"
	"github.com/banshee-data/cocoeval/internal/httputil"
	"github.com/banshee-data/cocoeval/internal/report"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}

	limit := defaultListLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > maxListLimit {
			httputil.BadRequest(w, fmt.Sprintf("Invalid 'limit' parameter: must be 1-%d", maxListLimit))
			return
		}
		limit = parsed
	}

	runs, err := s.runs.List(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list runs: %v", err))
		return
	}
	if runs == nil {
		runs = []*db.Run{}
	}
	httputil.WriteJSON(w, http.StatusOK, runs)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		run, ok := s.lookup(w, id)
		if !ok {
			return
		}
		httputil.WriteJSON(w, http.StatusOK, run)
	case http.MethodDelete:
		if err := s.runs.Delete(id); err != nil {
			s.storeError(w, id, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httputil.MethodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

// runSummary returns the printed COCO summaries of a run as plain text.
func (s *Server) runSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	run, ok := s.lookup(w, r.PathValue("id"))
	if !ok {
		return
	}
	family := r.URL.Query().Get("family")

	var b strings.Builder
	for _, sum := range run.Summaries {
		if family != "" && sum.Family != family {
			continue
		}
		fmt.Fprintf(&b, "Evaluating %s...\n%s%s_mAP_copypaste: %s\n", sum.Family, sum.Summary, sum.Family, sum.CopyPaste)
	}
	if b.Len() == 0 {
		httputil.NotFound(w, "no summary recorded")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

// categoryChart renders the per-category AP of one family. The family
// defaults to the first one with per-category results.
func (s *Server) categoryChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w, http.MethodGet)
		return
	}
	run, ok := s.lookup(w, r.PathValue("id"))
	if !ok {
		return
	}

	family := r.URL.Query().Get("family")
	if family == "" && len(run.PerCategory) > 0 {
		family = run.PerCategory[0].Family
	}
	aps := run.CategoryAPs(family)
	if len(aps) == 0 {
		httputil.NotFound(w, "no per-category results; rerun with classwise enabled")
		return
	}

	bars := make([]report.CategoryBar, len(aps))
	for i, c := range aps {
		bars[i] = report.CategoryBar{Name: c.Name, AP: c.AP}
	}
	var buf bytes.Buffer
	if err := report.RenderCategoryChart(&buf, family, bars); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	httputil.WriteHTML(w, http.StatusOK, buf.Bytes())
}

func (s *Server) lookup(w http.ResponseWriter, id string) (*db.Run, bool) {
	run, err := s.runs.Get(id)
	if err != nil {
		s.storeError(w, id, err)
		return nil, false
	}
	return run, true
}

func (s *Server) storeError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, fmt.Sprintf("run %s not found", id))
		return
	}
	httputil.InternalServerError(w, fmt.Sprintf("Failed to load run: %v", err))
}
