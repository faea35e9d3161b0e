package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/protoreview/internal/coverage"
	"github.com/dgallion1/protoreview/internal/docpath"
	"github.com/dgallion1/protoreview/internal/docstore"
	"github.com/dgallion1/protoreview/internal/layout"
	"github.com/dgallion1/protoreview/internal/metrics"
	"github.com/dgallion1/protoreview/internal/patch"
	"github.com/dgallion1/protoreview/internal/render"
	"github.com/dgallion1/protoreview/internal/tree"
	"github.com/dgallion1/protoreview/internal/view"
)

type tabSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Fields int    `json:"fields"`
}

type mountResponse struct {
	StudyID  string         `json:"study_id"`
	Title    string         `json:"study_title"`
	Tab      string         `json:"tab"`
	Node     *render.Node   `json:"node"`
	Data     *tree.Object   `json:"data,omitempty"`
	Coverage coverage.Stats `json:"coverage"`
}

func (s *Server) handleListTabs(w http.ResponseWriter, r *http.Request) {
	tabs := make([]tabSummary, 0, len(s.deps.Layout.Tabs)+1)
	for _, t := range s.deps.Layout.Tabs {
		tabs = append(tabs, tabSummary{ID: t.ID, Title: t.Title, Fields: len(t.Fields)})
	}
	tabs = append(tabs, tabSummary{ID: layout.UnmappedTabID, Title: "Unmapped Data"})
	writeJSON(w, http.StatusOK, map[string]any{"tabs": tabs})
}

// handleMountTab renders one tab and records what it showed in the
// session's coverage registry.
func (s *Server) handleMountTab(w http.ResponseWriter, r *http.Request) {
	tabID := chi.URLParam(r, "tabID")
	if tabID == layout.UnmappedTabID {
		s.handleUnmapped(w, r)
		return
	}
	tab, ok := s.deps.Layout.Tab(tabID)
	if !ok {
		jsonError(w, "unknown tab: "+tabID, http.StatusNotFound)
		return
	}
	doc, ok := s.loadStudy(w, r)
	if !ok {
		return
	}

	reg, created := s.deps.Sessions.Bind(sessionID(r), doc.ID, doc.Tree, nil)
	if created {
		metrics.ActiveSessions.Set(float64(s.deps.Sessions.Len()))
	}
	n := layout.Mount(tab, doc.Tree, s.renderContext(r, doc), reg)
	metrics.TabMounts.WithLabelValues(tab.ID).Inc()

	s.respondNode(w, r, mountResponse{
		StudyID:  doc.ID,
		Title:    doc.Title,
		Tab:      tab.ID,
		Node:     n,
		Coverage: reg.Stats(),
	})
}

// handleUnmapped shows what no tab has placed yet. It binds the session but
// marks nothing.
func (s *Server) handleUnmapped(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadStudy(w, r)
	if !ok {
		return
	}
	reg, _ := s.deps.Sessions.Bind(sessionID(r), doc.ID, doc.Tree, nil)
	n := layout.Unmapped(reg, s.renderContext(r, doc))
	s.respondNode(w, r, mountResponse{
		StudyID:  doc.ID,
		Title:    doc.Title,
		Tab:      layout.UnmappedTabID,
		Node:     n,
		Data:     reg.UnrenderedData(),
		Coverage: reg.Stats(),
	})
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	studyID := chi.URLParam(r, "studyID")
	reg := s.deps.Sessions.Lookup(sessionID(r), studyID)
	stats := reg.Stats()
	if reg.Initialized() {
		metrics.CoveragePercentage.Observe(float64(stats.Percentage))
	}
	unrendered := []string{}
	for _, p := range reg.UnrenderedPaths() {
		unrendered = append(unrendered, p.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"study_id":    studyID,
		"initialized": reg.Initialized(),
		"coverage":    stats,
		"unrendered":  unrendered,
	})
}

func (s *Server) handleDisposeSession(w http.ResponseWriter, r *http.Request) {
	disposed := s.deps.Sessions.Dispose(sessionID(r))
	metrics.ActiveSessions.Set(float64(s.deps.Sessions.Len()))
	writeJSON(w, http.StatusOK, map[string]any{"disposed": disposed})
}

func (s *Server) loadStudy(w http.ResponseWriter, r *http.Request) (*docstore.Document, bool) {
	studyID := chi.URLParam(r, "studyID")
	doc, err := s.deps.Store.Get(r.Context(), studyID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		jsonError(w, "study not found: "+studyID, http.StatusNotFound)
		return nil, false
	case err != nil:
		s.log.Error("load study failed", "study_id", studyID, "error", err)
		jsonError(w, "failed to load study", http.StatusBadGateway)
		return nil, false
	}
	return doc, true
}

// renderContext makes nodes editable when editing is enabled and the
// request did not ask for a read-only view. HTTP clients only see the
// editor kinds and send their changes with PATCH; OnEdit serves callers
// that drive the mounted nodes in process (Edit, Toggle) and queues on the
// dispatcher under the request's session just as PATCH does.
func (s *Server) renderContext(r *http.Request, doc *docstore.Document) render.Context {
	if !s.cfg.EditingEnabled || r.URL.Query().Get("mode") == "view" {
		return render.Context{}
	}
	session, reviewer := sessionID(r), reviewerOf(r)
	return render.Context{
		Editable: true,
		OnEdit: func(p docpath.Path, v tree.Value) {
			if _, err := s.deps.Dispatcher.Submit(session, patch.Intent{
				StudyID: doc.ID, StudyTitle: doc.Title, Path: p, Value: v, UpdatedBy: reviewer,
			}, nil); err != nil {
				s.log.Warn("edit rejected", "study_id", doc.ID, "path", p.String(), "error", err)
			}
		},
	}
}

func (s *Server) respondNode(w http.ResponseWriter, r *http.Request, resp mountResponse) {
	if r.URL.Query().Get("format") != "html" {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	depth := view.DefaultDepth
	if d, err := strconv.Atoi(r.URL.Query().Get("depth")); err == nil && d >= 0 {
		depth = d
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.HTML(w, resp.Node, view.NewExpansion(depth)); err != nil {
		s.log.Error("render html failed", "study_id", resp.StudyID, "tab", resp.Tab, "error", err)
	}
}

func reviewerOf(r *http.Request) string {
	if v := r.Header.Get("X-Reviewer"); v != "" {
		return v
	}
	return "reviewer"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
