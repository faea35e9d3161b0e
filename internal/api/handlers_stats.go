package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/protoreview/internal/metrics"
	"github.com/dgallion1/protoreview/internal/provenance"
	"github.com/dgallion1/protoreview/internal/sourcedoc"
)

func (s *Server) handlePatchStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Stats == nil {
		jsonError(w, "patch stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":       s.deps.Stats.Snapshot(),
		"queue_depth": s.deps.Dispatcher.QueueDepth(),
	})
}

// handleCitation resolves a cited page to the physical source page and,
// given ?snippet=, checks that the quoted text is there.
func (s *Server) handleCitation(w http.ResponseWriter, r *http.Request) {
	studyID := chi.URLParam(r, "studyID")
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || page < 1 {
		jsonError(w, "page must be a positive integer", http.StatusBadRequest)
		return
	}

	src, err := s.deps.Sources.Get(studyID)
	switch {
	case errors.Is(err, sourcedoc.ErrNoSource):
		metrics.CitationLookups.WithLabelValues("no_source").Inc()
		jsonError(w, "no source document for "+studyID, http.StatusNotFound)
		return
	case err != nil:
		metrics.CitationLookups.WithLabelValues("error").Inc()
		s.log.Error("open source document failed", "study_id", studyID, "error", err)
		jsonError(w, "failed to open source document", http.StatusInternalServerError)
		return
	}

	pm := s.deps.Sources.PageMap(src)
	rec := provenance.Record{Explicit: &provenance.Explicit{PageNumber: page, TextSnippet: r.URL.Query().Get("snippet")}}
	v := src.Verify(rec, pm)
	resp := map[string]any{
		"study_id":      studyID,
		"cited_page":    page,
		"physical_page": v.Physical,
		"total_pages":   src.NumPages(),
		"verification":  v,
	}
	if p, ok := src.Page(v.Physical); ok {
		resp["text"] = p.Text
	}
	if h, ok := src.Section(v.Physical); ok {
		resp["section"] = h
	}
	result := "mapped"
	if v.Checked {
		result = "not_found"
		if v.Found {
			result = "verified"
		}
	}
	metrics.CitationLookups.WithLabelValues(result).Inc()
	writeJSON(w, http.StatusOK, resp)
}
