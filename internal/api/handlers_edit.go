package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/protoreview/internal/docpath"
	"github.com/dgallion1/protoreview/internal/docstore"
	"github.com/dgallion1/protoreview/internal/patch"
	"github.com/dgallion1/protoreview/internal/tree"
)

// patchRequest is the body of PATCH /api/studies/{studyID}/fields. Value
// must be present; an explicit null clears the field.
type patchRequest struct {
	Path  string          `json:"path" validate:"required,max=1024"`
	Value json.RawMessage `json:"value" validate:"required"`
}

func (s *Server) handlePatchField(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.EditingEnabled {
		jsonError(w, "editing is disabled", http.StatusForbidden)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		jsonError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	p, err := docpath.Parse(req.Path)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if p.Len() == 0 {
		jsonError(w, "path must name a field", http.StatusBadRequest)
		return
	}
	value, err := tree.Parse(req.Value)
	if err != nil {
		jsonError(w, "invalid value: "+err.Error(), http.StatusBadRequest)
		return
	}

	doc, ok := s.loadStudy(w, r)
	if !ok {
		return
	}
	session := sessionID(r)
	editID, err := s.deps.Dispatcher.Submit(session, patch.Intent{
		StudyID:    doc.ID,
		StudyTitle: doc.Title,
		Path:       p,
		Value:      value,
		UpdatedBy:  reviewerOf(r),
	}, nil)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, patch.ErrQueueFull) || errors.Is(err, patch.ErrStopped) {
			code = http.StatusServiceUnavailable
		}
		jsonError(w, err.Error(), code)
		return
	}
	s.log.Info("edit submitted", "edit_id", editID, "study_id", doc.ID, "path", p.String(), "session", session)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"edit_id": editID,
		"status":  patch.StatusQueued,
		"path":    p.String(),
	})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	list := s.deps.Dispatcher.Notifications().List(sessionID(r))
	writeJSON(w, http.StatusOK, map[string]any{"notifications": list})
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	editID := chi.URLParam(r, "editID")
	if !s.deps.Dispatcher.Notifications().Dismiss(sessionID(r), editID) {
		jsonError(w, "notification not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	studyID := chi.URLParam(r, "studyID")
	entries, err := s.deps.Store.Audit(r.Context(), studyID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		jsonError(w, "study not found: "+studyID, http.StatusNotFound)
		return
	case err != nil:
		s.log.Error("load audit failed", "study_id", studyID, "error", err)
		jsonError(w, "failed to load audit trail", http.StatusBadGateway)
		return
	}
	if entries == nil {
		entries = []docstore.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"study_id": studyID, "entries": entries})
}
