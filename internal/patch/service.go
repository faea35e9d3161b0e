// Package patch forwards reviewer edits to the document store.
package patch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/protoreview/internal/docpath"
	"github.com/dgallion1/protoreview/internal/docstore"
	"github.com/dgallion1/protoreview/internal/metrics"
	"github.com/dgallion1/protoreview/internal/tree"
)

// FieldUpdater is the external field-update operation.
type FieldUpdater interface {
	UpdateField(ctx context.Context, req docstore.FieldUpdate) error
}

// Intent is one reviewer edit: replace the value at Path in a study.
type Intent struct {
	StudyID    string       `json:"study_id"`
	StudyTitle string       `json:"study_title"`
	Path       docpath.Path `json:"path"`
	Value      tree.Value   `json:"value"`
	UpdatedBy  string       `json:"updated_by"`
}

// PatchError is a failed field update.
type PatchError struct {
	Path       string
	StatusCode int
	Message    string
	Retryable  bool
	Err        error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("patch %s: %s", e.Path, e.Message)
}

func (e *PatchError) Unwrap() error { return e.Err }

// Service applies intents through a FieldUpdater.
type Service struct {
	store FieldUpdater
	stats *Stats
	log   *slog.Logger
}

func NewService(store FieldUpdater, stats *Stats, log *slog.Logger) *Service {
	return &Service{store: store, stats: stats, log: log}
}

// Apply sends one field update. Failures are returned as *PatchError.
func (s *Service) Apply(ctx context.Context, in Intent) error {
	req := docstore.FieldUpdate{
		Path:       in.Path.String(),
		Value:      in.Value,
		UpdatedBy:  in.UpdatedBy,
		StudyID:    in.StudyID,
		StudyTitle: in.StudyTitle,
	}
	if req.Value == nil {
		req.Value = tree.Null{}
	}

	start := time.Now()
	err := s.store.UpdateField(ctx, req)
	elapsed := time.Since(start)
	s.stats.Record(elapsed, err == nil)
	metrics.EditDuration.Observe(elapsed.Seconds())

	if err != nil {
		pe := classify(req.Path, err)
		s.log.Warn("field update failed",
			"study_id", in.StudyID, "path", req.Path, "status", pe.StatusCode, "retryable", pe.Retryable, "error", err)
		return pe
	}
	s.log.Debug("field update applied", "study_id", in.StudyID, "path", req.Path, "duration_ms", elapsed.Milliseconds())
	return nil
}

func classify(path string, err error) *PatchError {
	pe := &PatchError{Path: path, Message: err.Error(), Err: err}
	var se *docstore.StatusError
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		pe.StatusCode = http.StatusNotFound
	case errors.Is(err, tree.ErrPathMismatch):
		pe.StatusCode = http.StatusUnprocessableEntity
	case errors.As(err, &se):
		pe.StatusCode = se.StatusCode
		pe.Message = se.Message
		pe.Retryable = se.Temporary()
	case errors.Is(err, context.DeadlineExceeded):
		pe.StatusCode = http.StatusGatewayTimeout
		pe.Retryable = true
	case errors.Is(err, context.Canceled):
		pe.StatusCode = 499
	default:
		pe.StatusCode = http.StatusBadGateway
		pe.Retryable = true
	}
	return pe
}
