// Package docstore loads extracted study documents and applies field
// updates to them.
//
// The document store owns persistence: it resolves a wire path into a nested
// update, applies it atomically and keeps an audit trail with full
// before/after snapshots. The review core only ever talks to it through
// FieldUpdate.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/protoreview/internal/tree"
)

// ErrNotFound is returned for unknown study IDs.
var ErrNotFound = errors.New("document not found")

// Document is one study's extracted data.
type Document struct {
	ID        string     `json:"study_id"`
	Title     string     `json:"study_title"`
	Revision  int        `json:"revision"`
	UpdatedAt time.Time  `json:"updated_at"`
	Tree      tree.Value `json:"document"`
}

// FieldUpdate is the request body of the field-update operation. Path is in
// dot/bracket wire form.
type FieldUpdate struct {
	Path       string     `json:"path"`
	Value      tree.Value `json:"value"`
	UpdatedBy  string     `json:"updatedBy"`
	StudyID    string     `json:"studyId"`
	StudyTitle string     `json:"studyTitle"`
}

// AuditEntry records one applied update.
type AuditEntry struct {
	ID        string     `json:"id"`
	StudyID   string     `json:"study_id"`
	Path      string     `json:"path"`
	UpdatedBy string     `json:"updated_by"`
	At        time.Time  `json:"at"`
	Delta     Delta      `json:"delta"`
	Before    tree.Value `json:"before"`
	After     tree.Value `json:"after"`
}

// Delta isolates the changed field.
type Delta struct {
	Old tree.Value `json:"old"`
	New tree.Value `json:"new"`
}

// Store is the document source and field-update operation.
type Store interface {
	Get(ctx context.Context, studyID string) (*Document, error)
	UpdateField(ctx context.Context, req FieldUpdate) error
	Audit(ctx context.Context, studyID string) ([]AuditEntry, error)
}

// StatusError is a failure reported by a remote store.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("document store status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// TitleOf picks a display title from common top-level members, falling back
// to the study ID.
func TitleOf(studyID string, doc tree.Value) string {
	obj, ok := tree.AsObject(doc)
	if !ok {
		return studyID
	}
	for _, key := range []string{"study_title", "title", "protocol_title"} {
		if s, ok := stringMember(obj, key); ok {
			return s
		}
	}
	if ident, ok := obj.Get("study_identification"); ok {
		if io, ok := tree.AsObject(ident); ok {
			for _, key := range []string{"study_title", "official_title", "brief_title"} {
				if s, ok := stringMember(io, key); ok {
					return s
				}
			}
		}
	}
	return studyID
}

func stringMember(obj *tree.Object, key string) (string, bool) {
	v, _ := obj.Get(key)
	s, ok := v.(tree.String)
	return string(s), ok && s != ""
}
