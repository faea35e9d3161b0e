package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/protoreview/internal/docpath"
	"github.com/dgallion1/protoreview/internal/tree"
)

// Local serves documents from a directory of <studyID>.json|.jsonc|.yaml
// files and applies updates in memory. It is the development stand-in for
// the remote document service.
type Local struct {
	mu    sync.Mutex
	docs  map[string]*Document
	audit map[string][]AuditEntry
	log   *slog.Logger
	now   func() time.Time
}

// NewLocal returns an empty store.
func NewLocal(log *slog.Logger) *Local {
	return &Local{
		docs:  make(map[string]*Document),
		audit: make(map[string][]AuditEntry),
		log:   log,
		now:   time.Now,
	}
}

// OpenDir loads every document file in dir.
func OpenDir(dir string, log *slog.Logger) (*Local, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read document dir: %w", err)
	}
	s := NewLocal(log)
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(tree.Extensions, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		name := e.Name()
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		doc, err := tree.Decode(name, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		s.Put(id, doc)
		log.Info("loaded document", "study_id", id, "file", name)
	}
	return s, nil
}

// Put adds or replaces a document.
func (s *Local) Put(studyID string, doc tree.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rev := 1
	if prev, ok := s.docs[studyID]; ok {
		rev = prev.Revision + 1
	}
	s.docs[studyID] = &Document{
		ID:        studyID,
		Title:     TitleOf(studyID, doc),
		Revision:  rev,
		UpdatedAt: s.now(),
		Tree:      doc,
	}
}

// IDs lists study IDs in sorted order.
func (s *Local) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Local) Get(_ context.Context, studyID string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[studyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, studyID)
	}
	cp := *doc
	return &cp, nil
}

// UpdateField resolves req.Path and replaces the value there. The swap and
// the audit entry happen under one lock, so readers see either the old or
// the new document. Concurrent updates to different paths are applied in
// arrival order; the last write wins.
func (s *Local) UpdateField(ctx context.Context, req FieldUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := docpath.Parse(req.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", tree.ErrPathMismatch, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[req.StudyID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, req.StudyID)
	}
	old, _ := tree.Get(doc.Tree, p)
	updated, err := tree.Set(doc.Tree, p, req.Value)
	if err != nil {
		return fmt.Errorf("update %s: %w", req.Path, err)
	}
	now := s.now()
	s.audit[req.StudyID] = append(s.audit[req.StudyID], AuditEntry{
		ID:        uuid.NewString(),
		StudyID:   req.StudyID,
		Path:      p.String(),
		UpdatedBy: req.UpdatedBy,
		At:        now,
		Delta:     Delta{Old: old, New: req.Value},
		Before:    doc.Tree,
		After:     updated,
	})
	s.docs[req.StudyID] = &Document{
		ID:        doc.ID,
		Title:     TitleOf(doc.ID, updated),
		Revision:  doc.Revision + 1,
		UpdatedAt: now,
		Tree:      updated,
	}
	s.log.Info("field updated", "study_id", req.StudyID, "path", p.String(), "updated_by", req.UpdatedBy, "revision", doc.Revision+1)
	return nil
}

func (s *Local) Audit(_ context.Context, studyID string) ([]AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[studyID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, studyID)
	}
	return slices.Clone(s.audit[studyID]), nil
}
