package sourcedoc

import (
	"errors"
	"os"
	"sync"
)

// ErrNoSource is returned when no source directory is configured or the
// study has no source file.
var ErrNoSource = errors.New("no source document")

// Library loads source documents from a directory on first use and keeps
// them parsed.
type Library struct {
	dir  string
	opts Options
	base PageMap

	mu   sync.Mutex
	docs map[string]*Document
}

// NewLibrary serves <dir>/<studyID>.<ext>. base supplies the page offset
// settings; TotalPages is filled in per document.
func NewLibrary(dir string, base PageMap, opts Options) *Library {
	return &Library{dir: dir, opts: opts, base: base, docs: make(map[string]*Document)}
}

// Get returns the parsed source for studyID.
func (l *Library) Get(studyID string) (*Document, error) {
	if l == nil || l.dir == "" {
		return nil, ErrNoSource
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if d, ok := l.docs[studyID]; ok {
		return d, nil
	}
	d, err := Find(l.dir, studyID, l.opts)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSource
	}
	if err != nil {
		return nil, err
	}
	l.docs[studyID] = d
	return d, nil
}

// PageMap returns the page map for d.
func (l *Library) PageMap(d *Document) PageMap {
	m := l.base
	if d != nil {
		m.TotalPages = d.NumPages()
	}
	return m
}
