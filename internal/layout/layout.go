// Package layout describes review tabs as lists of document fields and
// mounts them through the renderer, recording coverage as it goes.
package layout

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/protoreview/internal/docpath"
)

// Layout is an ordered set of tabs.
type Layout struct {
	Tabs []Tab `json:"tabs" yaml:"tabs" validate:"required,min=1,dive"`
}

// Tab is one review panel.
type Tab struct {
	ID     string  `json:"id" yaml:"id" validate:"required,max=64"`
	Title  string  `json:"title" yaml:"title" validate:"required"`
	Fields []Field `json:"fields" yaml:"fields" validate:"dive"`
}

// Field names a document location shown on a tab. Label overrides the
// humanized key.
type Field struct {
	Path  string `json:"path" yaml:"path" validate:"required"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	path docpath.Path
}

// Location returns the parsed path. It is valid after Validate.
func (f Field) Location() docpath.Path { return f.path }

var validate = validator.New(validator.WithRequiredStructEnabled())

//go:embed default.yaml
var defaultLayout []byte

// Default returns the built-in clinical-protocol layout.
func Default() *Layout {
	l, err := Parse("default.yaml", defaultLayout)
	if err != nil {
		panic(fmt.Sprintf("built-in layout: %v", err))
	}
	return l
}

// Parse decodes a layout from YAML or JSONC, chosen by extension, and
// validates it.
func Parse(filename string, data []byte) (*Layout, error) {
	var l Layout
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("parse layout %s: %w", filename, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&l); err != nil {
			return nil, fmt.Errorf("parse layout %s: %w", filename, err)
		}
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("layout %s: %w", filename, err)
	}
	return &l, nil
}

// Load reads a layout file. An empty filename yields the default layout.
func Load(filename string) (*Layout, error) {
	if filename == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	return Parse(filename, data)
}

// Validate checks required fields, rejects duplicate tab IDs and parses
// every field path.
func (l *Layout) Validate() error {
	if err := validate.Struct(l); err != nil {
		return err
	}
	seen := make(map[string]bool, len(l.Tabs))
	var errs []error
	for i := range l.Tabs {
		tab := &l.Tabs[i]
		if seen[tab.ID] {
			errs = append(errs, fmt.Errorf("duplicate tab id %q", tab.ID))
		}
		if tab.ID == UnmappedTabID {
			errs = append(errs, fmt.Errorf("tab id %q is reserved", tab.ID))
		}
		seen[tab.ID] = true
		for j := range tab.Fields {
			p, err := docpath.Parse(tab.Fields[j].Path)
			if err != nil {
				errs = append(errs, fmt.Errorf("tab %q field %d: %w", tab.ID, j, err))
				continue
			}
			if p.Len() == 0 {
				errs = append(errs, fmt.Errorf("tab %q field %d: empty path", tab.ID, j))
				continue
			}
			tab.Fields[j].path = p
		}
	}
	return errors.Join(errs...)
}

// Tab returns the tab with the given ID.
func (l *Layout) Tab(id string) (Tab, bool) {
	for _, t := range l.Tabs {
		if t.ID == id {
			return t, true
		}
	}
	return Tab{}, false
}
