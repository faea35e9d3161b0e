// Package sourcedoc reads the protocol document that extracted data was
// taken from, so citations can be checked against the actual pages.
package sourcedoc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned for file types Open cannot read.
var ErrUnsupported = errors.New("unsupported source document type")

// Page is one physical page of the source document, 1-based.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Heading is a section title and the physical page it starts on.
type Heading struct {
	Level int    `json:"level"`
	Title string `json:"title"`
	Page  int    `json:"page"`
}

// Document is a parsed source document.
type Document struct {
	Title    string
	Pages    []Page
	Headings []Heading
}

// Options tunes Open.
type Options struct {
	// Pdftotext enables the poppler pdftotext fallback for PDFs the Go
	// reader cannot decode.
	Pdftotext bool
}

// Extensions lists readable source extensions in lookup order.
var Extensions = []string{".pdf", ".docx", ".html", ".htm", ".md", ".markdown", ".txt"}

// Open parses data according to filename's extension.
func Open(filename string, data []byte, opts Options) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	title := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	var (
		doc *Document
		err error
	)
	switch ext {
	case ".pdf":
		doc, err = openPDF(data, opts)
	case ".docx":
		doc, err = openDOCX(data)
	case ".html", ".htm":
		doc, err = openHTML(data)
	case ".md", ".markdown":
		doc, err = openMarkdown(data)
	case ".txt":
		doc, err = openText(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	if doc.Title == "" {
		doc.Title = title
	}
	if len(doc.Pages) == 0 {
		doc.Pages = []Page{{Number: 1}}
	}
	return doc, nil
}

// Find locates <name>.<ext> in dir for the first readable extension and
// parses it. It returns os.ErrNotExist when no source exists.
func Find(dir, name string, opts Options) (*Document, error) {
	for _, ext := range Extensions {
		path := filepath.Join(dir, name+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return Open(path, data, opts)
	}
	return nil, fmt.Errorf("source for %s: %w", name, os.ErrNotExist)
}

// NumPages returns the physical page count.
func (d *Document) NumPages() int { return len(d.Pages) }

// Page returns physical page n.
func (d *Document) Page(n int) (Page, bool) {
	if n < 1 || n > len(d.Pages) {
		return Page{}, false
	}
	return d.Pages[n-1], true
}

// Section returns the last heading starting on or before physical page n.
func (d *Document) Section(n int) (Heading, bool) {
	var found Heading
	ok := false
	for _, h := range d.Headings {
		if h.Page > n {
			break
		}
		found, ok = h, true
	}
	return found, ok
}

// Locate returns the physical pages whose text contains snippet, ignoring
// case and whitespace differences.
func (d *Document) Locate(snippet string) []int {
	needle := normalize(snippet)
	if needle == "" {
		return nil
	}
	var pages []int
	for _, p := range d.Pages {
		if strings.Contains(normalize(p.Text), needle) {
			pages = append(pages, p.Number)
		}
	}
	return pages
}

// splitPages cuts text at form feeds, the page separator used by both the
// PDF readers and plain-text exports.
func splitPages(text string) []Page {
	parts := strings.Split(text, "\f")
	pages := make([]Page, len(parts))
	for i, part := range parts {
		pages[i] = Page{Number: i + 1, Text: strings.TrimSpace(part)}
	}
	return pages
}

func normalize(s string) string {
	s = strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`, "­", "").Replace(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
