package sourcedoc

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	pdflib "github.com/ledongthuc/pdf"
)

// openPDF reads page text with the Go reader and falls back to pdftotext
// when enabled. Pages that fail to decode stay in place with empty text so
// physical numbering is preserved.
func openPDF(data []byte, opts Options) (*Document, error) {
	doc, err := readPDF(data)
	if err != nil && opts.Pdftotext {
		doc, err = pdftotext(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return doc, nil
}

func readPDF(data []byte) (doc *Document, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	n := reader.NumPage()
	doc = &Document{Pages: make([]Page, 0, n)}
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		var text string
		if !page.V.IsNull() {
			text, _ = page.GetPlainText(nil)
		}
		doc.Pages = append(doc.Pages, Page{Number: i, Text: text})
	}
	doc.Headings = outlineHeadings(doc, reader.Outline().Child, 1, 1)
	return doc, nil
}

// outlineHeadings flattens the bookmark tree. Bookmarks carry no resolved
// page, so each title is placed on the first page at or after its
// predecessor's that mentions it.
func outlineHeadings(doc *Document, items []pdflib.Outline, level, from int) []Heading {
	var out []Heading
	for _, item := range items {
		if item.Title == "" {
			continue
		}
		page := from
		for _, p := range doc.Locate(item.Title) {
			if p >= from {
				page = p
				break
			}
		}
		from = page
		out = append(out, Heading{Level: level, Title: item.Title, Page: page})
		children := outlineHeadings(doc, item.Child, level+1, page)
		if len(children) > 0 {
			from = children[len(children)-1].Page
		}
		out = append(out, children...)
	}
	return out
}

func pdftotext(data []byte) (*Document, error) {
	tmp, err := os.CreateTemp("", "protoreview-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.Command("pdftotext", "-layout", tmp.Name(), "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	pages := splitPages(string(bytes.TrimRight(out, "\f")))
	return &Document{Pages: pages}, nil
}
