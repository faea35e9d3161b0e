package sourcedoc

import "github.com/dgallion1/protoreview/internal/provenance"

// PageMap converts the page numbers printed in a protocol into physical page
// numbers. Front matter (cover, synopsis, table of contents) usually runs
// before page 1 of the numbered body, so printed numbers from
// FirstNumberedPage onward are shifted by PageOffset.
type PageMap struct {
	FirstNumberedPage int `json:"first_numbered_page"`
	PageOffset        int `json:"page_offset"`
	TotalPages        int `json:"total_pages"`
}

// Physical maps a cited page to a physical page, clamped to the document.
// With TotalPages 0 only the lower bound applies.
func (m PageMap) Physical(page int) int {
	p := page
	if page >= m.FirstNumberedPage {
		p += m.PageOffset
	}
	if m.TotalPages > 0 && p > m.TotalPages {
		p = m.TotalPages
	}
	return max(p, 1)
}

// Verification is the result of checking one citation against the source.
type Verification struct {
	Cited    int    `json:"cited_page"`
	Physical int    `json:"physical_page"`
	Snippet  string `json:"snippet,omitempty"`
	Checked  bool   `json:"checked"`
	Found    bool   `json:"found"`
	FoundOn  []int  `json:"found_on,omitempty"`
}

// Verify checks whether rec's snippet appears on the page it cites. Records
// without a snippet are mapped but not checked.
func (d *Document) Verify(rec provenance.Record, m PageMap) Verification {
	if m.TotalPages == 0 {
		m.TotalPages = d.NumPages()
	}
	v := Verification{Cited: rec.PageNumber()}
	v.Physical = m.Physical(v.Cited)
	if rec.Explicit == nil || rec.Explicit.TextSnippet == "" {
		return v
	}
	v.Snippet = rec.Explicit.TextSnippet
	v.Checked = true
	v.FoundOn = d.Locate(v.Snippet)
	for _, p := range v.FoundOn {
		if p == v.Physical {
			v.Found = true
		}
	}
	return v
}
