package sourcedoc

import "strings"

// openText splits plain text on form feeds. The first non-empty line is
// taken as the title when it looks like one.
func openText(data []byte) (*Document, error) {
	s := strings.ReplaceAll(string(data), "\r\n", "\n")
	doc := &Document{Pages: splitPages(strings.TrimRight(s, "\f"))}
	for _, line := range strings.Split(doc.Pages[0].Text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) <= 200 {
			doc.Title = line
		}
		break
	}
	return doc, nil
}
