package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dgallion1/protoreview/internal/provenance"
	"github.com/dgallion1/protoreview/internal/sourcedoc"
)

var (
	citeSnippet   string
	citeFirstPage int
	citeOffset    int
	citeNoPdftext bool
)

var citeCmd = &cobra.Command{
	Use:   "cite SOURCE PAGE",
	Short: "Show the source page a citation points at",
	Long: `Maps a cited page number to the physical page of SOURCE (pdf, docx, html,
markdown or text) and prints it. With --snippet the quoted text is searched for.`,
	Args: cobra.ExactArgs(2),
	RunE: runCite,
}

func init() {
	citeCmd.Flags().StringVar(&citeSnippet, "snippet", "", "quoted text to verify")
	citeCmd.Flags().IntVar(&citeFirstPage, "first-page", 1, "first page that carries a printed number")
	citeCmd.Flags().IntVar(&citeOffset, "offset", 0, "physical pages before printed page 1")
	citeCmd.Flags().BoolVar(&citeNoPdftext, "no-pdftotext", false, "do not fall back to pdftotext for PDFs")
}

func runCite(cmd *cobra.Command, args []string) error {
	page, err := strconv.Atoi(args[1])
	if err != nil || page < 1 {
		return fmt.Errorf("page must be a positive integer, got %q", args[1])
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	src, err := sourcedoc.Open(args[0], data, sourcedoc.Options{Pdftotext: !citeNoPdftext})
	if err != nil {
		return err
	}

	m := sourcedoc.PageMap{FirstNumberedPage: citeFirstPage, PageOffset: citeOffset}
	rec := provenance.Record{Explicit: &provenance.Explicit{PageNumber: page, TextSnippet: citeSnippet}}
	v := src.Verify(rec, m)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, heading(plain, fmt.Sprintf("%s: p. %d (physical %d of %d)", src.Title, page, v.Physical, src.NumPages())))
	if h, ok := src.Section(v.Physical); ok {
		fmt.Fprintf(out, "Section: %s\n", h.Title)
	}
	if v.Checked {
		switch {
		case v.Found:
			fmt.Fprintln(out, "Snippet: found on the cited page")
		case len(v.FoundOn) > 0:
			fmt.Fprintf(out, "Snippet: not on the cited page, found on %v\n", v.FoundOn)
		default:
			fmt.Fprintln(out, "Snippet: not found")
		}
	}
	if p, ok := src.Page(v.Physical); ok {
		fmt.Fprintf(out, "\n%s\n", p.Text)
	}
	return nil
}
