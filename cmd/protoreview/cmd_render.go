package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dgallion1/protoreview/internal/coverage"
	"github.com/dgallion1/protoreview/internal/layout"
	"github.com/dgallion1/protoreview/internal/render"
	"github.com/dgallion1/protoreview/internal/tree"
	"github.com/dgallion1/protoreview/internal/view"
)

var (
	renderTab    string
	renderFormat string
	renderDepth  int
)

var renderCmd = &cobra.Command{
	Use:   "render FILE",
	Short: "Render a document, or one tab of it",
	Long: `Renders an extracted document read-only. With --tab only that tab is
shown; --tab unmapped shows what no tab places. Formats: terminal, html, json.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderTab, "tab", "", "tab ID to mount; empty renders every tab")
	renderCmd.Flags().StringVar(&renderFormat, "format", "terminal", "output format: terminal, html or json")
	renderCmd.Flags().IntVar(&renderDepth, "depth", view.DefaultDepth, "sections deeper than this start collapsed")
}

func runRender(cmd *cobra.Command, args []string) error {
	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}
	lay, err := layout.Load(layoutFile)
	if err != nil {
		return err
	}

	reg := coverage.New(doc, nil)
	var nodes []*render.Node
	switch renderTab {
	case "":
		for _, tab := range lay.Tabs {
			nodes = append(nodes, layout.Mount(tab, doc, render.Context{}, reg))
		}
		nodes = append(nodes, layout.Unmapped(reg, render.Context{}))
	case layout.UnmappedTabID:
		for _, tab := range lay.Tabs {
			layout.Mount(tab, doc, render.Context{}, reg)
		}
		nodes = append(nodes, layout.Unmapped(reg, render.Context{}))
	default:
		tab, ok := lay.Tab(renderTab)
		if !ok {
			return fmt.Errorf("unknown tab %q", renderTab)
		}
		nodes = append(nodes, layout.Mount(tab, doc, render.Context{}, reg))
	}

	out := cmd.OutOrStdout()
	switch renderFormat {
	case "terminal":
		theme := themeFor(plain)
		for _, n := range nodes {
			fmt.Fprintln(out, view.Terminal(n, view.NewExpansion(renderDepth), theme))
		}
	case "html":
		for _, n := range nodes {
			if err := view.HTML(out, n, view.NewExpansion(renderDepth)); err != nil {
				return err
			}
			fmt.Fprintln(out)
		}
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(nodes)
	default:
		return fmt.Errorf("unknown format %q", renderFormat)
	}
	return nil
}

func loadDocument(filename string) (tree.Value, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	doc, err := tree.Decode(filename, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return doc, nil
}

func themeFor(plain bool) view.Theme {
	if plain || os.Getenv("NO_COLOR") != "" {
		return view.PlainTheme()
	}
	return view.DefaultTheme()
}

func heading(plain bool, text string) string {
	if plain {
		return text
	}
	return lipgloss.NewStyle().Bold(true).Underline(true).Render(text)
}
