package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/protoreview/internal/coverage"
	"github.com/dgallion1/protoreview/internal/layout"
	"github.com/dgallion1/protoreview/internal/render"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage FILE",
	Short: "Report how much of a document the layout places",
	Args:  cobra.ExactArgs(1),
	RunE:  runCoverage,
}

func runCoverage(cmd *cobra.Command, args []string) error {
	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}
	lay, err := layout.Load(layoutFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	reg := coverage.New(doc, nil)
	fmt.Fprintln(out, heading(plain, "Tabs"))
	for _, tab := range lay.Tabs {
		before := reg.Stats().Rendered
		layout.Mount(tab, doc, render.Context{}, reg)
		fmt.Fprintf(out, "  %-24s +%d\n", tab.Title, reg.Stats().Rendered-before)
	}

	st := reg.Stats()
	fmt.Fprintf(out, "\nCoverage: %d%% (%d of %d top-level fields)\n", st.Percentage, st.Rendered, st.Total)
	if missing := reg.UnrenderedPaths(); len(missing) > 0 {
		fmt.Fprintln(out, heading(plain, "Unmapped"))
		for _, p := range missing {
			fmt.Fprintf(out, "  %s\n", p)
		}
	}
	return nil
}
