// Command protoreview renders extracted protocol documents in the terminal,
// reports layout coverage, applies single-field edits and checks citations
// against the source document.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	layoutFile string
	plain      bool
)

var rootCmd = &cobra.Command{
	Use:           "protoreview",
	Short:         "Review extracted clinical protocol documents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&layoutFile, "layout", os.Getenv("LAYOUT_FILE"), "tab layout file (.yaml or .jsonc); empty uses the built-in tabs")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "disable colors")

	rootCmd.AddCommand(renderCmd, coverageCmd, setCmd, citeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
