package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dgallion1/protoreview/internal/docpath"
	"github.com/dgallion1/protoreview/internal/render"
	"github.com/dgallion1/protoreview/internal/tree"
)

var setOutput string

var setCmd = &cobra.Command{
	Use:   "set FILE PATH VALUE",
	Short: "Edit one field the way the review view does",
	Long: `Renders FILE editable, enters edit mode on the leaf at PATH, types VALUE
and commits. Booleans are toggled. The updated document is written as JSON to
stdout or to --output.`,
	Args: cobra.ExactArgs(3),
	RunE: runSet,
}

func init() {
	setCmd.Flags().StringVarP(&setOutput, "output", "o", "", "write the updated document here instead of stdout")
}

func runSet(cmd *cobra.Command, args []string) error {
	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}
	p, err := docpath.Parse(args[1])
	if err != nil {
		return err
	}

	var applyErr error
	ctx := render.Context{
		Editable: true,
		OnEdit: func(at docpath.Path, v tree.Value) {
			doc, applyErr = tree.Set(doc, at, v)
		},
	}
	root := render.Render(doc, docpath.Root, ctx)
	leaf := root.Leaf(p)
	if leaf == nil {
		return fmt.Errorf("%s is not rendered in %s", p, args[0])
	}

	switch leaf.Kind {
	case render.KindToggle:
		want, err := strconv.ParseBool(args[2])
		if err != nil {
			return fmt.Errorf("%s is a boolean: %w", p, err)
		}
		if cur, _ := leaf.Value.(tree.Bool); bool(cur) != want {
			leaf.Toggle()
		}
	default:
		sess := leaf.Edit()
		if sess == nil {
			return fmt.Errorf("%s (%s) cannot be edited", p, leaf.Kind)
		}
		sess.Set(args[2])
		if err := sess.Commit(); err != nil {
			if errors.Is(err, render.ErrNotANumber) {
				return fmt.Errorf("%s is a number: %q", p, args[2])
			}
			return err
		}
	}
	if applyErr != nil {
		return applyErr
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if setOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(setOutput, data, 0o644)
}
