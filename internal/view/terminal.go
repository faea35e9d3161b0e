package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/protoreview/internal/render"
)

// Theme styles the terminal presenter.
type Theme struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Muted    lipgloss.Style
	Editable lipgloss.Style
	Citation lipgloss.Style
	Indent   string
}

// DefaultTheme uses ANSI 256 colours.
func DefaultTheme() Theme {
	return Theme{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Label:    lipgloss.NewStyle().Bold(true),
		Value:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Muted:    lipgloss.NewStyle().Faint(true).Italic(true),
		Editable: lipgloss.NewStyle().Underline(true),
		Citation: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Indent:   "  ",
	}
}

// PlainTheme has no styling, for pipes and tests.
func PlainTheme() Theme {
	s := lipgloss.NewStyle()
	return Theme{Title: s, Label: s, Value: s, Muted: s, Editable: s, Citation: s, Indent: "  "}
}

// Terminal renders n as an indented text tree.
func Terminal(n *render.Node, e *Expansion, theme Theme) string {
	t := &termWriter{theme: theme, exp: e}
	t.node(n, 0, 0)
	return strings.TrimRight(t.b.String(), "\n") + "\n"
}

type termWriter struct {
	b     strings.Builder
	theme Theme
	exp   *Expansion
}

func (t *termWriter) line(indent int, parts ...string) {
	t.b.WriteString(strings.Repeat(t.theme.Indent, indent))
	t.b.WriteString(strings.Join(parts, " "))
	t.b.WriteByte('\n')
}

// inline returns the one-line form of a leaf node, or false when n needs
// its own block.
func (t *termWriter) inline(n *render.Node) (string, bool) {
	switch n.Kind {
	case render.KindNotSpecified, render.KindNone, render.KindNoDetails:
		s := t.theme.Muted.Render(n.Text)
		if n.Citation != nil {
			s += " " + t.cite(n.Citation)
		}
		return s, true
	case render.KindPlaceholder:
		return t.theme.Editable.Render("[" + render.TextNotSpecified + "]"), true
	case render.KindText:
		if strings.Contains(n.Text, "\n") {
			return "", false
		}
		return t.theme.Value.Render(n.Text), true
	case render.KindToggle:
		mark := "[ ]"
		if n.Text == "Yes" {
			mark = "[x]"
		}
		return t.theme.Editable.Render(mark), true
	case render.KindEditor:
		if n.Multiline {
			return "", false
		}
		return t.theme.Editable.Render(n.Text), true
	case render.KindTags:
		tags := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			tags = append(tags, t.theme.Value.Render(c.Text))
		}
		return strings.Join(tags, ", "), true
	}
	return "", false
}

func (t *termWriter) node(n *render.Node, indent, depth int) {
	if s, ok := t.inline(n); ok {
		t.line(indent, s)
		return
	}
	switch n.Kind {
	case render.KindText, render.KindEditor:
		style := t.theme.Value
		if n.Kind == render.KindEditor {
			style = t.theme.Editable
		}
		for _, l := range strings.Split(n.Text, "\n") {
			t.line(indent, style.Render(l))
		}

	case render.KindField:
		head := []string{t.theme.Label.Render(n.Label + ":")}
		if len(n.Children) == 1 {
			if s, ok := t.inline(n.Children[0]); ok {
				head = append(head, s)
				if n.Citation != nil {
					head = append(head, t.cite(n.Citation))
				}
				t.line(indent, head...)
				return
			}
		}
		if n.Citation != nil {
			head = append(head, t.cite(n.Citation))
		}
		t.line(indent, head...)
		for _, c := range n.Children {
			t.node(c, indent+1, depth)
		}

	case render.KindSection, render.KindList:
		label := n.Label
		if n.Kind == render.KindList {
			label = fmt.Sprintf("%d items", len(n.Children))
		}
		open := t.exp.Open(n, depth)
		marker := "▾"
		if !open {
			marker = "▸"
		}
		head := []string{marker, t.theme.Label.Render(label)}
		if n.Citation != nil {
			head = append(head, t.cite(n.Citation))
		}
		t.line(indent, head...)
		if !open {
			return
		}
		for i, c := range n.Children {
			if n.Kind == render.KindList {
				t.line(indent+1, t.theme.Muted.Render(fmt.Sprintf("#%d", i+1)))
			}
			t.node(c, indent+2, depth+1)
		}

	case render.KindCited:
		if n.Citation != nil {
			t.line(indent, t.cite(n.Citation))
		}
		for _, c := range n.Children {
			t.node(c, indent, depth)
		}

	case render.KindObject:
		if n.Path.Len() == 0 && n.Label != "" {
			t.line(indent, t.theme.Title.Render(n.Label))
			indent++
		}
		if n.Citation != nil {
			t.line(indent, t.cite(n.Citation))
		}
		for _, c := range n.Children {
			t.node(c, indent, depth)
		}
	}
}

func (t *termWriter) cite(c *render.Citation) string {
	return t.theme.Citation.Render(fmt.Sprintf("[p.%d]", c.Page))
}
