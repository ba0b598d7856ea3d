package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agentic-research/shape/api"
	"github.com/agentic-research/shape/internal/analyzer"
	"github.com/agentic-research/shape/internal/structure"
)

func (a *app) columnsCmd() *cobra.Command {
	var segs []string
	c := &cobra.Command{
		Use:   "columns --path SEG [--path SEG...] [source...]",
		Short: "Print the column types below a node",
		Example: `  shape columns -p root -p '[]' orders.jsonl
  shape columns -s tree.json -p root -p '[]' -p address`,
		RunE: func(cmd *cobra.Command, args []string) error {
			an, _, err := a.analyze(cmd.Context(), args)
			if err != nil {
				return err
			}
			p := structure.NewNodePath(segs...)
			if _, ok := an.Tree().GetNode(p); !ok {
				return fmt.Errorf("node %s not found", p)
			}
			return writeJSON(cmd.OutOrStdout(), api.ColumnsResult{
				Path:    p.Segments(),
				Columns: an.Tree().GetColumnTypes(p),
			})
		},
	}
	c.Flags().StringArrayVarP(&segs, "path", "p", nil, "Node path segment, repeated")
	_ = c.MarkFlagRequired("path")
	return c
}

func (a *app) treeCmd() *cobra.Command {
	var noColor bool
	c := &cobra.Command{
		Use:   "tree [source...]",
		Short: "Print the structure tree with types, header names and coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			an, _, err := a.analyze(cmd.Context(), args)
			if err != nil {
				return err
			}
			return printTree(cmd.OutOrStdout(), an)
		},
	}
	c.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	return c
}

var (
	nameColor   = color.New(color.Bold)
	headerColor = color.New(color.FgCyan)
	dimColor    = color.New(color.Faint)
	typeColors  = map[structure.NodeType]*color.Color{
		structure.TypeObject: color.New(color.FgBlue),
		structure.TypeArray:  color.New(color.FgMagenta),
		structure.TypeNull:   color.New(color.FgHiBlack),
	}
	scalarColor = color.New(color.FgGreen)
)

func typeColor(t structure.NodeType) *color.Color {
	if c, ok := typeColors[t]; ok {
		return c
	}
	return scalarColor
}

// printTree writes one line per node, indented by depth. Coverage is shown
// for paths the analyzer saw in this run.
func printTree(w io.Writer, an *analyzer.Analyzer) error {
	return an.Tree().Walk(func(info structure.NodeInfo) error {
		var b strings.Builder
		b.WriteString(strings.Repeat("  ", info.Path.Len()-1))
		b.WriteString(nameColor.Sprint(info.Path.Last()))
		t := info.Type
		if t == "" {
			t = "?"
		}
		b.WriteString(" ")
		b.WriteString(typeColor(t).Sprint(t))
		if info.HeaderName != "" {
			b.WriteString(" ")
			b.WriteString(headerColor.Sprint("[" + info.HeaderName + "]"))
		}
		for _, k := range slices.Sorted(maps.Keys(info.Metadata)) {
			b.WriteString(dimColor.Sprintf(" %s=%v", k, info.Metadata[k]))
		}
		if seen, total := an.Coverage(info.Path); total > 0 && seen > 0 {
			b.WriteString(dimColor.Sprintf(" %d/%d", seen, total))
		}
		_, err := fmt.Fprintln(w, b.String())
		return err
	})
}
