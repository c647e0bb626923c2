package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/l3aro/go-bytecode-lift/pkg/cfg"
)

// edgeStyle maps control edge types to Graphviz attributes.
var edgeStyle = map[cfg.EdgeType]string{
	cfg.EdgeTypeFallThrough:   "",
	cfg.EdgeTypeUnconditional: "",
	cfg.EdgeTypeConditional:   "style=dashed",
	cfg.EdgeTypeAbnormal:      "style=dotted color=red",
}

// WriteDOT renders a graph as a Graphviz digraph. Each block becomes a
// left-aligned record of its rendered lines; the entry node is drawn bold.
func WriteDOT[I any](w io.Writer, g *cfg.Graph[I], name string, format func(I) string) error {
	if name == "" {
		name = "cfg"
	}
	if _, err := fmt.Fprintf(w, "digraph %q {\n\tnode [shape=box fontname=monospace];\n", name); err != nil {
		return err
	}

	entry := g.Entrypoint()
	for _, n := range g.Nodes() {
		var lines []string
		for _, instr := range n.Block().Instructions {
			lines = append(lines, escapeDOT(format(instr)))
		}
		label := fmt.Sprintf("block_%d\\l%s\\l", n.ID(), strings.Join(lines, "\\l"))
		attrs := ""
		if entry != nil && n == entry {
			attrs = " style=bold"
		}
		if _, err := fmt.Fprintf(w, "\tn%d [label=\"%s\"%s];\n", n.ID(), label, attrs); err != nil {
			return err
		}
	}

	for _, e := range g.Edges() {
		attrs := edgeStyle[e.Type]
		if attrs != "" {
			attrs = " [" + attrs + "]"
		}
		if _, err := fmt.Fprintf(w, "\tn%d -> n%d%s;\n", e.OriginID(), e.TargetID(), attrs); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w, "}")
	return err
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}
