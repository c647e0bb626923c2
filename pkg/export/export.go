// Package export flattens graph models into serializable documents for the
// CLI and the result cache, and renders them as Graphviz DOT.
package export

import (
	"github.com/l3aro/go-bytecode-lift/pkg/cfg"
)

// BlockDocument is one basic block rendered to lines.
type BlockDocument struct {
	Offset     int64    `json:"offset" msgpack:"offset"`
	Statements []string `json:"statements" msgpack:"statements"`
}

// EdgeDocument is one control flow edge.
type EdgeDocument struct {
	Source int64  `json:"source" msgpack:"source"`
	Target int64  `json:"target" msgpack:"target"`
	Type   string `json:"type" msgpack:"type"`
}

// RegionDocument is one node of the region tree.
type RegionDocument struct {
	Kind      string           `json:"kind" msgpack:"kind"`
	Nodes     []int64          `json:"nodes,omitempty" msgpack:"nodes,omitempty"`
	Children  []RegionDocument `json:"children,omitempty" msgpack:"children,omitempty"`
	Protected *RegionDocument  `json:"protected,omitempty" msgpack:"protected,omitempty"`
	Handlers  []RegionDocument `json:"handlers,omitempty" msgpack:"handlers,omitempty"`
}

// CFGDocument is a complete control flow graph flattened for output.
type CFGDocument struct {
	Name       string           `json:"name,omitempty" msgpack:"name"`
	Entrypoint int64            `json:"entrypoint" msgpack:"entrypoint"`
	Blocks     []BlockDocument  `json:"blocks" msgpack:"blocks"`
	Edges      []EdgeDocument   `json:"edges" msgpack:"edges"`
	Regions    []RegionDocument `json:"regions,omitempty" msgpack:"regions,omitempty"`
}

// Document flattens a graph. Block contents are rendered through format,
// so the same shape carries raw instructions and lifted statements.
func Document[I any](g *cfg.Graph[I], name string, format func(I) string) *CFGDocument {
	doc := &CFGDocument{Name: name}
	if entry := g.Entrypoint(); entry != nil {
		doc.Entrypoint = entry.ID()
	}

	for _, n := range g.Nodes() {
		block := BlockDocument{Offset: n.ID(), Statements: make([]string, 0, len(n.Block().Instructions))}
		for _, instr := range n.Block().Instructions {
			block.Statements = append(block.Statements, format(instr))
		}
		doc.Blocks = append(doc.Blocks, block)
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeDocument{
			Source: e.OriginID(),
			Target: e.TargetID(),
			Type:   string(e.Type),
		})
	}
	for _, r := range g.Regions() {
		doc.Regions = append(doc.Regions, documentRegion[I](r))
	}
	return doc
}

func documentRegion[I any](r cfg.Region[I]) RegionDocument {
	switch region := r.(type) {
	case *cfg.BasicRegion[I]:
		doc := RegionDocument{Kind: "basic", Nodes: region.NodeIDs()}
		for _, child := range region.Children() {
			doc.Children = append(doc.Children, documentRegion[I](child))
		}
		return doc
	case *cfg.ExceptionHandlerRegion[I]:
		protected := documentRegion[I](region.Protected())
		doc := RegionDocument{Kind: "exception_handler", Protected: &protected}
		for _, h := range region.Handlers() {
			doc.Handlers = append(doc.Handlers, documentRegion[I](h))
		}
		return doc
	default:
		return RegionDocument{Kind: "unknown", Nodes: r.NodeIDs()}
	}
}
