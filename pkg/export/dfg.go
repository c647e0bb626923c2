package export

import (
	"github.com/l3aro/go-bytecode-lift/pkg/dfg"
)

// SourceDocument is one stack dependency source.
type SourceDocument struct {
	Node int64 `json:"node" msgpack:"node"`
	Slot int   `json:"slot" msgpack:"slot"`
}

// VariableDepDocument is one variable dependency with its producers.
type VariableDepDocument struct {
	Variable  string  `json:"variable" msgpack:"variable"`
	Producers []int64 `json:"producers" msgpack:"producers"`
}

// DFGNodeDocument is one data flow node flattened for output.
type DFGNodeDocument struct {
	ID                   int64                 `json:"id" msgpack:"id"`
	Instruction          string                `json:"instruction,omitempty" msgpack:"instruction"`
	External             bool                  `json:"external,omitempty" msgpack:"external"`
	Name                 string                `json:"name,omitempty" msgpack:"name"`
	StackDependencies    [][]SourceDocument    `json:"stack_dependencies,omitempty" msgpack:"stack_dependencies"`
	VariableDependencies []VariableDepDocument `json:"variable_dependencies,omitempty" msgpack:"variable_dependencies"`
	Dependants           []int64               `json:"dependants,omitempty" msgpack:"dependants"`
}

// DFGDocument is a complete data flow graph flattened for output.
type DFGDocument struct {
	Name  string            `json:"name,omitempty" msgpack:"name"`
	Nodes []DFGNodeDocument `json:"nodes" msgpack:"nodes"`
}

// DocumentDFG flattens a data flow graph. Instructions are rendered through
// format; external nodes carry their source name instead.
func DocumentDFG[I any](g *dfg.Graph[I], name string, format func(I) string) *DFGDocument {
	doc := &DFGDocument{Name: name}
	for _, n := range g.Nodes() {
		nd := DFGNodeDocument{ID: n.ID()}
		if n.IsExternal() {
			nd.External = true
			nd.Name = n.Name()
		} else {
			nd.Instruction = format(n.Instruction())
		}

		for _, dep := range n.StackDependencies() {
			var sources []SourceDocument
			for _, src := range dep.Sources() {
				sources = append(sources, SourceDocument{Node: src.Node.ID(), Slot: src.Slot})
			}
			nd.StackDependencies = append(nd.StackDependencies, sources)
		}
		for _, dep := range n.VariableDependencies() {
			vd := VariableDepDocument{Variable: dep.Variable.Name()}
			for _, p := range dep.Producers() {
				vd.Producers = append(vd.Producers, p.ID())
			}
			nd.VariableDependencies = append(nd.VariableDependencies, vd)
		}
		for _, d := range n.Dependants() {
			nd.Dependants = append(nd.Dependants, d.ID())
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	return doc
}
