package dfg

import (
	"github.com/l3aro/go-bytecode-lift/pkg/graph"
	"github.com/l3aro/go-bytecode-lift/pkg/isa"
)

// Graph is a data flow graph over instruction type I.
type Graph[I any] struct {
	nodes      map[int64]*Node[I]
	externalID int64
}

// New creates an empty data flow graph.
func New[I any]() *Graph[I] {
	return &Graph[I]{nodes: make(map[int64]*Node[I]), externalID: -1}
}

// AddNode inserts a node for the instruction at the given offset. It fails
// with an invariant violation if the offset is already taken.
func (g *Graph[I]) AddNode(offset int64, instruction I) (*Node[I], error) {
	if _, exists := g.nodes[offset]; exists {
		return nil, graph.NewError(graph.ErrInvariantViolation, offset,
			"a node with this offset already exists")
	}
	n := newNode[I](offset)
	n.instruction = instruction
	g.nodes[offset] = n
	return n, nil
}

// AddExternal inserts an external data source node with the given name.
// External nodes receive descending negative identities so they never
// collide with instruction offsets.
func (g *Graph[I]) AddExternal(name string) *Node[I] {
	for {
		if _, taken := g.nodes[g.externalID]; !taken {
			break
		}
		g.externalID--
	}
	n := newNode[I](g.externalID)
	n.external = true
	n.name = name
	g.nodes[g.externalID] = n
	g.externalID--
	return n
}

func newNode[I any](offset int64) *Node[I] {
	return &Node[I]{
		offset:     offset,
		varIndex:   make(map[isa.Variable]*VariableDependency[I]),
		dependants: make(map[*Node[I]]int),
	}
}

// Node resolves a node by identity.
func (g *Graph[I]) Node(id int64) (*Node[I], bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in ascending identity order.
func (g *Graph[I]) Nodes() []*Node[I] {
	ids := g.NodeIDs()
	nodes := make([]*Node[I], 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// NodeIDs returns all node identities in ascending order.
func (g *Graph[I]) NodeIDs() []int64 {
	ids := make([]int64, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return graph.SortIDs(ids)
}

// Len returns the number of nodes in the graph.
func (g *Graph[I]) Len() int { return len(g.nodes) }

// Disconnect isolates a node: its own dependencies are cleared, and it is
// removed from the dependency lists of every node that depends on it. The
// node itself stays in the graph.
func (g *Graph[I]) Disconnect(id int64) error {
	n, ok := g.nodes[id]
	if !ok {
		return graph.NewError(graph.ErrInconsistentInput, id,
			"cannot disconnect a node that is not in the graph")
	}

	for slot, dep := range n.stackDeps {
		for _, source := range append([]StackSource[I]{}, dep.sources...) {
			n.RemoveStackDependency(slot, source)
		}
	}
	for _, dep := range append([]*VariableDependency[I]{}, n.varDeps...) {
		for _, producer := range append([]*Node[I]{}, dep.producers...) {
			n.RemoveVariableDependency(dep.Variable, producer)
		}
	}

	for _, consumer := range n.Dependants() {
		for slot, dep := range consumer.stackDeps {
			for _, source := range append([]StackSource[I]{}, dep.sources...) {
				if source.Node == n {
					consumer.RemoveStackDependency(slot, source)
				}
			}
		}
		for _, dep := range append([]*VariableDependency[I]{}, consumer.varDeps...) {
			if dep.contains(n) {
				consumer.RemoveVariableDependency(dep.Variable, n)
			}
		}
	}
	return nil
}
