package cfg

import (
	"github.com/l3aro/go-bytecode-lift/pkg/graph"
)

// Graph is a control flow graph over instruction type I. Nodes are keyed by
// the offset of their basic block; at most one node per offset.
type Graph[I any] struct {
	nodes   map[int64]*Node[I]
	entry   *Node[I]
	regions []Region[I]
}

// New creates an empty control flow graph.
func New[I any]() *Graph[I] {
	return &Graph[I]{nodes: make(map[int64]*Node[I])}
}

// AddNode inserts a node owning the given block. It fails with an invariant
// violation if another node with the same offset already exists.
func (g *Graph[I]) AddNode(block *BasicBlock[I]) (*Node[I], error) {
	if _, exists := g.nodes[block.Offset]; exists {
		return nil, graph.NewError(graph.ErrInvariantViolation, block.Offset,
			"a node with this offset already exists")
	}
	n := &Node[I]{block: block}
	g.nodes[block.Offset] = n
	return n, nil
}

// Node resolves a node by offset.
func (g *Graph[I]) Node(id int64) (*Node[I], bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in ascending offset order.
func (g *Graph[I]) Nodes() []*Node[I] {
	ids := g.NodeIDs()
	nodes := make([]*Node[I], 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// NodeIDs returns all node offsets in ascending order.
func (g *Graph[I]) NodeIDs() []int64 {
	ids := make([]int64, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return graph.SortIDs(ids)
}

// Len returns the number of nodes in the graph.
func (g *Graph[I]) Len() int { return len(g.nodes) }

// Connect creates an outgoing edge from origin to target. A node may have at
// most one fall-through and at most one unconditional successor; conditional
// and abnormal edges may be multiple. Redundant identical edges are rejected.
func (g *Graph[I]) Connect(originID, targetID int64, t EdgeType) (*Edge[I], error) {
	origin, ok := g.nodes[originID]
	if !ok {
		return nil, graph.NewError(graph.ErrInconsistentInput, originID,
			"edge origin is not a node of this graph")
	}
	target, ok := g.nodes[targetID]
	if !ok {
		return nil, graph.NewError(graph.ErrInconsistentInput, targetID,
			"edge target is not a node of this graph")
	}

	for _, e := range origin.outgoing {
		if e.Target == target && e.Type == t {
			return nil, graph.NewError(graph.ErrInvariantViolation, originID,
				"an identical %s edge to offset %d already exists", t, targetID)
		}
	}
	switch t {
	case EdgeTypeFallThrough, EdgeTypeUnconditional:
		if origin.successorOfType(t) != nil {
			return nil, graph.NewError(graph.ErrInvariantViolation, originID,
				"node already has a %s successor", t)
		}
	}

	e := &Edge[I]{Origin: origin, Target: target, Type: t}
	origin.outgoing = append(origin.outgoing, e)
	target.incoming = append(target.incoming, e)
	return e, nil
}

// Edges enumerates every edge of the graph: nodes in ascending offset order,
// each node's outgoing edges in insertion order.
func (g *Graph[I]) Edges() []*Edge[I] {
	var edges []*Edge[I]
	for _, n := range g.Nodes() {
		edges = append(edges, n.outgoing...)
	}
	return edges
}

// SetEntrypoint designates the entry node. It fails if the offset does not
// resolve to a node of this graph.
func (g *Graph[I]) SetEntrypoint(id int64) error {
	n, ok := g.nodes[id]
	if !ok {
		return graph.NewError(graph.ErrInvariantViolation, id,
			"entrypoint is not a node of this graph")
	}
	g.entry = n
	return nil
}

// Entrypoint returns the designated entry node, or nil if none was set.
func (g *Graph[I]) Entrypoint() *Node[I] { return g.entry }

// AddRegion attaches a top-level region to the graph.
func (g *Graph[I]) AddRegion(r Region[I]) {
	g.regions = append(g.regions, r)
}

// Regions returns the graph's top-level regions in insertion order.
func (g *Graph[I]) Regions() []Region[I] { return g.regions }

// MoveNodeToRegion moves a node into the given basic region, removing it from
// its current region first. The node ends up with exactly one immediate
// region. A nil region moves the node back to the graph root.
func (g *Graph[I]) MoveNodeToRegion(id int64, region *BasicRegion[I]) error {
	n, ok := g.nodes[id]
	if !ok {
		return graph.NewError(graph.ErrInconsistentInput, id,
			"region references a node that is not in the graph")
	}
	if n.region != nil {
		n.region.removeNode(n)
	}
	n.region = region
	if region != nil {
		region.addNode(n)
	}
	return nil
}
