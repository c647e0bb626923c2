package cfg

import "github.com/l3aro/go-bytecode-lift/pkg/graph"

// Region is a hierarchical grouping of nodes. The model is a closed set of
// two variants: BasicRegion and ExceptionHandlerRegion. The lifter rejects
// any other implementation; export documents it with kind "unknown".
type Region[I any] interface {
	graph.SubGraph

	// ContainsNode reports whether the node belongs to this region, directly
	// or through a nested region.
	ContainsNode(id int64) bool
}

// BasicRegion is a set of directly contained nodes plus nested child regions.
// Direct membership is managed through Graph.MoveNodeToRegion.
type BasicRegion[I any] struct {
	nodes    map[int64]*Node[I]
	children []Region[I]
}

// NewBasicRegion creates an empty basic region.
func NewBasicRegion[I any]() *BasicRegion[I] {
	return &BasicRegion[I]{nodes: make(map[int64]*Node[I])}
}

// AddChild nests a region inside this one.
func (r *BasicRegion[I]) AddChild(child Region[I]) {
	r.children = append(r.children, child)
}

// Children returns the nested regions in insertion order.
func (r *BasicRegion[I]) Children() []Region[I] { return r.children }

// NodeIDs returns the offsets of the directly contained nodes, ascending.
func (r *BasicRegion[I]) NodeIDs() []int64 {
	ids := make([]int64, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	return graph.SortIDs(ids)
}

// Nodes returns the directly contained nodes in ascending offset order.
func (r *BasicRegion[I]) Nodes() []*Node[I] {
	nodes := make([]*Node[I], 0, len(r.nodes))
	for _, id := range r.NodeIDs() {
		nodes = append(nodes, r.nodes[id])
	}
	return nodes
}

// ContainsNode reports membership, including through nested regions.
func (r *BasicRegion[I]) ContainsNode(id int64) bool {
	if _, ok := r.nodes[id]; ok {
		return true
	}
	for _, child := range r.children {
		if child.ContainsNode(id) {
			return true
		}
	}
	return false
}

func (r *BasicRegion[I]) addNode(n *Node[I])    { r.nodes[n.ID()] = n }
func (r *BasicRegion[I]) removeNode(n *Node[I]) { delete(r.nodes, n.ID()) }

// ExceptionHandlerRegion groups one protected region with an ordered list of
// handler regions. The protected region is created with the region and keeps
// its identity for the region's lifetime; handlers are appended in order.
type ExceptionHandlerRegion[I any] struct {
	protected *BasicRegion[I]
	handlers  []*BasicRegion[I]
}

// NewExceptionHandlerRegion creates an exception handler region with an
// empty protected region and no handlers.
func NewExceptionHandlerRegion[I any]() *ExceptionHandlerRegion[I] {
	return &ExceptionHandlerRegion[I]{protected: NewBasicRegion[I]()}
}

// Protected returns the protected region.
func (r *ExceptionHandlerRegion[I]) Protected() *BasicRegion[I] { return r.protected }

// AddHandler appends a fresh handler region and returns it.
func (r *ExceptionHandlerRegion[I]) AddHandler() *BasicRegion[I] {
	h := NewBasicRegion[I]()
	r.handlers = append(r.handlers, h)
	return h
}

// Handlers returns the handler regions in their declared order.
func (r *ExceptionHandlerRegion[I]) Handlers() []*BasicRegion[I] { return r.handlers }

// NodeIDs returns the offsets of all nodes in the protected region and every
// handler, ascending.
func (r *ExceptionHandlerRegion[I]) NodeIDs() []int64 {
	ids := r.protected.NodeIDs()
	for _, h := range r.handlers {
		ids = append(ids, h.NodeIDs()...)
	}
	return graph.SortIDs(ids)
}

// ContainsNode reports whether the node is in the protected region or any
// handler.
func (r *ExceptionHandlerRegion[I]) ContainsNode(id int64) bool {
	if r.protected.ContainsNode(id) {
		return true
	}
	for _, h := range r.handlers {
		if h.ContainsNode(id) {
			return true
		}
	}
	return false
}
