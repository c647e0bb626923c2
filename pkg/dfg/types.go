// Package dfg defines the data flow graph model: one node per instruction,
// connected by use-def dependencies over stack slots and named variables.
// Forward dependency collections are the authoritative data; the reverse
// dependants index is derived and kept in lockstep by the mutators.
package dfg

import (
	"github.com/l3aro/go-bytecode-lift/pkg/graph"
	"github.com/l3aro/go-bytecode-lift/pkg/isa"
)

// StackSource identifies one produced stack value: the producing node and
// which of its pushed slots carries the value (0 = first pushed).
type StackSource[I any] struct {
	Node *Node[I]
	Slot int
}

// StackDependency is the set of sources for one consumed stack slot. It is a
// set because multiple predecessors may converge on the same slot; entries
// keep insertion order for deterministic enumeration.
type StackDependency[I any] struct {
	sources []StackSource[I]
}

// Sources returns the entries in insertion order.
func (d *StackDependency[I]) Sources() []StackSource[I] { return d.sources }

// Len returns the number of distinct sources.
func (d *StackDependency[I]) Len() int { return len(d.sources) }

func (d *StackDependency[I]) contains(s StackSource[I]) bool {
	for _, existing := range d.sources {
		if existing == s {
			return true
		}
	}
	return false
}

// VariableDependency is the set of producer nodes for one consumed variable.
type VariableDependency[I any] struct {
	Variable  isa.Variable
	producers []*Node[I]
}

// Producers returns the producing nodes in insertion order.
func (d *VariableDependency[I]) Producers() []*Node[I] { return d.producers }

func (d *VariableDependency[I]) contains(p *Node[I]) bool {
	for _, existing := range d.producers {
		if existing == p {
			return true
		}
	}
	return false
}

// Node is a data flow node. Regular nodes correspond 1:1 to instructions and
// share the instruction's offset; external nodes represent values entering
// from outside the analyzed code and carry synthetic negative identities.
type Node[I any] struct {
	offset      int64
	instruction I
	external    bool
	name        string

	stackDeps []*StackDependency[I]
	varDeps   []*VariableDependency[I]
	varIndex  map[isa.Variable]*VariableDependency[I]

	// dependants counts incoming references per consumer so that removing
	// one of several dependencies does not drop the consumer entirely.
	dependants map[*Node[I]]int
}

// ID returns the node's identity.
func (n *Node[I]) ID() int64 { return n.offset }

// Instruction returns the instruction this node stands for. It is the zero
// value for external nodes.
func (n *Node[I]) Instruction() I { return n.instruction }

// IsExternal reports whether this node is an external data source.
func (n *Node[I]) IsExternal() bool { return n.external }

// Name returns the human-readable name of an external data source, or the
// empty string for regular nodes.
func (n *Node[I]) Name() string { return n.name }

// StackDependencies returns the consumed stack slots in order; index 0 is the
// deepest consumed slot. Entries may be nil-sized but never nil once set.
func (n *Node[I]) StackDependencies() []*StackDependency[I] { return n.stackDeps }

// VariableDependencies returns the variable dependencies in the order the
// variables were first added, which fixes the lifter's enumeration order.
func (n *Node[I]) VariableDependencies() []*VariableDependency[I] { return n.varDeps }

// Dependants returns the nodes that depend on this one, ascending by id.
func (n *Node[I]) Dependants() []*Node[I] {
	ids := make([]int64, 0, len(n.dependants))
	byID := make(map[int64]*Node[I], len(n.dependants))
	for d := range n.dependants {
		ids = append(ids, d.ID())
		byID[d.ID()] = d
	}
	graph.SortIDs(ids)
	out := make([]*Node[I], 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

// HasDependants reports whether any node consumes a value this node produces.
func (n *Node[I]) HasDependants() bool { return len(n.dependants) > 0 }

// AddStackDependency records that this node's consumed slot at the given
// index is produced by source. Duplicate identical entries are ignored. The
// producer's dependants index is updated in the same operation.
func (n *Node[I]) AddStackDependency(slot int, source StackSource[I]) {
	for len(n.stackDeps) <= slot {
		n.stackDeps = append(n.stackDeps, &StackDependency[I]{})
	}
	dep := n.stackDeps[slot]
	if dep.contains(source) {
		return
	}
	dep.sources = append(dep.sources, source)
	source.Node.dependants[n]++
}

// RemoveStackDependency removes one source from a consumed slot, keeping the
// producer's dependants index consistent.
func (n *Node[I]) RemoveStackDependency(slot int, source StackSource[I]) {
	if slot >= len(n.stackDeps) {
		return
	}
	dep := n.stackDeps[slot]
	for i, existing := range dep.sources {
		if existing == source {
			dep.sources = append(dep.sources[:i], dep.sources[i+1:]...)
			n.releaseProducer(source.Node)
			return
		}
	}
}

// AddVariableDependency records that this node reads variable v produced by
// the given node. Duplicate producers are ignored.
func (n *Node[I]) AddVariableDependency(v isa.Variable, producer *Node[I]) {
	dep, ok := n.varIndex[v]
	if !ok {
		dep = &VariableDependency[I]{Variable: v}
		n.varIndex[v] = dep
		n.varDeps = append(n.varDeps, dep)
	}
	if dep.contains(producer) {
		return
	}
	dep.producers = append(dep.producers, producer)
	producer.dependants[n]++
}

// RemoveVariableDependency removes one producer of variable v.
func (n *Node[I]) RemoveVariableDependency(v isa.Variable, producer *Node[I]) {
	dep, ok := n.varIndex[v]
	if !ok {
		return
	}
	for i, existing := range dep.producers {
		if existing == producer {
			dep.producers = append(dep.producers[:i], dep.producers[i+1:]...)
			n.releaseProducer(producer)
			return
		}
	}
}

func (n *Node[I]) releaseProducer(producer *Node[I]) {
	if producer.dependants[n] <= 1 {
		delete(producer.dependants, n)
		return
	}
	producer.dependants[n]--
}
