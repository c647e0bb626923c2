package dfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testVar string

func (v testVar) Name() string { return string(v) }

func addNode(t *testing.T, g *Graph[string], offset int64) *Node[string] {
	t.Helper()
	n, err := g.AddNode(offset, "instr")
	require.NoError(t, err)
	return n
}

func TestAddNodeDuplicateOffset(t *testing.T) {
	g := New[string]()
	addNode(t, g, 0)
	_, err := g.AddNode(0, "dup")
	require.Error(t, err)
}

func TestStackDependencyLockstep(t *testing.T) {
	g := New[string]()
	producer := addNode(t, g, 0)
	consumer := addNode(t, g, 1)

	consumer.AddStackDependency(0, StackSource[string]{Node: producer, Slot: 0})

	require.Len(t, consumer.StackDependencies(), 1)
	assert.Equal(t, 1, consumer.StackDependencies()[0].Len())
	require.Len(t, producer.Dependants(), 1)
	assert.Same(t, consumer, producer.Dependants()[0])

	// Duplicate entries are ignored.
	consumer.AddStackDependency(0, StackSource[string]{Node: producer, Slot: 0})
	assert.Equal(t, 1, consumer.StackDependencies()[0].Len())
	assert.Len(t, producer.Dependants(), 1)

	consumer.RemoveStackDependency(0, StackSource[string]{Node: producer, Slot: 0})
	assert.Equal(t, 0, consumer.StackDependencies()[0].Len())
	assert.Empty(t, producer.Dependants())
}

func TestDependantsSurviveSingleRemoval(t *testing.T) {
	g := New[string]()
	producer := addNode(t, g, 0)
	consumer := addNode(t, g, 1)

	// Two distinct references to the same producer.
	consumer.AddStackDependency(0, StackSource[string]{Node: producer, Slot: 0})
	consumer.AddStackDependency(1, StackSource[string]{Node: producer, Slot: 1})
	require.Len(t, producer.Dependants(), 1)

	consumer.RemoveStackDependency(0, StackSource[string]{Node: producer, Slot: 0})
	assert.Len(t, producer.Dependants(), 1, "one remaining reference keeps the dependant")

	consumer.RemoveStackDependency(1, StackSource[string]{Node: producer, Slot: 1})
	assert.Empty(t, producer.Dependants())
}

func TestVariableDependencyOrder(t *testing.T) {
	g := New[string]()
	p1 := addNode(t, g, 0)
	p2 := addNode(t, g, 1)
	consumer := addNode(t, g, 2)

	consumer.AddVariableDependency(testVar("b"), p1)
	consumer.AddVariableDependency(testVar("a"), p2)
	consumer.AddVariableDependency(testVar("b"), p2)

	deps := consumer.VariableDependencies()
	require.Len(t, deps, 2)
	// Insertion order, not name order.
	assert.Equal(t, "b", deps[0].Variable.Name())
	assert.Equal(t, "a", deps[1].Variable.Name())
	assert.Len(t, deps[0].Producers(), 2)
	assert.Len(t, deps[1].Producers(), 1)
}

func TestExternalNodes(t *testing.T) {
	g := New[string]()
	ext := g.AddExternal("arg0")

	assert.True(t, ext.IsExternal())
	assert.Equal(t, "arg0", ext.Name())
	assert.Negative(t, ext.ID())

	// Identities stay distinct.
	ext2 := g.AddExternal("arg1")
	assert.NotEqual(t, ext.ID(), ext2.ID())
}

func TestDisconnect(t *testing.T) {
	g := New[string]()
	producer := addNode(t, g, 0)
	middle := addNode(t, g, 1)
	consumer := addNode(t, g, 2)

	middle.AddStackDependency(0, StackSource[string]{Node: producer, Slot: 0})
	middle.AddVariableDependency(testVar("x"), producer)
	consumer.AddStackDependency(0, StackSource[string]{Node: middle, Slot: 0})
	consumer.AddVariableDependency(testVar("y"), middle)

	require.NoError(t, g.Disconnect(middle.ID()))

	// Own dependencies cleared.
	assert.Empty(t, producer.Dependants())
	for _, dep := range middle.StackDependencies() {
		assert.Zero(t, dep.Len())
	}
	// Removed from every dependant's lists.
	assert.False(t, middle.HasDependants())
	for _, dep := range consumer.StackDependencies() {
		assert.Zero(t, dep.Len())
	}
	for _, dep := range consumer.VariableDependencies() {
		assert.Empty(t, dep.Producers())
	}

	err := g.Disconnect(99)
	require.Error(t, err)
}

func TestNodesSorted(t *testing.T) {
	g := New[string]()
	addNode(t, g, 5)
	addNode(t, g, 1)
	g.AddExternal("arg0")

	ids := g.NodeIDs()
	require.Len(t, ids, 3)
	assert.True(t, ids[0] < 0)
	assert.Equal(t, []int64{1, 5}, ids[1:])
	assert.Equal(t, 3, g.Len())
}
