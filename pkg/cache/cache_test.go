package cache

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-bytecode-lift/pkg/export"
)

func doc(name string) *export.CFGDocument {
	return &export.CFGDocument{
		Name:       name,
		Entrypoint: 0,
		Blocks: []export.BlockDocument{
			{Offset: 0, Statements: []string{"stack_slot_0 = push 1()"}},
		},
		Edges: []export.EdgeDocument{},
	}
}

func TestKeyDeterminism(t *testing.T) {
	type input struct {
		Listing    []string
		Parameters []string
	}

	k1, err := Key(input{Listing: []string{"push 1", "ret"}, Parameters: []string{"a"}})
	require.NoError(t, err)
	k2, err := Key(input{Listing: []string{"push 1", "ret"}, Parameters: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	k3, err := Key(input{Listing: []string{"push 2", "ret"}, Parameters: []string{"a"}})
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}

func TestPutGet(t *testing.T) {
	c := New(0)

	_, err := c.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	c.Put("k1", doc("p1"))
	got, err := c.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.Name)
	assert.Equal(t, 1, c.Len())

	// Overwriting keeps a single entry.
	c.Put("k1", doc("p1b"))
	got, err = c.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, "p1b", got.Name)
	assert.Equal(t, 1, c.Len())
}

func TestLRUEviction(t *testing.T) {
	c := New(2)
	c.Put("k1", doc("p1"))
	c.Put("k2", doc("p2"))

	// Touch k1 so k2 becomes the eviction candidate.
	_, err := c.Get("k1")
	require.NoError(t, err)

	c.Put("k3", doc("p3"))
	assert.Equal(t, 2, c.Len())

	_, err = c.Get("k2")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Get("k1")
	assert.NoError(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := New(0)
	c.Put("k1", doc("p1"))
	c.Put("k2", doc("p2"))

	var buf bytes.Buffer
	require.NoError(t, c.Save(&buf))

	restored := New(0)
	require.NoError(t, restored.Load(&buf))
	assert.Equal(t, 2, restored.Len())

	got, err := restored.Get("k2")
	require.NoError(t, err)
	assert.Equal(t, "p2", got.Name)
	assert.Equal(t, "stack_slot_0 = push 1()", got.Blocks[0].Statements[0])
}

func TestFilePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.msgpack")

	c := New(0)
	c.Put("k1", doc("p1"))
	require.NoError(t, c.SaveFile(path))

	restored := New(0)
	require.NoError(t, restored.LoadFile(path))
	assert.Equal(t, 1, restored.Len())

	// A missing cache file is not an error.
	fresh := New(0)
	require.NoError(t, fresh.LoadFile(filepath.Join(t.TempDir(), "absent.msgpack")))
	assert.Zero(t, fresh.Len())
}
