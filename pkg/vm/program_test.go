package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: sum
parameters: [a]
instructions:
  - {op: load, operand: a}
  - {op: push, operand: "1"}
  - {op: add}
  - {op: store, operand: r}
  - {op: ret}
`

func TestLoadProgram(t *testing.T) {
	p, err := Load(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "sum", p.Name)
	assert.Equal(t, []string{"a"}, p.Parameters)
	require.Len(t, p.Instructions, 5)
	assert.Equal(t, "load", p.Instructions[0].Op)
	assert.Equal(t, "a", p.Instructions[0].Operand)

	instrs, err := p.Assemble()
	require.NoError(t, err)
	assert.Equal(t, "add", instrs[2].String())
	assert.Equal(t, "store r", instrs[3].String())
}

func TestLoadProgramErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "invalid yaml", input: "instructions: ["},
		{name: "empty listing", input: "name: empty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tc.input))
			require.Error(t, err)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("does-not-exist.yaml")
	require.Error(t, err)
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		instr    Instruction
		expected string
	}{
		{Instruction{Op: OpPush, Operand: "42"}, "push 42"},
		{Instruction{Op: OpBr, Target: 7}, "br 7"},
		{Instruction{Op: OpBrTrue, Target: 3}, "brtrue 3"},
		{Instruction{Op: OpRet}, "ret"},
		{Instruction{Op: OpLoad, Operand: "x"}, "load x"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, tc.instr.String())
	}
}

func TestArchContract(t *testing.T) {
	arch := Arch{}

	dup := Instruction{Off: 3, Op: OpDup}
	assert.Equal(t, int64(3), arch.Offset(dup))
	assert.Equal(t, 1, arch.StackPopCount(dup))
	assert.Equal(t, 2, arch.StackPushCount(dup))
	assert.Empty(t, arch.ReadVariables(dup))
	assert.Empty(t, arch.WrittenVariables(dup))

	store := Instruction{Off: 4, Op: OpStore, Operand: "x"}
	written := arch.WrittenVariables(store)
	require.Len(t, written, 1)
	assert.Equal(t, "x", written[0].Name())

	load := Instruction{Off: 5, Op: OpLoad, Operand: "x"}
	read := arch.ReadVariables(load)
	require.Len(t, read, 1)
	assert.Equal(t, "x", read[0].Name())

	// Locals compare by name.
	assert.Equal(t, NewLocal("x"), NewLocal("x"))
	assert.NotEqual(t, NewLocal("x"), NewLocal("y"))
}
