package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-bytecode-lift/pkg/isa"
)

func TestWrappedArchitectureDelegation(t *testing.T) {
	arch := WrapArchitecture[testInstr](testArch{})

	instr := testInstr{off: 7, name: "store", pops: 1, writes: []string{"x"}}
	assignment := &AssignmentStatement[testInstr]{
		id:      -100,
		Targets: []*Variable{NewVariable("x_v0")},
		Expression: &InstructionExpression[testInstr]{
			id:          -101,
			Offset:      7,
			Instruction: instr,
		},
	}

	assert.Equal(t, int64(7), arch.Offset(assignment))
	assert.Equal(t, 1, arch.StackPopCount(assignment))
	assert.Equal(t, 0, arch.StackPushCount(assignment))
	require.Len(t, arch.WrittenVariables(assignment), 1)
	assert.Equal(t, "x", arch.WrittenVariables(assignment)[0].Name())
	assert.Empty(t, arch.ReadVariables(assignment))
}

func TestWrappedArchitectureSyntheticStatements(t *testing.T) {
	arch := WrapArchitecture[testInstr](testArch{})

	phi := &PhiStatement[testInstr]{
		id:     -5,
		Target: NewVariable("phi_0"),
		Sources: []*VariableExpression[testInstr]{
			{id: -6, Variable: NewVariable("x_v0")},
		},
	}
	assert.Equal(t, int64(-5), arch.Offset(phi))
	assert.Zero(t, arch.StackPushCount(phi))
	assert.Zero(t, arch.StackPopCount(phi))
	assert.Empty(t, arch.ReadVariables(phi))
	assert.Empty(t, arch.WrittenVariables(phi))

	expr := &ExpressionStatement[testInstr]{
		id:         -7,
		Expression: &VariableExpression[testInstr]{id: -8, Variable: NewVariable("x_v0")},
	}
	assert.Equal(t, int64(-7), arch.Offset(expr))
	assert.Zero(t, arch.StackPopCount(expr))
	assert.Empty(t, arch.WrittenVariables(expr))
}

var _ isa.Architecture[Statement[testInstr]] = (*Architecture[testInstr])(nil)

func TestFormatStatements(t *testing.T) {
	x := NewVariable("x_v0")
	slot := NewVariable("stack_slot_0")

	tests := []struct {
		name     string
		stmt     Statement[testInstr]
		expected string
	}{
		{
			name: "assignment",
			stmt: &AssignmentStatement[testInstr]{
				Targets: []*Variable{slot, x},
				Expression: &InstructionExpression[testInstr]{
					Instruction: testInstr{name: "dup"},
					Arguments: []Expression[testInstr]{
						&VariableExpression[testInstr]{Variable: x},
					},
				},
			},
			expected: "stack_slot_0, x_v0 = dup(x_v0)",
		},
		{
			name: "expression statement",
			stmt: &ExpressionStatement[testInstr]{
				Expression: &InstructionExpression[testInstr]{
					Instruction: testInstr{name: "pop"},
					Arguments: []Expression[testInstr]{
						&VariableExpression[testInstr]{Variable: slot},
					},
				},
			},
			expected: "pop(stack_slot_0)",
		},
		{
			name: "phi",
			stmt: &PhiStatement[testInstr]{
				Target: NewVariable("phi_0"),
				Sources: []*VariableExpression[testInstr]{
					{Variable: NewVariable("y_v0")},
					{Variable: NewVariable("y_v1")},
				},
			},
			expected: "phi_0 = phi(y_v0, y_v1)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Format[testInstr](tc.stmt))
		})
	}
}
