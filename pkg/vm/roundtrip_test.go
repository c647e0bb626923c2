package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-bytecode-lift/pkg/ast"
)

// TestLiftedGraphSecondPass drives the wrapped architecture over a lifted
// graph the way a second analysis pass would: instruction-bearing statements
// answer exactly like their wrapped instructions, synthetic statements stay
// silent, and every phi target is consumed inside its own block.
func TestLiftedGraphSecondPass(t *testing.T) {
	p := storeDiamond()
	instrs, err := p.Assemble()
	require.NoError(t, err)
	g, err := BuildCFG(instrs)
	require.NoError(t, err)
	d, err := BuildDFG(g, p.Parameters)
	require.NoError(t, err)
	lifted, err := ast.Lift(g, d, Arch{})
	require.NoError(t, err)

	arch := ast.WrapArchitecture[Instruction](Arch{})
	inner := Arch{}

	seenOffsets := map[int64]bool{}
	for _, n := range lifted.Nodes() {
		phiTargets := map[string]bool{}
		referenced := map[string]bool{}

		for _, s := range n.Block().Instructions {
			switch st := s.(type) {
			case *ast.PhiStatement[Instruction]:
				assert.Zero(t, arch.StackPopCount(s))
				assert.Zero(t, arch.StackPushCount(s))
				assert.Empty(t, arch.WrittenVariables(s))
				assert.Negative(t, arch.Offset(s), "synthetic statements keep synthetic ids")
				phiTargets[st.Target.Name()] = true
			case *ast.AssignmentStatement[Instruction]:
				expr, ok := st.Expression.(*ast.InstructionExpression[Instruction])
				require.True(t, ok)
				assert.Equal(t, inner.Offset(expr.Instruction), arch.Offset(s))
				assert.Equal(t, inner.StackPushCount(expr.Instruction), arch.StackPushCount(s))
				assert.Equal(t, inner.StackPopCount(expr.Instruction), arch.StackPopCount(s))
				assert.Equal(t, inner.WrittenVariables(expr.Instruction), arch.WrittenVariables(s))
				seenOffsets[arch.Offset(s)] = true
				collectReferences(expr, referenced)
			case *ast.ExpressionStatement[Instruction]:
				expr, ok := st.Expression.(*ast.InstructionExpression[Instruction])
				require.True(t, ok)
				assert.Equal(t, inner.Offset(expr.Instruction), arch.Offset(s))
				seenOffsets[arch.Offset(s)] = true
				collectReferences(expr, referenced)
			}
		}

		for target := range phiTargets {
			assert.Truef(t, referenced[target], "phi target %s is never consumed in its block", target)
		}
	}

	// Every original instruction survives the rewrite exactly once.
	assert.Len(t, seenOffsets, len(instrs))
}

func collectReferences(e ast.Expression[Instruction], into map[string]bool) {
	switch ex := e.(type) {
	case *ast.VariableExpression[Instruction]:
		into[ex.Variable.Name()] = true
	case *ast.InstructionExpression[Instruction]:
		for _, a := range ex.Arguments {
			collectReferences(a, into)
		}
	}
}
