package ast

import "github.com/l3aro/go-bytecode-lift/pkg/isa"

// Architecture adapts an instruction-level architecture to operate on lifted
// statements, so the same analyses that ran over raw instructions can run
// over a lifted graph. Queries on instruction-bearing statements delegate to
// the wrapped architecture; phi statements and pure expression statements
// report zero counts and no variables, since their writes are synthetic.
type Architecture[I any] struct {
	inner isa.Architecture[I]
}

// WrapArchitecture decorates an instruction architecture for statements.
func WrapArchitecture[I any](inner isa.Architecture[I]) *Architecture[I] {
	return &Architecture[I]{inner: inner}
}

// Offset returns the wrapped instruction's offset for instruction-bearing
// statements, and the statement's synthetic id otherwise.
func (a *Architecture[I]) Offset(s Statement[I]) int64 {
	if instr, ok := a.instruction(s); ok {
		return a.inner.Offset(instr)
	}
	return s.ID()
}

// StackPushCount returns the wrapped instruction's push count, or zero.
func (a *Architecture[I]) StackPushCount(s Statement[I]) int {
	if instr, ok := a.instruction(s); ok {
		return a.inner.StackPushCount(instr)
	}
	return 0
}

// StackPopCount returns the wrapped instruction's pop count, or zero.
func (a *Architecture[I]) StackPopCount(s Statement[I]) int {
	if instr, ok := a.instruction(s); ok {
		return a.inner.StackPopCount(instr)
	}
	return 0
}

// ReadVariables returns the wrapped instruction's read variables, or none.
func (a *Architecture[I]) ReadVariables(s Statement[I]) []isa.Variable {
	if instr, ok := a.instruction(s); ok {
		return a.inner.ReadVariables(instr)
	}
	return nil
}

// WrittenVariables returns the wrapped instruction's written variables, or
// none.
func (a *Architecture[I]) WrittenVariables(s Statement[I]) []isa.Variable {
	if instr, ok := a.instruction(s); ok {
		return a.inner.WrittenVariables(instr)
	}
	return nil
}

func (a *Architecture[I]) instruction(s Statement[I]) (I, bool) {
	var expr Expression[I]
	switch st := s.(type) {
	case *ExpressionStatement[I]:
		expr = st.Expression
	case *AssignmentStatement[I]:
		expr = st.Expression
	}
	if ie, ok := expr.(*InstructionExpression[I]); ok {
		return ie.Instruction, true
	}
	var zero I
	return zero, false
}
