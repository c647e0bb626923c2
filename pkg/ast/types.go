// Package ast defines the statement and expression model produced by lifting
// a control flow graph, and the lifter that rewrites basic blocks of raw
// instructions into SSA-form statements.
package ast

import "fmt"

// Variable is an AST-level storage name. Variables are value-identified by
// name and interned by the lifter, so within one lifted graph two references
// to the same name share one *Variable. The name takes one of four forms: a
// named external source, a stack slot "stack_slot_N", a phi slot "phi_N", or
// a versioned variable "name_vK".
type Variable struct {
	name string
}

// NewVariable creates a variable with the given name.
func NewVariable(name string) *Variable { return &Variable{name: name} }

// Name returns the variable's name. This also satisfies the architecture's
// Variable interface so lifted statements can feed a second analysis pass.
func (v *Variable) Name() string { return v.name }

func (v *Variable) String() string { return v.name }

// Expression is a value-producing AST node.
type Expression[I any] interface {
	ID() int64
	exprNode()
}

// InstructionExpression wraps one original instruction together with its
// resolved argument expressions.
type InstructionExpression[I any] struct {
	id          int64
	Offset      int64
	Instruction I
	Arguments   []Expression[I]
}

func (e *InstructionExpression[I]) ID() int64 { return e.id }
func (e *InstructionExpression[I]) exprNode() {}

// VariableExpression references an AST variable.
type VariableExpression[I any] struct {
	id       int64
	Variable *Variable
}

func (e *VariableExpression[I]) ID() int64 { return e.id }
func (e *VariableExpression[I]) exprNode() {}

// Statement is one rewritten element of a lifted basic block.
type Statement[I any] interface {
	ID() int64
	stmtNode()
}

// ExpressionStatement evaluates an expression for its side effects and
// discards the result.
type ExpressionStatement[I any] struct {
	id         int64
	Expression Expression[I]
}

func (s *ExpressionStatement[I]) ID() int64 { return s.id }
func (s *ExpressionStatement[I]) stmtNode() {}

// AssignmentStatement evaluates an expression and writes its results to the
// target variables in order: pushed stack slots first, then written
// variables.
type AssignmentStatement[I any] struct {
	id         int64
	Targets    []*Variable
	Expression Expression[I]
}

func (s *AssignmentStatement[I]) ID() int64 { return s.id }
func (s *AssignmentStatement[I]) stmtNode() {}

// PhiStatement is an SSA merge: the target receives the value of whichever
// source was produced on the predecessor path actually taken.
type PhiStatement[I any] struct {
	id      int64
	Target  *Variable
	Sources []*VariableExpression[I]
}

func (s *PhiStatement[I]) ID() int64 { return s.id }
func (s *PhiStatement[I]) stmtNode() {}

// Format renders a statement as a single human-readable line. Instruction
// rendering falls back to %v of the wrapped instruction.
func Format[I any](s Statement[I]) string {
	switch st := s.(type) {
	case *ExpressionStatement[I]:
		return formatExpression[I](st.Expression)
	case *AssignmentStatement[I]:
		targets := ""
		for i, t := range st.Targets {
			if i > 0 {
				targets += ", "
			}
			targets += t.Name()
		}
		return fmt.Sprintf("%s = %s", targets, formatExpression[I](st.Expression))
	case *PhiStatement[I]:
		sources := ""
		for i, src := range st.Sources {
			if i > 0 {
				sources += ", "
			}
			sources += src.Variable.Name()
		}
		return fmt.Sprintf("%s = phi(%s)", st.Target.Name(), sources)
	default:
		return fmt.Sprintf("%v", s)
	}
}

func formatExpression[I any](e Expression[I]) string {
	switch ex := e.(type) {
	case *VariableExpression[I]:
		return ex.Variable.Name()
	case *InstructionExpression[I]:
		args := ""
		for i, a := range ex.Arguments {
			if i > 0 {
				args += ", "
			}
			args += formatExpression[I](a)
		}
		return fmt.Sprintf("%v(%s)", ex.Instruction, args)
	default:
		return fmt.Sprintf("%v", e)
	}
}
