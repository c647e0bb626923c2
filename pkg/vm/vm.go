// Package vm provides a small stack machine instruction set used to exercise
// the graph models and the lifter end to end: an architecture implementation,
// a YAML program loader, and builders that derive control and data flow
// graphs from a linear instruction listing.
package vm

import (
	"fmt"

	"github.com/l3aro/go-bytecode-lift/pkg/isa"
)

// Opcode identifies a stack machine operation.
type Opcode string

const (
	OpPush   Opcode = "push"   // push a constant
	OpPop    Opcode = "pop"    // discard the top of stack
	OpDup    Opcode = "dup"    // duplicate the top of stack
	OpAdd    Opcode = "add"    // pop two, push their sum
	OpSub    Opcode = "sub"    // pop two, push their difference
	OpMul    Opcode = "mul"    // pop two, push their product
	OpCmp    Opcode = "cmp"    // pop two, push a comparison flag
	OpLoad   Opcode = "load"   // push the value of a local
	OpStore  Opcode = "store"  // pop into a local
	OpBr     Opcode = "br"     // unconditional branch
	OpBrTrue Opcode = "brtrue" // pop a flag, branch when true
	OpRet    Opcode = "ret"    // leave the routine
	OpNop    Opcode = "nop"    // do nothing
)

// stackEffect records how many values an opcode pops and pushes.
var stackEffect = map[Opcode]struct{ pops, pushes int }{
	OpPush:   {0, 1},
	OpPop:    {1, 0},
	OpDup:    {1, 2},
	OpAdd:    {2, 1},
	OpSub:    {2, 1},
	OpMul:    {2, 1},
	OpCmp:    {2, 1},
	OpLoad:   {0, 1},
	OpStore:  {1, 0},
	OpBr:     {0, 0},
	OpBrTrue: {1, 0},
	OpRet:    {0, 0},
	OpNop:    {0, 0},
}

// Instruction is one decoded stack machine instruction.
type Instruction struct {
	Off     int64
	Op      Opcode
	Operand string // constant for push, local name for load/store
	Target  int64  // branch target offset for br/brtrue
}

func (i Instruction) String() string {
	switch i.Op {
	case OpBr, OpBrTrue:
		return fmt.Sprintf("%s %d", i.Op, i.Target)
	case OpPush, OpLoad, OpStore:
		return fmt.Sprintf("%s %s", i.Op, i.Operand)
	default:
		return string(i.Op)
	}
}

// IsBranch reports whether the instruction transfers control explicitly.
func (i Instruction) IsBranch() bool {
	return i.Op == OpBr || i.Op == OpBrTrue
}

// IsTerminator reports whether control never falls through to the next
// instruction.
func (i Instruction) IsTerminator() bool {
	return i.Op == OpBr || i.Op == OpRet
}

// Local is a named local variable slot. Locals compare by name.
type Local struct {
	name string
}

// NewLocal creates a local with the given name.
func NewLocal(name string) Local { return Local{name: name} }

// Name returns the local's name.
func (l Local) Name() string { return l.name }

// Arch implements the architecture interface for the stack machine.
type Arch struct{}

var _ isa.Architecture[Instruction] = Arch{}

// Offset returns the instruction's offset.
func (Arch) Offset(i Instruction) int64 { return i.Off }

// StackPushCount returns how many values the instruction pushes.
func (Arch) StackPushCount(i Instruction) int { return stackEffect[i.Op].pushes }

// StackPopCount returns how many values the instruction pops.
func (Arch) StackPopCount(i Instruction) int { return stackEffect[i.Op].pops }

// ReadVariables returns the local a load reads, if any.
func (Arch) ReadVariables(i Instruction) []isa.Variable {
	if i.Op == OpLoad {
		return []isa.Variable{NewLocal(i.Operand)}
	}
	return nil
}

// WrittenVariables returns the local a store writes, if any.
func (Arch) WrittenVariables(i Instruction) []isa.Variable {
	if i.Op == OpStore {
		return []isa.Variable{NewLocal(i.Operand)}
	}
	return nil
}
