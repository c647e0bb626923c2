package vm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/l3aro/go-bytecode-lift/pkg/cfg"
	"github.com/l3aro/go-bytecode-lift/pkg/dfg"
)

// BuildCFG partitions a linear instruction sequence into basic blocks split
// at branch targets and fall-through boundaries, and connects them with
// typed control edges. The first instruction becomes the entrypoint.
func BuildCFG(instrs []Instruction) (*cfg.Graph[Instruction], error) {
	if len(instrs) == 0 {
		return nil, fmt.Errorf("cannot build a control flow graph from an empty listing")
	}

	offsets := make(map[int64]struct{}, len(instrs))
	for _, in := range instrs {
		offsets[in.Off] = struct{}{}
	}

	leaders := map[int64]struct{}{instrs[0].Off: {}}
	for i, in := range instrs {
		if in.IsBranch() {
			if _, ok := offsets[in.Target]; !ok {
				return nil, fmt.Errorf("branch at offset %d targets unknown offset %d", in.Off, in.Target)
			}
			leaders[in.Target] = struct{}{}
		}
		if (in.IsBranch() || in.Op == OpRet) && i+1 < len(instrs) {
			leaders[instrs[i+1].Off] = struct{}{}
		}
	}

	g := cfg.New[Instruction]()
	var blocks []*cfg.BasicBlock[Instruction]
	var current *cfg.BasicBlock[Instruction]
	for _, in := range instrs {
		if _, isLeader := leaders[in.Off]; isLeader || current == nil {
			current = cfg.NewBasicBlock[Instruction](in.Off)
			blocks = append(blocks, current)
		}
		current.Append(in)
	}
	for _, b := range blocks {
		if _, err := g.AddNode(b); err != nil {
			return nil, err
		}
	}

	for i, b := range blocks {
		last := b.Instructions[len(b.Instructions)-1]
		var next *cfg.BasicBlock[Instruction]
		if i+1 < len(blocks) {
			next = blocks[i+1]
		}

		switch last.Op {
		case OpBr:
			if _, err := g.Connect(b.Offset, last.Target, cfg.EdgeTypeUnconditional); err != nil {
				return nil, err
			}
		case OpBrTrue:
			if _, err := g.Connect(b.Offset, last.Target, cfg.EdgeTypeConditional); err != nil {
				return nil, err
			}
			if next != nil {
				if _, err := g.Connect(b.Offset, next.Offset, cfg.EdgeTypeFallThrough); err != nil {
					return nil, err
				}
			}
		case OpRet:
			// no successors
		default:
			if next != nil {
				if _, err := g.Connect(b.Offset, next.Offset, cfg.EdgeTypeFallThrough); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := g.SetEntrypoint(instrs[0].Off); err != nil {
		return nil, err
	}
	return g, nil
}

// blockState is the abstract machine state at a block boundary: the source
// sets for every stack position (index 0 = bottom) and the reaching
// definitions per local.
type blockState struct {
	stack [][]dfg.StackSource[Instruction]
	defs  map[string][]*dfg.Node[Instruction]
}

// BuildDFG derives a data flow graph from the listing by abstract stack
// simulation over the control flow graph: a worklist propagates block-exit
// states to successors until a fixpoint, so converging predecessors
// accumulate multi-source dependency sets at join points. Parameters enter
// as external data sources seeding the initial definitions.
func BuildDFG(g *cfg.Graph[Instruction], parameters []string) (*dfg.Graph[Instruction], error) {
	d := dfg.New[Instruction]()

	for _, n := range g.Nodes() {
		for _, in := range n.Block().Instructions {
			if _, err := d.AddNode(in.Off, in); err != nil {
				return nil, err
			}
		}
	}

	initial := blockState{defs: make(map[string][]*dfg.Node[Instruction])}
	for _, p := range parameters {
		initial.defs[p] = []*dfg.Node[Instruction]{d.AddExternal(p)}
	}

	entry := g.Entrypoint()
	if entry == nil {
		return nil, fmt.Errorf("control flow graph has no entrypoint")
	}

	in := map[int64]blockState{entry.ID(): initial}
	worklist := []int64{entry.ID()}
	queued := map[int64]bool{entry.ID(): true}

	for len(worklist) > 0 {
		id := worklist[0]
		worklist = worklist[1:]
		queued[id] = false

		node, _ := g.Node(id)
		out, err := simulate(d, node, in[id])
		if err != nil {
			return nil, err
		}

		for _, e := range node.Outgoing() {
			succ := e.TargetID()
			merged, err := mergeStates(in, succ, out)
			if err != nil {
				return nil, fmt.Errorf("at edge %d -> %d: %w", id, succ, err)
			}
			if !merged {
				continue
			}
			if !queued[succ] {
				worklist = append(worklist, succ)
				queued[succ] = true
			}
		}
	}
	return d, nil
}

// simulate executes one block over an abstract entry state, recording stack
// and variable dependencies on the data flow nodes. Dependency adds are
// idempotent, so repeated visits only accumulate genuinely new sources.
func simulate(d *dfg.Graph[Instruction], node *cfg.Node[Instruction], state blockState) (blockState, error) {
	stack := append([][]dfg.StackSource[Instruction]{}, state.stack...)
	defs := make(map[string][]*dfg.Node[Instruction], len(state.defs))
	for k, v := range state.defs {
		defs[k] = append([]*dfg.Node[Instruction]{}, v...)
	}

	arch := Arch{}
	for _, in := range node.Block().Instructions {
		dnode, _ := d.Node(in.Off)

		pops := arch.StackPopCount(in)
		if len(stack) < pops {
			return blockState{}, fmt.Errorf("stack underflow at offset %d: %s needs %d values, stack has %d",
				in.Off, in.Op, pops, len(stack))
		}
		consumed := stack[len(stack)-pops:]
		stack = stack[:len(stack)-pops]
		for k, sources := range consumed {
			for _, src := range sources {
				dnode.AddStackDependency(k, src)
			}
		}

		for _, v := range arch.ReadVariables(in) {
			producers, known := defs[v.Name()]
			if !known {
				return blockState{}, fmt.Errorf("load of undefined local %q at offset %d", v.Name(), in.Off)
			}
			for _, p := range producers {
				dnode.AddVariableDependency(v, p)
			}
		}
		for _, v := range arch.WrittenVariables(in) {
			defs[v.Name()] = []*dfg.Node[Instruction]{dnode}
		}

		for i := 0; i < arch.StackPushCount(in); i++ {
			stack = append(stack, []dfg.StackSource[Instruction]{{Node: dnode, Slot: i}})
		}
	}
	return blockState{stack: stack, defs: defs}, nil
}

// mergeStates folds a predecessor's exit state into a successor's recorded
// entry state, reporting whether anything changed. Converging stacks must
// agree on height.
func mergeStates(in map[int64]blockState, succ int64, out blockState) (bool, error) {
	existing, seen := in[succ]
	if !seen {
		// Own the slices: the exit state may share backing arrays with the
		// predecessor's entry state.
		in[succ] = deepCopyState(out)
		return true, nil
	}
	if len(existing.stack) != len(out.stack) {
		return false, fmt.Errorf("converging paths disagree on stack height (%d vs %d)",
			len(existing.stack), len(out.stack))
	}

	before := stateKey(existing)
	for i, sources := range out.stack {
		existing.stack[i] = unionSources(existing.stack[i], sources)
	}
	for name, producers := range out.defs {
		existing.defs[name] = unionProducers(existing.defs[name], producers)
	}
	in[succ] = existing
	return stateKey(existing) != before, nil
}

func deepCopyState(s blockState) blockState {
	c := blockState{
		stack: make([][]dfg.StackSource[Instruction], len(s.stack)),
		defs:  make(map[string][]*dfg.Node[Instruction], len(s.defs)),
	}
	for i, sources := range s.stack {
		c.stack[i] = append([]dfg.StackSource[Instruction]{}, sources...)
	}
	for name, producers := range s.defs {
		c.defs[name] = append([]*dfg.Node[Instruction]{}, producers...)
	}
	return c
}

func unionSources(a, b []dfg.StackSource[Instruction]) []dfg.StackSource[Instruction] {
	for _, src := range b {
		found := false
		for _, existing := range a {
			if existing == src {
				found = true
				break
			}
		}
		if !found {
			a = append(a, src)
		}
	}
	return a
}

func unionProducers(a, b []*dfg.Node[Instruction]) []*dfg.Node[Instruction] {
	for _, p := range b {
		found := false
		for _, existing := range a {
			if existing == p {
				found = true
				break
			}
		}
		if !found {
			a = append(a, p)
		}
	}
	return a
}

// stateKey canonically serializes a state for change detection.
func stateKey(s blockState) string {
	var sb strings.Builder
	for i, sources := range s.stack {
		ids := make([]string, 0, len(sources))
		for _, src := range sources {
			ids = append(ids, fmt.Sprintf("%d.%d", src.Node.ID(), src.Slot))
		}
		sort.Strings(ids)
		fmt.Fprintf(&sb, "s%d:%s;", i, strings.Join(ids, ","))
	}
	names := make([]string, 0, len(s.defs))
	for name := range s.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ids := make([]string, 0, len(s.defs[name]))
		for _, p := range s.defs[name] {
			ids = append(ids, fmt.Sprintf("%d", p.ID()))
		}
		sort.Strings(ids)
		fmt.Fprintf(&sb, "v%s:%s;", name, strings.Join(ids, ","))
	}
	return sb.String()
}
