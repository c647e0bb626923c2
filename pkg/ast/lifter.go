package ast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/l3aro/go-bytecode-lift/pkg/cfg"
	"github.com/l3aro/go-bytecode-lift/pkg/dfg"
	"github.com/l3aro/go-bytecode-lift/pkg/graph"
	"github.com/l3aro/go-bytecode-lift/pkg/isa"
)

// Lift rewrites every basic block of the control flow graph into SSA-form
// statements, threading stack and variable dependencies through the data
// flow graph. The output graph mirrors the input's node set, edge set,
// region tree and entrypoint; only block contents change. On inconsistent
// input no partial output is returned.
func Lift[I any](source *cfg.Graph[I], dataflow *dfg.Graph[I], arch isa.Architecture[I]) (*cfg.Graph[Statement[I]], error) {
	l := &lifter[I]{
		arch:               arch,
		source:             source,
		dataflow:           dataflow,
		target:             cfg.New[Statement[I]](),
		stackSlots:         make(map[int64][]*Variable),
		variableVersions:   make(map[isa.Variable]int),
		versionedVariables: make(map[versionKey]*Variable),
		writeVersions:      make(map[writeKey]int),
		phiSlots:           make(map[string]*Variable),
		externals:          make(map[string]*Variable),
		basicRegions:       make(map[*cfg.BasicRegion[I]]*cfg.BasicRegion[Statement[I]]),
	}
	return l.parse()
}

// writeKey identifies one write site: the instruction offset and the
// variable it writes. Each write site bumps the variable's version exactly
// once, no matter whether the write or a dependant read is lifted first.
type writeKey struct {
	offset   int64
	variable isa.Variable
}

// versionKey interns one versioned AST variable per (variable, version).
type versionKey struct {
	variable isa.Variable
	version  int
}

// lifter holds the state of a single Lift invocation. It is discarded when
// the call returns; the id counter and naming counters are never shared
// across runs.
type lifter[I any] struct {
	arch     isa.Architecture[I]
	source   *cfg.Graph[I]
	dataflow *dfg.Graph[I]
	target   *cfg.Graph[Statement[I]]

	stackSlots         map[int64][]*Variable
	variableVersions   map[isa.Variable]int
	versionedVariables map[versionKey]*Variable
	writeVersions      map[writeKey]int
	phiSlots           map[string]*Variable
	externals          map[string]*Variable

	basicRegions map[*cfg.BasicRegion[I]]*cfg.BasicRegion[Statement[I]]

	nextID     int64
	stackSlotN int
	phiN       int
}

func (l *lifter[I]) parse() (*cfg.Graph[Statement[I]], error) {
	if err := l.validate(); err != nil {
		return nil, err
	}

	if err := l.transformRegions(); err != nil {
		return nil, err
	}

	for _, n := range l.source.Nodes() {
		block, err := l.liftBlock(n)
		if err != nil {
			return nil, err
		}
		if _, err := l.target.AddNode(block); err != nil {
			return nil, err
		}
	}

	for _, n := range l.source.Nodes() {
		region := n.Region()
		if region == nil {
			continue
		}
		mapped, ok := l.basicRegions[region]
		if !ok {
			return nil, graph.NewError(graph.ErrInconsistentInput, n.ID(),
				"node belongs to a region that is not attached to the graph")
		}
		if err := l.target.MoveNodeToRegion(n.ID(), mapped); err != nil {
			return nil, err
		}
	}

	for _, e := range l.source.Edges() {
		if _, err := l.target.Connect(e.OriginID(), e.TargetID(), e.Type); err != nil {
			return nil, err
		}
	}

	if err := l.target.SetEntrypoint(l.source.Entrypoint().ID()); err != nil {
		return nil, err
	}
	return l.target, nil
}

// validate checks the boundary contract before any output is built: the
// graph has an entrypoint, every instruction has a data flow node, and every
// non-external data flow node corresponds to an instruction. It also seeds
// the synthetic id counter below all real identities.
func (l *lifter[I]) validate() error {
	if l.source.Entrypoint() == nil {
		return graph.NewError(graph.ErrInvariantViolation, 0, "graph has no entrypoint")
	}

	minID := int64(0)
	offsets := make(map[int64]struct{})
	for _, n := range l.source.Nodes() {
		for _, instr := range n.Block().Instructions {
			o := l.arch.Offset(instr)
			offsets[o] = struct{}{}
			if o < minID {
				minID = o
			}
			if _, ok := l.dataflow.Node(o); !ok {
				return graph.NewError(graph.ErrInconsistentInput, o,
					"no data flow node for instruction")
			}
		}
	}
	for _, d := range l.dataflow.Nodes() {
		if d.ID() < minID {
			minID = d.ID()
		}
		if d.IsExternal() {
			continue
		}
		if _, ok := offsets[d.ID()]; !ok {
			return graph.NewError(graph.ErrInconsistentInput, d.ID(),
				"data flow node does not correspond to any instruction")
		}
	}

	l.nextID = minID - 1
	return nil
}

// liftBlock rewrites one basic block. Phi statements synthesized for this
// block are prepended in synthesis order ahead of the rewritten
// instructions.
func (l *lifter[I]) liftBlock(n *cfg.Node[I]) (*cfg.BasicBlock[Statement[I]], error) {
	block := cfg.NewBasicBlock[Statement[I]](n.ID())
	phiCursor := 0

	for _, instr := range n.Block().Instructions {
		o := l.arch.Offset(instr)
		node, _ := l.dataflow.Node(o)

		popCount := l.arch.StackPopCount(instr)
		pushCount := l.arch.StackPushCount(instr)
		if popCount < 0 || pushCount < 0 {
			return nil, graph.NewError(graph.ErrIsaContract, o,
				"architecture reports negative stack counts (%d pops, %d pushes)", popCount, pushCount)
		}
		deps := node.StackDependencies()
		if len(deps) > popCount {
			return nil, graph.NewError(graph.ErrIsaContract, o,
				"%d stack dependencies recorded but architecture declares %d pops", len(deps), popCount)
		}

		var args []Expression[I]

		for k, dep := range deps {
			switch dep.Len() {
			case 0:
				return nil, graph.NewError(graph.ErrInconsistentInput, o,
					"stack dependency %d has no sources", k)
			case 1:
				v, err := l.resolveStackSource(dep.Sources()[0])
				if err != nil {
					return nil, err
				}
				args = append(args, l.variableExpression(v))
			default:
				slot, phi, err := l.mergeStackSources(dep)
				if err != nil {
					return nil, err
				}
				block.Instructions = insertStatement(block.Instructions, phiCursor, phi)
				phiCursor++
				args = append(args, l.variableExpression(slot))
			}
		}

		for _, vdep := range node.VariableDependencies() {
			v, phi, err := l.resolveVariableDependency(vdep)
			if err != nil {
				return nil, err
			}
			if phi != nil {
				block.Instructions = insertStatement(block.Instructions, phiCursor, phi)
				phiCursor++
			}
			args = append(args, l.variableExpression(v))
		}

		expr := &InstructionExpression[I]{
			id:          l.takeID(),
			Offset:      o,
			Instruction: instr,
			Arguments:   args,
		}

		written := l.arch.WrittenVariables(instr)
		slots, err := l.slotsFor(node)
		if err != nil {
			return nil, err
		}
		targets := append([]*Variable{}, slots...)
		for _, w := range written {
			targets = append(targets, l.versionedVariable(w, l.writeVersion(o, w)))
		}

		if len(written) == 0 && !node.HasDependants() {
			block.Append(&ExpressionStatement[I]{id: l.takeID(), Expression: expr})
		} else {
			block.Append(&AssignmentStatement[I]{id: l.takeID(), Targets: targets, Expression: expr})
		}
	}
	return block, nil
}

// resolveStackSource binds one stack argument source: the producer's named
// stack slot, or the external source's name.
func (l *lifter[I]) resolveStackSource(src dfg.StackSource[I]) (*Variable, error) {
	if src.Node.IsExternal() {
		return l.externalVariable(src.Node.Name()), nil
	}
	slots, err := l.slotsFor(src.Node)
	if err != nil {
		return nil, err
	}
	if src.Slot >= len(slots) {
		return nil, graph.NewError(graph.ErrIsaContract, src.Node.ID(),
			"stack source slot %d outside the producer's declared push count %d", src.Slot, len(slots))
	}
	return slots[src.Slot], nil
}

// mergeStackSources synthesizes a phi statement merging a multi-source stack
// dependency and returns the fresh phi slot bound to the argument.
func (l *lifter[I]) mergeStackSources(dep *dfg.StackDependency[I]) (*Variable, *PhiStatement[I], error) {
	sources := make([]*VariableExpression[I], 0, dep.Len())
	for _, src := range dep.Sources() {
		v, err := l.resolveStackSource(src)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, l.variableExpression(v))
	}
	slot := l.newPhiSlot()
	phi := &PhiStatement[I]{id: l.takeID(), Target: slot, Sources: sources}
	return slot, phi, nil
}

// resolveVariableDependency binds one variable argument source. Merges of
// multiple producers go through the phi slot memo: two merges over the same
// snapshot set share one slot, which is what gives the output its SSA
// sharing property.
func (l *lifter[I]) resolveVariableDependency(vdep *dfg.VariableDependency[I]) (*Variable, *PhiStatement[I], error) {
	producers := vdep.Producers()

	if len(producers) <= 1 {
		if len(producers) == 1 {
			p := producers[0]
			if p.IsExternal() {
				return l.externalVariable(p.Name()), nil, nil
			}
			return l.versionedVariable(vdep.Variable, l.writeVersion(p.ID(), vdep.Variable)), nil, nil
		}
		// No recorded producer: bind the variable's current version.
		return l.versionedVariable(vdep.Variable, l.currentVersion(vdep.Variable)), nil, nil
	}

	snapshot := make([]*Variable, 0, len(producers))
	for _, p := range producers {
		if p.IsExternal() {
			snapshot = append(snapshot, l.externalVariable(p.Name()))
		} else {
			snapshot = append(snapshot, l.versionedVariable(vdep.Variable, l.writeVersion(p.ID(), vdep.Variable)))
		}
	}
	snapshot = canonicalize(snapshot)

	names := make([]string, len(snapshot))
	for i, v := range snapshot {
		names[i] = v.Name()
	}
	key := strings.Join(names, "|")

	if slot, ok := l.phiSlots[key]; ok {
		return slot, nil, nil
	}

	sources := make([]*VariableExpression[I], 0, len(snapshot))
	for _, v := range snapshot {
		sources = append(sources, l.variableExpression(v))
	}
	slot := l.newPhiSlot()
	phi := &PhiStatement[I]{id: l.takeID(), Target: slot, Sources: sources}
	l.phiSlots[key] = slot
	return slot, phi, nil
}

// slotsFor returns the stack slot variables the producer pushes, allocating
// them on first request. A consumer lifted ahead of its producer (a back
// edge) reserves the producer's slots early; the producer reuses them when
// its own block is rewritten.
func (l *lifter[I]) slotsFor(producer *dfg.Node[I]) ([]*Variable, error) {
	if slots, ok := l.stackSlots[producer.ID()]; ok {
		return slots, nil
	}
	pushCount := l.arch.StackPushCount(producer.Instruction())
	if pushCount < 0 {
		return nil, graph.NewError(graph.ErrIsaContract, producer.ID(),
			"architecture reports a negative push count (%d)", pushCount)
	}
	slots := make([]*Variable, pushCount)
	for i := range slots {
		slots[i] = NewVariable(fmt.Sprintf("stack_slot_%d", l.stackSlotN))
		l.stackSlotN++
	}
	l.stackSlots[producer.ID()] = slots
	return slots, nil
}

// writeVersion returns the SSA version variable v receives at the given
// write site, bumping the per-variable counter exactly once per site.
func (l *lifter[I]) writeVersion(offset int64, v isa.Variable) int {
	key := writeKey{offset: offset, variable: v}
	if ver, ok := l.writeVersions[key]; ok {
		return ver
	}
	ver, known := l.variableVersions[v]
	if known {
		ver++
	}
	l.variableVersions[v] = ver
	l.writeVersions[key] = ver
	return ver
}

// currentVersion returns the variable's current version, initializing the
// counter to zero on first sight.
func (l *lifter[I]) currentVersion(v isa.Variable) int {
	ver, ok := l.variableVersions[v]
	if !ok {
		l.variableVersions[v] = 0
	}
	return ver
}

func (l *lifter[I]) versionedVariable(v isa.Variable, version int) *Variable {
	key := versionKey{variable: v, version: version}
	av, ok := l.versionedVariables[key]
	if !ok {
		av = NewVariable(fmt.Sprintf("%s_v%d", v.Name(), version))
		l.versionedVariables[key] = av
	}
	return av
}

func (l *lifter[I]) externalVariable(name string) *Variable {
	av, ok := l.externals[name]
	if !ok {
		av = NewVariable(name)
		l.externals[name] = av
	}
	return av
}

func (l *lifter[I]) newPhiSlot() *Variable {
	v := NewVariable(fmt.Sprintf("phi_%d", l.phiN))
	l.phiN++
	return v
}

func (l *lifter[I]) variableExpression(v *Variable) *VariableExpression[I] {
	return &VariableExpression[I]{id: l.takeID(), Variable: v}
}

// takeID hands out synthetic identities, descending from below every real
// offset so synthesized nodes never collide with instructions.
func (l *lifter[I]) takeID() int64 {
	id := l.nextID
	l.nextID--
	return id
}

// transformRegions rebuilds the region tree for the target graph and records
// the correspondence used when relocating lifted nodes.
func (l *lifter[I]) transformRegions() error {
	for _, r := range l.source.Regions() {
		nr, err := l.transformRegion(r)
		if err != nil {
			return err
		}
		l.target.AddRegion(nr)
	}
	return nil
}

func (l *lifter[I]) transformRegion(r cfg.Region[I]) (cfg.Region[Statement[I]], error) {
	switch region := r.(type) {
	case *cfg.BasicRegion[I]:
		nr := cfg.NewBasicRegion[Statement[I]]()
		if err := l.mapBasicRegion(region, nr); err != nil {
			return nil, err
		}
		return nr, nil
	case *cfg.ExceptionHandlerRegion[I]:
		// The protected region is identity-held by its owner, so it is
		// populated in place rather than replaced.
		nr := cfg.NewExceptionHandlerRegion[Statement[I]]()
		if err := l.mapBasicRegion(region.Protected(), nr.Protected()); err != nil {
			return nil, err
		}
		for _, h := range region.Handlers() {
			if err := l.mapBasicRegion(h, nr.AddHandler()); err != nil {
				return nil, err
			}
		}
		return nr, nil
	default:
		var offset int64
		if ids := r.NodeIDs(); len(ids) > 0 {
			offset = ids[0]
		}
		return nil, graph.NewError(graph.ErrUnsupportedRegionKind, offset,
			"region type %T is not supported", r)
	}
}

func (l *lifter[I]) mapBasicRegion(src *cfg.BasicRegion[I], dst *cfg.BasicRegion[Statement[I]]) error {
	l.basicRegions[src] = dst
	for _, child := range src.Children() {
		nc, err := l.transformRegion(child)
		if err != nil {
			return err
		}
		dst.AddChild(nc)
	}
	return nil
}

// canonicalize sorts a snapshot by variable name and drops duplicates, so
// structurally identical merge sets produce identical phi keys no matter the
// order producers were recorded in.
func canonicalize(snapshot []*Variable) []*Variable {
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Name() < snapshot[j].Name() })
	out := snapshot[:0]
	var last string
	for i, v := range snapshot {
		if i > 0 && v.Name() == last {
			continue
		}
		out = append(out, v)
		last = v.Name()
	}
	return out
}

func insertStatement[I any](list []Statement[I], at int, s Statement[I]) []Statement[I] {
	list = append(list, nil)
	copy(list[at+1:], list[at:])
	list[at] = s
	return list
}
