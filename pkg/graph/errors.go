package graph

import "fmt"

// ErrorKind classifies structural errors raised by the graph models and the
// AST lifter.
type ErrorKind string

const (
	// ErrInconsistentInput marks a cross-graph mismatch: a DFG node missing
	// for an instruction offset, an edge endpoint that is not a member of
	// the graph, or a region referencing an unknown node.
	ErrInconsistentInput ErrorKind = "inconsistent_input"

	// ErrInvariantViolation marks a violated structural rule: duplicate
	// offset on insertion, more than one fall-through or unconditional
	// successor, or an entrypoint outside the graph.
	ErrInvariantViolation ErrorKind = "invariant_violation"

	// ErrUnsupportedRegionKind marks a region variant that is neither a
	// basic region nor an exception handler region.
	ErrUnsupportedRegionKind ErrorKind = "unsupported_region_kind"

	// ErrIsaContract marks stack counts reported by the architecture that
	// are negative or that the data flow graph contradicts: more stack
	// dependencies than declared pops, or a source slot beyond the
	// producer's declared push count.
	ErrIsaContract ErrorKind = "isa_contract"
)

// Error is the single structured error surface for graph construction and
// lifting. Offset carries the offending node identity when one is known.
type Error struct {
	Kind   ErrorKind
	Offset int64
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Offset, e.Detail)
}

// NewError builds an Error with a formatted detail message.
func NewError(kind ErrorKind, offset int64, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Offset: offset, Detail: fmt.Sprintf(format, args...)}
}
