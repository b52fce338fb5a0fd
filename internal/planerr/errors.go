// Package planerr names the error taxonomy shared by every planning-pipeline
// stage: parsing, grounding, compilation and search all fail (or recover)
// through these sentinel kinds rather than ad-hoc strings.
package planerr

import "errors"

// Kind classifies a planner error for logging and for the small set of
// recoverable cases the façade and search handle locally.
type Kind int

const (
	// KindParse: malformed input. Fatal.
	KindParse Kind = iota
	// KindUndefinedReference: schema, object or variable referenced but not declared. Fatal.
	KindUndefinedReference
	// KindTypeMismatch: object substituted for a parameter of an incompatible type. Fatal.
	KindTypeMismatch
	// KindInfeasibleTask: a static SAC reduced to false, or the initial state violates one. Fatal.
	KindInfeasibleTask
	// KindCapacityExceeded: hash-base overflow or node-pool exhaustion. Recoverable.
	KindCapacityExceeded
	// KindResourceExhausted: RAM threshold crossed. Recoverable.
	KindResourceExhausted
	// KindSimulatorProtocol: external IPC failure. Propagated, run aborts.
	KindSimulatorProtocol
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "ParseError"
	case KindUndefinedReference:
		return "UndefinedReference"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindInfeasibleTask:
		return "InfeasibleTask"
	case KindCapacityExceeded:
		return "CapacityExceeded"
	case KindResourceExhausted:
		return "ResourceExhausted"
	case KindSimulatorProtocol:
		return "SimulatorProtocolError"
	default:
		return "UnknownError"
	}
}

// Recoverable reports whether local recovery is defined for this kind
// (only CapacityExceeded and ResourceExhausted recover locally).
func (k Kind) Recoverable() bool {
	return k == KindCapacityExceeded || k == KindResourceExhausted
}

// Error is the single error type the planner returns; it carries the kind
// plus the offending identifier (a fluent name, action name, etc.) where
// applicable.
type Error struct {
	Kind   Kind
	Ident  string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Ident != "" {
		msg += " [" + e.Ident + "]"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a planner error of the given kind.
func New(kind Kind, ident, detail string) *Error {
	return &Error{Kind: kind, Ident: ident, Detail: detail}
}

// Wrap attaches a kind and identifier to an underlying error.
func Wrap(kind Kind, ident string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Ident: ident, Err: err}
}

// Is allows errors.Is(err, planerr.KindX) style matching via a sentinel
// wrapper, since Kind itself is not an error.
func Is(err error, kind Kind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
