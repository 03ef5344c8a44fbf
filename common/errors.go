package common

import "fmt"

// ErrorKind classifies the error conditions the core engine can surface, per
// the engine's error-handling design. Numeric guards and degenerate-state
// recoveries are internal and do not produce an ErrorKind; they are folded
// back into normal (possibly empty) output.
type ErrorKind int

const (
	// ResourceExhausted signals an allocation failure during array growth.
	ResourceExhausted ErrorKind = iota
	// InvalidArgument signals a null buffer, zero-length input with a
	// target, or input containing a reserved symbol.
	InvalidArgument
	// PersistenceFailure signals an I/O failure during save or load.
	PersistenceFailure
)

func (k ErrorKind) String() string {
	switch k {
	case ResourceExhausted:
		return "ResourceExhausted"
	case InvalidArgument:
		return "InvalidArgument"
	case PersistenceFailure:
		return "PersistenceFailure"
	default:
		return "Unknown"
	}
}

// EngineError is the core's single error type, carrying a Kind so callers can
// branch on error category without string matching.
type EngineError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Is reports whether target is an *EngineError with the same Kind, so callers
// can write errors.Is(err, &common.EngineError{Kind: common.InvalidArgument}).
func (e *EngineError) Is(target error) bool {
	other, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// NewError constructs an *EngineError, optionally wrapping a lower-level
// cause via the standard %w verb semantics.
func NewError(kind ErrorKind, msg string, cause error) *EngineError {
	return &EngineError{Kind: kind, Msg: msg, Err: cause}
}
