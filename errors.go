package treefold

import (
	"errors"
	"fmt"
)

// ErrNotSimple is returned by a simple class instance when render touches
// state or instance fields. The folding core retries the class as complex.
var ErrNotSimple = errors.New("class component is not simple")

// ExpectedBailOut is a known pattern the folding core intentionally does not
// support. It is recoverable at the element boundary.
type ExpectedBailOut struct {
	Message string
}

func (e *ExpectedBailOut) Error() string { return e.Message }

// NewExpectedBailOut formats an ExpectedBailOut.
func NewExpectedBailOut(format string, args ...any) *ExpectedBailOut {
	return &ExpectedBailOut{Message: fmt.Sprintf(format, args...)}
}

// UnsupportedSideEffect reports a mutation that escaped the evaluation
// sandbox. It is fatal for the enclosing root fold.
type UnsupportedSideEffect struct {
	Message string
}

func (e *UnsupportedSideEffect) Error() string {
	return "unsupported side effect: " + e.Message
}

// DoNotOptimize is a host-level opt-out. The element is left unresolved.
type DoNotOptimize struct {
	Message string
}

func (e *DoNotOptimize) Error() string {
	if e.Message == "" {
		return "do not optimize"
	}
	return "do not optimize: " + e.Message
}

// ThrownError is a value thrown by host code.
type ThrownError struct {
	Value   Value
	Message string
	Stack   string
}

func (e *ThrownError) Error() string {
	if e.Stack != "" {
		return e.Message + "\n" + e.Stack
	}
	return e.Message
}

// FatalError is a compiler-level fatal error that the host already sent to
// its diagnostic sink. It is never recoverable.
type FatalError struct {
	Message string
}

func (e *FatalError) Error() string {
	if e.Message == "" {
		return "fatal error"
	}
	return "fatal error: " + e.Message
}

// InvariantError is a programming error inside the core or the host.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string { return "invariant violation: " + e.Message }

// Invariantf returns an *InvariantError.
func Invariantf(format string, args ...any) error {
	return &InvariantError{Message: fmt.Sprintf(format, args...)}
}

// IsInvariant reports whether err is or wraps an *InvariantError.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
