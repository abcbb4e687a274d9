// Package treefold defines the boundary between the component-tree folding
// core (package reconciler) and the host evaluator that owns every value.
//
// The core never inspects host values directly. It asks the host for a
// value's Kind and Identity and routes on those variant tags only.
package treefold

// Value is an opaque handle to a host-owned value.
type Value interface{}

// Kind classifies a host value into the closed set of shapes the folding
// core dispatches on.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindString
	KindSymbol
	KindFunction
	KindArray
	KindElement
	KindObject
	KindAbstract
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindFunction:
		return "function"
	case KindArray:
		return "array"
	case KindElement:
		return "element"
	case KindObject:
		return "object"
	case KindAbstract:
		return "abstract"
	default:
		return "unknown"
	}
}

// IsPrimitive reports whether values of this kind are terminal for
// resolution: they are returned unchanged.
func (k Kind) IsPrimitive() bool {
	switch k {
	case KindUndefined, KindNull, KindBoolean, KindNumber, KindString:
		return true
	}
	return false
}

// IsObjectLike reports whether values of this kind carry properties.
func (k Kind) IsObjectLike() bool {
	switch k {
	case KindFunction, KindArray, KindElement, KindObject:
		return true
	}
	return false
}

// ID is a stable identity handle assigned by the host. Tables keyed by
// object identity use ID so ownership of values stays with the host.
type ID uint64

// NoID is the identity of values without one (primitives).
const NoID ID = 0

// ElementParts is the decomposed form of an element-shaped value.
type ElementParts struct {
	Type  Value
	Props Value
	Key   Value
	Ref   Value
}

// Hint records which known library call produced an abstract (or opaque)
// value, e.g. {Library: "react-dom", Call: "createPortal"}.
type Hint struct {
	Library string
	Call    string
	Args    []Value
}

// Known hint libraries and calls.
const (
	LibraryReact      = "react"
	LibraryReactDOM   = "react-dom"
	LibraryReactRelay = "react-relay"

	CallCreatePortal        = "createPortal"
	CallForwardRef          = "forwardRef"
	CallQueryRenderer       = "QueryRenderer"
	CallFragmentContainer   = "createFragmentContainer"
	CallRefetchContainer    = "createRefetchContainer"
	CallPaginationContainer = "createPaginationContainer"
)

// Is reports whether the hint describes the given library call.
func (h Hint) Is(library, call string) bool {
	return h.Library == library && h.Call == call
}

// HintTable is a read-only side table from values to the library call that
// produced them. Its lifetime is one compilation run.
type HintTable interface {
	Lookup(v Value) (Hint, bool)
}

// NoHints is an empty HintTable.
type NoHints struct{}

func (NoHints) Lookup(Value) (Hint, bool) { return Hint{}, false }
