package treefold

// Symbols are the library identities the host supplies for classifying
// element types. Comparisons use Values.Same.
type Symbols struct {
	// Fragment is the element type of fragments.
	Fragment Value
	// ProviderTag is the "$$typeof" tag of context provider types.
	ProviderTag Value
	// ContextTag is the "$$typeof" tag of context objects, which double as
	// consumer types.
	ContextTag Value
	// ForwardRefTag is the "$$typeof" tag of forwardRef wrappers.
	ForwardRefTag Value
}

// Values is value classification, identity and property access.
type Values interface {
	Kind(v Value) Kind
	Identity(v Value) ID
	// Same reports value identity (SameValue for primitives).
	Same(a, b Value) bool
	// Name returns a display name for a component-like value.
	Name(v Value) string
	Symbols() Symbols

	Undefined() Value
	Null() Value
	String(s string) Value

	Get(obj Value, key string) (Value, error)
	Has(obj Value, key string) bool
	// Keys returns own enumerable keys in insertion order.
	Keys(obj Value) []string
	Set(obj Value, key string, v Value) error

	NewObject(keys []string, vals []Value) Value
	ArrayElements(arr Value) []Value
	NewArray(elems []Value) Value
}

// Elements decomposes and builds element-shaped values.
type Elements interface {
	Element(el Value) ElementParts
	NewElement(parts ElementParts) Value
}

// Invoker calls host functions. A host-level throw is returned as a
// *ThrownError; escaping mutations as *UnsupportedSideEffect.
type Invoker interface {
	Call(fn Value, this Value, args ...Value) (Value, error)
}

// ClassMetadata is what the host learned from a class constructor body.
type ClassMetadata struct {
	InstanceProperties []string
	InstanceSymbols    []string
}

// Simple reports whether the constructor made no own-property assignments.
func (m ClassMetadata) Simple() bool {
	return len(m.InstanceProperties) == 0 && len(m.InstanceSymbols) == 0
}

// Classes constructs class-component instances.
type Classes interface {
	IsClassComponent(v Value) bool
	// IsFactoryClassComponent reports whether a functional component result is
	// a legacy factory-style class object.
	IsFactoryClassComponent(v Value) bool
	ClassMetadata(class, props, context Value) (ClassMetadata, error)
	// NewSimpleInstance builds an instance exposing only props and context.
	// Reads of state or instance fields on it fail with ErrNotSimple.
	NewSimpleInstance(class, props, context Value) (Value, error)
	NewInstance(class, props, context Value, meta ClassMetadata) (Value, error)
	NewFirstRenderInstance(class, props, context Value) (Value, error)
	// AssignObject returns a new object holding the properties of each source
	// in order, like Object.assign({}, ...sources).
	AssignObject(sources ...Value) (Value, error)
}

// Effects is a captured, not yet applied, set of mutations together with
// the value the evaluation produced.
type Effects interface {
	Result() Value
}

// Transaction is a scoped speculative evaluation. Exactly one of Commit or
// Discard must be called.
type Transaction interface {
	// Commit captures the mutations made since Begin, rolls them back and
	// returns them as Effects. Mutations that escaped the evaluation are
	// reported as *UnsupportedSideEffect.
	Commit(result Value) (Effects, error)
	Discard()
}

// Transactor opens transactions and merges conditional outcomes.
type Transactor interface {
	// Begin starts a transaction with the given effects applied first.
	Begin(applied ...Effects) Transaction
	// Join applies both effects under cond and returns the joined result.
	Join(cond Value, consequent, alternate Effects) (Value, error)
}

// Abstracts handles symbolic values and residual emission.
type Abstracts interface {
	// Conditional decomposes a conditional abstract value.
	Conditional(v Value) (cond, consequent, alternate Value, ok bool)
	// NewConditional builds a conditional abstract value.
	NewConditional(cond, consequent, alternate Value) Value
	// CreatePortal emits a residual portal construction.
	CreatePortal(child, container Value) Value
	// AbstractArguments returns one abstract argument per formal parameter.
	AbstractArguments(fn Value) ([]Value, error)
	InitialProps(componentType Value) (Value, error)
	InitialContext(componentType Value) (Value, error)
}

// Severity of a Diagnostic.
type Severity int

const (
	SeverityInformation Severity = iota
	SeverityWarning
	SeverityRecoverableError
	SeverityFatal
)

// Diagnostic is a compiler-level message for the host's diagnostic sink.
type Diagnostic struct {
	Code     string
	Message  string
	Severity Severity
}

// Diagnostics is the host's diagnostic sink.
type Diagnostics interface {
	Report(d Diagnostic)
}

// Host is everything the folding core consumes from the host evaluator.
type Host interface {
	Values
	Elements
	Invoker
	Classes
	Transactor
	Abstracts
	Diagnostics
}
