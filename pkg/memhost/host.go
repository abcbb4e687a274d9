package memhost

import (
	"fmt"
	"sort"

	"github.com/speakeasy-api/openapi/sequencedmap"

	"github.com/speakeasy-api/treefold"
)

// Stats counts host activity, for asserting what user code ran.
type Stats struct {
	// SimpleInstances is the number of simple class instances built.
	SimpleInstances int
	// Calls is the number of invocations per function name.
	Calls map[string]int
}

// Host implements treefold.Host and treefold.HintTable.
type Host struct {
	nextID      treefold.ID
	symbols     treefold.Symbols
	hints       map[treefold.ID]treefold.Hint
	txs         []*transaction
	diagnostics []treefold.Diagnostic
	stats       Stats
}

var (
	_ treefold.Host      = (*Host)(nil)
	_ treefold.HintTable = (*Host)(nil)
)

// New returns an empty host with the library symbols allocated.
func New() *Host {
	h := &Host{
		hints: make(map[treefold.ID]treefold.Hint),
		stats: Stats{Calls: make(map[string]int)},
	}
	h.symbols = treefold.Symbols{
		Fragment:      h.NewSymbol("React.Fragment"),
		ProviderTag:   h.NewSymbol("react.provider"),
		ContextTag:    h.NewSymbol("react.context"),
		ForwardRefTag: h.NewSymbol("react.forward_ref"),
	}
	return h
}

func (h *Host) id() treefold.ID {
	h.nextID++
	return h.nextID
}

func (h *Host) currentTx() *transaction {
	if len(h.txs) == 0 {
		return nil
	}
	return h.txs[len(h.txs)-1]
}

// Stats returns a snapshot of the activity counters.
func (h *Host) Stats() Stats {
	calls := make(map[string]int, len(h.stats.Calls))
	for k, v := range h.stats.Calls {
		calls[k] = v
	}
	return Stats{SimpleInstances: h.stats.SimpleInstances, Calls: calls}
}

// Diagnostics returns every diagnostic reported so far.
func (h *Host) Diagnostics() []treefold.Diagnostic {
	return append([]treefold.Diagnostic(nil), h.diagnostics...)
}

// Report records d.
func (h *Host) Report(d treefold.Diagnostic) {
	h.diagnostics = append(h.diagnostics, d)
}

// Lookup returns the hint recorded for v.
func (h *Host) Lookup(v treefold.Value) (treefold.Hint, bool) {
	id := identityOf(v)
	if id == treefold.NoID {
		return treefold.Hint{}, false
	}
	hint, ok := h.hints[id]
	return hint, ok
}

// SetHint records that v was produced by a library call.
func (h *Host) SetHint(v treefold.Value, hint treefold.Hint) {
	if id := identityOf(v); id != treefold.NoID {
		h.hints[id] = hint
	}
}

// BindingsApplied reports false for values built inside a transaction that
// was later discarded.
func (h *Host) BindingsApplied(v treefold.Value) bool {
	var origin *transaction
	switch t := v.(type) {
	case *Object:
		origin = t.origin
	case *Array:
		origin = t.origin
	case *Element:
		origin = t.origin
	case *Function:
		origin = t.origin
	}
	return origin == nil || !origin.discarded
}

func (h *Host) Kind(v treefold.Value) treefold.Kind { return kindOf(v) }

func (h *Host) Identity(v treefold.Value) treefold.ID { return identityOf(v) }

func (h *Host) Same(a, b treefold.Value) bool {
	if x, ok := isNumber(a); ok {
		y, ok := isNumber(b)
		return ok && x == y
	}
	switch a.(type) {
	case nil, undefinedValue, bool, string:
		return a == b
	}
	ia := identityOf(a)
	return ia != treefold.NoID && ia == identityOf(b)
}

func (h *Host) Name(v treefold.Value) string {
	switch t := v.(type) {
	case *Function:
		return t.Name
	case *Symbol:
		return t.Name
	case *Object:
		if t.name != "" {
			return t.name
		}
		return "Object"
	case *Abstract:
		return t.Name
	case *Element:
		return h.Name(t.Type)
	case string:
		return t
	}
	return "Unknown"
}

func (h *Host) Symbols() treefold.Symbols { return h.symbols }

func (h *Host) Undefined() treefold.Value { return undefinedValue{} }

func (h *Host) Null() treefold.Value { return nil }

func (h *Host) String(s string) treefold.Value { return s }

func (h *Host) Get(obj treefold.Value, key string) (treefold.Value, error) {
	switch t := obj.(type) {
	case *Object:
		if v, ok := t.get(key); ok {
			return v, nil
		}
		if t.simple {
			return nil, fmt.Errorf("read of %q on a simple instance: %w", key, treefold.ErrNotSimple)
		}
		return undefinedValue{}, nil
	case *Function:
		if v, ok := t.statics.get(key); ok {
			return v, nil
		}
		if key == "name" {
			return t.Name, nil
		}
		return undefinedValue{}, nil
	case *Element:
		switch key {
		case "type":
			return t.Type, nil
		case "props":
			return t.Props, nil
		case "key":
			return t.Key, nil
		case "ref":
			return t.Ref, nil
		}
		return undefinedValue{}, nil
	case *Array:
		if key == "length" {
			return len(t.Elems), nil
		}
		return undefinedValue{}, nil
	case *Abstract:
		if t.members == nil {
			t.members = make(map[string]*Abstract)
		}
		m, ok := t.members[key]
		if !ok {
			m = &Abstract{id: h.id(), Name: t.Name + "." + key}
			t.members[key] = m
		}
		return m, nil
	case nil, undefinedValue:
		return nil, h.typeError("cannot read property %q of %s", key, kindOf(obj))
	}
	return undefinedValue{}, nil
}

func (h *Host) Has(obj treefold.Value, key string) bool {
	switch t := obj.(type) {
	case *Object:
		_, ok := t.get(key)
		return ok
	case *Function:
		_, ok := t.statics.get(key)
		return ok
	case *Element:
		switch key {
		case "type", "props", "key", "ref":
			return true
		}
	}
	return false
}

func (h *Host) Keys(obj treefold.Value) []string {
	switch t := obj.(type) {
	case *Object:
		return t.keys()
	case *Function:
		return t.statics.keys()
	}
	return nil
}

func (h *Host) Set(obj treefold.Value, key string, v treefold.Value) error {
	switch t := obj.(type) {
	case *Object:
		if t.simple {
			return fmt.Errorf("write of %q on a simple instance: %w", key, treefold.ErrNotSimple)
		}
		h.write(t, key, v)
		return nil
	case *Function:
		h.write(t.statics, key, v)
		return nil
	}
	return h.typeError("cannot set property %q on %s", key, kindOf(obj))
}

// write sets o[key], logging the previous value in the open transaction.
func (h *Host) write(o *Object, key string, v treefold.Value) {
	if tx := h.currentTx(); tx != nil {
		prev, had := o.get(key)
		tx.log = append(tx.log, undo{obj: o, key: key, prev: prev, had: had})
	}
	o.props.Set(key, v)
}

func (h *Host) newObject(name string) *Object {
	return &Object{
		id:     h.id(),
		origin: h.currentTx(),
		name:   name,
		props:  sequencedmap.New[string, treefold.Value](),
	}
}

func (h *Host) NewObject(keys []string, vals []treefold.Value) treefold.Value {
	o := h.newObject("")
	for i, k := range keys {
		o.props.Set(k, vals[i])
	}
	return o
}

func (h *Host) ArrayElements(arr treefold.Value) []treefold.Value {
	if a, ok := arr.(*Array); ok {
		return a.Elems
	}
	return nil
}

func (h *Host) NewArray(elems []treefold.Value) treefold.Value {
	return &Array{id: h.id(), origin: h.currentTx(), Elems: elems}
}

func (h *Host) Element(el treefold.Value) treefold.ElementParts {
	e, ok := el.(*Element)
	if !ok {
		return treefold.ElementParts{}
	}
	return treefold.ElementParts{Type: e.Type, Props: e.Props, Key: e.Key, Ref: e.Ref}
}

func (h *Host) NewElement(parts treefold.ElementParts) treefold.Value {
	return &Element{
		id:     h.id(),
		origin: h.currentTx(),
		Type:   parts.Type,
		Props:  parts.Props,
		Key:    parts.Key,
		Ref:    parts.Ref,
	}
}

func (h *Host) Call(fn treefold.Value, this treefold.Value, args ...treefold.Value) (treefold.Value, error) {
	f, ok := fn.(*Function)
	if !ok {
		return nil, h.typeError("%s is not a function", h.Name(fn))
	}
	if f.class != nil {
		return nil, h.typeError("cannot call class %s as a function", f.Name)
	}
	h.stats.Calls[f.Name]++
	if f.call == nil {
		return undefinedValue{}, nil
	}
	return f.call(h, this, args)
}

func (h *Host) typeError(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return &treefold.ThrownError{Value: msg, Message: "TypeError: " + msg}
}

func (h *Host) Conditional(v treefold.Value) (cond, consequent, alternate treefold.Value, ok bool) {
	a, isAbstract := v.(*Abstract)
	if !isAbstract || !a.conditional {
		return nil, nil, nil, false
	}
	return a.cond, a.consequent, a.alternate, true
}

func (h *Host) NewConditional(cond, consequent, alternate treefold.Value) treefold.Value {
	return &Abstract{
		id:          h.id(),
		Name:        "conditional",
		conditional: true,
		cond:        cond,
		consequent:  consequent,
		alternate:   alternate,
	}
}

func (h *Host) CreatePortal(child, container treefold.Value) treefold.Value {
	portal := &Abstract{id: h.id(), Name: "ReactDOM.createPortal"}
	h.SetHint(portal, treefold.Hint{
		Library: treefold.LibraryReactDOM,
		Call:    treefold.CallCreatePortal,
		Args:    []treefold.Value{child, container},
	})
	return portal
}

// AbstractArguments returns one abstract per parameter of fn. An empty
// parameter name stands for a destructuring pattern, which is not supported.
func (h *Host) AbstractArguments(fn treefold.Value) ([]treefold.Value, error) {
	f, ok := fn.(*Function)
	if !ok {
		return nil, h.typeError("%s is not a function", h.Name(fn))
	}
	args := make([]treefold.Value, 0, len(f.Params))
	for i, p := range f.Params {
		if p == "" {
			msg := fmt.Sprintf("parameter %d of %s is not an identifier", i, f.Name)
			h.Report(treefold.Diagnostic{Code: "PP1003", Message: msg, Severity: treefold.SeverityFatal})
			return nil, &treefold.FatalError{Message: msg}
		}
		args = append(args, &Abstract{id: h.id(), Name: p})
	}
	return args, nil
}

func (h *Host) InitialProps(componentType treefold.Value) (treefold.Value, error) {
	return &Abstract{id: h.id(), Name: "props"}, nil
}

func (h *Host) InitialContext(componentType treefold.Value) (treefold.Value, error) {
	return &Abstract{id: h.id(), Name: "context"}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
