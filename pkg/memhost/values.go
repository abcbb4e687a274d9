// Package memhost is an in-memory host evaluator for the reconciler. Values
// are plain Go values for primitives and pointers for everything with an
// identity. Components are Go functions.
package memhost

import (
	"github.com/speakeasy-api/openapi/sequencedmap"

	"github.com/speakeasy-api/treefold"
)

// undefinedValue is the undefined primitive. nil is null.
type undefinedValue struct{}

// Symbol is a unique named token.
type Symbol struct {
	id   treefold.ID
	Name string
}

// Func is the Go body of a host function.
type Func func(h *Host, this treefold.Value, args []treefold.Value) (treefold.Value, error)

// Function is a callable host value. Class components are functions with a
// ClassSpec attached.
type Function struct {
	id      treefold.ID
	origin  *transaction
	Name    string
	Params  []string
	call    Func
	class   *ClassSpec
	statics *Object
}

// Array is an immutable ordered list.
type Array struct {
	id     treefold.ID
	origin *transaction
	Elems  []treefold.Value
}

// Element is an immutable element value.
type Element struct {
	id     treefold.ID
	origin *transaction
	Type   treefold.Value
	Props  treefold.Value
	Key    treefold.Value
	Ref    treefold.Value
}

// Object is a mutable object with properties kept in insertion order.
type Object struct {
	id     treefold.ID
	origin *transaction
	name   string
	props  *sequencedmap.Map[string, treefold.Value]
	// global objects outlive every fold; a net write to one is a side effect.
	global bool
	// simple instances fail with ErrNotSimple on unknown reads and any write.
	simple bool
}

// Abstract is a symbolic value. Conditional abstracts carry their test and
// both arms.
type Abstract struct {
	id          treefold.ID
	Name        string
	conditional bool
	cond        treefold.Value
	consequent  treefold.Value
	alternate   treefold.Value
	members     map[string]*Abstract
}

func (o *Object) get(key string) (treefold.Value, bool) {
	return o.props.Get(key)
}

func (o *Object) keys() []string {
	keys := make([]string, 0, o.props.Len())
	for k := range o.props.All() {
		keys = append(keys, k)
	}
	return keys
}

// remove deletes key, keeping the order of the other properties.
func (o *Object) remove(key string) {
	next := sequencedmap.New[string, treefold.Value]()
	for k, v := range o.props.All() {
		if k != key {
			next.Set(k, v)
		}
	}
	o.props = next
}

func isNumber(v treefold.Value) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func kindOf(v treefold.Value) treefold.Kind {
	switch v.(type) {
	case nil:
		return treefold.KindNull
	case undefinedValue:
		return treefold.KindUndefined
	case bool:
		return treefold.KindBoolean
	case int, int64, float64:
		return treefold.KindNumber
	case string:
		return treefold.KindString
	case *Symbol:
		return treefold.KindSymbol
	case *Function:
		return treefold.KindFunction
	case *Array:
		return treefold.KindArray
	case *Element:
		return treefold.KindElement
	case *Object:
		return treefold.KindObject
	case *Abstract:
		return treefold.KindAbstract
	}
	return treefold.KindUndefined
}

func identityOf(v treefold.Value) treefold.ID {
	switch t := v.(type) {
	case *Symbol:
		return t.id
	case *Function:
		return t.id
	case *Array:
		return t.id
	case *Element:
		return t.id
	case *Object:
		return t.id
	case *Abstract:
		return t.id
	}
	return treefold.NoID
}
