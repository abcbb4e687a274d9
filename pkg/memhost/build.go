package memhost

import (
	"fmt"

	"github.com/speakeasy-api/treefold"
)

// NewSymbol returns a fresh symbol.
func (h *Host) NewSymbol(name string) *Symbol {
	return &Symbol{id: h.id(), Name: name}
}

// Func returns a host function.
func (h *Host) Func(name string, fn Func, params ...string) *Function {
	return &Function{
		id:      h.id(),
		origin:  h.currentTx(),
		Name:    name,
		Params:  params,
		call:    fn,
		statics: h.newObject(name),
	}
}

// Component returns a functional component.
func (h *Host) Component(name string, render func(h *Host, props, context treefold.Value) (treefold.Value, error)) *Function {
	return h.Func(name, func(h *Host, _ treefold.Value, args []treefold.Value) (treefold.Value, error) {
		props, context := treefold.Value(undefinedValue{}), treefold.Value(undefinedValue{})
		if len(args) > 0 {
			props = args[0]
		}
		if len(args) > 1 {
			context = args[1]
		}
		return render(h, props, context)
	}, "props", "context")
}

// Obj returns an object from alternating keys and values. It panics when a
// key is not a string.
func (h *Host) Obj(kv ...any) *Object {
	if len(kv)%2 != 0 {
		panic("memhost: Obj needs key/value pairs")
	}
	o := h.newObject("")
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("memhost: Obj key %v is not a string", kv[i]))
		}
		o.props.Set(key, kv[i+1])
	}
	return o
}

// Global returns a named object that outlives every fold.
func (h *Host) Global(name string, kv ...any) *Object {
	o := h.Obj(kv...)
	o.name = name
	o.global = true
	return o
}

// Array returns an array of elems.
func (h *Host) Array(elems ...treefold.Value) *Array {
	return &Array{id: h.id(), origin: h.currentTx(), Elems: elems}
}

// El returns an element. A single child is stored as is, several as an
// array. props may be nil for an empty props object.
func (h *Host) El(typ treefold.Value, props *Object, children ...treefold.Value) *Element {
	p := h.newObject("")
	if props != nil {
		for k, v := range props.props.All() {
			p.props.Set(k, v)
		}
	}
	switch len(children) {
	case 0:
	case 1:
		p.props.Set("children", children[0])
	default:
		p.props.Set("children", h.Array(children...))
	}
	return &Element{id: h.id(), origin: h.currentTx(), Type: typ, Props: p}
}

// CreateContext returns a context object with its Provider. The context
// object doubles as the consumer type.
func (h *Host) CreateContext(name string, defaultValue treefold.Value) (context, provider *Object) {
	context = h.newObject(name + ".Consumer")
	provider = h.newObject(name + ".Provider")
	provider.props.Set("$$typeof", h.symbols.ProviderTag)
	provider.props.Set("context", context)
	context.props.Set("$$typeof", h.symbols.ContextTag)
	context.props.Set("currentValue", defaultValue)
	context.props.Set("Provider", provider)
	context.props.Set("Consumer", context)
	return context, provider
}

// ForwardRef wraps render the way React.forwardRef does.
func (h *Host) ForwardRef(render *Function) *Object {
	o := h.newObject("ForwardRef(" + render.Name + ")")
	o.props.Set("$$typeof", h.symbols.ForwardRefTag)
	o.props.Set("render", render)
	return o
}

// QueryRenderer returns the opaque QueryRenderer component of react-relay.
func (h *Host) QueryRenderer() *Abstract {
	a := h.Abstract("QueryRenderer")
	h.SetHint(a, treefold.Hint{Library: treefold.LibraryReactRelay, Call: treefold.CallQueryRenderer})
	return a
}

// RelayContainer returns a react-relay container of kind call around
// component.
func (h *Host) RelayContainer(call string, component *Function) *Abstract {
	a := h.Abstract("Relay(" + component.Name + ")")
	h.SetHint(a, treefold.Hint{Library: treefold.LibraryReactRelay, Call: call, Args: []treefold.Value{component}})
	return a
}

// Abstract returns an opaque symbolic value.
func (h *Host) Abstract(name string) *Abstract {
	return &Abstract{id: h.id(), Name: name}
}

// Throw returns a function that throws msg.
func (h *Host) Throw(name, msg string) *Function {
	return h.Func(name, func(h *Host, _ treefold.Value, _ []treefold.Value) (treefold.Value, error) {
		return nil, &treefold.ThrownError{Value: msg, Message: msg, Stack: "at " + name}
	})
}
