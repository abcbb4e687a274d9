package fixture

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/speakeasy-api/treefold"
	"github.com/speakeasy-api/treefold/pkg/memhost"
)

// scope binds the $-references a template may use.
type scope struct {
	this    treefold.Value
	props   treefold.Value
	context treefold.Value
	state   treefold.Value
	value   treefold.Value
	ref     treefold.Value
}

type evaluator struct {
	p *Program
}

func (e *evaluator) host() *memhost.Host { return e.p.Host }

// component builds the value defined by c.
func (e *evaluator) component(name string, c componentDoc) (treefold.Value, error) {
	h := e.host()
	var v treefold.Value
	switch {
	case c.Class:
		class, err := e.class(name, c)
		if err != nil {
			return nil, err
		}
		v = class
	case c.ForwardRef:
		render := h.Func(name, func(_ *memhost.Host, _ treefold.Value, args []treefold.Value) (treefold.Value, error) {
			return e.eval(&scope{props: arg(h, args, 0), ref: arg(h, args, 1)}, c.Render)
		}, "props", "ref")
		v = h.ForwardRef(render)
	default:
		v = h.Component(name, func(_ *memhost.Host, props, context treefold.Value) (treefold.Value, error) {
			return e.eval(&scope{props: props, context: context}, c.Render)
		})
	}

	if len(c.ContextTypes) > 0 {
		kv := make([]any, 0, 2*len(c.ContextTypes))
		for _, key := range c.ContextTypes {
			kv = append(kv, key, true)
		}
		if err := h.Set(v, "contextTypes", h.Obj(kv...)); err != nil {
			return nil, err
		}
	}
	if c.Relay != "" {
		fn, ok := v.(*memhost.Function)
		if !ok {
			return nil, errors.Errorf("relay containers need a function component")
		}
		return h.RelayContainer(c.Relay, fn), nil
	}
	return v, nil
}

func (e *evaluator) class(name string, c componentDoc) (*memhost.Function, error) {
	h := e.host()
	spec := memhost.ClassSpec{
		Name:   name,
		Fields: append([]string(nil), c.Fields...),
		Render: func(_ *memhost.Host, this treefold.Value, _ []treefold.Value) (treefold.Value, error) {
			return e.eval(&scope{this: this}, c.Render)
		},
	}
	if c.State != nil {
		spec.Fields = append(spec.Fields, "state")
		spec.Constructor = func(_ *memhost.Host, this *memhost.Object, props, context treefold.Value) error {
			state, err := e.eval(&scope{props: props, context: context}, c.State)
			if err != nil {
				return err
			}
			return h.Set(this, "state", state)
		}
	}
	if c.WillMount != nil {
		spec.Methods = map[string]memhost.Func{
			"componentWillMount": func(_ *memhost.Host, this treefold.Value, _ []treefold.Value) (treefold.Value, error) {
				partial, err := e.eval(&scope{this: this}, c.WillMount)
				if err != nil {
					return nil, err
				}
				setState, err := h.Get(this, "setState")
				if err != nil {
					return nil, err
				}
				return h.Call(setState, this, partial)
			},
		}
	}

	class := h.Class(spec)
	if c.DerivedState != nil {
		derive := h.Func(name+".getDerivedStateFromProps", func(_ *memhost.Host, _ treefold.Value, args []treefold.Value) (treefold.Value, error) {
			return e.eval(&scope{props: arg(h, args, 0), state: arg(h, args, 1)}, c.DerivedState)
		}, "props", "state")
		if err := h.Set(class, "getDerivedStateFromProps", derive); err != nil {
			return nil, errors.Wrapf(err, "failed to attach getDerivedStateFromProps to %s", name)
		}
	}
	return class, nil
}

func arg(h *memhost.Host, args []treefold.Value, i int) treefold.Value {
	if i < len(args) {
		return args[i]
	}
	return h.Undefined()
}

// eval turns a decoded template into a host value.
func (e *evaluator) eval(s *scope, t any) (treefold.Value, error) {
	h := e.host()
	switch t := t.(type) {
	case nil:
		return h.Null(), nil
	case bool, float64, int:
		return t, nil
	case int64:
		return int(t), nil
	case uint64:
		return int(t), nil
	case string:
		if strings.HasPrefix(t, "$") {
			return e.reference(s, t)
		}
		return t, nil
	case []any:
		elems := make([]treefold.Value, len(t))
		for i, item := range t {
			v, err := e.eval(s, item)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return h.NewArray(elems), nil
	case map[string]any:
		return e.form(s, t)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, v := range t {
			key, ok := k.(string)
			if !ok {
				return nil, errors.Errorf("object key %v is not a string", k)
			}
			m[key] = v
		}
		return e.form(s, m)
	}
	return nil, errors.Errorf("unsupported template value %T", t)
}

// reference resolves "$root.path.to.key".
func (e *evaluator) reference(s *scope, ref string) (treefold.Value, error) {
	h := e.host()
	path := strings.Split(strings.TrimPrefix(ref, "$"), ".")
	var (
		v   treefold.Value
		err error
	)
	switch path[0] {
	case "props":
		v, err = e.fromInstance(s, s.props, "props")
	case "context":
		v, err = e.fromInstance(s, s.context, "context")
	case "state":
		v, err = e.fromInstance(s, s.state, "state")
	case "value":
		v = orUndefined(h, s.value)
	case "ref":
		v = orUndefined(h, s.ref)
	default:
		return nil, errors.Errorf("unknown reference %q", ref)
	}
	if err != nil {
		return nil, err
	}
	for _, key := range path[1:] {
		if v, err = h.Get(v, key); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// fromInstance returns bound, or the instance property key when the scope
// belongs to a class render.
func (e *evaluator) fromInstance(s *scope, bound treefold.Value, key string) (treefold.Value, error) {
	if bound == nil && s.this != nil {
		return e.host().Get(s.this, key)
	}
	return orUndefined(e.host(), bound), nil
}

func orUndefined(h *memhost.Host, v treefold.Value) treefold.Value {
	if v == nil {
		return h.Undefined()
	}
	return v
}

// form evaluates a mapping: an element, a control form or an object
// literal.
func (e *evaluator) form(s *scope, m map[string]any) (treefold.Value, error) {
	switch {
	case has(m, "type"):
		return e.element(s, m)
	case has(m, "when"):
		return e.when(s, m)
	case has(m, "throw"):
		msg, _ := m["throw"].(string)
		return nil, &treefold.ThrownError{Value: msg, Message: msg, Stack: "at render"}
	case has(m, "mutateGlobal"):
		return e.mutateGlobal(s, m)
	case has(m, "portal"):
		return e.portal(s, m)
	case has(m, "render"):
		return e.closure(s, m)
	case has(m, "abstract"):
		name, _ := m["abstract"].(string)
		return e.host().Abstract(name), nil
	case has(m, "object"):
		inner, ok := m["object"].(map[string]any)
		if !ok && m["object"] != nil {
			return nil, errors.Errorf("object must be a mapping")
		}
		return e.object(s, inner)
	}
	return e.object(s, m)
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func (e *evaluator) object(s *scope, m map[string]any) (treefold.Value, error) {
	keys := sortedKeys(m)
	vals := make([]treefold.Value, len(keys))
	for i, k := range keys {
		v, err := e.eval(s, m[k])
		if err != nil {
			return nil, errors.Wrapf(err, "property %s", k)
		}
		vals[i] = v
	}
	return e.host().NewObject(keys, vals), nil
}

func (e *evaluator) element(s *scope, m map[string]any) (treefold.Value, error) {
	h := e.host()
	var (
		typ treefold.Value
		err error
	)
	name, _ := m["type"].(string)
	if strings.HasPrefix(name, "$") {
		typ, err = e.reference(s, name)
	} else {
		typ, err = e.p.resolveType(name)
	}
	if err != nil {
		return nil, err
	}

	var props treefold.Value
	switch raw := m["props"].(type) {
	case string:
		// A reference passes props through untouched.
		if props, err = e.eval(s, raw); err != nil {
			return nil, err
		}
	default:
		fields, _ := raw.(map[string]any)
		keys := sortedKeys(fields)
		vals := make([]treefold.Value, 0, len(keys)+1)
		for _, k := range keys {
			v, err := e.eval(s, fields[k])
			if err != nil {
				return nil, errors.Wrapf(err, "prop %s of <%s />", k, name)
			}
			vals = append(vals, v)
		}
		if children, ok := m["children"]; ok {
			v, err := e.children(s, children)
			if err != nil {
				return nil, errors.Wrapf(err, "children of <%s />", name)
			}
			keys = append(keys, "children")
			vals = append(vals, v)
		}
		props = h.NewObject(keys, vals)
	}

	parts := treefold.ElementParts{Type: typ, Props: props}
	if k, ok := m["key"]; ok {
		if parts.Key, err = e.eval(s, k); err != nil {
			return nil, err
		}
	}
	if r, ok := m["ref"]; ok {
		if parts.Ref, err = e.eval(s, r); err != nil {
			return nil, err
		}
	}
	return h.NewElement(parts), nil
}

// children stores a single child as is and several as an array.
func (e *evaluator) children(s *scope, t any) (treefold.Value, error) {
	list, ok := t.([]any)
	if !ok || len(list) != 1 {
		return e.eval(s, t)
	}
	return e.eval(s, list[0])
}

// when folds to the chosen arm for a concrete condition and to a
// conditional value for an abstract one.
func (e *evaluator) when(s *scope, m map[string]any) (treefold.Value, error) {
	h := e.host()
	cond, err := e.eval(s, m["when"])
	if err != nil {
		return nil, err
	}
	if h.Kind(cond) != treefold.KindAbstract {
		if truthy(h, cond) {
			return e.eval(s, m["then"])
		}
		return e.eval(s, m["else"])
	}
	consequent, err := e.eval(s, m["then"])
	if err != nil {
		return nil, err
	}
	alternate, err := e.eval(s, m["else"])
	if err != nil {
		return nil, err
	}
	return h.NewConditional(cond, consequent, alternate), nil
}

func truthy(h *memhost.Host, v treefold.Value) bool {
	switch h.Kind(v) {
	case treefold.KindNull, treefold.KindUndefined:
		return false
	case treefold.KindBoolean:
		return v.(bool)
	case treefold.KindNumber:
		return !h.Same(v, 0)
	case treefold.KindString:
		return v.(string) != ""
	}
	return true
}

// mutateGlobal writes value to "global.key" and evaluates then.
func (e *evaluator) mutateGlobal(s *scope, m map[string]any) (treefold.Value, error) {
	target, _ := m["mutateGlobal"].(string)
	i := strings.LastIndex(target, ".")
	if i < 0 {
		return nil, errors.Errorf("mutateGlobal target %q has no property", target)
	}
	g, ok := e.p.globals[target[:i]]
	if !ok {
		return nil, errors.Errorf("unknown global %q", target[:i])
	}
	v, err := e.eval(s, m["value"])
	if err != nil {
		return nil, err
	}
	if err := e.host().Set(g, target[i+1:], v); err != nil {
		return nil, err
	}
	return e.eval(s, m["then"])
}

func (e *evaluator) portal(s *scope, m map[string]any) (treefold.Value, error) {
	into, _ := m["into"].(string)
	container, ok := e.p.globals[into]
	if !ok {
		return nil, errors.Errorf("unknown portal container %q", into)
	}
	child, err := e.eval(s, m["portal"])
	if err != nil {
		return nil, err
	}
	return e.host().CreatePortal(child, container), nil
}

// closure builds a render callback. Its first argument is bound to $value;
// an empty parameter name stands for a destructuring pattern.
func (e *evaluator) closure(s *scope, m map[string]any) (treefold.Value, error) {
	params := []string{"value"}
	if raw, ok := m["params"].([]any); ok {
		params = params[:0]
		for _, p := range raw {
			name, _ := p.(string)
			params = append(params, name)
		}
	}
	name, _ := m["name"].(string)
	if name == "" {
		name = "render"
	}
	body := m["render"]
	h := e.host()
	outer := *s
	return h.Func(name, func(_ *memhost.Host, _ treefold.Value, args []treefold.Value) (treefold.Value, error) {
		inner := outer
		inner.value = arg(h, args, 0)
		return e.eval(&inner, body)
	}, params...), nil
}
