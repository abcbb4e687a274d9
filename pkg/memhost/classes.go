package memhost

import (
	"fmt"

	"github.com/speakeasy-api/treefold"
)

// ClassSpec describes a class component.
type ClassSpec struct {
	Name string
	// Fields are the own properties the constructor assigns besides props
	// and context. Any field makes the class complex.
	Fields []string
	// Constructor runs on full instances after props and context are set.
	Constructor func(h *Host, this *Object, props, context treefold.Value) error
	// Render is called with the instance as this.
	Render Func
	// Methods are installed on every instance, lifecycle hooks included.
	Methods map[string]Func
}

// Class returns a class component for spec.
func (h *Host) Class(spec ClassSpec) *Function {
	return &Function{
		id:      h.id(),
		origin:  h.currentTx(),
		Name:    spec.Name,
		class:   &spec,
		statics: h.newObject(spec.Name),
	}
}

func (h *Host) IsClassComponent(v treefold.Value) bool {
	f, ok := v.(*Function)
	return ok && f.class != nil
}

// IsFactoryClassComponent reports whether v is a plain object with a render
// method, as returned by a factory component.
func (h *Host) IsFactoryClassComponent(v treefold.Value) bool {
	o, ok := v.(*Object)
	if !ok {
		return false
	}
	render, ok := o.get("render")
	return ok && kindOf(render) == treefold.KindFunction
}

func classOf(v treefold.Value) (*ClassSpec, error) {
	f, ok := v.(*Function)
	if !ok || f.class == nil {
		return nil, treefold.Invariantf("%T is not a class component", v)
	}
	return f.class, nil
}

func (h *Host) ClassMetadata(class, props, context treefold.Value) (treefold.ClassMetadata, error) {
	spec, err := classOf(class)
	if err != nil {
		return treefold.ClassMetadata{}, err
	}
	return treefold.ClassMetadata{InstanceProperties: append([]string(nil), spec.Fields...)}, nil
}

func (h *Host) instance(spec *ClassSpec, props, context treefold.Value) *Object {
	this := h.newObject(spec.Name)
	this.props.Set("props", props)
	this.props.Set("context", context)
	for _, name := range sortedKeys(spec.Methods) {
		this.props.Set(name, h.method(spec.Name+"."+name, this, spec.Methods[name]))
	}
	this.props.Set("render", h.method(spec.Name+".render", this, spec.Render))
	return this
}

// method binds fn to this.
func (h *Host) method(name string, this *Object, fn Func) *Function {
	return h.Func(name, func(h *Host, _ treefold.Value, args []treefold.Value) (treefold.Value, error) {
		if fn == nil {
			return undefinedValue{}, nil
		}
		return fn(h, this, args)
	})
}

// NewSimpleInstance builds an instance with only props and context. Reading
// anything else, or writing anything, fails with ErrNotSimple.
func (h *Host) NewSimpleInstance(class, props, context treefold.Value) (treefold.Value, error) {
	spec, err := classOf(class)
	if err != nil {
		return nil, err
	}
	h.stats.SimpleInstances++
	this := h.instance(spec, props, context)
	this.simple = true
	return this, nil
}

func (h *Host) NewInstance(class, props, context treefold.Value, meta treefold.ClassMetadata) (treefold.Value, error) {
	spec, err := classOf(class)
	if err != nil {
		return nil, err
	}
	this := h.instance(spec, props, context)
	this.props.Set("state", nil)
	for _, field := range meta.InstanceProperties {
		if _, ok := this.get(field); !ok {
			this.props.Set(field, undefinedValue{})
		}
	}
	this.props.Set("setState", h.Func(spec.Name+".setState", func(h *Host, _ treefold.Value, args []treefold.Value) (treefold.Value, error) {
		return undefinedValue{}, h.setState(this, args)
	}))
	if spec.Constructor != nil {
		if err := spec.Constructor(h, this, props, context); err != nil {
			return nil, fmt.Errorf("failed to construct %s: %w", spec.Name, err)
		}
	}
	return this, nil
}

func (h *Host) NewFirstRenderInstance(class, props, context treefold.Value) (treefold.Value, error) {
	meta, err := h.ClassMetadata(class, props, context)
	if err != nil {
		return nil, err
	}
	return h.NewInstance(class, props, context, meta)
}

func (h *Host) setState(this *Object, args []treefold.Value) error {
	if len(args) == 0 {
		return nil
	}
	prev, _ := this.get("state")
	next, err := h.AssignObject(prev, args[0])
	if err != nil {
		return err
	}
	h.write(this, "state", next)
	return nil
}

func (h *Host) AssignObject(sources ...treefold.Value) (treefold.Value, error) {
	out := h.newObject("")
	for _, src := range sources {
		switch s := src.(type) {
		case nil, undefinedValue:
		case *Object:
			for k, v := range s.props.All() {
				out.props.Set(k, v)
			}
		default:
			return nil, h.typeError("cannot assign from %s", kindOf(src))
		}
	}
	return out, nil
}
