// Package fixture loads declarative component programs onto an in-memory
// host and folds them the way a bundler would: the root first, then every
// branch tree and render callback the reconciler queued.
package fixture

import (
	"os"
	"sort"
	"strings"

	"github.com/itchyny/go-yaml"
	"github.com/pkg/errors"

	"github.com/speakeasy-api/treefold"
	"github.com/speakeasy-api/treefold/pkg/memhost"
	"github.com/speakeasy-api/treefold/reconciler"
)

// document is the YAML shape of a fixture.
type document struct {
	Options    map[string]any            `yaml:"options"`
	Root       string                    `yaml:"root"`
	Props      map[string]any            `yaml:"props"`
	Context    map[string]any            `yaml:"context"`
	Contexts   map[string]any            `yaml:"contexts"`
	Globals    map[string]map[string]any `yaml:"globals"`
	Components map[string]componentDoc   `yaml:"components"`
}

type componentDoc struct {
	Class      bool   `yaml:"class"`
	ForwardRef bool   `yaml:"forwardRef"`
	Relay      string `yaml:"relay"`
	// Fields are the instance fields a class constructor assigns.
	Fields []string `yaml:"fields"`
	// State is the initial state template of a class.
	State any `yaml:"state"`
	// DerivedState is the template returned by getDerivedStateFromProps.
	DerivedState any `yaml:"derivedState"`
	// WillMount is the partial state componentWillMount passes to setState.
	WillMount    any      `yaml:"willMount"`
	ContextTypes []string `yaml:"contextTypes"`
	Render       any      `yaml:"render"`
}

// Program is a fixture loaded onto a memhost.Host.
type Program struct {
	Host    *memhost.Host
	Options reconciler.Options
	Root    treefold.Value
	// Props and Context are nil when the fixture leaves them to the host.
	Props   treefold.Value
	Context treefold.Value

	names   map[string]treefold.Value
	globals map[string]*memhost.Object
}

// LoadFile reads and loads the fixture at path.
func LoadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read fixture %s", path)
	}
	p, err := Load(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load fixture %s", path)
	}
	return p, nil
}

// Load decodes a fixture and builds its values on a fresh host.
func Load(data []byte) (*Program, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode fixture")
	}
	if doc.Root == "" {
		return nil, errors.New("fixture has no root component")
	}

	opts, err := decodeOptions(doc.Options)
	if err != nil {
		return nil, err
	}

	h := memhost.New()
	p := &Program{
		Host:    h,
		Options: opts,
		names: map[string]treefold.Value{
			"Fragment":      h.Symbols().Fragment,
			"QueryRenderer": h.QueryRenderer(),
		},
		globals: make(map[string]*memhost.Object),
	}
	ev := &evaluator{p: p}

	for _, name := range sortedKeys(doc.Globals) {
		g := h.Global(name)
		for _, key := range sortedKeys(doc.Globals[name]) {
			v, err := ev.eval(&scope{}, doc.Globals[name][key])
			if err != nil {
				return nil, errors.Wrapf(err, "global %s.%s", name, key)
			}
			if err := h.Set(g, key, v); err != nil {
				return nil, errors.Wrapf(err, "global %s.%s", name, key)
			}
		}
		p.globals[name] = g
	}

	for _, name := range sortedKeys(doc.Contexts) {
		def, err := ev.eval(&scope{}, doc.Contexts[name])
		if err != nil {
			return nil, errors.Wrapf(err, "context %s", name)
		}
		ctx, provider := h.CreateContext(name, def)
		p.names[name+".Consumer"] = ctx
		p.names[name+".Provider"] = provider
	}

	for _, name := range sortedKeys(doc.Components) {
		v, err := ev.component(name, doc.Components[name])
		if err != nil {
			return nil, errors.Wrapf(err, "component %s", name)
		}
		p.names[name] = v
	}

	root, ok := p.names[doc.Root]
	if !ok {
		return nil, errors.Errorf("root component %q is not defined", doc.Root)
	}
	p.Root = root

	if doc.Props != nil {
		if p.Props, err = ev.eval(&scope{}, doc.Props); err != nil {
			return nil, errors.Wrap(err, "root props")
		}
	}
	if doc.Context != nil {
		if p.Context, err = ev.eval(&scope{}, doc.Context); err != nil {
			return nil, errors.Wrap(err, "root context")
		}
	}
	return p, nil
}

// decodeOptions re-encodes the options block and layers it over the
// reconciler defaults.
func decodeOptions(raw map[string]any) (reconciler.Options, error) {
	if len(raw) == 0 {
		return reconciler.DefaultOptions(), nil
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return reconciler.Options{}, errors.Wrap(err, "failed to encode options")
	}
	opts, err := reconciler.LoadOptions(data)
	if err != nil {
		return reconciler.Options{}, errors.WithStack(err)
	}
	return opts, nil
}

// Lookup returns the value defined under name: a component, a context
// Provider or Consumer, Fragment or QueryRenderer.
func (p *Program) Lookup(name string) (treefold.Value, bool) {
	v, ok := p.names[name]
	return v, ok
}

// Global returns the global object defined under name.
func (p *Program) Global(name string) (*memhost.Object, bool) {
	g, ok := p.globals[name]
	return g, ok
}

// resolveType maps an element type name onto a defined value. Lower-case
// names are host tags.
func (p *Program) resolveType(name string) (treefold.Value, error) {
	if v, ok := p.names[name]; ok {
		return v, nil
	}
	if name == "" || strings.ToLower(name[:1]) != name[:1] {
		return nil, errors.Errorf("unknown component %q", name)
	}
	return name, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
