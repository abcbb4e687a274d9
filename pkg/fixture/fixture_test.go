package fixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakeasy-api/treefold"
)

func TestLoad_Options(t *testing.T) {
	p, err := Load([]byte(`
options:
  firstRenderOnly: true
  logLevel: debug
root: App
components:
  App:
    render: {type: div}
`))
	require.NoError(t, err)

	assert.True(t, p.Options.FirstRenderOnly)
	assert.Equal(t, "debug", p.Options.LogLevel)
	assert.True(t, p.Options.OptimizeNestedFunctions, "defaults are kept")
	assert.Nil(t, p.Props, "props are left to the host")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"no root", "components: {}\n", "fixture has no root component"},
		{"undefined root", "root: Nope\n", `root component "Nope" is not defined`},
		{"malformed", "root: [\n", "failed to decode fixture"},
		{"relay around a forwardRef", "root: A\ncomponents:\n  A: {forwardRef: true, relay: createFragmentContainer}\n", "relay containers need a function component"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile("testdata/does-not-exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read fixture")
}

func TestLoad_Names(t *testing.T) {
	p, err := LoadFile("testdata/context.yaml")
	require.NoError(t, err)
	h := p.Host

	provider, ok := p.Lookup("Theme.Provider")
	require.True(t, ok)
	consumer, ok := p.Lookup("Theme.Consumer")
	require.True(t, ok)
	ctx, err := h.Get(provider, "context")
	require.NoError(t, err)
	assert.True(t, h.Same(ctx, consumer))

	fragment, ok := p.Lookup("Fragment")
	require.True(t, ok)
	assert.True(t, h.Same(fragment, h.Symbols().Fragment))
}

func TestLoad_RootProps(t *testing.T) {
	p, err := Load([]byte(`
root: App
props:
  title: Hello
  user:
    abstract: props.user
components:
  App:
    render: {type: h1, children: $props.title}
`))
	require.NoError(t, err)
	h := p.Host

	title, err := h.Get(p.Props, "title")
	require.NoError(t, err)
	assert.Equal(t, "Hello", title)
	user, err := h.Get(p.Props, "user")
	require.NoError(t, err)
	assert.Equal(t, treefold.KindAbstract, h.Kind(user))
}

func TestTemplates(t *testing.T) {
	p, err := Load([]byte(`
root: Pick
globals:
  document:
    title: none
components:
  Pick:
    render:
      when: $props.open
      then: first
      else: second
  Count:
    render: [1, -2, 2.5, true, null]
  Keyed:
    render:
      type: li
      key: k1
      ref: {object: {}}
      props: {id: 7}
  Forward:
    render:
      type: Pick
      props: $props
  Callback:
    render:
      render: {type: span, children: $value}
      params: [data, ""]
`))
	require.NoError(t, err)
	h := p.Host
	call := func(name string, props treefold.Value) treefold.Value {
		t.Helper()
		fn, ok := p.Lookup(name)
		require.True(t, ok, name)
		v, err := h.Call(fn, h.Undefined(), props, h.Obj())
		require.NoError(t, err)
		return v
	}

	t.Run("concrete condition picks an arm", func(t *testing.T) {
		assert.Equal(t, "first", call("Pick", h.Obj("open", true)))
		assert.Equal(t, "second", call("Pick", h.Obj("open", 0)))
	})

	t.Run("abstract condition is kept", func(t *testing.T) {
		cond, x, y, ok := h.Conditional(call("Pick", h.Abstract("props")))
		require.True(t, ok)
		assert.Equal(t, "props.open", h.Name(cond))
		assert.Equal(t, "first", x)
		assert.Equal(t, "second", y)
	})

	t.Run("scalars", func(t *testing.T) {
		got := h.ArrayElements(call("Count", h.Obj()))
		require.Len(t, got, 5)
		assert.True(t, h.Same(got[0], 1))
		assert.True(t, h.Same(got[1], -2))
		assert.True(t, h.Same(got[2], 2.5))
		assert.Equal(t, true, got[3])
		assert.Nil(t, got[4])
	})

	t.Run("element parts", func(t *testing.T) {
		parts := h.Element(call("Keyed", h.Obj()))
		assert.Equal(t, "li", parts.Type)
		assert.Equal(t, "k1", parts.Key)
		assert.Equal(t, treefold.KindObject, h.Kind(parts.Ref))
		id, err := h.Get(parts.Props, "id")
		require.NoError(t, err)
		assert.True(t, h.Same(id, 7))
	})

	t.Run("props pass through", func(t *testing.T) {
		props := h.Obj("open", true)
		parts := h.Element(call("Forward", props))
		assert.True(t, h.Same(parts.Props, props))
	})

	t.Run("callbacks", func(t *testing.T) {
		fn := call("Callback", h.Obj())
		_, err := h.AbstractArguments(fn)
		var fe *treefold.FatalError
		assert.ErrorAs(t, err, &fe, "an empty parameter is a destructuring pattern")

		out, err := h.Call(fn, h.Undefined(), "payload")
		require.NoError(t, err)
		children, err := h.Get(h.Element(out).Props, "children")
		require.NoError(t, err)
		assert.Equal(t, "payload", children)
	})
}

func TestTemplates_Errors(t *testing.T) {
	p, err := Load([]byte(`
root: Missing
components:
  Missing:
    render: {type: Nowhere}
  BadRef:
    render: $nothing
  Thrower:
    render: {throw: boom}
`))
	require.NoError(t, err)
	h := p.Host

	tests := map[string]string{
		"Missing": `unknown component "Nowhere"`,
		"BadRef":  `unknown reference "$nothing"`,
		"Thrower": "boom",
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			fn, ok := p.Lookup(name)
			require.True(t, ok)
			_, err := h.Call(fn, h.Undefined(), h.Obj(), h.Obj())
			require.Error(t, err)
			assert.Contains(t, err.Error(), want)
		})
	}
}

func TestLoad_DerivedState(t *testing.T) {
	p, err := Load([]byte(`
root: Counter
components:
  Counter:
    class: true
    state: {count: 0}
    derivedState: {count: $props.start}
    render: {type: span, children: $state.count}
`))
	require.NoError(t, err)
	h := p.Host

	class, ok := p.Lookup("Counter")
	require.True(t, ok)
	derive, err := h.Get(class, "getDerivedStateFromProps")
	require.NoError(t, err)
	require.Equal(t, treefold.KindFunction, h.Kind(derive))

	state, err := h.Call(derive, h.Undefined(), h.Obj("start", 3), h.Obj("count", 0))
	require.NoError(t, err)
	count, err := h.Get(state, "count")
	require.NoError(t, err)
	assert.True(t, h.Same(count, 3))
}
