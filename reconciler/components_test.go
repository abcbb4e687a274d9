package reconciler

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/speakeasy-api/treefold"
	"github.com/speakeasy-api/treefold/pkg/memhost"
)

// complexClass returns a class whose constructor assigns an instance field
// and whose render returns out().
func complexClass(h *memhost.Host, name string, out func() treefold.Value) *memhost.Function {
	return h.Class(memhost.ClassSpec{
		Name:   name,
		Fields: []string{"handler"},
		Constructor: func(h *memhost.Host, this *memhost.Object, _, _ treefold.Value) error {
			return h.Set(this, "handler", h.Func(name+".handler", nil))
		},
		Render: func(*memhost.Host, treefold.Value, []treefold.Value) (treefold.Value, error) {
			return out(), nil
		},
	})
}

func TestClassComponent_ComplexClassifiedFirst(t *testing.T) {
	h := memhost.New()
	counter := h.Class(memhost.ClassSpec{
		Name:   "Counter",
		Fields: []string{"count"},
		Constructor: func(h *memhost.Host, this *memhost.Object, _, _ treefold.Value) error {
			return h.Set(this, "count", 1)
		},
		Render: func(h *memhost.Host, this treefold.Value, _ []treefold.Value) (treefold.Value, error) {
			count, err := h.Get(this, "count")
			if err != nil {
				return nil, err
			}
			return h.El("span", nil, count), nil
		},
	})
	r := newTestReconciler(h)

	result, node := foldRoot(t, r, h, counter)

	if got := h.Stats().SimpleInstances; got != 0 {
		t.Errorf("simple instances = %d, want 0", got)
	}
	if got := r.State().Status(); got != StatusComplex {
		t.Errorf("tree status = %s, want %s", got, StatusComplex)
	}
	if got := mustGet(t, h, h.Element(result).Props, "children"); !h.Same(got, 1) {
		t.Errorf("span child = %v, want 1", got)
	}
	if node.Status != NodeInlined {
		t.Errorf("root status = %s, want %s", node.Status, NodeInlined)
	}
}

func TestClassComponent_Simple(t *testing.T) {
	h := memhost.New()
	greeting := h.Class(memhost.ClassSpec{
		Name: "Greeting",
		Render: func(h *memhost.Host, this treefold.Value, _ []treefold.Value) (treefold.Value, error) {
			props, err := h.Get(this, "props")
			if err != nil {
				return nil, err
			}
			name, err := h.Get(props, "name")
			if err != nil {
				return nil, err
			}
			return h.El("p", nil, name), nil
		},
	})
	app := component(h, "App", func() treefold.Value { return h.El(greeting, h.Obj("name", "Ada")) })
	r := newTestReconciler(h)

	result, node := foldRoot(t, r, h, app)

	if got := h.Stats().SimpleInstances; got != 1 {
		t.Errorf("simple instances = %d, want 1", got)
	}
	if got := r.State().Status(); got != StatusSimple {
		t.Errorf("tree status = %s, want %s", got, StatusSimple)
	}
	if got := mustGet(t, h, h.Element(result).Props, "children"); !h.Same(got, "Ada") {
		t.Errorf("p child = %v, want Ada", got)
	}
	if diff := cmp.Diff([]string{"Greeting:INLINED"}, childStatuses(node)); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestClassComponent_SimpleRetriedAsComplex(t *testing.T) {
	h := memhost.New()
	stateful := h.Class(memhost.ClassSpec{
		Name: "Stateful",
		Render: func(h *memhost.Host, this treefold.Value, _ []treefold.Value) (treefold.Value, error) {
			state, err := h.Get(this, "state")
			if err != nil {
				return nil, err
			}
			return h.El("p", nil, state), nil
		},
	})
	r := newTestReconciler(h)

	result, _ := foldRoot(t, r, h, stateful)

	if got := h.Stats().SimpleInstances; got != 1 {
		t.Errorf("simple instances = %d, want 1", got)
	}
	if got := r.State().Status(); got != StatusComplex {
		t.Errorf("tree status = %s, want %s", got, StatusComplex)
	}
	if h.Kind(result) != treefold.KindElement {
		t.Errorf("expected an element, got %s", h.Kind(result))
	}

	// Metadata is computed once per class.
	if _, ok := r.classMeta[h.Identity(stateful)]; !ok {
		t.Errorf("expected class metadata to be memoized")
	}
}

func TestClassComponent_NestedComplexQueued(t *testing.T) {
	h := memhost.New()
	solo := complexClass(h, "Solo", func() treefold.Value { return h.El("section", nil) })
	el := h.El(solo, nil)
	app := component(h, "App", func() treefold.Value { return el })
	r := newTestReconciler(h)

	result, node := foldRoot(t, r, h, app)

	if !h.Same(result, el) {
		t.Errorf("expected the class element unresolved")
	}
	branches := r.BranchTrees()
	if len(branches) != 1 || !h.Same(branches[0].RootValue, solo) {
		t.Fatalf("expected Solo queued as a branch, got %d branches", len(branches))
	}
	if diff := cmp.Diff([]string{"Solo:NEW_TREE"}, childStatuses(node)); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if got := r.State().Status(); got != StatusSimple {
		t.Errorf("tree status = %s, want %s", got, StatusSimple)
	}
	if _, ok := r.BailOutReason(el); ok {
		t.Errorf("a new branch is not a bail-out")
	}
}

func TestClassComponent_Absorption(t *testing.T) {
	h := memhost.New()
	second := complexClass(h, "Second", func() treefold.Value { return h.El("aside", nil) })
	first := complexClass(h, "First", func() treefold.Value { return h.El(second, nil) })
	app := component(h, "App", func() treefold.Value { return h.El(first, nil) })
	r := newTestReconciler(h)

	foldRoot(t, r, h, second)
	r.ClearState()
	foldRoot(t, r, h, first)
	if got := len(r.BranchTrees()); got != 0 {
		t.Fatalf("Second was already a root and must not be queued, got %d branches", got)
	}
	r.ClearState()

	result, node := foldRoot(t, r, h, app)

	// First was a root before, so it becomes the effective root. Second is
	// eligible too but the tree is complex by then.
	if !h.Same(r.State().ComponentType, first) {
		t.Errorf("effective root = %s, want First", h.Name(r.State().ComponentType))
	}
	if got := r.State().Status(); got != StatusComplex {
		t.Errorf("tree status = %s, want %s", got, StatusComplex)
	}
	if !h.Same(h.Element(result).Type, second) {
		t.Errorf("expected the Second element left for its own fold, got %s", h.Name(result))
	}
	if diff := cmp.Diff([]string{"First:INLINED"}, childStatuses(node)); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Second:NEW_TREE"}, childStatuses(node.Children[0])); diff != "" {
		t.Errorf("First report mismatch (-want +got):\n%s", diff)
	}
	if got := len(r.BranchTrees()); got != 0 {
		t.Errorf("queued branches = %d, want 0", got)
	}
}

func TestClassComponent_AbsorptionBlocked(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *Reconciler, h *memhost.Host, class treefold.Value)
		tree  func(h *memhost.Host, class treefold.Value) treefold.Value
	}{
		{
			name:  "never a root",
			setup: func(*Reconciler, *memhost.Host, treefold.Value) {},
			tree:  func(h *memhost.Host, class treefold.Value) treefold.Value { return h.El(class, nil) },
		},
		{
			name: "inside a branch",
			setup: func(r *Reconciler, h *memhost.Host, class treefold.Value) {
				r.rootMemo[h.Identity(class)] = NewEvaluatedNode(NodeInlined, "Panel")
			},
			tree: func(h *memhost.Host, class treefold.Value) treefold.Value {
				return h.El("div", nil, h.El(class, nil), "sibling")
			},
		},
		{
			name: "root folded as render props",
			setup: func(r *Reconciler, h *memhost.Host, class treefold.Value) {
				r.rootMemo[h.Identity(class)] = NewEvaluatedNode(NodeRenderProps, "Panel")
			},
			tree: func(h *memhost.Host, class treefold.Value) treefold.Value { return h.El(class, nil) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := memhost.New()
			panel := complexClass(h, "Panel", func() treefold.Value { return h.El("div", nil) })
			app := component(h, "App", func() treefold.Value { return tt.tree(h, panel) })
			r := newTestReconciler(h)
			tt.setup(r, h, panel)

			_, node := foldRoot(t, r, h, app)

			if !h.Same(r.State().ComponentType, app) {
				t.Errorf("effective root = %s, want App", h.Name(r.State().ComponentType))
			}
			if got := r.State().Status(); got != StatusSimple {
				t.Errorf("tree status = %s, want %s", got, StatusSimple)
			}
			if got := node.Count(NodeNewTree); got != 1 {
				t.Errorf("NEW_TREE nodes = %d, want 1", got)
			}
		})
	}
}

func TestClassComponent_FirstRender(t *testing.T) {
	newClass := func(h *memhost.Host, calls *[]string, methods ...string) *memhost.Function {
		spec := memhost.ClassSpec{
			Name:   "Mounted",
			Fields: []string{"state"},
			Constructor: func(h *memhost.Host, this *memhost.Object, _, _ treefold.Value) error {
				return h.Set(this, "state", h.Obj("count", 1))
			},
			Render: func(h *memhost.Host, this treefold.Value, _ []treefold.Value) (treefold.Value, error) {
				state, err := h.Get(this, "state")
				if err != nil {
					return nil, err
				}
				count, err := h.Get(state, "count")
				if err != nil {
					return nil, err
				}
				return h.El("b", nil, count), nil
			},
			Methods: map[string]memhost.Func{},
		}
		for _, m := range methods {
			name := m
			spec.Methods[name] = func(*memhost.Host, treefold.Value, []treefold.Value) (treefold.Value, error) {
				*calls = append(*calls, name)
				return nil, nil
			}
		}
		return h.Class(spec)
	}
	derive := func(h *memhost.Host, class treefold.Value) {
		fn := h.Func("getDerivedStateFromProps", func(h *memhost.Host, _ treefold.Value, args []treefold.Value) (treefold.Value, error) {
			return h.Obj("count", 2), nil
		}, "props", "state")
		if err := h.Set(class, "getDerivedStateFromProps", fn); err != nil {
			panic(err)
		}
	}

	tests := []struct {
		name      string
		methods   []string
		derived   bool
		wantCalls []string
		wantCount int
	}{
		{
			name:      "legacy hooks in order",
			methods:   []string{"UNSAFE_componentWillMount", "componentWillMount"},
			wantCalls: []string{"componentWillMount", "UNSAFE_componentWillMount"},
			wantCount: 1,
		},
		{
			name:      "derived state skips legacy hooks",
			methods:   []string{"componentWillMount"},
			derived:   true,
			wantCount: 2,
		},
		{
			name:      "snapshot hook skips legacy hooks",
			methods:   []string{"componentWillMount", "getSnapshotBeforeUpdate"},
			wantCount: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := memhost.New()
			var calls []string
			class := newClass(h, &calls, tt.methods...)
			if tt.derived {
				derive(h, class)
			}
			r := newTestReconciler(h, firstRenderOnly)

			result, _ := foldRoot(t, r, h, class)

			if diff := cmp.Diff(tt.wantCalls, calls); diff != "" {
				t.Errorf("hook calls mismatch (-want +got):\n%s", diff)
			}
			if got := mustGet(t, h, h.Element(result).Props, "children"); !h.Same(got, tt.wantCount) {
				t.Errorf("rendered count = %v, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestFunctionalComponent_ContextTypes(t *testing.T) {
	h := memhost.New()
	app := component(h, "App", func() treefold.Value { return h.El("div", nil) })
	if err := h.Set(app, "contextTypes", h.Obj("theme", nil, "locale", nil)); err != nil {
		t.Fatal(err)
	}
	r := newTestReconciler(h)

	foldRoot(t, r, h, app)

	if diff := cmp.Diff([]string{"locale", "theme"}, r.State().ContextTypes()); diff != "" {
		t.Errorf("context types mismatch (-want +got):\n%s", diff)
	}
}

func TestFunctionalComponent_RelayContainer(t *testing.T) {
	h := memhost.New()
	story := component(h, "Story", func() treefold.Value { return h.El("article", nil) })
	container := h.RelayContainer(treefold.CallFragmentContainer, story)
	app := component(h, "App", func() treefold.Value { return h.El(container, nil) })
	r := newTestReconciler(h)

	result, node := foldRoot(t, r, h, app)

	if !h.Same(h.Element(result).Type, "article") {
		t.Errorf("expected the container to be inlined to its component, got %s", h.Name(result))
	}
	if diff := cmp.Diff([]string{"Story:INLINED"}, childStatuses(node)); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}
