package reconciler

import (
	"testing"

	"github.com/speakeasy-api/treefold"
	"github.com/speakeasy-api/treefold/pkg/memhost"
)

func newTestReconciler(h *memhost.Host, configure ...func(*Options)) *Reconciler {
	opts := DefaultOptions()
	opts.LogLevel = ""
	for _, fn := range configure {
		fn(&opts)
	}
	return New(h, h, opts)
}

func firstRenderOnly(o *Options) { o.FirstRenderOnly = true }

// component returns a functional component that always renders out.
func component(h *memhost.Host, name string, out func() treefold.Value) *memhost.Function {
	return h.Component(name, func(*memhost.Host, treefold.Value, treefold.Value) (treefold.Value, error) {
		return out(), nil
	})
}

func foldRoot(t *testing.T, r *Reconciler, h *memhost.Host, root treefold.Value) (treefold.Value, *EvaluatedNode) {
	t.Helper()
	node := NewEvaluatedNode(NodeNormal, h.Name(root))
	effects, err := r.ResolveRootTree(root, h.Obj(), h.Obj(), node)
	if err != nil {
		t.Fatalf("ResolveRootTree(%s) failed: %v", h.Name(root), err)
	}
	return effects.Result(), node
}

func mustGet(t *testing.T, h *memhost.Host, obj treefold.Value, key string) treefold.Value {
	t.Helper()
	v, err := h.Get(obj, key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return v
}

// childStatuses returns "Name:STATUS" for each direct child of node.
func childStatuses(node *EvaluatedNode) []string {
	var out []string
	for _, c := range node.Children {
		out = append(out, c.Name+":"+string(c.Status))
	}
	return out
}
