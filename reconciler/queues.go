package reconciler

import (
	"github.com/speakeasy-api/treefold"
)

// BranchTree is an alternate root queued for an independent fold.
type BranchTree struct {
	Context   treefold.Value
	Node      *EvaluatedNode
	Props     treefold.Value
	RootValue treefold.Value
	// ComponentType is the function to fold for RootValue.
	ComponentType treefold.Value
}

// OptimizedClosure is a render callback queued for a deferred fold once the
// effects of the fold that found it are known.
type OptimizedClosure struct {
	Node *EvaluatedNode
	Func treefold.Value
	// NestedEffects is the captured-effects chain the closure is folded
	// under. It is empty until the enclosing fold completes.
	NestedEffects []treefold.Effects
	ComponentType treefold.Value
	Context       treefold.Value
}

// functionPolicy says how functions found while searching props are queued.
type functionPolicy uint8

const (
	treatAsClosures functionPolicy = iota
	treatAsComponents
)

func (r *Reconciler) queueOptimizedClosure(fn treefold.Value, node *EvaluatedNode, componentType, context treefold.Value) {
	if !r.opts.OptimizeNestedFunctions {
		return
	}
	id := r.host.Identity(fn)
	if _, ok := r.closureMemo[id]; ok {
		return
	}
	r.closureMemo[id] = struct{}{}
	if r.state.ComponentType != nil {
		componentType = r.state.ComponentType
	}
	r.closures = append(r.closures, &OptimizedClosure{
		Node:          node,
		Func:          fn,
		ComponentType: componentType,
		Context:       context,
	})
	r.logger.Debugf("queued closure %s", r.host.Name(fn))
}

// queueNewComponentTree records rootValue as an unresolved dead end and
// queues it as an independent root unless it was already folded as one.
func (r *Reconciler) queueNewComponentTree(rootValue treefold.Value, node *EvaluatedNode, props, context treefold.Value) {
	if r.host.Kind(rootValue) == treefold.KindSymbol {
		return
	}
	r.state.addDeadEnd()
	componentType := r.componentTypeFromRoot(rootValue)
	if componentType == nil || r.HasEvaluatedRootNode(componentType, node) {
		return
	}
	r.branches = append(r.branches, &BranchTree{
		Context:       context,
		Node:          node,
		Props:         props,
		RootValue:     rootValue,
		ComponentType: componentType,
	})
	r.logger.Debugf("queued component tree %s", node.Name)
}

// componentTypeFromRoot returns the function to fold for rootValue, or nil
// when there is none.
func (r *Reconciler) componentTypeFromRoot(rootValue treefold.Value) treefold.Value {
	switch r.host.Kind(rootValue) {
	case treefold.KindFunction:
		return rootValue
	case treefold.KindObject:
		if r.tagIs(rootValue, r.host.Symbols().ForwardRefTag) {
			if fn, err := r.host.Get(rootValue, "render"); err == nil && r.host.Kind(fn) == treefold.KindFunction {
				return fn
			}
		}
	}
	hint, ok := r.hints.Lookup(rootValue)
	if !ok || len(hint.Args) == 0 {
		return nil
	}
	switch {
	case hint.Is(treefold.LibraryReact, treefold.CallForwardRef),
		hint.Is(treefold.LibraryReactRelay, treefold.CallFragmentContainer),
		hint.Is(treefold.LibraryReactRelay, treefold.CallRefetchContainer),
		hint.Is(treefold.LibraryReactRelay, treefold.CallPaginationContainer):
		if r.host.Kind(hint.Args[0]) == treefold.KindFunction {
			return hint.Args[0]
		}
	}
	return nil
}

// isKnownAbstraction reports whether v is a hinted wrapper around a
// foldable component.
func (r *Reconciler) isKnownAbstraction(v treefold.Value) bool {
	if r.host.Kind(v) == treefold.KindFunction {
		return false
	}
	return r.componentTypeFromRoot(v) != nil
}

// findComponentTrees searches v for nested elements and callbacks that can
// be folded on their own, queueing each one found.
func (r *Reconciler) findComponentTrees(v treefold.Value, node *EvaluatedNode, policy functionPolicy, componentType, context treefold.Value) {
	seen := make(map[treefold.ID]struct{})
	r.findTrees(v, node, policy, componentType, context, seen)
}

func (r *Reconciler) findTrees(v treefold.Value, node *EvaluatedNode, policy functionPolicy, componentType, context treefold.Value, seen map[treefold.ID]struct{}) {
	if v == nil {
		return
	}
	kind := r.host.Kind(v)
	if kind.IsPrimitive() || kind == treefold.KindSymbol {
		return
	}
	if id := r.host.Identity(v); id != treefold.NoID {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
	}

	switch kind {
	case treefold.KindAbstract:
		if _, cons, alt, ok := r.host.Conditional(v); ok {
			r.findTrees(cons, node, policy, componentType, context, seen)
			r.findTrees(alt, node, policy, componentType, context, seen)
			return
		}
		if hint, ok := r.hints.Lookup(v); ok {
			for _, arg := range hint.Args {
				r.findTrees(arg, node, policy, componentType, context, seen)
			}
		}
	case treefold.KindFunction:
		r.queueFoundFunction(v, node, policy, componentType, context)
	case treefold.KindElement:
		parts := r.host.Element(v)
		if r.host.Kind(parts.Type) == treefold.KindFunction || r.isKnownAbstraction(parts.Type) {
			child := NewEvaluatedNode(NodeNewTree, r.host.Name(parts.Type))
			node.addChild(child)
			r.queueNewComponentTree(parts.Type, child, nil, context)
		}
		r.findTrees(parts.Props, node, policy, componentType, context, seen)
	case treefold.KindArray:
		for _, el := range r.host.ArrayElements(v) {
			r.findTrees(el, node, policy, componentType, context, seen)
		}
	case treefold.KindObject:
		for _, key := range r.host.Keys(v) {
			prop, err := r.host.Get(v, key)
			if err != nil {
				continue
			}
			r.findTrees(prop, node, policy, componentType, context, seen)
		}
	}
}

func (r *Reconciler) queueFoundFunction(fn treefold.Value, node *EvaluatedNode, policy functionPolicy, componentType, context treefold.Value) {
	switch policy {
	case treatAsComponents:
		child := NewEvaluatedNode(NodeNewTree, r.host.Name(fn))
		node.addChild(child)
		r.queueNewComponentTree(fn, child, nil, context)
	default:
		child := NewEvaluatedNode(NodeRenderProps, r.host.Name(fn))
		node.addChild(child)
		r.queueOptimizedClosure(fn, child, componentType, context)
	}
}

// handoffEffects gives every queued closure that has no effects chain yet
// the chain of the fold that just completed.
func (r *Reconciler) handoffEffects(chain []treefold.Effects) {
	for _, c := range r.closures {
		if len(c.NestedEffects) == 0 {
			c.NestedEffects = append([]treefold.Effects(nil), chain...)
		}
	}
}
