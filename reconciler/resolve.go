package reconciler

import (
	"github.com/speakeasy-api/treefold"
)

// bindingChecker is implemented by hosts that can tell whether an object
// still has pending bindings to apply.
type bindingChecker interface {
	BindingsApplied(v treefold.Value) bool
}

// resolveDeeply folds any value a component produced. componentType is the
// component whose output is being resolved.
func (r *Reconciler) resolveDeeply(componentType, value, context treefold.Value, branch BranchStatus, node *EvaluatedNode) (treefold.Value, error) {
	kind := r.host.Kind(value)
	if kind.IsObjectLike() {
		if bc, ok := r.host.(bindingChecker); ok && !bc.BindingsApplied(value) {
			return nil, treefold.Invariantf("resolved a %s whose bindings were not applied", kind)
		}
	}

	switch kind {
	case treefold.KindUndefined, treefold.KindNull, treefold.KindBoolean, treefold.KindNumber, treefold.KindString:
		return value, nil
	case treefold.KindAbstract:
		return r.resolveAbstract(componentType, value, context, branch, node)
	case treefold.KindArray:
		return r.resolveArray(componentType, value, context, node)
	case treefold.KindElement:
		return r.resolveElement(componentType, value, context, branch, node)
	case treefold.KindSymbol, treefold.KindFunction, treefold.KindObject:
		return nil, treefold.NewExpectedBailOut("invalid return value from render")
	}
	return nil, treefold.Invariantf("unknown value kind %d", kind)
}

// resolveArray resolves each element as a new branch. The original array
// is returned when no element changed identity.
func (r *Reconciler) resolveArray(componentType, arr, context treefold.Value, node *EvaluatedNode) (treefold.Value, error) {
	elems := r.host.ArrayElements(arr)
	var out []treefold.Value
	for i, el := range elems {
		resolved, err := r.resolveDeeply(componentType, el, context, NewBranch, node)
		if err != nil {
			return nil, err
		}
		if out == nil && !r.host.Same(resolved, el) {
			out = make([]treefold.Value, i, len(elems))
			copy(out, elems[:i])
		}
		if out != nil {
			out = append(out, resolved)
		}
	}
	if out == nil {
		return arr, nil
	}
	return r.host.NewArray(out), nil
}

func (r *Reconciler) resolveAbstract(componentType, value, context treefold.Value, branch BranchStatus, node *EvaluatedNode) (treefold.Value, error) {
	if cond, consequent, alternate, ok := r.host.Conditional(value); ok {
		return r.resolveConditional(componentType, cond, consequent, alternate, context, node)
	}
	if hint, ok := r.hints.Lookup(value); ok && hint.Is(treefold.LibraryReactDOM, treefold.CallCreatePortal) && len(hint.Args) >= 2 {
		content, container := hint.Args[0], hint.Args[1]
		child := NewEvaluatedNode(NodeInlined, "ReactDOM.createPortal")
		resolved, err := r.resolveDeeply(componentType, content, context, branch, child)
		if err != nil {
			return nil, err
		}
		node.addChild(child)
		if !r.host.Same(resolved, content) {
			return r.host.CreatePortal(resolved, container), nil
		}
		return value, nil
	}
	r.state.addDeadEnd()
	return value, nil
}

// resolveConditional resolves both arms speculatively and joins them.
func (r *Reconciler) resolveConditional(componentType, cond, consequent, alternate, context treefold.Value, node *EvaluatedNode) (treefold.Value, error) {
	arm := func(v treefold.Value) func() (treefold.Value, error) {
		return func() (treefold.Value, error) {
			return r.resolveDeeply(componentType, v, context, NewBranch, node)
		}
	}
	consEffects, err := r.speculate(nil, arm(consequent))
	if err != nil {
		return nil, err
	}
	altEffects, err := r.speculate(nil, arm(alternate))
	if err != nil {
		return nil, err
	}
	joined, err := r.host.Join(cond, consEffects, altEffects)
	if err != nil {
		return nil, err
	}
	if jc, x, y, ok := r.host.Conditional(joined); ok {
		return r.applyBranchingLogic(joined, jc, x, y), nil
	}
	return joined, nil
}

// applyBranchingLogic keys the arms of a joined conditional whose elements
// differ in type, so the two arms never reconcile against each other.
func (r *Reconciler) applyBranchingLogic(joined, cond, x, y treefold.Value) treefold.Value {
	if r.host.Kind(x) != treefold.KindElement || r.host.Kind(y) != treefold.KindElement {
		return joined
	}
	px, py := r.host.Element(x), r.host.Element(y)
	if r.host.Same(px.Type, py.Type) {
		return joined
	}
	nx, changedX := r.withDefaultKey(x, px, "0")
	ny, changedY := r.withDefaultKey(y, py, "1")
	if !changedX && !changedY {
		return joined
	}
	return r.host.NewConditional(cond, nx, ny)
}

func (r *Reconciler) withDefaultKey(el treefold.Value, parts treefold.ElementParts, key string) (treefold.Value, bool) {
	if !r.isNullish(parts.Key) {
		return el, false
	}
	parts.Key = r.host.String(key)
	return r.host.NewElement(parts), true
}

// speculate runs fn inside a host transaction with applied committed first.
func (r *Reconciler) speculate(applied []treefold.Effects, fn func() (treefold.Value, error)) (treefold.Effects, error) {
	tx := r.host.Begin(applied...)
	v, err := fn()
	if err != nil {
		tx.Discard()
		return nil, err
	}
	return tx.Commit(v)
}

func (r *Reconciler) isNullish(v treefold.Value) bool {
	if v == nil {
		return true
	}
	k := r.host.Kind(v)
	return k == treefold.KindNull || k == treefold.KindUndefined
}
