package reconciler

import (
	"errors"

	"github.com/speakeasy-api/treefold"
)

type outcomeKind uint8

const (
	// outcomeResolved carries the folded value.
	outcomeResolved outcomeKind = iota
	// outcomeDeferred means the element stays as is; its content was
	// queued for a deferred fold.
	outcomeDeferred
	// outcomeNewBranch means the component was queued as an independent
	// root; node is its report node.
	outcomeNewBranch
)

type outcome struct {
	kind  outcomeKind
	value treefold.Value
	node  *EvaluatedNode
}

func resolved(v treefold.Value) outcome { return outcome{kind: outcomeResolved, value: v} }

func deferred() outcome { return outcome{kind: outcomeDeferred} }

func newBranch(node *EvaluatedNode) outcome { return outcome{kind: outcomeNewBranch, node: node} }

// classOutcome is the result of the simple class strategy.
type classOutcome struct {
	value          treefold.Value
	retryAsComplex bool
}

// resolveComponent renders componentType with props and folds the result.
func (r *Reconciler) resolveComponent(componentType, props, context treefold.Value, branch BranchStatus, node *EvaluatedNode) (outcome, error) {
	r.recordContextTypes(componentType)

	var value treefold.Value
	if r.host.IsClassComponent(componentType) {
		var (
			o   outcome
			err error
		)
		if r.opts.FirstRenderOnly {
			o, err = r.resolveClassComponentForFirstRender(componentType, props, context)
		} else {
			o, err = r.resolveClassComponent(componentType, props, context, branch, node)
		}
		if err != nil || o.kind != outcomeResolved {
			return o, err
		}
		value = o.value
	} else {
		v, err := r.resolveFunctionalComponent(componentType, props, context)
		if err != nil {
			return outcome{}, err
		}
		if r.host.IsFactoryClassComponent(v) {
			if branch != BranchRoot {
				return outcome{}, treefold.NewExpectedBailOut("non-root factory class components are not supported")
			}
			return resolved(v), nil
		}
		value = v
	}

	v, err := r.resolveDeeply(componentType, value, context, branch.forComponent(), node)
	if err != nil {
		return outcome{}, err
	}
	return resolved(v), nil
}

func (r *Reconciler) recordContextTypes(componentType treefold.Value) {
	if !r.host.Has(componentType, "contextTypes") {
		return
	}
	ct, err := r.host.Get(componentType, "contextTypes")
	if err != nil || r.host.Kind(ct) != treefold.KindObject {
		return
	}
	for _, key := range r.host.Keys(ct) {
		r.state.addContextType(key)
	}
}

func (r *Reconciler) resolveFunctionalComponent(componentType, props, context treefold.Value) (treefold.Value, error) {
	r.countEvaluated()
	return r.host.Call(componentType, r.host.Undefined(), props, context)
}

func (r *Reconciler) classMetadata(class, props, context treefold.Value) (treefold.ClassMetadata, error) {
	id := r.host.Identity(class)
	if meta, ok := r.classMeta[id]; ok {
		return meta, nil
	}
	meta, err := r.host.ClassMetadata(class, props, context)
	if err != nil {
		return treefold.ClassMetadata{}, err
	}
	r.classMeta[id] = meta
	return meta, nil
}

func (r *Reconciler) resolveClassComponent(class, props, context treefold.Value, branch BranchStatus, node *EvaluatedNode) (outcome, error) {
	meta, err := r.classMetadata(class, props, context)
	if err != nil {
		return outcome{}, err
	}
	if meta.Simple() {
		co, err := r.resolveSimpleClassComponent(class, props, context)
		if err != nil {
			return outcome{}, err
		}
		if !co.retryAsComplex {
			return resolved(co.value), nil
		}
		r.logger.Debugf("%s is not a simple class component", r.host.Name(class))
	}
	return r.resolveComplexClassComponent(class, props, context, meta, branch, node)
}

// resolveSimpleClassComponent renders a class with an instance that only
// has props and context.
func (r *Reconciler) resolveSimpleClassComponent(class, props, context treefold.Value) (classOutcome, error) {
	instance, err := r.host.NewSimpleInstance(class, props, context)
	if errors.Is(err, treefold.ErrNotSimple) {
		return classOutcome{retryAsComplex: true}, nil
	}
	if err != nil {
		return classOutcome{}, err
	}
	value, err := r.callRender(instance)
	if errors.Is(err, treefold.ErrNotSimple) {
		return classOutcome{retryAsComplex: true}, nil
	}
	if err != nil {
		return classOutcome{}, err
	}
	return classOutcome{value: value}, nil
}

func (r *Reconciler) resolveComplexClassComponent(class, props, context treefold.Value, meta treefold.ClassMetadata, branch BranchStatus, node *EvaluatedNode) (outcome, error) {
	if branch != BranchRoot {
		if !r.canAbsorb(class, branch) {
			r.queueNewComponentTree(class, node, nil, context)
			node.Status = NodeNewTree
			return newBranch(node), nil
		}
		r.logger.Infof("absorbing %s as the root of the tree", r.host.Name(class))
		r.state.ComponentType = class
	}
	r.state.markComplex()

	instance, err := r.host.NewInstance(class, props, context, meta)
	if err != nil {
		return outcome{}, err
	}
	value, err := r.callRender(instance)
	if err != nil {
		return outcome{}, err
	}
	return resolved(value), nil
}

// canAbsorb reports whether a nested complex class component may become the
// effective root of the running fold: the tree is still simple, we are not
// inside a branch, and class was itself folded as a root with a status other
// than RENDER_PROPS. The first eligible class wins since absorbing marks the
// tree complex.
func (r *Reconciler) canAbsorb(class treefold.Value, branch BranchStatus) bool {
	if branch != NoBranch || r.state.Status() != StatusSimple {
		return false
	}
	rootNode, ok := r.rootMemo[r.host.Identity(class)]
	return ok && rootNode.Status != NodeRenderProps
}

// resolveClassComponentForFirstRender applies getDerivedStateFromProps, or
// the legacy pre-mount hooks when neither it nor getSnapshotBeforeUpdate
// exists, then renders.
func (r *Reconciler) resolveClassComponentForFirstRender(class, props, context treefold.Value) (outcome, error) {
	instance, err := r.host.NewFirstRenderInstance(class, props, context)
	if err != nil {
		return outcome{}, err
	}
	deriveState, err := r.host.Get(class, "getDerivedStateFromProps")
	if err != nil {
		return outcome{}, err
	}
	snapshot, err := r.host.Get(instance, "getSnapshotBeforeUpdate")
	if err != nil {
		return outcome{}, err
	}

	if !r.isUndefined(deriveState) || !r.isUndefined(snapshot) {
		if r.host.Kind(deriveState) == treefold.KindFunction {
			if err := r.applyDerivedState(deriveState, instance, props); err != nil {
				return outcome{}, err
			}
		}
	} else {
		for _, hook := range []string{"componentWillMount", "UNSAFE_componentWillMount"} {
			fn, err := r.host.Get(instance, hook)
			if err != nil {
				return outcome{}, err
			}
			if r.host.Kind(fn) != treefold.KindFunction {
				continue
			}
			if _, err := r.host.Call(fn, instance); err != nil {
				return outcome{}, err
			}
		}
	}

	value, err := r.callRender(instance)
	if err != nil {
		return outcome{}, err
	}
	return resolved(value), nil
}

func (r *Reconciler) applyDerivedState(deriveState, instance, props treefold.Value) error {
	prevState, err := r.host.Get(instance, "state")
	if err != nil {
		return err
	}
	partial, err := r.host.Call(deriveState, r.host.Undefined(), props, prevState)
	if err != nil {
		return err
	}
	if r.isNullish(partial) {
		return nil
	}
	next, err := r.host.AssignObject(prevState, partial)
	if err != nil {
		return err
	}
	return r.host.Set(instance, "state", next)
}

func (r *Reconciler) callRender(instance treefold.Value) (treefold.Value, error) {
	render, err := r.host.Get(instance, propRender)
	if err != nil {
		return nil, err
	}
	if r.host.Kind(render) != treefold.KindFunction {
		return nil, treefold.NewExpectedBailOut("render method was not a function")
	}
	r.countEvaluated()
	return r.host.Call(render, instance)
}

func (r *Reconciler) isUndefined(v treefold.Value) bool {
	return r.host.Kind(v) == treefold.KindUndefined
}
