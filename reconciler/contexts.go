package reconciler

import (
	"github.com/speakeasy-api/treefold"
)

// withContextValue makes value the current value of ctxObj while fn runs.
// The reference count goes up right before the push and down right after
// the restore, on every path out of fn.
func (r *Reconciler) withContextValue(ctxObj, value treefold.Value, fn func() (treefold.Value, error)) (result treefold.Value, err error) {
	id := r.host.Identity(ctxObj)
	last, err := r.host.Get(ctxObj, propCurrentValue)
	if err != nil {
		return nil, err
	}
	r.state.contextRefs.increment(id)
	if err := r.host.Set(ctxObj, propCurrentValue, value); err != nil {
		if derr := r.state.contextRefs.decrement(id); derr != nil {
			return nil, derr
		}
		return nil, err
	}
	defer func() {
		serr := r.host.Set(ctxObj, propCurrentValue, last)
		derr := r.state.contextRefs.decrement(id)
		if err != nil {
			return
		}
		if derr != nil {
			result, err = nil, derr
		} else if serr != nil {
			result, err = nil, serr
		}
	}()
	return fn()
}

func (r *Reconciler) resolveContextProvider(componentType, el treefold.Value, parts treefold.ElementParts, context treefold.Value, branch BranchStatus, node *EvaluatedNode) (treefold.Value, error) {
	child := NewEvaluatedNode(NodeNormal, r.host.Name(parts.Type))
	node.addChild(child)

	ctxObj, err := r.host.Get(parts.Type, propContext)
	if err != nil {
		return nil, err
	}
	if k := r.host.Kind(ctxObj); k != treefold.KindObject && k != treefold.KindAbstract {
		return nil, treefold.Invariantf("provider %s has no context object", child.Name)
	}
	value := r.host.Undefined()
	if r.isPropsObject(parts.Props) {
		if value, err = r.host.Get(parts.Props, propValue); err != nil {
			return nil, err
		}
	}

	result, err := r.withContextValue(ctxObj, value, func() (treefold.Value, error) {
		return r.resolveHostChildren(componentType, el, context, branch, child)
	})
	if err != nil {
		return nil, err
	}

	// Nothing below the provider is opaque, so the wrapper can go.
	if r.opts.FirstRenderOnly && r.state.DeadEnds() == 0 {
		resultProps := r.host.Element(result).Props
		children := r.host.Undefined()
		if r.host.Kind(resultProps) == treefold.KindObject {
			if children, err = r.host.Get(resultProps, propChildren); err != nil {
				return nil, err
			}
		}
		child.Status = NodeInlined
		r.countInlined()
		return children, nil
	}
	return result, nil
}

func (r *Reconciler) resolveContextConsumer(componentType treefold.Value, parts treefold.ElementParts, context treefold.Value, node *EvaluatedNode) (outcome, error) {
	child := NewEvaluatedNode(NodeRenderProps, r.host.Name(parts.Type))
	node.addChild(child)

	renderProp, err := r.host.Get(parts.Props, propChildren)
	if err != nil {
		return outcome{}, err
	}
	if r.host.Kind(renderProp) != treefold.KindFunction {
		r.findComponentTrees(parts.Props, child, treatAsClosures, componentType, context)
		r.state.addDeadEnd()
		return deferred(), nil
	}

	ctxObj := parts.Type
	if r.opts.FirstRenderOnly && r.state.contextRefs.has(r.host.Identity(ctxObj)) {
		current, err := r.host.Get(ctxObj, propCurrentValue)
		if err != nil {
			return outcome{}, err
		}
		value, err := r.host.Call(renderProp, r.host.Undefined(), current)
		if err != nil {
			return outcome{}, err
		}
		r.countInlined()
		r.countEvaluated()
		child.Status = NodeInlined
		v, err := r.resolveDeeply(componentType, value, context, NewBranch, node)
		return resolved(v), err
	}

	r.queueOptimizedClosure(renderProp, child, componentType, context)
	r.state.addDeadEnd()
	return deferred(), nil
}

// resolveQueryRenderer never inlines: the render callback depends on data
// that only exists at runtime.
func (r *Reconciler) resolveQueryRenderer(componentType treefold.Value, parts treefold.ElementParts, context treefold.Value, node *EvaluatedNode) (outcome, error) {
	child := NewEvaluatedNode(NodeRenderProps, r.host.Name(parts.Type))
	node.addChild(child)

	renderProp, err := r.host.Get(parts.Props, propRender)
	if err != nil {
		return outcome{}, err
	}
	if r.host.Kind(renderProp) == treefold.KindFunction {
		r.queueOptimizedClosure(renderProp, child, componentType, context)
	} else {
		r.findComponentTrees(parts.Props, child, treatAsClosures, componentType, context)
	}
	r.state.addDeadEnd()
	return deferred(), nil
}

func (r *Reconciler) resolveForwardRef(componentType treefold.Value, parts treefold.ElementParts, context treefold.Value, node *EvaluatedNode) (treefold.Value, error) {
	forwarded := r.componentTypeFromRoot(parts.Type)
	if forwarded == nil {
		return nil, treefold.NewExpectedBailOut("forwardRef render was not a function")
	}
	child := NewEvaluatedNode(NodeForwardRef, r.host.Name(forwarded))
	node.addChild(child)

	ref := parts.Ref
	if ref == nil {
		ref = r.host.Null()
	}
	value, err := r.host.Call(forwarded, r.host.Undefined(), parts.Props, ref)
	if err != nil {
		return nil, err
	}
	r.countEvaluated()
	return r.resolveDeeply(componentType, value, context, NewBranch, child)
}
