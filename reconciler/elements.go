package reconciler

import (
	"github.com/speakeasy-api/treefold"
)

// resolutionStrategy is how an element's type is folded.
type resolutionStrategy uint8

const (
	strategyNormal resolutionStrategy = iota
	strategyFragment
	strategyRelayQueryRenderer
	strategyContextProvider
	strategyContextConsumer
	strategyForwardRef
)

func (s resolutionStrategy) String() string {
	switch s {
	case strategyFragment:
		return "FRAGMENT"
	case strategyRelayQueryRenderer:
		return "RELAY_QUERY_RENDERER"
	case strategyContextProvider:
		return "CONTEXT_PROVIDER"
	case strategyContextConsumer:
		return "CONTEXT_CONSUMER"
	case strategyForwardRef:
		return "FORWARD_REF"
	default:
		return "NORMAL"
	}
}

// Property names of library objects.
const (
	propTypeOf       = "$$typeof"
	propContext      = "context"
	propCurrentValue = "currentValue"
	propRender       = "render"
	propChildren     = "children"
	propValue        = "value"
	propStyle        = "style"
)

func (r *Reconciler) classify(typ treefold.Value) resolutionStrategy {
	sym := r.host.Symbols()
	if sym.Fragment != nil && r.host.Same(typ, sym.Fragment) {
		return strategyFragment
	}
	if hint, ok := r.hints.Lookup(typ); ok {
		switch {
		case hint.Is(treefold.LibraryReactRelay, treefold.CallQueryRenderer):
			return strategyRelayQueryRenderer
		case hint.Is(treefold.LibraryReact, treefold.CallForwardRef):
			return strategyForwardRef
		}
	}
	if r.host.Kind(typ) == treefold.KindObject {
		switch {
		case r.tagIs(typ, sym.ProviderTag):
			return strategyContextProvider
		case r.tagIs(typ, sym.ContextTag):
			return strategyContextConsumer
		case r.tagIs(typ, sym.ForwardRefTag):
			return strategyForwardRef
		}
	}
	return strategyNormal
}

func (r *Reconciler) tagIs(v, tag treefold.Value) bool {
	if tag == nil || !r.host.Has(v, propTypeOf) {
		return false
	}
	got, err := r.host.Get(v, propTypeOf)
	return err == nil && r.host.Same(got, tag)
}

func (r *Reconciler) isPropsObject(v treefold.Value) bool {
	switch r.host.Kind(v) {
	case treefold.KindObject, treefold.KindAbstract:
		return true
	}
	return false
}

// resolveElement is the element boundary: every recoverable failure while
// folding el is absorbed here.
func (r *Reconciler) resolveElement(componentType, el, context treefold.Value, branch BranchStatus, node *EvaluatedNode) (treefold.Value, error) {
	if r.opts.FirstRenderOnly {
		el = r.sanitizeForFirstRender(el)
	}
	parts := r.host.Element(el)
	if _, _, _, ok := r.host.Conditional(parts.Type); ok {
		return nil, treefold.Invariantf("element type must never be a conditional value")
	}
	if _, _, _, ok := r.host.Conditional(parts.Props); ok {
		return nil, treefold.Invariantf("element props must never be a conditional value")
	}

	if r.host.Kind(parts.Type) == treefold.KindString {
		return r.resolveHostChildren(componentType, el, context, branch, node)
	}

	strategy := r.classify(parts.Type)
	if strategy != strategyForwardRef && !r.isNullish(parts.Ref) {
		return r.bailOutWithChildSearch(el, parts, componentType, context, node, "refs are not supported on <Components />"), nil
	}
	if !r.isPropsObject(parts.Props) {
		return r.bailOutWithChildSearch(el, parts, componentType, context, node, "props on <Component /> was not an ObjectValue"), nil
	}

	o, err := r.resolveByStrategy(strategy, componentType, el, parts, context, branch, node)
	if err != nil {
		return r.handleElementFailure(err, el, parts, componentType, context, node)
	}
	switch o.kind {
	case outcomeNewBranch:
		// Already queued as its own root; only look for further trees.
		r.findComponentTrees(parts.Props, node, treatAsClosures, componentType, context)
		node.addChild(o.node)
		return el, nil
	case outcomeDeferred:
		return el, nil
	}
	return o.value, nil
}

func (r *Reconciler) bailOutWithChildSearch(el treefold.Value, parts treefold.ElementParts, componentType, context treefold.Value, node *EvaluatedNode, message string) treefold.Value {
	child := NewEvaluatedNode(NodeBailOut, r.host.Name(parts.Type))
	child.Message = message
	node.addChild(child)
	r.queueNewComponentTree(parts.Type, child, nil, context)
	r.findComponentTrees(parts.Props, node, treatAsClosures, componentType, context)
	r.assignBailOutMessage(el, message)
	r.countBailOut()
	return el
}

func (r *Reconciler) resolveByStrategy(strategy resolutionStrategy, componentType, el treefold.Value, parts treefold.ElementParts, context treefold.Value, branch BranchStatus, node *EvaluatedNode) (outcome, error) {
	switch strategy {
	case strategyNormal:
		return r.resolveNormal(componentType, el, parts, context, branch, node)
	case strategyFragment:
		v, err := r.resolveFragment(componentType, el, parts, context, branch, node)
		return resolved(v), err
	case strategyRelayQueryRenderer:
		return r.resolveQueryRenderer(componentType, parts, context, node)
	case strategyContextProvider:
		v, err := r.resolveContextProvider(componentType, el, parts, context, branch, node)
		return resolved(v), err
	case strategyContextConsumer:
		return r.resolveContextConsumer(componentType, parts, context, node)
	case strategyForwardRef:
		v, err := r.resolveForwardRef(componentType, parts, context, node)
		return resolved(v), err
	}
	return outcome{}, treefold.Invariantf("unsupported component resolution strategy %s", strategy)
}

func (r *Reconciler) resolveNormal(componentType, el treefold.Value, parts treefold.ElementParts, context treefold.Value, branch BranchStatus, node *EvaluatedNode) (outcome, error) {
	typ := parts.Type
	if r.host.Kind(typ) != treefold.KindFunction {
		if !r.isKnownAbstraction(typ) {
			return resolved(r.resolveUnknownComponentType(componentType, el, parts, context, node)), nil
		}
		typ = r.componentTypeFromRoot(typ)
	}
	child := NewEvaluatedNode(NodeInlined, r.host.Name(typ))
	o, err := r.resolveComponent(typ, parts.Props, context, branch.forComponent(), child)
	if err != nil || o.kind == outcomeNewBranch {
		return o, err
	}
	node.addChild(child)
	r.countInlined()
	if r.opts.Verbose && child.Status == NodeInlined {
		logFolded(r.logger, child.Name, "inlined", 2)
	}
	return o, nil
}

func (r *Reconciler) resolveUnknownComponentType(componentType, el treefold.Value, parts treefold.ElementParts, context treefold.Value, node *EvaluatedNode) treefold.Value {
	r.findComponentTrees(parts.Props, node, treatAsClosures, componentType, context)
	if r.host.Kind(parts.Type) == treefold.KindAbstract {
		r.findComponentTrees(parts.Type, node, treatAsComponents, componentType, context)
		r.state.addDeadEnd()
		return el
	}
	message := "type on <Component /> was not a function"
	child := NewEvaluatedNode(NodeBailOut, r.host.Name(parts.Type))
	child.Message = message
	node.addChild(child)
	r.assignBailOutMessage(el, message)
	r.state.addDeadEnd()
	return el
}

func (r *Reconciler) resolveFragment(componentType, el treefold.Value, parts treefold.ElementParts, context treefold.Value, branch BranchStatus, node *EvaluatedNode) (treefold.Value, error) {
	status := NodeNormal
	if r.opts.FirstRenderOnly {
		status = NodeInlined
	}
	child := NewEvaluatedNode(status, r.host.Name(parts.Type))
	node.addChild(child)
	return r.resolveHostChildren(componentType, el, context, branch, child)
}

// resolveHostChildren folds props.children of an element whose own type
// is not folded (host tags, fragments, providers).
func (r *Reconciler) resolveHostChildren(componentType, el, context treefold.Value, branch BranchStatus, node *EvaluatedNode) (treefold.Value, error) {
	parts := r.host.Element(el)
	if r.host.Kind(parts.Props) != treefold.KindObject || !r.host.Has(parts.Props, propChildren) {
		return el, nil
	}
	children, err := r.host.Get(parts.Props, propChildren)
	if err != nil {
		return nil, err
	}
	resolvedChildren, err := r.resolveDeeply(componentType, children, context, branch, node)
	if err != nil {
		return nil, err
	}
	if r.host.Kind(resolvedChildren) == treefold.KindArray {
		resolvedChildren = r.flattenChildren(resolvedChildren)
	}
	if r.host.Same(resolvedChildren, children) {
		return el, nil
	}
	parts.Props = r.cloneProps(parts.Props, propChildren, resolvedChildren)
	return r.host.NewElement(parts), nil
}

// flattenChildren inlines nested arrays. arr is returned as is when it has
// no nested arrays.
func (r *Reconciler) flattenChildren(arr treefold.Value) treefold.Value {
	elems := r.host.ArrayElements(arr)
	nested := false
	for _, el := range elems {
		if r.host.Kind(el) == treefold.KindArray {
			nested = true
			break
		}
	}
	if !nested {
		return arr
	}
	var out []treefold.Value
	var flatten func(vals []treefold.Value)
	flatten = func(vals []treefold.Value) {
		for _, v := range vals {
			if r.host.Kind(v) == treefold.KindArray {
				flatten(r.host.ArrayElements(v))
				continue
			}
			out = append(out, v)
		}
	}
	flatten(elems)
	return r.host.NewArray(out)
}

// cloneProps copies props with key replaced (or appended).
func (r *Reconciler) cloneProps(props treefold.Value, key string, value treefold.Value) treefold.Value {
	keys := r.host.Keys(props)
	vals := make([]treefold.Value, 0, len(keys)+1)
	found := false
	for _, k := range keys {
		if k == key {
			vals = append(vals, value)
			found = true
			continue
		}
		v, err := r.host.Get(props, k)
		if err != nil {
			v = r.host.Undefined()
		}
		vals = append(vals, v)
	}
	if !found {
		keys = append(keys, key)
		vals = append(vals, value)
	}
	return r.host.NewObject(keys, vals)
}

// sanitizeForFirstRender drops what cannot matter on first mount: the ref,
// and function-valued props of host elements other than children and style.
func (r *Reconciler) sanitizeForFirstRender(el treefold.Value) treefold.Value {
	parts := r.host.Element(el)
	changed := false
	if !r.isNullish(parts.Ref) && r.classify(parts.Type) != strategyForwardRef {
		parts.Ref = r.host.Null()
		changed = true
	}
	if r.host.Kind(parts.Type) == treefold.KindString && r.host.Kind(parts.Props) == treefold.KindObject {
		keys := r.host.Keys(parts.Props)
		kept := make([]string, 0, len(keys))
		vals := make([]treefold.Value, 0, len(keys))
		for _, k := range keys {
			v, err := r.host.Get(parts.Props, k)
			if err != nil {
				continue
			}
			if k != propChildren && k != propStyle && r.host.Kind(v) == treefold.KindFunction {
				continue
			}
			kept = append(kept, k)
			vals = append(vals, v)
		}
		if len(kept) != len(keys) {
			parts.Props = r.host.NewObject(kept, vals)
			changed = true
		}
	}
	if !changed {
		return el
	}
	return r.host.NewElement(parts)
}
