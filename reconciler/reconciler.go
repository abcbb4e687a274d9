package reconciler

import (
	"github.com/speakeasy-api/treefold"
)

// Reconciler folds component trees ahead of time against a host evaluator.
// A Reconciler is not safe for concurrent use: one fold runs at a time and
// owns the component-tree state.
type Reconciler struct {
	host    treefold.Host
	hints   treefold.HintTable
	opts    Options
	base    Logger
	logger  Logger
	metrics *Metrics
	stats   Statistics

	state    *ComponentTreeState
	rootNode *EvaluatedNode

	// Cross-root tables; ClearState keeps them.
	rootMemo    map[treefold.ID]*EvaluatedNode
	folding     map[treefold.ID]struct{}
	rootEffects map[treefold.ID]treefold.Effects
	closureMemo map[treefold.ID]struct{}
	classMeta   map[treefold.ID]treefold.ClassMetadata
	bailOuts    map[treefold.ID]string

	branches []*BranchTree
	closures []*OptimizedClosure
}

// New returns a Reconciler for host. hints may be nil.
func New(host treefold.Host, hints treefold.HintTable, opts Options) *Reconciler {
	if hints == nil {
		hints = treefold.NoHints{}
	}
	logger := opts.logger()
	return &Reconciler{
		host:        host,
		hints:       hints,
		opts:        opts,
		base:        logger,
		logger:      logger,
		metrics:     opts.Metrics,
		state:       newComponentTreeState(),
		rootMemo:    make(map[treefold.ID]*EvaluatedNode),
		folding:     make(map[treefold.ID]struct{}),
		rootEffects: make(map[treefold.ID]treefold.Effects),
		closureMemo: make(map[treefold.ID]struct{}),
		classMeta:   make(map[treefold.ID]treefold.ClassMetadata),
		bailOuts:    make(map[treefold.ID]string),
	}
}

// ResolveRootTree folds componentType as a root. props and context default
// to the host's initial values when nil. A root that cannot be folded fails
// with a *FatalError carrying node.
//
// Folding the same root identity again returns the first fold's effects and
// copies its report into node without running any user code.
func (r *Reconciler) ResolveRootTree(componentType, props, context treefold.Value, node *EvaluatedNode) (treefold.Effects, error) {
	name := r.host.Name(componentType)
	if node == nil {
		node = NewEvaluatedNode(NodeNormal, name)
	}
	id := r.host.Identity(componentType)
	if r.HasEvaluatedRootNode(componentType, node) {
		if effects, ok := r.rootEffects[id]; ok {
			r.logger.Debugf("%s was already folded", name)
			return effects, nil
		}
		return nil, ErrAlreadyEvaluated
	}
	r.rootMemo[id] = node
	r.folding[id] = struct{}{}

	prevLogger, prevRoot := r.logger, r.rootNode
	r.logger = foldLogger(r.base, name, BranchRoot)
	r.rootNode = node
	defer func() {
		delete(r.folding, id)
		r.logger, r.rootNode = prevLogger, prevRoot
	}()
	if r.state.ComponentType == nil {
		r.state.ComponentType = componentType
	}

	var err error
	if props == nil {
		if props, err = r.host.InitialProps(componentType); err != nil {
			return nil, r.failRoot(err, node, len(r.closures))
		}
	}
	if context == nil {
		if context, err = r.host.InitialContext(componentType); err != nil {
			return nil, r.failRoot(err, node, len(r.closures))
		}
	}

	queued := len(r.closures)
	r.logger.Debugf("folding root %s", name)
	effects, err := r.speculate(nil, func() (treefold.Value, error) {
		o, err := r.resolveComponent(componentType, props, context, BranchRoot, node)
		if err != nil {
			return nil, err
		}
		return o.value, nil
	})
	if err != nil {
		return nil, r.failRoot(err, node, queued)
	}

	node.Status = NodeInlined
	r.rootEffects[id] = effects
	r.countOptimizedTree()
	r.handoffEffects([]treefold.Effects{effects})
	if r.opts.Verbose {
		logFolded(r.logger, name, "root", 0)
	}
	return effects, nil
}

// ResolveDeferredClosure folds a queued render callback under chain, the
// captured effects of the folds that enclose it. The closure gets its own
// component-tree state; the caller's state is restored afterwards.
func (r *Reconciler) ResolveDeferredClosure(fn treefold.Value, chain []treefold.Effects, componentType, context treefold.Value, node *EvaluatedNode) (treefold.Effects, error) {
	name := r.host.Name(fn)
	if node == nil {
		node = NewEvaluatedNode(NodeRenderProps, name)
	}

	prevState, prevLogger, prevRoot := r.state, r.logger, r.rootNode
	r.state = newComponentTreeState()
	r.state.ComponentType = componentType
	r.logger = foldLogger(r.base, name, NewBranch)
	r.rootNode = node
	defer func() {
		r.state, r.logger, r.rootNode = prevState, prevLogger, prevRoot
	}()

	queued := len(r.closures)
	args, err := r.host.AbstractArguments(fn)
	if err != nil {
		return nil, r.failRoot(err, node, queued)
	}

	r.logger.Debugf("folding closure %s", name)
	effects, err := r.speculate(chain, func() (treefold.Value, error) {
		value, err := r.host.Call(fn, r.host.Undefined(), args...)
		if err != nil {
			return nil, err
		}
		r.countEvaluated()
		return r.resolveDeeply(componentType, value, context, NewBranch, node)
	})
	if err != nil {
		return nil, r.failRoot(err, node, queued)
	}

	r.countNestedClosure()
	nested := make([]treefold.Effects, 0, len(chain)+1)
	nested = append(nested, chain...)
	r.handoffEffects(append(nested, effects))
	return effects, nil
}

// failRoot drops the closures queued by the failed fold and converts err.
func (r *Reconciler) failRoot(err error, node *EvaluatedNode, queued int) error {
	for _, c := range r.closures[queued:] {
		delete(r.closureMemo, r.host.Identity(c.Func))
	}
	r.closures = r.closures[:queued]
	r.countFatal()
	err = r.handleRootFailure(err, node)
	r.logger.Warnf("%v", err)
	return err
}

// ClearState resets the component-tree state for a fresh root fold. The
// memoization tables and queues are kept.
func (r *Reconciler) ClearState() {
	r.state = newComponentTreeState()
}

// State returns the component-tree state of the current fold.
func (r *Reconciler) State() *ComponentTreeState {
	return r.state
}

// BranchTrees returns the roots queued for independent folds, in queue
// order.
func (r *Reconciler) BranchTrees() []*BranchTree {
	return append([]*BranchTree(nil), r.branches...)
}

// OptimizedClosures returns the closures queued for deferred folds, in queue
// order.
func (r *Reconciler) OptimizedClosures() []*OptimizedClosure {
	return append([]*OptimizedClosure(nil), r.closures...)
}

// Statistics returns the counters accumulated over every fold so far.
func (r *Reconciler) Statistics() Statistics {
	return r.stats
}

// BailOutReason returns the accumulated bail-out message recorded on el.
func (r *Reconciler) BailOutReason(el treefold.Value) (string, bool) {
	msg, ok := r.bailOuts[r.host.Identity(el)]
	return msg, ok
}

// HasEvaluatedRootNode reports whether componentType was already folded as
// a root. When that fold has finished, node takes over a copy of its report.
// A root still being folded, such as a component that renders itself, leaves
// node untouched.
func (r *Reconciler) HasEvaluatedRootNode(componentType treefold.Value, node *EvaluatedNode) bool {
	id := r.host.Identity(componentType)
	prev, ok := r.rootMemo[id]
	if !ok {
		return false
	}
	if _, active := r.folding[id]; active {
		return true
	}
	if node != nil && node != prev {
		node.Name = prev.Name
		node.Status = prev.Status
		node.Children = append([]*EvaluatedNode(nil), prev.Children...)
	}
	return true
}

// ContextReferences returns how many providers of ctxObj are on the active
// resolution path.
func (r *Reconciler) ContextReferences(ctxObj treefold.Value) int {
	return r.state.contextRefs.count(r.host.Identity(ctxObj))
}
