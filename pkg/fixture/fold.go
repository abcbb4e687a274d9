package fixture

import (
	"context"

	"github.com/pkg/errors"

	"github.com/speakeasy-api/treefold"
	"github.com/speakeasy-api/treefold/reconciler"
)

// Result collects the reports of every fold a program needed.
type Result struct {
	// Root is the report of the root fold.
	Root *reconciler.EvaluatedNode
	// Output is the folded value of the root.
	Output treefold.Value
	// Branches and Closures hold the reports of queued folds in the order
	// they ran.
	Branches []*reconciler.EvaluatedNode
	Closures []*reconciler.EvaluatedNode
	// Failures are the fatal errors of branch and closure folds. A failed
	// root is returned as the error of Fold instead.
	Failures   []error
	Statistics reconciler.Statistics
}

// Fold folds the program root with opts, then every branch tree and
// closure queued along the way until both queues are drained.
func Fold(ctx context.Context, p *Program, opts reconciler.Options) (*Result, error) {
	r := reconciler.New(p.Host, p.Host, opts)
	res := &Result{Root: reconciler.NewEvaluatedNode(reconciler.NodeNormal, p.Host.Name(p.Root))}

	effects, err := r.ResolveRootTree(p.Root, p.Props, p.Context, res.Root)
	if err != nil {
		res.Statistics = r.Statistics()
		return res, errors.Wrapf(err, "failed to fold %s", res.Root.Name)
	}
	res.Output = effects.Result()

	var nextBranch, nextClosure int
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		branches, closures := r.BranchTrees(), r.OptimizedClosures()
		switch {
		case nextBranch < len(branches):
			b := branches[nextBranch]
			nextBranch++
			node := reconciler.NewEvaluatedNode(reconciler.NodeNormal, b.Node.Name)
			r.ClearState()
			_, err := r.ResolveRootTree(b.ComponentType, b.Props, b.Context, node)
			if errors.Is(err, reconciler.ErrAlreadyEvaluated) {
				continue
			}
			res.Branches = append(res.Branches, node)
			if err != nil {
				res.Failures = append(res.Failures, err)
			}
		case nextClosure < len(closures):
			c := closures[nextClosure]
			nextClosure++
			node := reconciler.NewEvaluatedNode(reconciler.NodeRenderProps, c.Node.Name)
			_, err := r.ResolveDeferredClosure(c.Func, c.NestedEffects, c.ComponentType, c.Context, node)
			res.Closures = append(res.Closures, node)
			if err != nil {
				res.Failures = append(res.Failures, err)
			}
		default:
			res.Statistics = r.Statistics()
			return res, nil
		}
	}
}
