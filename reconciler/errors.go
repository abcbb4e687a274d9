package reconciler

import (
	"errors"
	"fmt"

	"github.com/speakeasy-api/treefold"
)

// FatalError is terminal for the current root (or closure) fold. It carries
// the report node of the fold that failed.
type FatalError struct {
	Message string
	Node    *EvaluatedNode
	Err     error
}

func (e *FatalError) Error() string { return e.Message }

func (e *FatalError) Unwrap() error { return e.Err }

// ErrAlreadyEvaluated is returned when a root is folded again after an
// earlier fold of the same identity failed.
var ErrAlreadyEvaluated = errors.New("component root was already evaluated")

// handleRootFailure converts an error escaping a root or closure fold into a
// *FatalError. Invariant violations and unrecognised errors pass through.
func (r *Reconciler) handleRootFailure(err error, node *EvaluatedNode) error {
	var (
		rfe *FatalError
		se  *treefold.UnsupportedSideEffect
		ebo *treefold.ExpectedBailOut
		dno *treefold.DoNotOptimize
		fe  *treefold.FatalError
		te  *treefold.ThrownError
	)
	switch {
	case treefold.IsInvariant(err):
		return err
	case errors.As(err, &rfe):
		return err
	case errors.As(err, &se):
		return r.fatal(node, err, "failed to render component root %q due to side-effects from %s", node.Name, se.Message)
	case errors.As(err, &ebo):
		msg := fmt.Sprintf("failed to optimize component tree for %q due to an expected bail-out: %s", node.Name, ebo.Message)
		r.host.Report(treefold.Diagnostic{Code: "PP0020", Message: msg, Severity: treefold.SeverityRecoverableError})
		return r.fatal(node, err, "%s", msg)
	case errors.As(err, &dno):
		return r.fatal(node, err, "failed to render component root %q: %s", node.Name, dno.Error())
	case errors.As(err, &fe):
		return r.fatal(node, err, "failed to render component root %q due to a fatal error", node.Name)
	case errors.As(err, &te):
		return r.fatal(node, err, "failed to render component root %q due to a thrown error: %s", node.Name, te.Error())
	}
	return err
}

func (r *Reconciler) fatal(node *EvaluatedNode, cause error, format string, args ...any) *FatalError {
	return &FatalError{Message: fmt.Sprintf(format, args...), Node: node, Err: cause}
}

// handleElementFailure absorbs recoverable errors at an element boundary.
// The element comes back unresolved; anything unrecoverable is returned as
// an error for the root boundary.
func (r *Reconciler) handleElementFailure(err error, el treefold.Value, parts treefold.ElementParts, componentType, context treefold.Value, node *EvaluatedNode) (treefold.Value, error) {
	var (
		rfe *FatalError
		se  *treefold.UnsupportedSideEffect
		dno *treefold.DoNotOptimize
		te  *treefold.ThrownError
	)
	switch {
	case treefold.IsInvariant(err), errors.As(err, &rfe):
		return nil, err
	case errors.As(err, &se):
		return nil, r.fatal(r.rootNode, err, "failed to render component root %q due to side-effects from %s", r.rootNode.Name, se.Message)
	case errors.As(err, &dno):
		r.logger.Debugf("%s left unresolved: %s", r.host.Name(parts.Type), dno.Error())
		return el, nil
	case errors.As(err, &te):
		return nil, r.fatal(r.rootNode, err, "failed to render component root %q due to a thrown error: %s", r.rootNode.Name, te.Error())
	}

	msg := err.Error()
	child := NewEvaluatedNode(NodeBailOut, r.host.Name(parts.Type))
	child.Message = msg
	node.addChild(child)
	r.queueNewComponentTree(parts.Type, child, nil, context)
	r.findComponentTrees(parts.Props, node, treatAsClosures, componentType, context)
	r.assignBailOutMessage(el, msg)
	r.countBailOut()
	r.logger.Infof("bail-out on %s: %s", child.Name, msg)
	return el, nil
}

// assignBailOutMessage records why an element was left unresolved. Repeated
// bail-outs on the same element accumulate in call order.
func (r *Reconciler) assignBailOutMessage(el treefold.Value, message string) {
	id := r.host.Identity(el)
	message = "Bail-out: " + message
	if prev, ok := r.bailOuts[id]; ok {
		r.bailOuts[id] = prev + ", " + message
		return
	}
	r.bailOuts[id] = message
}
