package reconciler

import (
	"sort"

	"github.com/speakeasy-api/treefold"
)

// TreeStatus is the simple/complex classification of a fold.
type TreeStatus uint8

const (
	StatusSimple TreeStatus = iota
	StatusComplex
)

func (s TreeStatus) String() string {
	if s == StatusComplex {
		return "COMPLEX"
	}
	return "SIMPLE"
}

// BranchStatus describes where in the tree a value is being resolved.
type BranchStatus uint8

const (
	BranchRoot BranchStatus = iota
	NoBranch
	NewBranch
	InBranch
)

func (b BranchStatus) String() string {
	switch b {
	case BranchRoot:
		return "ROOT"
	case NoBranch:
		return "NO_BRANCH"
	case NewBranch:
		return "NEW_BRANCH"
	case InBranch:
		return "BRANCH"
	default:
		return "UNKNOWN"
	}
}

// forComponent is the branch status handed to a component body rendered
// under b.
func (b BranchStatus) forComponent() BranchStatus {
	switch b {
	case BranchRoot:
		return NoBranch
	case NewBranch:
		return InBranch
	default:
		return b
	}
}

// contextReferences counts, per context object, how many provider frames
// for it are on the active resolution path.
type contextReferences struct {
	counts map[treefold.ID]int
}

func newContextReferences() *contextReferences {
	return &contextReferences{counts: make(map[treefold.ID]int)}
}

func (c *contextReferences) increment(id treefold.ID) {
	c.counts[id]++
}

func (c *contextReferences) decrement(id treefold.ID) error {
	n, ok := c.counts[id]
	if !ok || n <= 0 {
		return treefold.Invariantf("context reference count for %d would go negative", id)
	}
	if n == 1 {
		delete(c.counts, id)
		return nil
	}
	c.counts[id] = n - 1
	return nil
}

func (c *contextReferences) has(id treefold.ID) bool {
	return c.counts[id] > 0
}

func (c *contextReferences) count(id treefold.ID) int {
	return c.counts[id]
}

// ComponentTreeState is the mutable state of one fold.
type ComponentTreeState struct {
	// ComponentType is the effective root of the fold. Absorbing a complex
	// class component replaces it.
	ComponentType treefold.Value
	contextTypes  map[string]struct{}
	deadEnds      int
	status        TreeStatus
	contextRefs   *contextReferences
}

func newComponentTreeState() *ComponentTreeState {
	return &ComponentTreeState{
		contextTypes: make(map[string]struct{}),
		status:       StatusSimple,
		contextRefs:  newContextReferences(),
	}
}

// DeadEnds is the number of places the fold could not prove inlineable.
func (s *ComponentTreeState) DeadEnds() int { return s.deadEnds }

// Status is SIMPLE until a complex class component is folded.
func (s *ComponentTreeState) Status() TreeStatus { return s.status }

// ContextTypes returns the legacy context keys read by folded components.
func (s *ComponentTreeState) ContextTypes() []string {
	out := make([]string, 0, len(s.contextTypes))
	for k := range s.contextTypes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *ComponentTreeState) addDeadEnd() {
	s.deadEnds++
}

// markComplex is irreversible for the fold.
func (s *ComponentTreeState) markComplex() {
	s.status = StatusComplex
}

func (s *ComponentTreeState) addContextType(key string) {
	s.contextTypes[key] = struct{}{}
}
