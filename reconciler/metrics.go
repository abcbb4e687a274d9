package reconciler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Statistics counts what the reconciler did across all folds.
type Statistics struct {
	OptimizedTrees          int `yaml:"optimizedTrees"`
	InlinedComponents       int `yaml:"inlinedComponents"`
	OptimizedNestedClosures int `yaml:"optimizedNestedClosures"`
	ComponentsEvaluated     int `yaml:"componentsEvaluated"`
}

// Metrics mirrors Statistics into Prometheus counters.
type Metrics struct {
	optimizedTrees          prometheus.Counter
	inlinedComponents       prometheus.Counter
	optimizedNestedClosures prometheus.Counter
	componentsEvaluated     prometheus.Counter
	bailOuts                prometheus.Counter
	fatalFailures           prometheus.Counter
}

// NewMetrics registers the reconciler counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		optimizedTrees: f.NewCounter(prometheus.CounterOpts{
			Namespace: "treefold",
			Name:      "optimized_trees_total",
			Help:      "Component roots folded successfully.",
		}),
		inlinedComponents: f.NewCounter(prometheus.CounterOpts{
			Namespace: "treefold",
			Name:      "inlined_components_total",
			Help:      "Components inlined into their parent tree.",
		}),
		optimizedNestedClosures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "treefold",
			Name:      "optimized_nested_closures_total",
			Help:      "Deferred closures folded successfully.",
		}),
		componentsEvaluated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "treefold",
			Name:      "components_evaluated_total",
			Help:      "Component render invocations.",
		}),
		bailOuts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "treefold",
			Name:      "bail_outs_total",
			Help:      "Elements left unresolved after a recoverable bail-out.",
		}),
		fatalFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "treefold",
			Name:      "fatal_failures_total",
			Help:      "Root or closure folds that failed.",
		}),
	}
}

func (r *Reconciler) countOptimizedTree() {
	r.stats.OptimizedTrees++
	if r.metrics != nil {
		r.metrics.optimizedTrees.Inc()
	}
}

func (r *Reconciler) countInlined() {
	r.stats.InlinedComponents++
	if r.metrics != nil {
		r.metrics.inlinedComponents.Inc()
	}
}

func (r *Reconciler) countNestedClosure() {
	r.stats.OptimizedNestedClosures++
	if r.metrics != nil {
		r.metrics.optimizedNestedClosures.Inc()
	}
}

func (r *Reconciler) countEvaluated() {
	r.stats.ComponentsEvaluated++
	if r.metrics != nil {
		r.metrics.componentsEvaluated.Inc()
	}
}

func (r *Reconciler) countBailOut() {
	if r.metrics != nil {
		r.metrics.bailOuts.Inc()
	}
}

func (r *Reconciler) countFatal() {
	if r.metrics != nil {
		r.metrics.fatalFailures.Inc()
	}
}
