package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goliatone/go-formbind/pkg/reconcile"
)

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Config configures the Prometheus observer.
type Config struct {
	// Namespace is the metrics namespace (default: "formbind").
	Namespace string
	// Subsystem is the metrics subsystem (default: "reconcile").
	Subsystem string
	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels
	// Buckets are the histogram buckets for expanded path counts.
	Buckets []float64
	// Registry defaults to prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Option configures the Prometheus observer.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "formbind",
		Subsystem: "reconcile",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Observer records reconciliation outcomes as Prometheus metrics. It
// implements reconcile.Observer.
type Observer struct {
	runs    *prometheus.CounterVec
	written prometheus.Counter
	active  prometheus.Counter
	missing prometheus.Counter
	paths   prometheus.Histogram
}

var _ reconcile.Observer = (*Observer)(nil)

// NewObserver registers the reconciliation metrics and returns an observer.
// Registering twice against the same registry panics, as with promauto.
func NewObserver(options ...Option) *Observer {
	cfg := defaultConfig()
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(cfg.Registry)

	return &Observer{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "runs_total",
			Help:        "Reconciliations by outcome",
			ConstLabels: cfg.ConstLabels,
		}, []string{"outcome"}),
		written: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "paths_written_total",
			Help:        "Concrete paths overwritten with external values",
			ConstLabels: cfg.ConstLabels,
		}),
		active: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "paths_active_total",
			Help:        "Concrete paths left untouched because the field was active",
			ConstLabels: cfg.ConstLabels,
		}),
		missing: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "paths_missing_total",
			Help:        "Overwrite paths with no external value",
			ConstLabels: cfg.ConstLabels,
		}),
		paths: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "expanded_paths",
			Help:        "Concrete paths produced per reconciliation",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}),
	}
}

var (
	sharedOnce sync.Once
	shared     *Observer
)

// Shared returns an observer registered once on prometheus.DefaultRegisterer
// with the default names. Every caller gets the same instance.
func Shared() *Observer {
	sharedOnce.Do(func() {
		shared = NewObserver()
	})
	return shared
}

// ObserveReconcile implements reconcile.Observer.
func (o *Observer) ObserveReconcile(result reconcile.Result, err error) {
	switch {
	case err != nil:
		o.runs.WithLabelValues(OutcomeError).Inc()
	case result.Skipped:
		o.runs.WithLabelValues(OutcomeSkipped).Inc()
		return
	default:
		o.runs.WithLabelValues(OutcomeOK).Inc()
	}
	o.written.Add(float64(len(result.Written)))
	o.active.Add(float64(len(result.Active)))
	o.missing.Add(float64(len(result.Missing)))
	o.paths.Observe(float64(len(result.Paths)))
}
