// Package metrics exports tinystore events as Prometheus metrics.
//
// An [Observer] is registered on a store with [tinystore.WithObserver]:
//
//	obs, err := metrics.NewObserver(metrics.WithRegistry(reg))
//	if err != nil {
//	    return err
//	}
//	st, err := tinystore.New(initial, tinystore.WithObserver(obs))
//
// Metrics collected (default namespace "tinystore"):
//   - tinystore_updates_total: Counter of SetState calls by result (applied, rejected)
//   - tinystore_update_rejections_total: Counter of rejected SetState calls by reason
//   - tinystore_keys_updated_total: Counter of keys written by applied updates
//   - tinystore_effects_invoked_total: Counter of effect invocations
//   - tinystore_effect_errors_total: Counter of failed effects by target
//   - tinystore_update_duration_seconds: Histogram of SetState duration
//   - tinystore_subscriptions: Gauge of registered effects across observed stores
//
// One Observer may be shared by several stores; their events are aggregated.
package metrics

import (
	"time"

	"github.com/jpalmerr/tinystore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the Prometheus observer.
type Config struct {
	// Namespace is the metrics namespace (default: "tinystore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for update duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
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

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
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
		Namespace: "tinystore",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Observer is a [tinystore.Observer] that records store events as
// Prometheus metrics.
type Observer struct {
	updatesTotal   *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	keysUpdated    prometheus.Counter
	effectsInvoked prometheus.Counter
	effectErrors   *prometheus.CounterVec
	updateDuration prometheus.Histogram
	subscriptions  prometheus.Gauge
}

var _ tinystore.Observer = (*Observer)(nil)

// NewObserver creates an [Observer] and registers its collectors.
//
// Returns an error if registration fails, e.g. because another observer
// with the same namespace and subsystem is already registered on the registry.
func NewObserver(opts ...Option) (obs *Observer, err error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	// promauto panics on duplicate registration
	defer func() {
		if r := recover(); r != nil {
			obs = nil
			if e, ok := r.(error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()

	factory := promauto.With(cfg.Registry)

	return &Observer{
		updatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "updates_total",
			Help:        "Total number of SetState calls by result",
			ConstLabels: cfg.ConstLabels,
		}, []string{"result"}),

		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "update_rejections_total",
			Help:        "Total number of rejected SetState calls by reason",
			ConstLabels: cfg.ConstLabels,
		}, []string{"reason"}),

		keysUpdated: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "keys_updated_total",
			Help:        "Total number of keys written by applied updates",
			ConstLabels: cfg.ConstLabels,
		}),

		effectsInvoked: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "effects_invoked_total",
			Help:        "Total number of effect invocations",
			ConstLabels: cfg.ConstLabels,
		}),

		effectErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "effect_errors_total",
			Help:        "Total number of failed effects by target",
			ConstLabels: cfg.ConstLabels,
		}, []string{"target"}),

		updateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "update_duration_seconds",
			Help:        "SetState duration in seconds, including effect dispatch",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}),

		subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "subscriptions",
			Help:        "Number of registered effects, including each store's default wildcard effect",
			ConstLabels: cfg.ConstLabels,
		}),
	}, nil
}

// OnEvent records a store event.
func (o *Observer) OnEvent(event tinystore.Event) {
	switch event.Type {
	case tinystore.EventStoreCreate:
		// every store starts with its wildcard effect registered
		o.subscriptions.Inc()

	case tinystore.EventStateUpdate:
		o.updatesTotal.WithLabelValues("applied").Inc()
		if keys, ok := event.Data["keys"].([]string); ok {
			o.keysUpdated.Add(float64(len(keys)))
		}
		if n, ok := event.Data["effects"].(int); ok {
			o.effectsInvoked.Add(float64(n))
		}
		if d, ok := event.Data["duration"].(time.Duration); ok {
			o.updateDuration.Observe(d.Seconds())
		}

	case tinystore.EventStateReject:
		o.updatesTotal.WithLabelValues("rejected").Inc()
		reason, _ := event.Data["reason"].(string)
		o.rejections.WithLabelValues(reason).Inc()

	case tinystore.EventEffectError:
		target, _ := event.Data["target"].(string)
		o.effectErrors.WithLabelValues(target).Inc()

	case tinystore.EventEffectSubscribe:
		if replaced, _ := event.Data["replaced"].(bool); !replaced {
			o.subscriptions.Inc()
		}

	case tinystore.EventEffectUnsubscribe:
		if removed, _ := event.Data["removed"].(bool); removed {
			o.subscriptions.Dec()
		}
	}
}
