// Package metrics exposes prometheus counters for the storefront client kit.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeCache = "cached"
)

// Recorder is what the services report to.
type Recorder interface {
	RecordCartMutation(op, outcome string)
	RecordRemoteLoad(remote, outcome string, d time.Duration)
	RecordGuestProvision(outcome string)
	RecordAuth(op, outcome string)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordCartMutation(string, string)              {}
func (Nop) RecordRemoteLoad(string, string, time.Duration) {}
func (Nop) RecordGuestProvision(string)                    {}
func (Nop) RecordAuth(string, string)                      {}

// Outcome maps an error to OutcomeOK or OutcomeError.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// Collector records into prometheus.
type Collector struct {
	cartMutations  *prometheus.CounterVec
	remoteLoads    *prometheus.CounterVec
	remoteLatency  *prometheus.HistogramVec
	guestProvision *prometheus.CounterVec
	auth           *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		remoteLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_remote_loads_total",
			Help: "Remote module loads by remote and outcome.",
		}, []string{"remote", "outcome"}),
		remoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_remote_load_seconds",
			Help:    "Remote module load latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"remote"}),
		guestProvision: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_guest_provision_total",
			Help: "Guest identity lookups by outcome.",
		}, []string{"outcome"}),
		auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_auth_operations_total",
			Help: "Authentication operations by operation and outcome.",
		}, []string{"op", "outcome"}),
	}

	reg.MustRegister(
		c.cartMutations,
		c.remoteLoads,
		c.remoteLatency,
		c.guestProvision,
		c.auth,
	)
	return c
}

func (c *Collector) RecordCartMutation(op, outcome string) {
	c.cartMutations.WithLabelValues(op, outcome).Inc()
}

func (c *Collector) RecordRemoteLoad(remote, outcome string, d time.Duration) {
	c.remoteLoads.WithLabelValues(remote, outcome).Inc()
	c.remoteLatency.WithLabelValues(remote).Observe(d.Seconds())
}

func (c *Collector) RecordGuestProvision(outcome string) {
	c.guestProvision.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordAuth(op, outcome string) {
	c.auth.WithLabelValues(op, outcome).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ Recorder = Nop{}
	_ Recorder = (*Collector)(nil)
)
