// Package metrics exports session activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	auth "github.com/goliatone/go-restaurant-auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "restaurant_auth"

var statuses = []auth.SessionStatus{
	auth.StatusSignedOut,
	auth.StatusAuthenticating,
	auth.StatusSignedIn,
	auth.StatusAwaitingRoleSelection,
}

// Collector is an auth.ActivitySink that counts events and tracks the
// current session status.
type Collector struct {
	events      *prometheus.CounterVec
	transitions *prometheus.CounterVec
	status      *prometheus.GaugeVec
}

var _ auth.ActivitySink = (*Collector)(nil)

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Activity events by type and sign-in provider.",
		}, []string{"event", "provider"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session status transitions.",
		}, []string{"from", "to"}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_status",
			Help:      "1 for the current session status, 0 otherwise.",
		}, []string{"status"}),
	}

	reg.MustRegister(c.events, c.transitions, c.status)
	c.setStatus(auth.StatusSignedOut)
	return c
}

// Record implements auth.ActivitySink.
func (c *Collector) Record(_ context.Context, event auth.ActivityEvent) error {
	if event.EventType == auth.ActivityEventSessionChanged {
		c.transitions.WithLabelValues(string(event.FromStatus), string(event.ToStatus)).Inc()
		c.setStatus(event.ToStatus)
		return nil
	}

	provider := event.Provider
	if provider == "" {
		provider = "none"
	}
	c.events.WithLabelValues(string(event.EventType), provider).Inc()
	return nil
}

func (c *Collector) setStatus(current auth.SessionStatus) {
	for _, s := range statuses {
		v := 0.0
		if s == current {
			v = 1
		}
		c.status.WithLabelValues(string(s)).Set(v)
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
