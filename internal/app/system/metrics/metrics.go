// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application counters. A nil *Metrics is valid and
// records nothing, which keeps handler tests free of registry setup.
type Metrics struct {
	reg *prometheus.Registry

	logins          *prometheus.CounterVec
	registrations   prometheus.Counter
	taskCompletions prometheus.Counter
	pointsAwarded   prometheus.Counter
	rsvps           *prometheus.CounterVec
	messages        prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "registrations_total",
			Help:      "Accounts created.",
		}),
		taskCompletions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "task_completions_total",
			Help:      "Tasks marked complete.",
		}),
		pointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "points_awarded_total",
			Help:      "Points credited to account balances.",
		}),
		rsvps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "event_rsvps_total",
			Help:      "RSVP toggles by resulting state.",
		}, []string{"state"}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hearth",
			Name:      "messages_posted_total",
			Help:      "Broadcast messages created.",
		}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.logins, m.registrations, m.taskCompletions, m.pointsAwarded, m.rsvps, m.messages,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Login(ok bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Registered() {
	if m != nil {
		m.registrations.Inc()
	}
}

// TaskCompleted counts a completion and the points it awarded.
func (m *Metrics) TaskCompleted(points int64) {
	if m == nil {
		return
	}
	m.taskCompletions.Inc()
	if points > 0 {
		m.pointsAwarded.Add(float64(points))
	}
}

func (m *Metrics) RSVP(attending bool) {
	if m == nil {
		return
	}
	state := "left"
	if attending {
		state = "joined"
	}
	m.rsvps.WithLabelValues(state).Inc()
}

func (m *Metrics) MessagePosted() {
	if m != nil {
		m.messages.Inc()
	}
}
