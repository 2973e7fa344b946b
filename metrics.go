package vaultflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks transaction step and balance read outcomes.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	steps        *prometheus.CounterVec
	reads        *prometheus.CounterVec
	confirmation *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaultflow",
			Name:      "plan_steps_total",
			Help:      "Transaction plan steps by plan, step and result.",
		}, []string{"plan", "step", "result"}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaultflow",
			Name:      "balance_reads_total",
			Help:      "Balance field reads by field and result.",
		}, []string{"field", "result"}),
		confirmation: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vaultflow",
			Name:      "step_confirmation_seconds",
			Help:      "Time from submission to confirmation of a plan step.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"plan", "step"}),
	}

	for _, c := range []prometheus.Collector{m.steps, m.reads, m.confirmation} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeStep(plan, step, result string) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(plan, step, result).Inc()
}

func (m *Metrics) observeConfirmation(plan, step string, d time.Duration) {
	if m == nil {
		return
	}
	m.confirmation.WithLabelValues(plan, step).Observe(d.Seconds())
}

func (m *Metrics) observeRead(field Field, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reads.WithLabelValues(string(field), result).Inc()
}
