package mailer

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts mail deliveries. A nil *Metrics records nothing.
type Metrics struct {
	Sent    prometheus.Counter
	Failed  prometheus.Counter
	Queued  prometheus.Counter
	Dropped prometheus.Counter
}

// NewMetrics creates the mail counters and registers them with reg when it
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pragmatic",
			Subsystem: "mail",
			Name:      "sent_total",
			Help:      "Total number of mails delivered",
		}),
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pragmatic",
			Subsystem: "mail",
			Name:      "failed_total",
			Help:      "Total number of mails that could not be delivered",
		}),
		Queued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pragmatic",
			Subsystem: "mail",
			Name:      "queued_total",
			Help:      "Total number of mails handed to a background job runner",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pragmatic",
			Subsystem: "mail",
			Name:      "dropped_total",
			Help:      "Total number of mails rejected by a background job runner",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Sent, m.Failed, m.Queued, m.Dropped)
	}

	return m
}

func (m *Metrics) sent() {
	if m != nil {
		m.Sent.Inc()
	}
}

func (m *Metrics) failed() {
	if m != nil {
		m.Failed.Inc()
	}
}

func (m *Metrics) queued() {
	if m != nil {
		m.Queued.Inc()
	}
}

func (m *Metrics) dropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}
