package notify

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts reminder traffic.
type Metrics struct {
	Scheduled prometheus.Counter
	Cancelled prometheus.Counter
	Delivered *prometheus.CounterVec
	Failed    *prometheus.CounterVec
	Pending   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Scheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tudinho",
			Name:      "reminders_scheduled_total",
			Help:      "Reminders registered with the scheduler.",
		}),
		Cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tudinho",
			Name:      "reminders_cancelled_total",
			Help:      "Pending reminders cancelled before firing.",
		}),
		Delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tudinho",
			Name:      "reminders_delivered_total",
			Help:      "Reminders delivered, by sink.",
		}, []string{"sink"}),
		Failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tudinho",
			Name:      "reminders_failed_total",
			Help:      "Reminder deliveries that failed, by sink.",
		}, []string{"sink"}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tudinho",
			Name:      "reminders_pending",
			Help:      "Reminders waiting to fire.",
		}),
	}
	reg.MustRegister(m.Scheduled, m.Cancelled, m.Delivered, m.Failed, m.Pending)
	return m
}
