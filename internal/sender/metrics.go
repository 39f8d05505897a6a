package sender

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the dispatcher's observation points.
type Metrics struct {
	RateLimited  prometheus.Counter
	DeadLettered prometheus.Counter
	SendSeconds  prometheus.Histogram
	LagSeconds   prometheus.Histogram
	Attempts     prometheus.Histogram
}

// NewMetrics registers the sender instruments with reg. The queue size gauge
// samples queue.Len on every scrape.
func NewMetrics(reg prometheus.Registerer, queue *ScheduledQueue) *Metrics {
	m := &Metrics{
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sender_rate_limited",
			Help: "Rate limited events count",
		}),
		DeadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sender_dead_lettered",
			Help: "Messages dropped after exhausting max attempts",
		}),
		SendSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "sender_send_time_seconds",
			Help: "Message sending time",
		}),
		LagSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sender_lag_seconds",
			Help:    "Sent message lag",
			Buckets: []float64{0.1, 0.2, 0.5, 1, 2, 5, 10, 20, 50, 100, 200},
		}),
		Attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sender_failed_attempts",
			Help:    "Failed attempts taken before successful send",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 7, 10, 15, 20, 30, 50, 70, 100},
		}),
	}

	queueSize := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "sender_queue_size",
		Help: "Send queue size in messages",
	}, func() float64 { return float64(queue.Len()) })

	reg.MustRegister(queueSize, m.RateLimited, m.DeadLettered, m.SendSeconds, m.LagSeconds, m.Attempts)
	return m
}
