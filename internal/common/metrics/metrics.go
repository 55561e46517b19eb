package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Pipeline struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	Submitted      prometheus.Counter
	SubmitFailures prometheus.Counter
	Completed      prometheus.Counter
	Conflicts      prometheus.Counter
	DraftErrors    *prometheus.CounterVec
	FeedSignals    prometheus.Counter
	SentOrders     prometheus.Gauge
}

// New builds the collectors and registers them on reg when it is not nil.
func New(reg prometheus.Registerer, service string) *Pipeline {
	p := &Pipeline{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos",
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pos",
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		Submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos", Subsystem: service,
			Name: "orders_submitted_total", Help: "Orders handed to the shared queue.",
		}),
		SubmitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos", Subsystem: service,
			Name: "order_submit_failures_total", Help: "Submissions rolled back.",
		}),
		Completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos", Subsystem: service,
			Name: "orders_completed_total", Help: "sent -> completed transitions won.",
		}),
		Conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos", Subsystem: service,
			Name: "order_complete_conflicts_total", Help: "Completions lost to another station.",
		}),
		DraftErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pos", Subsystem: service,
			Name: "draft_errors_total", Help: "Draft persistence failures by operation.",
		}, []string{"op"}),
		FeedSignals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pos", Subsystem: service,
			Name: "feed_signals_total", Help: "Change notifications received.",
		}),
		SentOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pos", Subsystem: service,
			Name: "sent_orders", Help: "Orders waiting in the last refreshed view.",
		}),
	}
	if reg != nil {
		reg.MustRegister(p.Requests, p.LatencyMS, p.Submitted, p.SubmitFailures,
			p.Completed, p.Conflicts, p.DraftErrors, p.FeedSignals, p.SentOrders)
	}
	return p
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
