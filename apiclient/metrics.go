package apiclient

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Refresh outcomes recorded by Metrics.RecordRefresh
const (
	RefreshSucceeded = "success"
	RefreshFailed    = "failure"
	RefreshShared    = "shared"
	RefreshSkipped   = "skipped"
)

// Metrics receives client events. The zero client uses a no-op recorder.
type Metrics interface {
	RecordRequest(method string, status int, elapsed time.Duration)
	RecordRefresh(outcome string)
	RecordRetry()
	RecordSessionExpired()
	RecordMalformedResponse()
}

type noopMetrics struct{}

func (noopMetrics) RecordRequest(string, int, time.Duration) {}
func (noopMetrics) RecordRefresh(string)                     {}
func (noopMetrics) RecordRetry()                             {}
func (noopMetrics) RecordSessionExpired()                    {}
func (noopMetrics) RecordMalformedResponse()                 {}

// Collector is the Prometheus implementation of Metrics
type Collector struct {
	Requests  *prometheus.CounterVec
	Latency   *prometheus.HistogramVec
	Refreshes *prometheus.CounterVec
	Retries   prometheus.Counter
	Expired   prometheus.Counter
	Malformed prometheus.Counter
}

// NewCollector creates the client metrics and registers them with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "API requests by method and response status.",
		}, []string{"method", "status"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "api",
			Name:      "token_refreshes_total",
			Help:      "Session token refresh attempts by outcome.",
		}, []string{"outcome"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "api",
			Name:      "retries_total",
			Help:      "Requests resent after a token refresh.",
		}),
		Expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "api",
			Name:      "sessions_expired_total",
			Help:      "Unrecoverable 401 responses.",
		}),
		Malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "api",
			Name:      "malformed_responses_total",
			Help:      "HTML documents received where JSON was expected.",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.Requests, c.Latency, c.Refreshes, c.Retries, c.Expired, c.Malformed)
	}
	return c
}

func (c *Collector) RecordRequest(method string, status int, elapsed time.Duration) {
	c.Requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.Latency.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (c *Collector) RecordRefresh(outcome string) {
	c.Refreshes.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRetry() {
	c.Retries.Inc()
}

func (c *Collector) RecordSessionExpired() {
	c.Expired.Inc()
}

func (c *Collector) RecordMalformedResponse() {
	c.Malformed.Inc()
}
