package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures telemetry events emitted by the poll engine.
//
// Implementations should be inexpensive to call because hooks run inline
// with the poll cycle.
type Collector interface {
	IncProviderCall(location string)
	IncFetchFailure(location string)
	IncStaleRejected(device string)
	IncOfflineEvent(device, reason string)
	SetQuotaRemaining(remaining int)
	ObserveCycleDuration(seconds float64)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncProviderCall(string)          {}
func (noopCollector) IncFetchFailure(string)          {}
func (noopCollector) IncStaleRejected(string)         {}
func (noopCollector) IncOfflineEvent(string, string)  {}
func (noopCollector) SetQuotaRemaining(int)           {}
func (noopCollector) ObserveCycleDuration(float64)    {}

// PrometheusCollector exposes poll-engine counters via Prometheus.
type PrometheusCollector struct {
	providerCalls  *prometheus.CounterVec
	fetchFailures  *prometheus.CounterVec
	staleRejected  *prometheus.CounterVec
	offlineEvents  *prometheus.CounterVec
	quotaRemaining prometheus.Gauge
	cycleDuration  prometheus.Histogram
}

// NewPrometheusCollector registers the engine metrics with the provided
// registerer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &PrometheusCollector{
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stationwatch_provider_calls_total",
			Help: "Number of provider API calls made, per location.",
		}, []string{"location"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stationwatch_fetch_failures_total",
			Help: "Number of failed provider fetches, per location.",
		}, []string{"location"}),
		staleRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stationwatch_stale_rejected_total",
			Help: "Number of observations rejected for carrying an old epoch, per device.",
		}, []string{"device"}),
		offlineEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stationwatch_offline_events_total",
			Help: "Number of offline trigger events emitted, per device and reason.",
		}, []string{"device", "reason"}),
		quotaRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stationwatch_quota_remaining",
			Help: "Provider API calls remaining in today's budget.",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stationwatch_cycle_duration_seconds",
			Help:    "Wall time of one poll cycle.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	collectors := []prometheus.Collector{
		c.providerCalls, c.fetchFailures, c.staleRejected,
		c.offlineEvents, c.quotaRemaining, c.cycleDuration,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return c, nil
}

func (p *PrometheusCollector) IncProviderCall(location string) {
	p.providerCalls.WithLabelValues(location).Inc()
}

func (p *PrometheusCollector) IncFetchFailure(location string) {
	p.fetchFailures.WithLabelValues(location).Inc()
}

func (p *PrometheusCollector) IncStaleRejected(device string) {
	p.staleRejected.WithLabelValues(device).Inc()
}

func (p *PrometheusCollector) IncOfflineEvent(device, reason string) {
	p.offlineEvents.WithLabelValues(device, reason).Inc()
}

func (p *PrometheusCollector) SetQuotaRemaining(remaining int) {
	p.quotaRemaining.Set(float64(remaining))
}

func (p *PrometheusCollector) ObserveCycleDuration(seconds float64) {
	p.cycleDuration.Observe(seconds)
}
