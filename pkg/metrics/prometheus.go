package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	retriesTotal     *prometheus.CounterVec
	candlesMerged    *prometheus.CounterVec
	gapPeriods       *prometheus.CounterVec
	droppedRecords   *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		providerRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxpull_provider_requests_total",
				Help: "Total provider requests by outcome",
			},
			[]string{"provider", "outcome"},
		),
		providerLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxpull_provider_request_duration_seconds",
				Help:    "Provider request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		retriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxpull_provider_retries_total",
				Help: "Total provider retries after backoff",
			},
			[]string{"provider"},
		),
		candlesMerged: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxpull_candles_merged_total",
				Help: "Total candles merged into canonical series",
			},
			[]string{"instrument"},
		),
		gapPeriods: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxpull_gap_periods_total",
				Help: "Total periods recorded as gaps",
			},
			[]string{"instrument"},
		),
		droppedRecords: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxpull_dropped_records_total",
				Help: "Total malformed records dropped",
			},
			[]string{"kind"},
		),
		stageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxpull_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
			},
			[]string{"stage"},
		),
	}
}

// RecordProviderRequest records a provider request outcome.
func (r *Recorder) RecordProviderRequest(provider, outcome string) {
	r.providerRequests.WithLabelValues(provider, outcome).Inc()
}

// RecordProviderLatency records provider request latency in seconds.
func (r *Recorder) RecordProviderLatency(provider string, seconds float64) {
	r.providerLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordRetry records a retry after backoff.
func (r *Recorder) RecordRetry(provider string) {
	r.retriesTotal.WithLabelValues(provider).Inc()
}

// RecordCandlesMerged records candles merged for an instrument.
func (r *Recorder) RecordCandlesMerged(instrument string, n int) {
	r.candlesMerged.WithLabelValues(instrument).Add(float64(n))
}

// RecordGap records gap periods for an instrument.
func (r *Recorder) RecordGap(instrument string, periods int) {
	r.gapPeriods.WithLabelValues(instrument).Add(float64(periods))
}

// RecordDropped records dropped malformed records of a kind.
func (r *Recorder) RecordDropped(kind string, n int) {
	r.droppedRecords.WithLabelValues(kind).Add(float64(n))
}

// RecordStageDuration records a pipeline stage duration in seconds.
func (r *Recorder) RecordStageDuration(stage string, seconds float64) {
	r.stageDuration.WithLabelValues(stage).Observe(seconds)
}
