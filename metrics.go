package logging

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "weblog"

// Metrics counts sink activity and logged requests. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	rotations       *prometheus.CounterVec
	bytesWritten    *prometheus.CounterVec
	writeErrors     *prometheus.CounterVec
	compressErrors  *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg. Passing a nil
// reg creates unregistered collectors, which is what most tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rotations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sink_rotations_total",
				Help:      "Number of log file rotations per channel",
			},
			[]string{"channel"},
		),
		bytesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sink_bytes_written_total",
				Help:      "Bytes appended to log files per channel",
			},
			[]string{"channel"},
		),
		writeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sink_write_errors_total",
				Help:      "Records that could not be written and went to the fallback channel",
			},
			[]string{"channel"},
		),
		compressErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sink_compress_errors_total",
				Help:      "Retired files that could not be compressed",
			},
			[]string{"channel"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "Requests seen by the correlation middleware",
			},
			[]string{"method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "Request duration as measured by the correlation middleware",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.rotations,
			m.bytesWritten,
			m.writeErrors,
			m.compressErrors,
			m.requests,
			m.requestDuration,
		)
	}
	return m
}

func (m *Metrics) rotated(channel string) {
	if m == nil {
		return
	}
	m.rotations.WithLabelValues(channel).Inc()
}

func (m *Metrics) wrote(channel string, n int) {
	if m == nil {
		return
	}
	m.bytesWritten.WithLabelValues(channel).Add(float64(n))
}

func (m *Metrics) writeFailed(channel string) {
	if m == nil {
		return
	}
	m.writeErrors.WithLabelValues(channel).Inc()
}

func (m *Metrics) compressFailed(channel string) {
	if m == nil {
		return
	}
	m.compressErrors.WithLabelValues(channel).Inc()
}

func (m *Metrics) observeRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}
