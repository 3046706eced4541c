package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the core driver metrics, shared by every component of
// the process
type Metrics struct {
	// Driver metrics
	DriverStatus     *prometheus.GaugeVec
	OpsSubmitted     *prometheus.CounterVec
	OpsRejected      *prometheus.CounterVec
	OpsCompleted     *prometheus.CounterVec
	OpDuration       *prometheus.HistogramVec
	BytesTransferred *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSRTT        prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a Metrics instance with every core metric
func NewMetrics() *Metrics {
	return &Metrics{
		DriverStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "preempt",
				Subsystem: "driver",
				Name:      "status",
				Help:      "Driver lifecycle state (0=initial, 1=started, 2=shutdown, 3=stopped)",
			},
			[]string{"driver"},
		),

		OpsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "preempt",
				Subsystem: "ops",
				Name:      "submitted_total",
				Help:      "Total number of operations accepted for execution",
			},
			[]string{"driver", "type"},
		),

		OpsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "preempt",
				Subsystem: "ops",
				Name:      "rejected_total",
				Help:      "Total number of submissions rejected due to a full queue",
			},
			[]string{"driver"},
		),

		OpsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "preempt",
				Subsystem: "ops",
				Name:      "completed_total",
				Help:      "Total number of operations finished, by terminal status",
			},
			[]string{"driver", "type", "status"},
		),

		OpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "preempt",
				Subsystem: "ops",
				Name:      "duration_seconds",
				Help:      "Operation execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"driver", "type"},
		),

		BytesTransferred: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "preempt",
				Subsystem: "ops",
				Name:      "bytes_total",
				Help:      "Total payload bytes transferred",
			},
			[]string{"driver", "type"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "preempt",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "class"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "preempt",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "preempt",
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "preempt",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordDriverStatus updates the driver lifecycle gauge
func (m *Metrics) RecordDriverStatus(driver string, status int) {
	m.DriverStatus.WithLabelValues(driver).Set(float64(status))
}

// RecordOpSubmitted increments the submitted operation counter
func (m *Metrics) RecordOpSubmitted(driver, opType string) {
	m.OpsSubmitted.WithLabelValues(driver, opType).Inc()
}

// RecordOpRejected increments the queue-full rejection counter
func (m *Metrics) RecordOpRejected(driver string) {
	m.OpsRejected.WithLabelValues(driver).Inc()
}

// RecordOpCompleted increments the completed operation counter
func (m *Metrics) RecordOpCompleted(driver, opType, status string) {
	m.OpsCompleted.WithLabelValues(driver, opType, status).Inc()
}

// ObserveOpDuration records an operation execution time
func (m *Metrics) ObserveOpDuration(driver, opType string, duration time.Duration) {
	m.OpDuration.WithLabelValues(driver, opType).Observe(duration.Seconds())
}

// RecordBytesTransferred adds to the payload byte counter
func (m *Metrics) RecordBytesTransferred(driver, opType string, n int64) {
	m.BytesTransferred.WithLabelValues(driver, opType).Add(float64(n))
}

// RecordError increments the error counter
func (m *Metrics) RecordError(component, class string) {
	m.ErrorsTotal.WithLabelValues(component, class).Inc()
}

// RecordNATSStatus updates the NATS connection gauge
func (m *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	m.NATSConnected.Set(value)
}

// RecordNATSRTT updates the NATS round-trip time gauge
func (m *Metrics) RecordNATSRTT(rtt time.Duration) {
	m.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments the reconnection counter
func (m *Metrics) RecordNATSReconnect() {
	m.NATSReconnects.Inc()
}
