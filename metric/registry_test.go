package metric

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered reports whether the registry currently exposes a metric family
// with the given name
func gathered(t *testing.T, registry *MetricsRegistry, name string) bool {
	t.Helper()
	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	for _, mf := range metricFamilies {
		if mf.GetName() == name {
			return true
		}
	}
	return false
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())

	// Core driver metrics are pre-registered
	registry.CoreMetrics().RecordOpSubmitted("nats", "create")
	assert.True(t, gathered(t, registry, "preempt_ops_submitted_total"))
}

func TestMetricsRegistry_RegisterCollectors(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})
	require.NoError(t, registry.RegisterCounter("test-driver", "test_counter", counter))
	counter.Inc()
	assert.True(t, gathered(t, registry, "test_counter"))

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "A test gauge",
	})
	require.NoError(t, registry.RegisterGauge("test-driver", "test_gauge", gauge))
	gauge.Set(42.0)
	assert.True(t, gathered(t, registry, "test_gauge"))

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_histogram",
		Help:    "A test histogram",
		Buckets: prometheus.DefBuckets,
	})
	require.NoError(t, registry.RegisterHistogram("test-driver", "test_histogram", histogram))
	histogram.Observe(1.5)
	assert.True(t, gathered(t, registry, "test_histogram"))

	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_counter_vec",
		Help: "A labeled test counter",
	}, []string{"type"})
	require.NoError(t, registry.RegisterCounterVec("test-driver", "test_counter_vec", counterVec))
	counterVec.WithLabelValues("read").Inc()
	assert.True(t, gathered(t, registry, "test_counter_vec"))

	gaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "test_gauge_vec",
		Help: "A labeled test gauge",
	}, []string{"type"})
	require.NoError(t, registry.RegisterGaugeVec("test-driver", "test_gauge_vec", gaugeVec))

	histogramVec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "test_histogram_vec",
		Help: "A labeled test histogram",
	}, []string{"type"})
	require.NoError(t, registry.RegisterHistogramVec("test-driver", "test_histogram_vec", histogramVec))
}

func TestMetricsRegistry_DuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dup_counter",
		Help: "A test counter",
	})
	require.NoError(t, registry.RegisterCounter("test-driver", "dup_counter", counter))

	other := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dup_counter",
		Help: "A test counter",
	})
	err := registry.RegisterCounter("test-driver", "dup_counter", other)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "temp_counter",
		Help: "A test counter",
	})
	require.NoError(t, registry.RegisterCounter("test-driver", "temp_counter", counter))

	assert.True(t, registry.Unregister("test-driver", "temp_counter"))
	assert.False(t, gathered(t, registry, "temp_counter"))

	// Second removal reports not found
	assert.False(t, registry.Unregister("test-driver", "temp_counter"))
	assert.False(t, registry.Unregister("test-driver", "never_registered"))

	// The name is free for re-registration
	again := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "temp_counter",
		Help: "A test counter",
	})
	assert.NoError(t, registry.RegisterCounter("test-driver", "temp_counter", again))
}

func TestMetricsRegistry_ConcurrentRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", n),
				Help: "A test counter",
			})
			assert.NoError(t, registry.RegisterCounter("test-driver",
				fmt.Sprintf("concurrent_counter_%d", n), counter))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		assert.True(t, gathered(t, registry, fmt.Sprintf("concurrent_counter_%d", i)))
	}
}

func TestCoreMetricsRecording(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	core.RecordDriverStatus("nats", 1)
	core.RecordOpSubmitted("nats", "create")
	core.RecordOpRejected("nats")
	core.RecordOpCompleted("nats", "create", "succ")
	core.ObserveOpDuration("nats", "create", 15*time.Millisecond)
	core.RecordBytesTransferred("nats", "create", 4096)
	core.RecordError("driver", "transient")
	core.RecordNATSStatus(true)
	core.RecordNATSRTT(2 * time.Millisecond)
	core.RecordNATSReconnect()

	for _, name := range []string{
		"preempt_driver_status",
		"preempt_ops_submitted_total",
		"preempt_ops_rejected_total",
		"preempt_ops_completed_total",
		"preempt_ops_duration_seconds",
		"preempt_ops_bytes_total",
		"preempt_errors_total",
		"preempt_nats_connected",
		"preempt_nats_rtt_milliseconds",
		"preempt_nats_reconnects_total",
	} {
		assert.True(t, gathered(t, registry, name), "missing %s", name)
	}
}

func TestServerDefaults(t *testing.T) {
	registry := NewMetricsRegistry()

	server := NewServer(0, "", registry)
	assert.Equal(t, 9090, server.port)
	assert.Equal(t, "/metrics", server.path)
}
