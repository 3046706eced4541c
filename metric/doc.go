// Package metric provides Prometheus-based metrics collection and an HTTP
// server for driver monitoring.
//
// The package offers a centralized registry managing both core driver
// metrics (operation throughput, durations, NATS health) and
// component-specific metrics registered at runtime. A small HTTP server
// exposes everything in Prometheus format.
//
// # Basic Usage
//
// Setting up metrics collection and the HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("metrics server error: %v", err)
//	    }
//	}()
//	defer server.Stop(context.Background())
//
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordOpSubmitted("nats", "create")
//	coreMetrics.ObserveOpDuration("nats", "create", 12*time.Millisecond)
//
// # Component Metrics
//
// Components register their own collectors through the MetricsRegistrar
// interface:
//
//	depth := prometheus.NewGauge(prometheus.GaugeOpts{
//	    Name: "nats_queue_depth",
//	    Help: "Current submission queue depth",
//	})
//	err := registry.RegisterGauge("worker_pool", "nats_queue_depth", depth)
//
// Registration fails on duplicate names; Unregister removes a collector.
// All registry operations are safe for concurrent use.
//
// Core metrics use the namespace "preempt" with subsystems per concern:
//
//   - preempt_driver_status{driver="..."}
//   - preempt_ops_submitted_total{driver="...",type="..."}
//   - preempt_ops_completed_total{driver="...",type="...",status="..."}
//   - preempt_ops_duration_seconds{driver="...",type="..."}
//   - preempt_nats_connected
//
// The registry wraps a private prometheus.Registry so nothing leaks into
// the default global registry, which keeps tests independent.
package metric
