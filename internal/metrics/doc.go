// Package metrics aggregates breaker events.
//
// The Collector implements event.Logger: Log hands the event to a buffered
// channel without blocking and a dedicated goroutine folds it into the
// in-memory Metrics and, when configured, into Prometheus series.
//
// Example usage:
//
//	prom := metrics.NewPrometheus()
//	collector := metrics.NewCollector(1000, logger, metrics.WithPrometheus(prom))
//	collector.Start(ctx)
//
//	engine := circuitbreaker.NewEngine(store, finder,
//		circuitbreaker.WithEventLogger(collector))
//
//	mux.Handle("GET /admin/events", collector.Handler())
//	mux.Handle("GET /metrics/prometheus", prom.Handler())
//
// Events that arrive while the buffer is full are dropped and counted. On
// shutdown the collector drains what is still buffered.
package metrics
