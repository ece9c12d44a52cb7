package handlers

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

// Metrics counts delivery outcomes. Exported in Prometheus text format
// without pulling in the client library; the counters are few enough to
// print by hand.
type Metrics struct {
	Received   atomic.Int64
	Processed  atomic.Int64
	Failed     atomic.Int64
	Rejected   atomic.Int64
	Duplicates atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

type MetricsHandler struct {
	metrics *Metrics
}

func NewMetricsHandler(metrics *Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

func (h *MetricsHandler) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	counter := func(name, help string, value int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
		fmt.Fprintf(w, "%s %d\n", name, value)
	}

	fmt.Fprint(w, "# HELP hookd_up Is the server up\n# TYPE hookd_up gauge\nhookd_up 1\n")
	counter("hookd_deliveries_received_total", "Webhook deliveries accepted for processing", h.metrics.Received.Load())
	counter("hookd_deliveries_processed_total", "Deliveries dispatched successfully", h.metrics.Processed.Load())
	counter("hookd_deliveries_failed_total", "Deliveries whose event handler failed", h.metrics.Failed.Load())
	counter("hookd_deliveries_rejected_total", "Deliveries rejected before dispatch", h.metrics.Rejected.Load())
	counter("hookd_deliveries_duplicate_total", "Replayed deliveries acknowledged without reprocessing", h.metrics.Duplicates.Load())
}
