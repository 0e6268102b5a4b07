// Package metrics holds the process-wide Prometheus gauges and
// counters that sit above any single inference server session or
// pipeline node — active session count, pipeline queue depth — styled
// on Tutu-Engine's internal/infra/metrics, a flat file of promauto vars
// grouped by subsystem. Session-scoped request counters live next to
// the session in internal/infersrv/stats.go instead, since they need a
// *sessionStats receiver to record against.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions is the number of inference server sessions
	// currently open, incremented/decremented by create_session and
	// destroy_session.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "easydk",
		Name:      "active_sessions",
		Help:      "Number of currently open inference server sessions.",
	})

	// SessionsCreatedTotal and SessionsDestroyedTotal count session
	// lifecycle events, letting a dashboard catch a leak (created
	// diverging from destroyed) that ActiveSessions alone would only
	// show as "high", not "growing".
	SessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "easydk",
		Name:      "sessions_created_total",
		Help:      "Total inference server sessions created.",
	})
	SessionsDestroyedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "easydk",
		Name:      "sessions_destroyed_total",
		Help:      "Total inference server sessions destroyed.",
	})

	// PipelineNodeQueueDepth tracks how full a pipeline node's input
	// queue is, labeled by node name, so a saturated stage is visible
	// before it becomes a dropped-frame incident.
	PipelineNodeQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "easydk",
		Name:      "pipeline_node_queue_depth",
		Help:      "Number of frames currently queued on a pipeline node's input channel.",
	}, []string{"node"})
)

// ObservePipelineNodeQueueDepth sets PipelineNodeQueueDepth for node to
// depth (nodes with parallelism > 1 report the sum across their queues
// under a single node label).
func ObservePipelineNodeQueueDepth(node string, depth int) {
	PipelineNodeQueueDepth.WithLabelValues(node).Set(float64(depth))
}
