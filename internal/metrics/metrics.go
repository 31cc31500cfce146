package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventbridge_events_enqueued_total",
		Help: "Total number of events placed on the processing queue.",
	})

	EventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventbridge_events_processed_total",
		Help: "Total number of events fully processed by the engine.",
	})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventbridge_events_dropped_total",
		Help: "Total number of events rejected due to a full queue.",
	})

	EventsRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventbridge_events_routed_total",
		Help: "Total number of events matched to a route, labelled by route name.",
	}, []string{"route"})

	FallbackDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventbridge_fallback_decisions_total",
		Help: "Total number of unmatched events, labelled by fallback outcome.",
	}, []string{"outcome"})

	RoutingFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventbridge_routing_failures_total",
		Help: "Total number of events that failed routing (fallback behavior 'error').",
	})

	MappingErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventbridge_mapping_errors_total",
		Help: "Total number of per-field mapping errors recorded during transformation.",
	})

	RulesMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventbridge_rules_matched_total",
		Help: "Total number of events with a transformation rule for their type.",
	})

	RulesUnmatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventbridge_rules_unmatched_total",
		Help: "Total number of events with no transformation rule configured.",
	})

	ConfigReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventbridge_config_reloads_total",
		Help: "Total number of routing config reload attempts, labelled by status.",
	}, []string{"status"})

	EventProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eventbridge_event_processing_duration_ms",
		Help:    "End-to-end event processing latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eventbridge_queue_utilization_ratio",
		Help: "Current event queue utilization (0–1).",
	})
)
