package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shield_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shield_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})
)

// Moderation pipeline metrics
var (
	PlanDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shield_plan_decisions_total",
		Help: "Total number of escalation plans produced",
	}, []string{"severity", "action"})

	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shield_actions_total",
		Help: "Total number of action tags processed",
	}, []string{"tag", "status"})

	JobsEnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shield_jobs_enqueued_total",
		Help: "Total number of jobs enqueued",
	}, []string{"job_type", "status"})

	BehaviorUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shield_behavior_updates_total",
		Help: "Total number of behavior record upserts",
	}, []string{"status"})

	EmergencyEscalationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shield_emergency_escalations_total",
		Help: "Total number of emergency escalations",
	})
)

// Business metrics (gauges updated periodically by collector)
var (
	TrackedUsersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shield_tracked_users_total",
		Help: "Total number of tracked user behavior records",
	})

	MutedUsersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shield_muted_users_total",
		Help: "Number of currently muted users",
	})

	BlockedUsersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shield_blocked_users_total",
		Help: "Number of currently blocked users",
	})

	RecordedActionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shield_recorded_actions_total",
		Help: "Total number of recorded moderation actions",
	})
)

// NormalizePath reduces high-cardinality path labels by replacing dynamic
// segments with placeholders. This keeps the metric label space bounded.
func NormalizePath(path string) string {
	segments := splitPath(path)
	if len(segments) < 2 {
		return path
	}

	if segments[0] == "api" && segments[1] == "organizations" && len(segments) >= 3 {
		// /api/organizations/{org}/..., normalize the org segment and drop
		// anything past the resource name
		if len(segments) == 3 {
			return "/api/organizations/:org"
		}
		return "/api/organizations/:org/" + segments[3]
	}

	return path
}

func splitPath(path string) []string {
	// Skip leading slash
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	// Split on /
	var segments []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if i > start {
				segments = append(segments, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		segments = append(segments, path[start:])
	}
	return segments
}
