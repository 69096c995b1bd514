package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrmatrix_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// PermissionChecks counts permission evaluations and their outcome (allow|deny).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrmatrix_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"permission", "result"},
	)

	// Invitations counts invitation lifecycle events (issued|accepted|rejected|email_failed).
	Invitations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrmatrix_invitations_total",
			Help: "Invitation lifecycle events",
		},
		[]string{"event"},
	)

	// PendingInvitations tracks unexpired invitations awaiting redemption.
	PendingInvitations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hrmatrix_pending_invitations",
			Help: "Number of pending, unexpired invitations",
		},
	)

	// CVUploads counts CV upload outcomes (stored|rejected|failed).
	CVUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrmatrix_cv_uploads_total",
			Help: "CV upload outcomes",
		},
		[]string{"result"},
	)

	// MaintenanceRuns counts background job runs by job and result (success|failure).
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrmatrix_maintenance_runs_total",
			Help: "Background maintenance job runs",
		},
		[]string{"job", "result"},
	)

	// HTTPInFlight is the number of requests currently being served.
	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hrmatrix_http_requests_in_flight",
			Help: "Requests currently being served",
		},
	)

	// APILatency measures HTTP request latencies by route template.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hrmatrix_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
