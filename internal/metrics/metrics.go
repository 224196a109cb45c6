// Package metrics provides Prometheus instrumentation for the registration platform.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coopcentral",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coopcentral",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// RegistrationsTotal counts registration submissions by type and outcome.
	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coopcentral",
			Name:      "registrations_total",
			Help:      "Total registration submissions by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	// GatewayRequestsTotal counts payment gateway calls by provider, call, and result.
	GatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coopcentral",
			Name:      "gateway_requests_total",
			Help:      "Total payment gateway calls by provider, call, and result.",
		},
		[]string{"provider", "call", "result"},
	)

	// GatewayRequestDuration observes gateway call latency.
	GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coopcentral",
			Name:      "gateway_request_duration_seconds",
			Help:      "Payment gateway call duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"provider", "call"},
	)

	// ProvisioningTotal counts provisioning transactions by result.
	ProvisioningTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coopcentral",
			Name:      "provisioning_total",
			Help:      "Total provisioning transactions by result.",
		},
		[]string{"result"},
	)

	// ProvisioningFailedAfterCapture counts the serious case: payment
	// captured but entity creation failed. Alert on any increase.
	ProvisioningFailedAfterCapture = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coopcentral",
			Name:      "provisioning_failed_after_capture_total",
			Help:      "Provisioning failures after a payment was captured (requires manual reconciliation).",
		},
	)

	// NotificationsTotal counts notification dispatches by channel and result.
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coopcentral",
			Name:      "notifications_total",
			Help:      "Total notification dispatches by channel and result.",
		},
		[]string{"channel", "result"},
	)

	// AllocationUpdatesTotal counts allocation settings updates by result.
	AllocationUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coopcentral",
			Name:      "allocation_updates_total",
			Help:      "Total allocation settings updates by result.",
		},
		[]string{"result"},
	)

	// PendingRegistrationsStuck tracks registrations stuck PENDING past the sweep age.
	PendingRegistrationsStuck = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coopcentral",
		Name:      "pending_registrations_stuck",
		Help:      "Registrations still PENDING past the configured sweep age.",
	})

	// ActiveWebSocketClients tracks connected WebSocket clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "coopcentral",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coopcentral", Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBIdleConnections tracks idle database connections.
	DBIdleConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coopcentral", Name: "db_idle_connections",
		Help: "Number of idle database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coopcentral", Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coopcentral", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RegistrationsTotal,
		GatewayRequestsTotal,
		GatewayRequestDuration,
		ProvisioningTotal,
		ProvisioningFailedAfterCapture,
		NotificationsTotal,
		AllocationUpdatesTotal,
		PendingRegistrationsStuck,
		ActiveWebSocketClients,
		DBOpenConnections,
		DBIdleConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBIdleConnections.Set(float64(stats.Idle))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
