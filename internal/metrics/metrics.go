package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WatchQueueLength tracks the number of addresses scheduled for polling
	WatchQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mychain_dash_watch_queue_length",
		Help: "The number of addresses currently in the watch queue",
	})

	// WorkersActive tracks the number of active workers
	WorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mychain_dash_workers_active",
		Help: "The number of workers currently active",
	})

	// ChainRequestsTotal tracks REST requests to the chain by endpoint and status
	ChainRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mychain_dash_chain_requests_total",
			Help: "The total number of chain REST requests",
		},
		[]string{"endpoint", "status"}, // success, unreachable, http_<code>, decode_error
	)

	// ChainEndpointHealth tracks REST endpoint health
	ChainEndpointHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mychain_dash_chain_endpoint_health",
			Help: "Health status of chain REST endpoints (1 = healthy, 0 = unhealthy)",
		},
		[]string{"endpoint"},
	)

	// SnapshotPollSeconds tracks time taken to poll one portfolio snapshot
	SnapshotPollSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mychain_dash_snapshot_poll_seconds",
		Help:    "Time taken to poll a portfolio snapshot in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	})

	// SnapshotPartErrors tracks snapshot parts that could not be fetched
	SnapshotPartErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mychain_dash_snapshot_part_errors_total",
			Help: "The total number of snapshot parts that failed to load",
		},
		[]string{"part"},
	)

	// PurchasesParsed tracks parser outcomes
	PurchasesParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mychain_dash_purchases_parsed_total",
			Help: "The total number of transaction results run through the purchase parser",
		},
		[]string{"status"}, // success, tx_failed, malformed
	)

	// TxBroadcasts tracks signed transactions submitted to the chain
	TxBroadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mychain_dash_tx_broadcasts_total",
			Help: "The total number of broadcast transactions by message type and status",
		},
		[]string{"type_url", "status"},
	)

	// DatabaseOperations tracks journal operations
	DatabaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mychain_dash_database_operations_total",
			Help: "The total number of database operations",
		},
		[]string{"operation", "status"},
	)

	// ProxyRequests tracks requests forwarded by the reverse proxy
	ProxyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mychain_dash_proxy_requests_total",
			Help: "The total number of proxied requests",
		},
		[]string{"method", "status"},
	)

	// APIRequests tracks requests served by the dashboard API
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mychain_dash_api_requests_total",
			Help: "The total number of dashboard API requests",
		},
		[]string{"method", "status"},
	)

	// MockRequests tracks requests served by the mock API
	MockRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mychain_dash_mock_requests_total",
			Help: "The total number of mock API requests",
		},
		[]string{"result"}, // hit, miss, preflight
	)

	// WorkerTaskDuration tracks how long workers spend on tasks
	WorkerTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mychain_dash_worker_task_duration_seconds",
			Help:    "Time taken by workers to complete tasks",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type", "worker_id"},
	)
)

// RecordChainRequest records a chain REST request with the given status
func RecordChainRequest(endpoint, status string) {
	ChainRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// SetChainEndpointHealth sets the health status of a REST endpoint
func SetChainEndpointHealth(endpoint string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	ChainEndpointHealth.WithLabelValues(endpoint).Set(value)
}

// RecordSnapshotPoll records the time taken to poll a snapshot
func RecordSnapshotPoll(duration float64) {
	SnapshotPollSeconds.Observe(duration)
}

// RecordSnapshotPartError records a snapshot part that failed to load
func RecordSnapshotPartError(part string) {
	SnapshotPartErrors.WithLabelValues(part).Inc()
}

// RecordPurchaseParsed records a parser outcome
func RecordPurchaseParsed(status string) {
	PurchasesParsed.WithLabelValues(status).Inc()
}

// RecordBroadcast records a broadcast attempt
func RecordBroadcast(typeURL, status string) {
	TxBroadcasts.WithLabelValues(typeURL, status).Inc()
}

// RecordDatabaseOperation records a database operation
func RecordDatabaseOperation(operation, status string) {
	DatabaseOperations.WithLabelValues(operation, status).Inc()
}

// RecordProxyRequest records a proxied request and its response status
func RecordProxyRequest(method string, status int) {
	ProxyRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// RecordAPIRequest records a dashboard API request and its response status
func RecordAPIRequest(method string, status int) {
	APIRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// RecordMockRequest records a mock API request
func RecordMockRequest(result string) {
	MockRequests.WithLabelValues(result).Inc()
}

// RecordWorkerTaskDuration records the time taken by a worker to complete a task
func RecordWorkerTaskDuration(taskType, workerID string, duration float64) {
	WorkerTaskDuration.WithLabelValues(taskType, workerID).Observe(duration)
}
