// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mediahub"

var (
	// ProviderOperationsTotal tracks storage backend operations.
	// Labels:
	//   - provider: object_store, gateway, cdn_zone
	//   - operation: upload, resolve, delete
	//   - status: success, error
	ProviderOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_operations_total",
			Help:      "Total number of storage provider operations",
		},
		[]string{"provider", "operation", "status"},
	)

	// UploadBytesTotal tracks bytes uploaded per provider.
	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Total number of bytes uploaded to storage providers",
		},
		[]string{"provider"},
	)

	// UploadDuration tracks end-to-end upload latency per provider.
	UploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Upload duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"provider"},
	)

	// MigrationsTotal tracks migration outcomes.
	// Labels:
	//   - status: completed, failed, orphaned
	MigrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_total",
			Help:      "Total number of video migrations by outcome",
		},
		[]string{"status"},
	)

	// CacheOperationsTotal tracks cache operations.
	// Labels:
	//   - operation: get, set, delete
	//   - status: hit, miss, success, error
	//   - cache_type: settings, content
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status", "cache_type"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)
)

// Provider operation constants.
const (
	OpUpload  = "upload"
	OpResolve = "resolve"
	OpDelete  = "delete"
)

// Operation status constants.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Migration outcome constants.
const (
	MigrationCompleted = "completed"
	MigrationFailed    = "failed"
	MigrationOrphaned  = "orphaned"
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet    = "get"
	CacheOpSet    = "set"
	CacheOpDelete = "delete"
)

// Cache type constants.
const (
	CacheTypeSettings = "settings"
	CacheTypeContent  = "content"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)
