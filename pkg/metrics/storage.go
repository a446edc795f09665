package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StorageMetrics provides observability for storage operations.
//
// Implementations collect metrics about file operations (upload, download,
// archive, delete, list), their durations, outcomes and transferred bytes.
// The interface is optional - components given a no-op implementation pay
// zero overhead.
type StorageMetrics interface {
	// RecordOperation records a completed storage operation with its name,
	// duration and outcome.
	//
	// Parameters:
	//   - operation: Operation name (e.g. "upload", "download", "delete")
	//   - duration: Time taken to process the operation
	//   - err: Error if the operation failed, nil if successful
	RecordOperation(operation string, duration time.Duration, err error)

	// RecordBytesTransferred records bytes moved in or out of the storage
	// root.
	//
	// Parameters:
	//   - direction: "in" (uploads) or "out" (downloads, archives)
	//   - bytes: Number of bytes transferred
	RecordBytesTransferred(direction string, bytes int64)
}

// storageMetrics is the Prometheus implementation of StorageMetrics.
type storageMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTransferred  *prometheus.CounterVec
}

// NewStorageMetrics creates a Prometheus-backed StorageMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewStorageMetrics() StorageMetrics {
	if !IsEnabled() {
		return &noopStorageMetrics{}
	}

	factory := promauto.With(GetRegistry())

	return &storageMetrics{
		operationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stashd",
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Total number of storage operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stashd",
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Duration of storage operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		bytesTransferred: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stashd",
			Subsystem: "storage",
			Name:      "bytes_transferred_total",
			Help:      "Total bytes transferred in and out of the storage root.",
		}, []string{"direction"}),
	}
}

func (m *storageMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *storageMetrics) RecordBytesTransferred(direction string, bytes int64) {
	if bytes <= 0 {
		return
	}
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

// noopStorageMetrics is used when metrics collection is disabled.
type noopStorageMetrics struct{}

func (*noopStorageMetrics) RecordOperation(string, time.Duration, error) {}
func (*noopStorageMetrics) RecordBytesTransferred(string, int64)         {}
