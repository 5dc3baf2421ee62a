// Package metrics provides custom Prometheus metrics for the station service.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it rather than on concrete metric types so tests can
// substitute their own implementation.
type Recorder interface {
	// RecordOperation records an operation with its status (e.g. "nearest", "found").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its type.
	// The errorType parameter is usually an error category such as "network".
	RecordError(operation, errorType string)
}

// NoOpRecorder is a no-op implementation of the Recorder interface.
// It is used when metrics recording is not needed.
type NoOpRecorder struct{}

// RecordOperation does nothing.
func (n *NoOpRecorder) RecordOperation(operation, status string) {}

// RecordDuration does nothing.
func (n *NoOpRecorder) RecordDuration(operation string, seconds float64) {}

// RecordError does nothing.
func (n *NoOpRecorder) RecordError(operation, errorType string) {}

// NewNoOpRecorder creates a new no-op recorder instance.
func NewNoOpRecorder() *NoOpRecorder {
	return &NoOpRecorder{}
}
