// Package metrics records payment attempt counters and protocol latencies.
package metrics

import "time"

// Metric names used by the SDK.
const (
	PaymentAttempts = "payment_attempts"
	PaymentResults  = "payment_results"

	OperationAuthorize = "authorize"
	OperationStatus    = "status"
	OperationConfirm   = "confirm"
)

// Label keys.
const (
	LabelPaymentMethod = "payment_method"
	LabelResult        = "result"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Since observes the time elapsed from start under the given operation name.
func Since(r Recorder, name string, start time.Time, labels map[string]string) {
	if r == nil {
		return
	}
	r.ObserveLatency(name, time.Since(start), labels)
}

// NoopRecorder drops everything. It is the default recorder.
type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
