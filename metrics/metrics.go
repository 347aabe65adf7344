// Package metrics records request lifecycle counters and confirmation latency.
package metrics

import "time"

// Recorder labels are free-form; implementations read "operation".
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
