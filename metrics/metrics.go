// Package metrics defines the instrumentation contract for the transfer flow.
package metrics

import "time"

// Recorder counts flow events and observes per-stage latencies.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
