// Package monitoring reports failed class rows to an error tracker.
package monitoring

import "time"

// Monitor receives errors worth a human look, tagged with the run and
// class they belong to.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// Flush blocks until buffered events are sent or timeout expires.
	Flush(timeout time.Duration) bool
}

// NopMonitor drops every event.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Flush(time.Duration) bool                  { return true }
