package domain

import (
	"fmt"
	"time"
)

// PingResult represents the result of a ping operation.
type PingResult struct {
	Message   string
	Latency   time.Duration // Gateway heartbeat round trip, zero if not measured yet
	Timestamp time.Time
}

// NewPingResult creates a new PingResult for the measured gateway latency.
func NewPingResult(latency time.Duration) *PingResult {
	return &PingResult{
		Message:   "Pong!",
		Latency:   latency,
		Timestamp: time.Now(),
	}
}

// LatencyText renders the latency in milliseconds.
func (r *PingResult) LatencyText() string {
	if r.Latency <= 0 {
		return "Gateway latency: not measured yet"
	}
	return fmt.Sprintf("Gateway latency: %dms", r.Latency.Milliseconds())
}
