package application

import (
	"time"

	"github.com/sglre6355/harmonybot/internal/modules/general/domain"
)

// LatencySource reports the gateway heartbeat latency. *discordgo.Session implements it.
type LatencySource interface {
	HeartbeatLatency() time.Duration
}

// PingInteractor handles the ping use case.
type PingInteractor struct {
	latency LatencySource
}

// NewPingInteractor creates a new PingInteractor. A nil source reports no latency.
func NewPingInteractor(latency LatencySource) *PingInteractor {
	return &PingInteractor{latency: latency}
}

// Execute performs the ping operation and returns the result.
func (p *PingInteractor) Execute() *domain.PingResult {
	var latency time.Duration
	if p.latency != nil {
		latency = p.latency.HeartbeatLatency()
	}
	return domain.NewPingResult(latency)
}
