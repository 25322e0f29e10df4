package domain

import "time"

// GatewayStatus is a point-in-time view of the Discord connection.
type GatewayStatus struct {
	Connected bool
	Latency   time.Duration
	ReadyAt   time.Time // Zero until the first READY
	Guilds    int
	Channels  int
	Members   int // Sum of member counts across guilds
}

// State reports "online" or "offline".
func (s GatewayStatus) State() string {
	if s.Connected {
		return "online"
	}
	return "offline"
}

// RuntimeStatus describes the bot process.
type RuntimeStatus struct {
	Version    string
	StartedAt  time.Time
	Goroutines int
	HeapAlloc  uint64
	HeapSys    uint64
	Platform   string
}

// Uptime returns the time since start, truncated to seconds.
func (r RuntimeStatus) Uptime(now time.Time) time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(r.StartedAt).Truncate(time.Second)
}
