package application

import (
	"runtime"
	"time"

	"github.com/sglre6355/harmonybot/internal/modules/general/domain"
)

// GatewaySource reports the state of the Discord connection.
type GatewaySource interface {
	GatewayStatus() domain.GatewayStatus
}

// StatusInteractor reports gateway and process status for the dashboard.
type StatusInteractor struct {
	gateway   GatewaySource
	version   string
	startedAt time.Time
}

// NewStatusInteractor creates a new StatusInteractor. A nil gateway reports offline.
func NewStatusInteractor(gateway GatewaySource, version string, startedAt time.Time) *StatusInteractor {
	return &StatusInteractor{
		gateway:   gateway,
		version:   version,
		startedAt: startedAt,
	}
}

// Gateway returns the current gateway status.
func (s *StatusInteractor) Gateway() domain.GatewayStatus {
	if s.gateway == nil {
		return domain.GatewayStatus{}
	}
	return s.gateway.GatewayStatus()
}

// Runtime returns process statistics.
func (s *StatusInteractor) Runtime() domain.RuntimeStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return domain.RuntimeStatus{
		Version:    s.version,
		StartedAt:  s.startedAt,
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  mem.HeapAlloc,
		HeapSys:    mem.HeapSys,
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}
