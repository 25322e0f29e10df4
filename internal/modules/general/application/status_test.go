package application

import (
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/general/domain"
)

type fixedGateway domain.GatewayStatus

func (f fixedGateway) GatewayStatus() domain.GatewayStatus { return domain.GatewayStatus(f) }

func TestStatusInteractor_Gateway(t *testing.T) {
	s := NewStatusInteractor(fixedGateway{Connected: true, Guilds: 3}, "dev", time.Time{})

	status := s.Gateway()
	if status.State() != "online" || status.Guilds != 3 {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestStatusInteractor_NilGateway(t *testing.T) {
	s := NewStatusInteractor(nil, "dev", time.Time{})

	if s.Gateway().State() != "offline" {
		t.Error("expected offline without a gateway")
	}
}

func TestStatusInteractor_Runtime(t *testing.T) {
	started := time.Now().Add(-90 * time.Second)
	s := NewStatusInteractor(nil, "v2", started)

	rt := s.Runtime()
	if rt.Version != "v2" || !rt.StartedAt.Equal(started) {
		t.Errorf("unexpected runtime: %+v", rt)
	}
	if rt.Goroutines < 1 || rt.HeapSys == 0 || rt.Platform == "" {
		t.Errorf("expected process statistics, got %+v", rt)
	}
	if up := rt.Uptime(started.Add(90*time.Second + 400*time.Millisecond)); up != 90*time.Second {
		t.Errorf("expected 90s uptime, got %v", up)
	}
}

type fixedDirectory struct{ err error }

func (f fixedDirectory) Server(guildID snowflake.ID) (*domain.ServerInfo, error) {
	return &domain.ServerInfo{ID: guildID}, f.err
}

func (f fixedDirectory) Channels(snowflake.ID) ([]domain.ServerChannel, error) {
	return nil, f.err
}

func TestServerInteractor(t *testing.T) {
	info, err := NewServerInteractor(fixedDirectory{}).Server(5)
	if err != nil || info.ID != 5 {
		t.Errorf("unexpected result: %+v, %v", info, err)
	}

	boom := errors.New("boom")
	if _, err := NewServerInteractor(fixedDirectory{err: boom}).Channels(5); !errors.Is(err, boom) {
		t.Errorf("expected directory error, got %v", err)
	}

	if _, err := NewServerInteractor(nil).Server(5); !errors.Is(err, domain.ErrServerNotFound) {
		t.Errorf("expected ErrServerNotFound, got %v", err)
	}
	if _, err := NewServerInteractor(nil).Channels(5); !errors.Is(err, domain.ErrServerNotFound) {
		t.Errorf("expected ErrServerNotFound, got %v", err)
	}
}
