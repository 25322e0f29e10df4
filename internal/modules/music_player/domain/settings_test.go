package domain

import (
	"errors"
	"testing"
)

func TestGuildSettings_Validate(t *testing.T) {
	tests := []struct {
		name     string
		settings GuildSettings
		wantErr  bool
	}{
		{name: "defaults", settings: *DefaultGuildSettings(1)},
		{name: "muted", settings: GuildSettings{DefaultVolume: 0, MaxQueueSize: 1}},
		{name: "volume too high", settings: GuildSettings{DefaultVolume: 101, MaxQueueSize: 10}, wantErr: true},
		{name: "negative volume", settings: GuildSettings{DefaultVolume: -1, MaxQueueSize: 10}, wantErr: true},
		{name: "zero queue size", settings: GuildSettings{DefaultVolume: 50, MaxQueueSize: 0}, wantErr: true},
		{name: "queue size over cap", settings: GuildSettings{DefaultVolume: 50, MaxQueueSize: MaxQueueSizeCap + 1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidSettings) {
				t.Errorf("expected ErrInvalidSettings, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
