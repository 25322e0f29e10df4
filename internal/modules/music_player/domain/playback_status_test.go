package domain

import "testing"

func TestPlaybackStatus_Next(t *testing.T) {
	tests := []struct {
		from    PlaybackStatus
		trigger PlaybackTrigger
		want    PlaybackStatus
		wantOK  bool
	}{
		{StatusIdle, TriggerStart, StatusStarting, true},
		{StatusIdle, TriggerEnd, StatusIdle, false},
		{StatusIdle, TriggerError, StatusIdle, false},
		{StatusIdle, TriggerSkip, StatusIdle, false},
		{StatusIdle, TriggerStop, StatusIdle, true},

		{StatusStarting, TriggerStart, StatusPlaying, true},
		{StatusStarting, TriggerEnd, StatusIdle, true},
		{StatusStarting, TriggerError, StatusIdle, true},
		{StatusStarting, TriggerSkip, StatusIdle, true},
		{StatusStarting, TriggerStop, StatusIdle, true},

		{StatusPlaying, TriggerStart, StatusPlaying, false},
		{StatusPlaying, TriggerEnd, StatusIdle, true},
		{StatusPlaying, TriggerError, StatusIdle, true},
		{StatusPlaying, TriggerSkip, StatusIdle, true},
		{StatusPlaying, TriggerStop, StatusIdle, true},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.trigger.String(), func(t *testing.T) {
			got, ok := tt.from.Next(tt.trigger)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
		})
	}
}
