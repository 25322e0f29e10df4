package usecases

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// Re-export domain types for presentation layer use.
// This allows presentation to depend only on usecases without importing domain directly.

// Track is an alias for domain.Track.
type Track = domain.Track

// LoopMode is an alias for domain.LoopMode.
type LoopMode = domain.LoopMode

// QueueSnapshot is a read-only projection of a guild queue.
type QueueSnapshot struct {
	GuildID        snowflake.ID
	TextChannelID  snowflake.ID
	VoiceChannelID snowflake.ID
	Current        *domain.Track
	Upcoming       []*domain.Track
	Status         domain.PlaybackStatus
	IsPlaying      bool
	Volume         int
	LoopMode       domain.LoopMode
	Connected      bool
	MaxSize        int
	Timestamp      time.Time
}

// Len returns the number of songs including the active one.
func (s *QueueSnapshot) Len() int {
	n := len(s.Upcoming)
	if s.Current != nil {
		n++
	}
	return n
}

// TotalDuration sums the durations of the current and upcoming tracks, ignoring streams.
func (s *QueueSnapshot) TotalDuration() time.Duration {
	var total time.Duration
	if s.Current != nil && !s.Current.IsStream {
		total += s.Current.Duration
	}
	for _, t := range s.Upcoming {
		if !t.IsStream {
			total += t.Duration
		}
	}
	return total
}

func snapshotOf(q *domain.GuildQueue) *QueueSnapshot {
	return &QueueSnapshot{
		GuildID:        q.GuildID(),
		TextChannelID:  q.TextChannelID(),
		VoiceChannelID: q.VoiceChannelID(),
		Current:        q.Current(),
		Upcoming:       q.Upcoming(),
		Status:         q.Status(),
		IsPlaying:      q.IsPlaying(),
		Volume:         q.Volume(),
		LoopMode:       q.LoopMode(),
		Connected:      q.Connected(),
		MaxSize:        q.MaxSize(),
		Timestamp:      time.Now().UTC(),
	}
}
