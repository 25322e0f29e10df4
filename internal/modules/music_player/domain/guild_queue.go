package domain

import (
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
)

var (
	// ErrQueueFull is returned when an enqueue would exceed the queue capacity.
	ErrQueueFull = errors.New("queue is full")
	// ErrInvalidVolume is returned when a volume is outside 0-100.
	ErrInvalidVolume = errors.New("volume must be between 0 and 100")
)

// GuildQueue is the playback state of one guild: the song list, the track on
// the audio device and the playback status.
//
// While a track is active (Starting or Playing) it is songs[0]. GuildQueue is not
// safe for concurrent use; the owner serializes access.
type GuildQueue struct {
	guildID        snowflake.ID
	textChannelID  snowflake.ID
	voiceChannelID snowflake.ID

	songs      []*Track
	current    *Track
	status     PlaybackStatus
	volume     int
	loopMode   LoopMode
	connected  bool
	maxSize    int
	generation uint64
}

// NewGuildQueue creates an idle, empty queue. A non-positive maxSize uses
// DefaultMaxQueueSize and an invalid volume uses DefaultVolume.
func NewGuildQueue(guildID, textChannelID, voiceChannelID snowflake.ID, volume, maxSize int) *GuildQueue {
	if maxSize <= 0 {
		maxSize = DefaultMaxQueueSize
	}
	if !ValidVolume(volume) {
		volume = DefaultVolume
	}
	return &GuildQueue{
		guildID:        guildID,
		textChannelID:  textChannelID,
		voiceChannelID: voiceChannelID,
		songs:          make([]*Track, 0),
		status:         StatusIdle,
		volume:         volume,
		loopMode:       LoopModeNone,
		maxSize:        maxSize,
	}
}

// GuildID returns the guild the queue belongs to.
func (q *GuildQueue) GuildID() snowflake.ID { return q.guildID }

// TextChannelID returns the channel notifications are posted to.
func (q *GuildQueue) TextChannelID() snowflake.ID { return q.textChannelID }

// VoiceChannelID returns the voice channel the queue plays in.
func (q *GuildQueue) VoiceChannelID() snowflake.ID { return q.voiceChannelID }

// Status returns the playback status.
func (q *GuildQueue) Status() PlaybackStatus { return q.status }

// Current returns the track on the audio device, or nil.
func (q *GuildQueue) Current() *Track { return q.current }

// Volume returns the volume percentage.
func (q *GuildQueue) Volume() int { return q.volume }

// LoopMode returns the loop mode.
func (q *GuildQueue) LoopMode() LoopMode { return q.loopMode }

// Connected reports whether the voice connection is held.
func (q *GuildQueue) Connected() bool { return q.connected }

// MaxSize returns the queue capacity.
func (q *GuildQueue) MaxSize() int { return q.maxSize }

// Generation identifies the current playback attempt.
func (q *GuildQueue) Generation() uint64 { return q.generation }

// Len returns the number of songs, including the active one.
func (q *GuildQueue) Len() int { return len(q.songs) }

// IsPlaying reports whether the output confirmed the current track started.
func (q *GuildQueue) IsPlaying() bool { return q.status == StatusPlaying }

// IsActive reports whether a track is starting or playing.
func (q *GuildQueue) IsActive() bool { return q.status != StatusIdle }

// IsIdleAndEmpty reports whether the queue has nothing to do.
func (q *GuildQueue) IsIdleAndEmpty() bool {
	return q.status == StatusIdle && len(q.songs) == 0
}

// Songs returns a copy of the song list.
func (q *GuildQueue) Songs() []*Track {
	out := make([]*Track, len(q.songs))
	copy(out, q.songs)
	return out
}

// Upcoming returns a copy of the songs after the active one. When idle every
// song is upcoming.
func (q *GuildQueue) Upcoming() []*Track {
	rest := q.songs[q.upcomingStart():]
	out := make([]*Track, len(rest))
	copy(out, rest)
	return out
}

func (q *GuildQueue) upcomingStart() int {
	if q.current != nil && len(q.songs) > 0 {
		return 1
	}
	return 0
}

// SetConnected records whether the voice connection is held.
func (q *GuildQueue) SetConnected(connected bool) {
	q.connected = connected
}

// SetVolume changes the volume.
func (q *GuildQueue) SetVolume(volume int) error {
	if !ValidVolume(volume) {
		return fmt.Errorf("%w: got %d", ErrInvalidVolume, volume)
	}
	q.volume = volume
	return nil
}

// SetLoopMode changes the loop mode.
func (q *GuildQueue) SetLoopMode(mode LoopMode) {
	q.loopMode = mode
}

// CycleLoopMode advances to the next loop mode and returns it.
func (q *GuildQueue) CycleLoopMode() LoopMode {
	q.loopMode = q.loopMode.Next()
	return q.loopMode
}

// Append adds a track to the tail and returns its 1-based position.
func (q *GuildQueue) Append(track *Track) (int, error) {
	if len(q.songs) >= q.maxSize {
		return 0, fmt.Errorf("%w: limit is %d", ErrQueueFull, q.maxSize)
	}
	q.songs = append(q.songs, track)
	return len(q.songs), nil
}

// Begin moves an idle queue with songs to Starting and makes the head current.
// It returns the track to play and the generation of the new attempt.
func (q *GuildQueue) Begin() (*Track, uint64, bool) {
	if q.status != StatusIdle || len(q.songs) == 0 {
		return nil, q.generation, false
	}
	next, ok := q.status.Next(TriggerStart)
	if !ok {
		return nil, q.generation, false
	}

	q.status = next
	q.current = q.songs[0]
	q.generation++
	return q.current, q.generation, true
}

// MarkStarted moves Starting to Playing when the output confirms the track.
func (q *GuildQueue) MarkStarted() bool {
	if q.status != StatusStarting || q.current == nil || !q.connected {
		return false
	}
	next, ok := q.status.Next(TriggerStart)
	if !ok {
		return false
	}
	q.status = next
	return true
}

// Finish ends the active track and applies the song policy for trigger:
//
//   - End keeps the head under LoopModeSong, moves it to the tail under
//     LoopModeQueue and drops it under LoopModeNone.
//   - Skip moves the head to the tail under LoopModeQueue and drops it otherwise.
//   - Error drops the head.
//
// The queue is left Idle and the generation is bumped so a start still in
// flight for the finished attempt is discarded. It returns the finished track,
// or false when nothing was active.
func (q *GuildQueue) Finish(trigger PlaybackTrigger) (*Track, bool) {
	if trigger != TriggerEnd && trigger != TriggerError && trigger != TriggerSkip {
		return nil, false
	}
	next, ok := q.status.Next(trigger)
	if !ok {
		return nil, false
	}

	finished := q.current
	if finished != nil && len(q.songs) > 0 && q.songs[0] == finished {
		switch {
		case trigger == TriggerEnd && q.loopMode == LoopModeSong:
			// Head stays in place and plays again.
		case trigger != TriggerError && q.loopMode == LoopModeQueue:
			q.songs = append(q.songs[1:], finished)
		default:
			q.songs = q.songs[1:]
		}
	}

	q.status = next
	q.current = nil
	q.generation++
	return finished, true
}

// Stop clears every song and returns to Idle. The generation is bumped so an
// in-flight start is discarded.
func (q *GuildQueue) Stop() {
	q.status, _ = q.status.Next(TriggerStop)
	q.songs = make([]*Track, 0)
	q.current = nil
	q.generation++
}

// Shuffle reorders the upcoming songs with shuffle, which has the signature of
// rand.Shuffle. It returns the number of songs shuffled.
func (q *GuildQueue) Shuffle(shuffle func(n int, swap func(i, j int))) int {
	rest := q.songs[q.upcomingStart():]
	if len(rest) > 1 {
		shuffle(len(rest), func(i, j int) {
			rest[i], rest[j] = rest[j], rest[i]
		})
	}
	return len(rest)
}
