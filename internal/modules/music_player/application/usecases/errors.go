package usecases

import (
	"errors"

	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// Errors returned by the music player use cases.
var (
	// ErrQueueFull is returned when an enqueue would exceed the guild's queue size.
	ErrQueueFull = domain.ErrQueueFull

	// ErrInvalidVolume is returned when a volume is outside 0-100.
	ErrInvalidVolume = domain.ErrInvalidVolume

	// ErrNoActiveQueue is returned when the guild has no queue.
	ErrNoActiveQueue = errors.New("no active queue")

	// ErrPlaybackFailed wraps voice join, load and play failures.
	ErrPlaybackFailed = errors.New("playback failed")

	// ErrUserNotInVoice is returned when the user is not in a voice channel.
	ErrUserNotInVoice = errors.New("you must be in a voice channel")

	// ErrNotPlaying is returned when no track is currently playing.
	ErrNotPlaying = errors.New("nothing is currently playing")

	// ErrNoResults is returned when a search yields no results.
	ErrNoResults = errors.New("no results found")

	// ErrLoadFailed is returned when every track resolver failed.
	ErrLoadFailed = errors.New("failed to load track")

	// ErrInvalidControl is returned for an unknown dashboard action or a bad value.
	ErrInvalidControl = errors.New("invalid control request")
)
