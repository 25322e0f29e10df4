package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidLoopMode is returned when a loop mode name is not recognized.
var ErrInvalidLoopMode = errors.New("invalid loop mode")

// LoopMode decides what happens to a track when it finishes naturally.
type LoopMode int

const (
	LoopModeNone  LoopMode = iota // Finished tracks are dropped
	LoopModeSong                  // The finished track plays again
	LoopModeQueue                 // The finished track moves to the tail
)

// String returns the canonical name of the loop mode.
func (m LoopMode) String() string {
	switch m {
	case LoopModeSong:
		return "song"
	case LoopModeQueue:
		return "queue"
	default:
		return "none"
	}
}

// Next returns the mode that follows m: none -> song -> queue -> none.
func (m LoopMode) Next() LoopMode {
	switch m {
	case LoopModeNone:
		return LoopModeSong
	case LoopModeSong:
		return LoopModeQueue
	default:
		return LoopModeNone
	}
}

// ParseLoopMode converts user input into a LoopMode. "off" and "track" are
// accepted as aliases of "none" and "song".
func ParseLoopMode(s string) (LoopMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "off":
		return LoopModeNone, nil
	case "song", "track":
		return LoopModeSong, nil
	case "queue":
		return LoopModeQueue, nil
	default:
		return LoopModeNone, fmt.Errorf("%w: %q", ErrInvalidLoopMode, s)
	}
}
