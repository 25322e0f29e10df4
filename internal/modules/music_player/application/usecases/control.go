package usecases

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// ControlAction is a dashboard playback command.
type ControlAction string

const (
	ControlPlay    ControlAction = "play"
	ControlSkip    ControlAction = "skip"
	ControlStop    ControlAction = "stop"
	ControlVolume  ControlAction = "volume"
	ControlLoop    ControlAction = "loop"
	ControlShuffle ControlAction = "shuffle"
)

// ParseControlAction validates a dashboard action name.
func ParseControlAction(s string) (ControlAction, error) {
	switch a := ControlAction(strings.ToLower(strings.TrimSpace(s))); a {
	case ControlPlay, ControlSkip, ControlStop, ControlVolume, ControlLoop, ControlShuffle:
		return a, nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidControl, s)
	}
}

// ControlInput contains the input for the Control use case.
type ControlInput struct {
	GuildID snowflake.ID
	Action  ControlAction
	Value   string // volume level or loop mode; empty cycles the loop mode. Must be empty for play.
}

// ControlOutput contains the result of the Control use case.
type ControlOutput struct {
	Message string
}

// Control applies a dashboard action to the guild's queue.
func (m *QueueManager) Control(ctx context.Context, input ControlInput) (*ControlOutput, error) {
	switch input.Action {
	case ControlPlay:
		// Queueing from the dashboard is not supported; play only resumes.
		if strings.TrimSpace(input.Value) != "" {
			return nil, fmt.Errorf("%w: play does not take a value, use /play to queue tracks", ErrInvalidControl)
		}
		started, err := m.Resume(ctx, input.GuildID)
		if err != nil {
			return nil, err
		}
		if !started {
			return &ControlOutput{Message: "Playback is already active or the queue is empty"}, nil
		}
		return &ControlOutput{Message: "Playback started"}, nil

	case ControlSkip:
		out, err := m.Skip(ctx, input.GuildID)
		if err != nil {
			return nil, err
		}
		return &ControlOutput{Message: "Skipped " + out.Skipped.Title}, nil

	case ControlStop:
		if err := m.Stop(ctx, input.GuildID); err != nil {
			return nil, err
		}
		return &ControlOutput{Message: "Playback stopped and queue cleared"}, nil

	case ControlVolume:
		volume, err := strconv.Atoi(strings.TrimSpace(input.Value))
		if err != nil {
			return nil, fmt.Errorf("%w: volume must be a number", ErrInvalidControl)
		}
		if err := m.SetVolume(ctx, input.GuildID, volume); err != nil {
			return nil, err
		}
		return &ControlOutput{Message: fmt.Sprintf("Volume set to %d%%", volume)}, nil

	case ControlLoop:
		if strings.TrimSpace(input.Value) == "" {
			mode, err := m.CycleLoopMode(input.GuildID)
			if err != nil {
				return nil, err
			}
			return &ControlOutput{Message: "Loop mode set to " + mode.String()}, nil
		}
		mode, err := domain.ParseLoopMode(input.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidControl, err)
		}
		if err := m.SetLoopMode(input.GuildID, mode); err != nil {
			return nil, err
		}
		return &ControlOutput{Message: "Loop mode set to " + mode.String()}, nil

	case ControlShuffle:
		n, err := m.Shuffle(input.GuildID)
		if err != nil {
			return nil, err
		}
		return &ControlOutput{Message: fmt.Sprintf("Shuffled %d tracks", n)}, nil

	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidControl, input.Action)
	}
}
