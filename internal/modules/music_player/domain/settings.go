package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

const (
	DefaultVolume       = 50
	DefaultMaxQueueSize = 100

	MaxVolume       = 100
	MaxQueueSizeCap = 1000
)

var (
	// ErrInvalidSettings is returned when guild settings fail validation.
	ErrInvalidSettings = errors.New("invalid guild settings")
	// ErrSettingsNotFound is returned by repositories when a guild has no stored settings.
	ErrSettingsNotFound = errors.New("guild settings not found")
)

// GuildSettings holds the persisted per-guild playback defaults.
type GuildSettings struct {
	GuildID       snowflake.ID
	DefaultVolume int
	MaxQueueSize  int
	UpdatedAt     time.Time
}

// DefaultGuildSettings returns the settings used for guilds that never changed them.
func DefaultGuildSettings(guildID snowflake.ID) *GuildSettings {
	return &GuildSettings{
		GuildID:       guildID,
		DefaultVolume: DefaultVolume,
		MaxQueueSize:  DefaultMaxQueueSize,
	}
}

// Validate checks that every field is within range.
func (s *GuildSettings) Validate() error {
	if !ValidVolume(s.DefaultVolume) {
		return fmt.Errorf("%w: volume %d out of range 0-%d", ErrInvalidSettings, s.DefaultVolume, MaxVolume)
	}
	if s.MaxQueueSize < 1 || s.MaxQueueSize > MaxQueueSizeCap {
		return fmt.Errorf(
			"%w: max queue size %d out of range 1-%d",
			ErrInvalidSettings, s.MaxQueueSize, MaxQueueSizeCap,
		)
	}
	return nil
}

// ValidVolume reports whether v is a valid volume percentage.
func ValidVolume(v int) bool {
	return v >= 0 && v <= MaxVolume
}
