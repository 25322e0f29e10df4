package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// SettingsDefaults are applied to guilds without stored settings. The zero
// value means the domain defaults.
type SettingsDefaults struct {
	Volume       int
	MaxQueueSize int
}

// UpdateSettingsInput contains the input for the Update use case.
// Nil fields are left unchanged.
type UpdateSettingsInput struct {
	GuildID      snowflake.ID
	Volume       *int
	MaxQueueSize *int
}

// SettingsService reads and updates per-guild settings.
type SettingsService struct {
	repo     ports.SettingsRepository
	defaults SettingsDefaults
	now      func() time.Time
}

var _ SettingsReader = (*SettingsService)(nil)

// NewSettingsService creates a new SettingsService. Unset or invalid defaults
// fall back to the domain defaults; an explicit volume of 0 is kept when a
// queue size is also given.
func NewSettingsService(repo ports.SettingsRepository, defaults SettingsDefaults) *SettingsService {
	if defaults == (SettingsDefaults{}) {
		defaults = SettingsDefaults{
			Volume:       domain.DefaultVolume,
			MaxQueueSize: domain.DefaultMaxQueueSize,
		}
	}
	if !domain.ValidVolume(defaults.Volume) {
		defaults.Volume = domain.DefaultVolume
	}
	if defaults.MaxQueueSize <= 0 {
		defaults.MaxQueueSize = domain.DefaultMaxQueueSize
	}
	return &SettingsService{
		repo:     repo,
		defaults: defaults,
		now:      time.Now,
	}
}

// Get returns the guild's settings, or the defaults if none are stored.
func (s *SettingsService) Get(ctx context.Context, guildID snowflake.ID) (*domain.GuildSettings, error) {
	settings, err := s.repo.Get(ctx, guildID)
	if errors.Is(err, domain.ErrSettingsNotFound) {
		return &domain.GuildSettings{
			GuildID:       guildID,
			DefaultVolume: s.defaults.Volume,
			MaxQueueSize:  s.defaults.MaxQueueSize,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// Update validates and stores new settings. They apply to queues created afterwards.
func (s *SettingsService) Update(ctx context.Context, input UpdateSettingsInput) (*domain.GuildSettings, error) {
	settings, err := s.Get(ctx, input.GuildID)
	if err != nil {
		return nil, err
	}

	if input.Volume != nil {
		settings.DefaultVolume = *input.Volume
	}
	if input.MaxQueueSize != nil {
		settings.MaxQueueSize = *input.MaxQueueSize
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	settings.UpdatedAt = s.now().UTC()

	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	return settings, nil
}

// Reset stores the defaults for a guild.
func (s *SettingsService) Reset(ctx context.Context, guildID snowflake.ID) (*domain.GuildSettings, error) {
	settings := &domain.GuildSettings{
		GuildID:       guildID,
		DefaultVolume: s.defaults.Volume,
		MaxQueueSize:  s.defaults.MaxQueueSize,
		UpdatedAt:     s.now().UTC(),
	}
	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	return settings, nil
}
