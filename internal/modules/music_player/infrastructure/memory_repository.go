package infrastructure

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// MemorySettingsRepository is an in-memory implementation of ports.SettingsRepository.
// Settings are lost on restart.
type MemorySettingsRepository struct {
	mu       sync.RWMutex
	settings map[snowflake.ID]domain.GuildSettings
}

// NewMemorySettingsRepository creates a new MemorySettingsRepository.
func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{
		settings: make(map[snowflake.ID]domain.GuildSettings),
	}
}

// Get returns a copy of the settings for the given guild.
func (r *MemorySettingsRepository) Get(
	_ context.Context,
	guildID snowflake.ID,
) (*domain.GuildSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	settings, ok := r.settings[guildID]
	if !ok {
		return nil, domain.ErrSettingsNotFound
	}
	return &settings, nil
}

// Save stores a copy of the settings.
func (r *MemorySettingsRepository) Save(_ context.Context, settings *domain.GuildSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings[settings.GuildID] = *settings
	return nil
}

// Count returns the number of stored guilds.
func (r *MemorySettingsRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.settings)
}

var _ ports.SettingsRepository = (*MemorySettingsRepository)(nil)
