package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// SettingsRepository persists per-guild settings.
type SettingsRepository interface {
	// Get returns the stored settings, or domain.ErrSettingsNotFound.
	Get(ctx context.Context, guildID snowflake.ID) (*domain.GuildSettings, error)

	// Save creates or replaces the settings for a guild.
	Save(ctx context.Context, settings *domain.GuildSettings) error
}
