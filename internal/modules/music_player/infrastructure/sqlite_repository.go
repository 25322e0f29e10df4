package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// guildSettingsRow is the gorm model for a guild's settings.
type guildSettingsRow struct {
	GuildID       string `gorm:"primaryKey"`
	DefaultVolume int
	MaxQueueSize  int
	UpdatedAt     time.Time
}

func (guildSettingsRow) TableName() string {
	return "guild_settings"
}

// SQLiteSettingsRepository stores guild settings in a local SQLite file.
type SQLiteSettingsRepository struct {
	db *gorm.DB
}

// OpenSQLiteSettingsRepository opens the database at path and migrates the schema.
func OpenSQLiteSettingsRepository(path string) (*SQLiteSettingsRepository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.AutoMigrate(&guildSettingsRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}
	return &SQLiteSettingsRepository{db: db}, nil
}

// Get returns the stored settings, or domain.ErrSettingsNotFound.
func (r *SQLiteSettingsRepository) Get(
	ctx context.Context,
	guildID snowflake.ID,
) (*domain.GuildSettings, error) {
	var row guildSettingsRow
	err := r.db.WithContext(ctx).
		Where(&guildSettingsRow{GuildID: guildID.String()}).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guild settings: %w", err)
	}

	return &domain.GuildSettings{
		GuildID:       guildID,
		DefaultVolume: row.DefaultVolume,
		MaxQueueSize:  row.MaxQueueSize,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

// Save upserts the settings for a guild.
func (r *SQLiteSettingsRepository) Save(ctx context.Context, settings *domain.GuildSettings) error {
	row := guildSettingsRow{
		GuildID:       settings.GuildID.String(),
		DefaultVolume: settings.DefaultVolume,
		MaxQueueSize:  settings.MaxQueueSize,
		UpdatedAt:     settings.UpdatedAt,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"default_volume", "max_queue_size", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (r *SQLiteSettingsRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ ports.SettingsRepository = (*SQLiteSettingsRepository)(nil)
