package infrastructure

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// OpenPostgres opens a pgx-backed connection pool and verifies it is reachable.
func OpenPostgres(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// MigratePostgres applies the embedded migrations.
func MigratePostgres(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

// PostgresSettingsRepository stores guild settings in PostgreSQL.
type PostgresSettingsRepository struct {
	db *sql.DB
}

// NewPostgresSettingsRepository creates a new PostgresSettingsRepository.
func NewPostgresSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

// Get returns the stored settings, or domain.ErrSettingsNotFound.
func (r *PostgresSettingsRepository) Get(
	ctx context.Context,
	guildID snowflake.ID,
) (*domain.GuildSettings, error) {
	var (
		id       int64
		settings domain.GuildSettings
	)
	err := r.db.QueryRowContext(ctx, `
SELECT guild_id, default_volume, max_queue_size, updated_at
  FROM guild_settings
 WHERE guild_id = $1
`, int64(guildID)).Scan(&id, &settings.DefaultVolume, &settings.MaxQueueSize, &settings.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guild settings: %w", err)
	}

	settings.GuildID = snowflake.ID(id)
	return &settings, nil
}

// Save upserts the settings for a guild.
func (r *PostgresSettingsRepository) Save(ctx context.Context, settings *domain.GuildSettings) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO guild_settings (guild_id, default_volume, max_queue_size, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (guild_id) DO UPDATE
   SET default_volume = EXCLUDED.default_volume,
       max_queue_size = EXCLUDED.max_queue_size,
       updated_at     = EXCLUDED.updated_at
`, int64(settings.GuildID), settings.DefaultVolume, settings.MaxQueueSize, settings.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save guild settings: %w", err)
	}
	return nil
}

var _ ports.SettingsRepository = (*PostgresSettingsRepository)(nil)
