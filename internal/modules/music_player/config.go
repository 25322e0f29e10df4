package music_player

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// Settings storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// ErrInvalidConfig is returned when the module configuration fails validation.
var ErrInvalidConfig = errors.New("invalid music player config")

// Config holds the music player module configuration.
type Config struct {
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE"`

	// Resolvers lists track resolvers in priority order.
	Resolvers     string `env:"MUSIC_RESOLVERS" envDefault:"lavalink,youtube,ytsearch,ytmusic,ytdlp"`
	YouTubeAPIKey string `env:"YOUTUBE_API_KEY"`

	MaxQueueSize  int           `env:"MUSIC_MAX_QUEUE_SIZE" envDefault:"100"`
	DefaultVolume int           `env:"MUSIC_DEFAULT_VOLUME" envDefault:"50"`
	IdleTimeout   time.Duration `env:"MUSIC_IDLE_TIMEOUT"   envDefault:"60s"`
	StartTimeout  time.Duration `env:"MUSIC_START_TIMEOUT"  envDefault:"15s"`

	SettingsBackend string `env:"SETTINGS_BACKEND" envDefault:"memory"`
	DatabaseURL     string `env:"DATABASE_URL"`
	SQLitePath      string `env:"SQLITE_PATH"      envDefault:"harmonybot.db"`
}

// Validate checks ranges and backend requirements.
func (c *Config) Validate() error {
	if !domain.ValidVolume(c.DefaultVolume) {
		return fmt.Errorf("%w: MUSIC_DEFAULT_VOLUME must be between 0 and %d", ErrInvalidConfig, domain.MaxVolume)
	}
	if c.MaxQueueSize < 1 || c.MaxQueueSize > domain.MaxQueueSizeCap {
		return fmt.Errorf("%w: MUSIC_MAX_QUEUE_SIZE must be between 1 and %d", ErrInvalidConfig, domain.MaxQueueSizeCap)
	}
	if c.IdleTimeout <= 0 || c.StartTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}

	c.SettingsBackend = strings.ToLower(strings.TrimSpace(c.SettingsBackend))
	switch c.SettingsBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres backend", ErrInvalidConfig)
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: SQLITE_PATH is required for the sqlite backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown SETTINGS_BACKEND %q", ErrInvalidConfig, c.SettingsBackend)
	}

	if len(c.ResolverNames()) == 0 {
		return fmt.Errorf("%w: MUSIC_RESOLVERS is empty", ErrInvalidConfig)
	}
	return nil
}

// ResolverNames returns the configured resolvers. The YouTube Data API
// resolver is dropped when no API key is set.
func (c *Config) ResolverNames() []string {
	var names []string
	for name := range strings.SplitSeq(c.Resolvers, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || slices.Contains(names, name) {
			continue
		}
		if name == "youtube" && c.YouTubeAPIKey == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}
