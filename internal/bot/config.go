package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/sglre6355/harmonybot/internal/autodelete"
)

// Config holds the bot configuration loaded from environment variables.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,notEmpty"`
	// GuildID registers commands to a single guild instead of globally when set.
	GuildID string `env:"DISCORD_GUILD_ID"`
	// MembersIntent requests the privileged server members intent, which
	// /serveravatars needs to see more than cached members. It must also be
	// enabled for the application in the Discord developer portal.
	MembersIntent bool `env:"DISCORD_MEMBERS_INTENT"`

	AutoDelete autodelete.Config

	// Version is the build version, set by main.
	Version string
}

// Intents returns the gateway intents to identify with.
func (c *Config) Intents() discordgo.Intent {
	intents := discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages
	if c.MembersIntent {
		intents |= discordgo.IntentsGuildMembers
	}
	return intents
}

// ReplyDelays returns the deletion delay for each reply kind.
func (c *Config) ReplyDelays() ReplyDelays {
	return ReplyDelays{
		Default:    c.AutoDelete.DefaultDelay,
		NowPlaying: c.AutoDelete.NowPlayingDelay,
		Error:      c.AutoDelete.ErrorDelay,
	}
}

// LoadConfig loads configuration from environment variables.
// Returns an error if required fields are missing.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
