package bot

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

func TestLoadConfig_WithValidToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token-123")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DiscordToken != "test-token-123" {
		t.Errorf("expected token %q, got %q", "test-token-123", cfg.DiscordToken)
	}
}

func TestLoadConfig_WithEmptyToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	_, err := LoadConfig()
	if err == nil {
		t.Error("expected error for missing token, got nil")
	}
}

func TestLoadConfig_AutoDeleteDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	delays := cfg.ReplyDelays()
	if delays.Default != 10*time.Second {
		t.Errorf("expected default delay 10s, got %v", delays.Default)
	}
	if delays.NowPlaying != 30*time.Second {
		t.Errorf("expected now playing delay 30s, got %v", delays.NowPlaying)
	}
	if delays.Error != 5*time.Second {
		t.Errorf("expected error delay 5s, got %v", delays.Error)
	}
	if !cfg.AutoDelete.Enabled {
		t.Error("expected auto delete to be enabled by default")
	}
}

func TestLoadConfig_AutoDeleteOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")
	t.Setenv("DISCORD_GUILD_ID", "123")
	t.Setenv("AUTO_DELETE_ENABLED", "false")
	t.Setenv("AUTO_DELETE_DELAY", "1m")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GuildID != "123" {
		t.Errorf("expected guild ID %q, got %q", "123", cfg.GuildID)
	}
	if cfg.AutoDelete.Enabled {
		t.Error("expected auto delete to be disabled")
	}
	if cfg.AutoDelete.DefaultDelay != time.Minute {
		t.Errorf("expected delay 1m, got %v", cfg.AutoDelete.DefaultDelay)
	}
}

func TestConfig_Intents(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token-123")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Intents()&discordgo.IntentsGuildMembers != 0 {
		t.Error("expected the members intent to be off by default")
	}

	t.Setenv("DISCORD_MEMBERS_INTENT", "true")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	intents := cfg.Intents()
	if intents&discordgo.IntentsGuildMembers == 0 {
		t.Error("expected the members intent when enabled")
	}
	if intents&discordgo.IntentsGuildVoiceStates == 0 {
		t.Error("expected the voice state intent")
	}
}
