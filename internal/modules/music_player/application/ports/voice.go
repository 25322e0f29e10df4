package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// VoiceConnection moves the bot in and out of guild voice channels.
type VoiceConnection interface {
	JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error
	// LeaveChannel is a no-op when the bot is not connected.
	LeaveChannel(ctx context.Context, guildID snowflake.ID) error
}

// VoiceStateProvider looks up where a member is connected.
type VoiceStateProvider interface {
	// GetUserVoiceChannel returns 0 when the member is not in voice.
	GetUserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error)
}
