package ports

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// NotificationSender defines the interface for sending notifications to Discord channels.
type NotificationSender interface {
	// SendNowPlaying announces the track in the channel.
	SendNowPlaying(channelID snowflake.ID, track *domain.Track) error

	// SendError sends a transient error embed to the channel.
	SendError(channelID snowflake.ID, message string) error
}
