package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// AudioPlayer defines the interface for audio playback operations.
//
// Play returning nil means the output accepted the track. Whether it actually
// started is reported later through domain.TrackStartedEvent, or
// domain.TrackFailedEvent when it could not.
type AudioPlayer interface {
	// Play starts playback of the track at the given volume, replacing anything playing.
	Play(ctx context.Context, guildID snowflake.ID, track *domain.Track, volume int) error

	// Stop stops the current playback.
	Stop(ctx context.Context, guildID snowflake.ID) error

	// SetVolume changes the volume of live playback.
	SetVolume(ctx context.Context, guildID snowflake.ID, volume int) error
}
