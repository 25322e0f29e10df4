package domain

import (
	"github.com/disgoorg/snowflake/v2"
)

// Event is implemented by every message published on the module event bus.
type Event interface {
	EventGuildID() snowflake.ID
}

// TrackStartedEvent is published by the audio output when a track begins.
type TrackStartedEvent struct {
	GuildID snowflake.ID
}

// TrackEndedEvent is published by the audio output when a track finishes naturally.
type TrackEndedEvent struct {
	GuildID snowflake.ID
}

// TrackFailedEvent is published by the audio output when a track errors or gets stuck.
type TrackFailedEvent struct {
	GuildID snowflake.ID
	Message string
}

// VoiceDisconnectedEvent is published when the bot is removed from voice externally.
type VoiceDisconnectedEvent struct {
	GuildID snowflake.ID
}

// NowPlayingEvent is published when a track reaches the playing state.
type NowPlayingEvent struct {
	GuildID       snowflake.ID
	TextChannelID snowflake.ID
	Track         *Track
}

// PlaybackErrorEvent is published when a track is dropped because it could not play.
type PlaybackErrorEvent struct {
	GuildID       snowflake.ID
	TextChannelID snowflake.ID
	Track         *Track
	Message       string
}

func (e TrackStartedEvent) EventGuildID() snowflake.ID      { return e.GuildID }
func (e TrackEndedEvent) EventGuildID() snowflake.ID        { return e.GuildID }
func (e TrackFailedEvent) EventGuildID() snowflake.ID       { return e.GuildID }
func (e VoiceDisconnectedEvent) EventGuildID() snowflake.ID { return e.GuildID }
func (e NowPlayingEvent) EventGuildID() snowflake.ID        { return e.GuildID }
func (e PlaybackErrorEvent) EventGuildID() snowflake.ID     { return e.GuildID }
