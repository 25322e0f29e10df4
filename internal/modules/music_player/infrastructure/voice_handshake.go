package infrastructure

import (
	"context"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
)

// voiceHandshake collects the two gateway events Lavalink needs to open a
// voice session. Discord sends them in either order, and forwarding only one
// leaves the Lavalink player with a partial voice state.
type voiceHandshake struct {
	channelID *snowflake.ID
	sessionID string
	haveState bool

	token      string
	endpoint   string
	haveServer bool

	// joined is closed when the handshake completes; nil when no join waits.
	joined chan struct{}
}

// awaitVoice discards any half-received handshake for the guild and returns a
// channel closed once the next one completes.
func (c *LavalinkAdapter) awaitVoice(guildID snowflake.ID) <-chan struct{} {
	c.voiceMu.Lock()
	defer c.voiceMu.Unlock()

	h := &voiceHandshake{joined: make(chan struct{})}
	c.voice[guildID] = h
	return h.joined
}

func (c *LavalinkAdapter) stopAwaiting(guildID snowflake.ID, joined <-chan struct{}) {
	c.voiceMu.Lock()
	defer c.voiceMu.Unlock()

	if h := c.voice[guildID]; h != nil && h.joined != nil && h.joined == joined {
		h.joined = nil
	}
}

// recordVoice applies one half of the handshake. When both halves are in, the
// handshake is removed, any waiting join is released and Lavalink is updated.
func (c *LavalinkAdapter) recordVoice(guildID snowflake.ID, apply func(*voiceHandshake)) {
	c.voiceMu.Lock()
	h := c.voice[guildID]
	if h == nil {
		h = &voiceHandshake{}
		c.voice[guildID] = h
	}
	apply(h)
	if !h.haveState || !h.haveServer {
		c.voiceMu.Unlock()
		return
	}
	delete(c.voice, guildID)
	c.voiceMu.Unlock()

	if h.joined != nil {
		close(h.joined)
	}

	slog.Debug("forwarding voice session to Lavalink",
		"guild", guildID,
		"channel", h.channelID,
		"hasSessionID", h.sessionID != "",
	)
	if c.link == nil {
		return
	}
	c.link.OnVoiceStateUpdate(context.Background(), guildID, h.channelID, h.sessionID)
	c.link.OnVoiceServerUpdate(context.Background(), guildID, h.token, h.endpoint)
}
