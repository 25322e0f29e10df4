package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
	"github.com/sglre6355/harmonybot/internal/telemetry"
)

// voiceConnectionTimeout is the maximum time to wait for voice connection to be established.
const voiceConnectionTimeout = 10 * time.Second

// ErrNoNode is returned when no Lavalink node is available.
var ErrNoNode = errors.New("no available Lavalink node")

// ErrTrackUnavailable is returned when Lavalink cannot load a queued track.
var ErrTrackUnavailable = errors.New("track could not be loaded")

// LavalinkAdapter wraps DisGoLink to implement the audio output ports.
//
// Lavalink player events are translated into domain events for the tracks this
// adapter started; events for replaced or stopped tracks are dropped.
type LavalinkAdapter struct {
	link    disgolink.Client
	session *discordgo.Session
	botID   snowflake.ID

	voiceMu sync.Mutex
	voice   map[snowflake.ID]*voiceHandshake

	publisher ports.EventPublisher

	// expected holds the encoded track last sent to each guild's player
	expectedMu sync.Mutex
	expected   map[snowflake.ID]string
	leaving    map[snowflake.ID]bool
}

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
	Secure   bool
}

// NewLavalinkAdapter creates a new LavalinkAdapter and connects to the node.
func NewLavalinkAdapter(
	ctx context.Context,
	session *discordgo.Session,
	publisher ports.EventPublisher,
	config LavalinkConfig,
) (*LavalinkAdapter, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	adapter := newLavalinkAdapter(session, botID, publisher)

	link := disgolink.New(botID,
		disgolink.WithListenerFunc(adapter.onTrackStart),
		disgolink.WithListenerFunc(adapter.onTrackEnd),
		disgolink.WithListenerFunc(adapter.onTrackException),
		disgolink.WithListenerFunc(adapter.onTrackStuck),
	)
	adapter.link = link

	node, err := link.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return adapter, nil
}

func newLavalinkAdapter(
	session *discordgo.Session,
	botID snowflake.ID,
	publisher ports.EventPublisher,
) *LavalinkAdapter {
	return &LavalinkAdapter{
		session:   session,
		botID:     botID,
		voice:     make(map[snowflake.ID]*voiceHandshake),
		publisher: publisher,
		expected:  make(map[snowflake.ID]string),
		leaving:   make(map[snowflake.ID]bool),
	}
}

// Close disconnects from all Lavalink nodes.
func (c *LavalinkAdapter) Close() {
	if c.link != nil {
		c.link.Close()
	}
}

// JoinChannel asks the gateway to move the bot into channelID and returns once
// Lavalink has the voice session, or after voiceConnectionTimeout.
func (c *LavalinkAdapter) JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	joined := c.awaitVoice(guildID)
	defer c.stopAwaiting(guildID, joined)

	c.expectedMu.Lock()
	delete(c.leaving, guildID)
	c.expectedMu.Unlock()

	err := c.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	timer := time.NewTimer(voiceConnectionTimeout)
	defer timer.Stop()

	select {
	case <-joined:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("voice join to %s aborted: %w", channelID, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("voice join to %s timed out after %s", channelID, voiceConnectionTimeout)
	}
}

// LeaveChannel destroys the player and disconnects from the voice channel.
func (c *LavalinkAdapter) LeaveChannel(ctx context.Context, guildID snowflake.ID) error {
	c.expectedMu.Lock()
	delete(c.expected, guildID)
	c.leaving[guildID] = true
	c.expectedMu.Unlock()

	if player := c.link.ExistingPlayer(guildID); player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", guildID, "error", err)
		}
	}

	err := c.session.ChannelVoiceJoinManual(guildID.String(), "", false, false)
	if err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// Play loads the track's source URL on the node and starts it at the given volume.
func (c *LavalinkAdapter) Play(
	ctx context.Context,
	guildID snowflake.ID,
	track *domain.Track,
	volume int,
) error {
	ctx, span := telemetry.StartSpan(ctx, "lavalink", "lavalink.play")
	defer span.End()

	loaded, err := c.loadTracks(ctx, track.SourceURL)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if len(loaded) == 0 {
		err := fmt.Errorf("%w: %s", ErrTrackUnavailable, track.SourceURL)
		telemetry.RecordError(span, err)
		return err
	}
	encoded := loaded[0].Encoded

	c.expectedMu.Lock()
	c.expected[guildID] = encoded
	c.expectedMu.Unlock()

	// Use WithEncodedTrack to avoid userData:null issue
	err = c.link.Player(guildID).Update(ctx,
		lavalink.WithEncodedTrack(encoded),
		lavalink.WithVolume(volume),
	)
	if err != nil {
		c.clearExpected(guildID, encoded)
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to play track: %w", err)
	}

	return nil
}

// Stop stops the current playback.
func (c *LavalinkAdapter) Stop(ctx context.Context, guildID snowflake.ID) error {
	c.expectedMu.Lock()
	delete(c.expected, guildID)
	c.expectedMu.Unlock()

	player := c.link.ExistingPlayer(guildID)
	if player == nil {
		return nil
	}
	if err := player.Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

// SetVolume changes the volume of the guild's player.
func (c *LavalinkAdapter) SetVolume(ctx context.Context, guildID snowflake.ID, volume int) error {
	player := c.link.ExistingPlayer(guildID)
	if player == nil {
		return nil
	}
	if err := player.Update(ctx, lavalink.WithVolume(volume)); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	return nil
}

// Name identifies the resolver.
func (c *LavalinkAdapter) Name() string {
	return "lavalink"
}

// Resolve searches through the Lavalink node's source managers.
func (c *LavalinkAdapter) Resolve(
	ctx context.Context,
	query *domain.SearchQuery,
) ([]*ports.TrackInfo, error) {
	loaded, err := c.loadTracks(ctx, query.LavalinkQuery())
	if err != nil {
		return nil, err
	}

	tracks := make([]*ports.TrackInfo, len(loaded))
	for i, track := range loaded {
		tracks[i] = convertTrack(track)
	}
	return tracks, nil
}

func (c *LavalinkAdapter) loadTracks(ctx context.Context, identifier string) ([]lavalink.Track, error) {
	node := c.link.BestNode()
	if node == nil {
		return nil, ErrNoNode
	}

	result, err := node.LoadTracks(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}
	return loadedTracks(result)
}

// loadedTracks flattens a load result; a playlist yields its selected track first.
func loadedTracks(result *lavalink.LoadResult) ([]lavalink.Track, error) {
	switch data := result.Data.(type) {
	case lavalink.Track:
		return []lavalink.Track{data}, nil

	case lavalink.Playlist:
		tracks := data.Tracks
		if i := data.Info.SelectedTrack; i > 0 && i < len(tracks) {
			tracks = append([]lavalink.Track{tracks[i]}, append(tracks[:i:i], tracks[i+1:]...)...)
		}
		return tracks, nil

	case lavalink.Search:
		return data, nil

	case lavalink.Exception:
		return nil, fmt.Errorf("lavalink: %s", data.Message)

	default:
		return nil, nil
	}
}

// convertTrack converts a Lavalink track to TrackInfo.
func convertTrack(track lavalink.Track) *ports.TrackInfo {
	info := track.Info

	return &ports.TrackInfo{
		Identifier:   info.Identifier,
		Title:        info.Title,
		Artist:       info.Author,
		Duration:     time.Duration(info.Length) * time.Millisecond,
		URL:          derefString(info.URI),
		ThumbnailURL: derefString(info.ArtworkURL),
		SourceName:   info.SourceName,
		IsStream:     info.IsStream,
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// OnVoiceServerUpdate feeds the gateway's voice server half to the handshake.
func (c *LavalinkAdapter) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	c.recordVoice(guildID, func(h *voiceHandshake) {
		h.token = event.Token
		h.endpoint = event.Endpoint
		h.haveServer = true
	})
}

// OnVoiceStateUpdate feeds the bot's own voice state to the handshake. A
// disconnect the adapter did not request is published as
// domain.VoiceDisconnectedEvent.
func (c *LavalinkAdapter) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	if event.UserID != c.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	if event.ChannelID == "" {
		if c.link != nil {
			c.link.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		}
		c.voiceMu.Lock()
		delete(c.voice, guildID)
		c.voiceMu.Unlock()
		c.onDisconnect(guildID)
		return
	}

	channelID, err := snowflake.Parse(event.ChannelID)
	if err != nil {
		slog.Error("failed to parse channel ID in voice state update", "guild", guildID, "error", err)
		return
	}

	c.recordVoice(guildID, func(h *voiceHandshake) {
		h.channelID = &channelID
		h.sessionID = event.SessionID
		h.haveState = true
	})
}

func (c *LavalinkAdapter) onDisconnect(guildID snowflake.ID) {
	c.expectedMu.Lock()
	requested := c.leaving[guildID]
	delete(c.leaving, guildID)
	delete(c.expected, guildID)
	c.expectedMu.Unlock()

	if requested {
		return
	}

	slog.Info("bot disconnected from voice externally", "guild", guildID)
	c.publish(domain.VoiceDisconnectedEvent{GuildID: guildID})
}

// isExpected reports whether encoded is the track last sent to the guild.
func (c *LavalinkAdapter) isExpected(guildID snowflake.ID, encoded string) bool {
	c.expectedMu.Lock()
	defer c.expectedMu.Unlock()
	return c.expected[guildID] == encoded && encoded != ""
}

// clearExpected forgets the guild's track if it is still encoded.
func (c *LavalinkAdapter) clearExpected(guildID snowflake.ID, encoded string) bool {
	c.expectedMu.Lock()
	defer c.expectedMu.Unlock()
	if c.expected[guildID] != encoded || encoded == "" {
		return false
	}
	delete(c.expected, guildID)
	return true
}

func (c *LavalinkAdapter) publish(event domain.Event) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(event); err != nil {
		slog.Warn("failed to publish audio event", "guild", event.EventGuildID(), "error", err)
	}
}

func (c *LavalinkAdapter) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	c.handleTrackStart(player.GuildID(), event.Track.Encoded, event.Track.Info.Title)
}

func (c *LavalinkAdapter) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	c.handleTrackEnd(player.GuildID(), event.Track.Encoded, event.Reason)
}

func (c *LavalinkAdapter) onTrackException(
	player disgolink.Player,
	event lavalink.TrackExceptionEvent,
) {
	// Lavalink follows an exception with a loadFailed end event.
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)
}

func (c *LavalinkAdapter) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	c.handleTrackStuck(player.GuildID(), event.Track.Encoded, event.Threshold)
}

func (c *LavalinkAdapter) handleTrackStart(guildID snowflake.ID, encoded, title string) {
	slog.Debug("track started", "guild", guildID, "track", title)

	if !c.isExpected(guildID, encoded) {
		return
	}
	c.publish(domain.TrackStartedEvent{GuildID: guildID})
}

func (c *LavalinkAdapter) handleTrackEnd(
	guildID snowflake.ID,
	encoded string,
	reason lavalink.TrackEndReason,
) {
	slog.Debug("track ended", "guild", guildID, "reason", reason)

	switch reason {
	case lavalink.TrackEndReasonFinished:
		if c.clearExpected(guildID, encoded) {
			c.publish(domain.TrackEndedEvent{GuildID: guildID})
		}
	case lavalink.TrackEndReasonLoadFailed:
		if c.clearExpected(guildID, encoded) {
			c.publish(domain.TrackFailedEvent{GuildID: guildID, Message: "track failed to load"})
		}
	default:
		// Stopped, replaced and cleanup ends are caused by the bot itself.
	}
}

func (c *LavalinkAdapter) handleTrackStuck(
	guildID snowflake.ID,
	encoded string,
	threshold lavalink.Duration,
) {
	slog.Warn("track stuck", "guild", guildID, "threshold", threshold)

	if c.clearExpected(guildID, encoded) {
		c.publish(domain.TrackFailedEvent{GuildID: guildID, Message: "track got stuck"})
	}
}

// Ensure LavalinkAdapter implements port interfaces.
var (
	_ ports.AudioPlayer     = (*LavalinkAdapter)(nil)
	_ ports.VoiceConnection = (*LavalinkAdapter)(nil)
	_ ports.TrackResolver   = (*LavalinkAdapter)(nil)
)
