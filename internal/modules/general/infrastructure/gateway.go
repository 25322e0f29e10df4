// Package infrastructure adapts the discordgo session to the general module's ports.
package infrastructure

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/general/domain"
)

// SessionGateway reads gateway and guild data from a discordgo session.
type SessionGateway struct {
	session *discordgo.Session

	mu      sync.RWMutex
	readyAt time.Time
}

// NewSessionGateway creates a new SessionGateway. The session may already be
// connected, in which case the first READY has been missed.
func NewSessionGateway(session *discordgo.Session) *SessionGateway {
	g := &SessionGateway{session: session}
	if session.DataReady {
		g.readyAt = time.Now().UTC()
	}
	return g
}

// OnReady records when the gateway last became ready.
func (g *SessionGateway) OnReady(_ *discordgo.Session, _ *discordgo.Ready) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.readyAt = time.Now().UTC()
}

// GatewayStatus implements application.GatewaySource.
func (g *SessionGateway) GatewayStatus() domain.GatewayStatus {
	g.mu.RLock()
	readyAt := g.readyAt
	g.mu.RUnlock()

	status := domain.GatewayStatus{
		Connected: g.session.DataReady,
		Latency:   g.session.HeartbeatLatency(),
		ReadyAt:   readyAt,
	}
	if status.Latency < 0 {
		status.Latency = 0
	}

	state := g.session.State
	if state == nil {
		return status
	}
	state.RLock()
	defer state.RUnlock()

	status.Guilds = len(state.Guilds)
	for _, guild := range state.Guilds {
		status.Channels += len(guild.Channels)
		status.Members += guild.MemberCount
	}
	return status
}

// Server implements application.ServerDirectory.
func (g *SessionGateway) Server(guildID snowflake.ID) (*domain.ServerInfo, error) {
	guild, err := g.guild(guildID)
	if err != nil {
		return nil, err
	}

	g.session.State.RLock()
	defer g.session.State.RUnlock()
	return ServerInfoFromGuild(guild), nil
}

// Channels implements application.ServerDirectory.
func (g *SessionGateway) Channels(guildID snowflake.ID) ([]domain.ServerChannel, error) {
	guild, err := g.guild(guildID)
	if err != nil {
		return nil, err
	}

	g.session.State.RLock()
	defer g.session.State.RUnlock()
	return ChannelsFromGuild(guild), nil
}

func (g *SessionGateway) guild(guildID snowflake.ID) (*discordgo.Guild, error) {
	if g.session.State == nil {
		return nil, domain.ErrServerNotFound
	}
	guild, err := g.session.State.Guild(guildID.String())
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return nil, domain.ErrServerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read guild state: %w", err)
	}
	return guild, nil
}

// ServerInfoFromGuild converts a cached guild.
func ServerInfoFromGuild(guild *discordgo.Guild) *domain.ServerInfo {
	id, _ := snowflake.Parse(guild.ID)
	owner, _ := snowflake.Parse(guild.OwnerID)

	info := &domain.ServerInfo{
		ID:                id,
		Name:              guild.Name,
		Description:       guild.Description,
		IconURL:           guild.IconURL("512"),
		BannerURL:         guild.BannerURL("1024"),
		OwnerID:           owner,
		CreatedAt:         id.Time(),
		Locale:            guild.PreferredLocale,
		MemberCount:       guild.MemberCount,
		ChannelCount:      len(guild.Channels),
		RoleCount:         len(guild.Roles),
		EmojiCount:        len(guild.Emojis),
		BoostTier:         int(guild.PremiumTier),
		BoostCount:        guild.PremiumSubscriptionCount,
		VerificationLevel: int(guild.VerificationLevel),
		AFKTimeout:        time.Duration(guild.AfkTimeout) * time.Second,
	}
	for _, f := range guild.Features {
		info.Features = append(info.Features, string(f))
	}

	names := make(map[string]string, len(guild.Channels))
	for _, c := range guild.Channels {
		names[c.ID] = c.Name
	}
	info.AFKChannel = names[guild.AfkChannelID]
	info.SystemChannel = names[guild.SystemChannelID]
	info.RulesChannel = names[guild.RulesChannelID]

	return info
}

// ChannelsFromGuild lists a cached guild's channels by position.
func ChannelsFromGuild(guild *discordgo.Guild) []domain.ServerChannel {
	channels := make([]domain.ServerChannel, 0, len(guild.Channels))
	for _, c := range guild.Channels {
		id, _ := snowflake.Parse(c.ID)
		var parent snowflake.ID
		if c.ParentID != "" {
			parent, _ = snowflake.Parse(c.ParentID)
		}
		channels = append(channels, domain.ServerChannel{
			ID:               id,
			Name:             c.Name,
			Type:             channelTypeName(c.Type),
			Position:         c.Position,
			ParentID:         parent,
			Topic:            c.Topic,
			NSFW:             c.NSFW,
			RateLimitPerUser: c.RateLimitPerUser,
		})
	}
	sort.SliceStable(channels, func(i, j int) bool {
		if channels[i].Position != channels[j].Position {
			return channels[i].Position < channels[j].Position
		}
		return channels[i].ID < channels[j].ID
	})
	return channels
}

func channelTypeName(t discordgo.ChannelType) string {
	switch t {
	case discordgo.ChannelTypeGuildText:
		return "text"
	case discordgo.ChannelTypeGuildVoice:
		return "voice"
	case discordgo.ChannelTypeGuildCategory:
		return "category"
	case discordgo.ChannelTypeGuildNews:
		return "announcement"
	case discordgo.ChannelTypeGuildStageVoice:
		return "stage"
	case discordgo.ChannelTypeGuildForum:
		return "forum"
	case discordgo.ChannelTypeGuildMedia:
		return "media"
	case discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread:
		return "thread"
	default:
		return "other"
	}
}
