package presentation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/dashboard"
	"github.com/sglre6355/harmonybot/internal/modules/general/application"
	"github.com/sglre6355/harmonybot/internal/modules/general/domain"
)

const (
	botStatusInterval      = 3 * time.Second
	settingsStatusInterval = 10 * time.Second
)

// ServerJSON is a guild as served to the dashboard.
type ServerJSON struct {
	ID                snowflake.ID `json:"id"`
	Name              string       `json:"name"`
	Description       string       `json:"description,omitempty"`
	Icon              string       `json:"icon,omitempty"`
	Banner            string       `json:"banner,omitempty"`
	OwnerID           snowflake.ID `json:"ownerId"`
	CreatedAt         time.Time    `json:"createdAt"`
	Locale            string       `json:"locale"`
	Features          []string     `json:"features"`
	MemberCount       int          `json:"memberCount"`
	ChannelCount      int          `json:"channelCount"`
	RoleCount         int          `json:"roleCount"`
	EmojiCount        int          `json:"emojiCount"`
	BoostTier         int          `json:"boostTier"`
	BoostCount        int          `json:"boostCount"`
	VerificationLevel int          `json:"verificationLevel"`
	AFKTimeoutSeconds int64        `json:"afkTimeout"`
	AFKChannel        string       `json:"afkChannel,omitempty"`
	SystemChannel     string       `json:"systemChannel,omitempty"`
	RulesChannel      string       `json:"rulesChannel,omitempty"`
}

// ChannelJSON is a guild channel as served to the dashboard.
type ChannelJSON struct {
	ID               snowflake.ID  `json:"id"`
	Name             string        `json:"name"`
	Type             string        `json:"type"`
	Position         int           `json:"position"`
	ParentID         *snowflake.ID `json:"parentId"`
	Topic            string        `json:"topic,omitempty"`
	NSFW             bool          `json:"nsfw"`
	RateLimitPerUser int           `json:"rateLimitPerUser"`
}

// WebHandlers serves bot status and guild details on the dashboard.
type WebHandlers struct {
	status  *application.StatusInteractor
	servers *application.ServerInteractor
	now     func() time.Time

	botInterval      time.Duration
	settingsInterval time.Duration
}

// NewWebHandlers creates new WebHandlers.
func NewWebHandlers(status *application.StatusInteractor, servers *application.ServerInteractor) *WebHandlers {
	return &WebHandlers{
		status:           status,
		servers:          servers,
		now:              time.Now,
		botInterval:      botStatusInterval,
		settingsInterval: settingsStatusInterval,
	}
}

// Register mounts the endpoints. The bot status stream is public.
func (h *WebHandlers) Register(r dashboard.Router) {
	r.Handle("GET /api/real-time/bot-status", http.HandlerFunc(h.StreamBotStatus))
	r.HandleAuthenticated("GET /api/real-time/settings/status", http.HandlerFunc(h.StreamSettingsStatus))
	r.HandleAuthenticated("GET /api/server/{guildID}", http.HandlerFunc(h.GetServer))
	r.HandleAuthenticated("GET /api/server/{guildID}/channels", http.HandlerFunc(h.GetChannels))
}

// StreamBotStatus handles GET /api/real-time/bot-status.
func (h *WebHandlers) StreamBotStatus(w http.ResponseWriter, r *http.Request) {
	dashboard.Stream(w, r, h.botInterval, func(context.Context) (any, error) {
		return h.botStatus(), nil
	})
}

// StreamSettingsStatus handles GET /api/real-time/settings/status.
func (h *WebHandlers) StreamSettingsStatus(w http.ResponseWriter, r *http.Request) {
	dashboard.Stream(w, r, h.settingsInterval, func(context.Context) (any, error) {
		return h.settingsStatus(), nil
	})
}

// GetServer handles GET /api/server/{guildID}.
func (h *WebHandlers) GetServer(w http.ResponseWriter, r *http.Request) {
	guildID, ok := authorizeGuild(w, r)
	if !ok {
		return
	}

	info, err := h.servers.Server(guildID)
	if err != nil {
		writeServerError(w, guildID, err)
		return
	}

	dashboard.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"server":  serverJSON(info),
	})
}

// GetChannels handles GET /api/server/{guildID}/channels.
func (h *WebHandlers) GetChannels(w http.ResponseWriter, r *http.Request) {
	guildID, ok := authorizeGuild(w, r)
	if !ok {
		return
	}

	channels, err := h.servers.Channels(guildID)
	if err != nil {
		writeServerError(w, guildID, err)
		return
	}

	out := make([]ChannelJSON, 0, len(channels))
	for _, c := range channels {
		out = append(out, channelJSON(c))
	}
	dashboard.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"channels": out,
	})
}

func (h *WebHandlers) botStatus() map[string]any {
	gw := h.status.Gateway()

	var readyAt *time.Time
	if !gw.ReadyAt.IsZero() {
		readyAt = &gw.ReadyAt
	}
	return map[string]any{
		"status":    gw.State(),
		"ping":      gw.Latency.Milliseconds(),
		"readyAt":   readyAt,
		"guilds":    gw.Guilds,
		"channels":  gw.Channels,
		"users":     gw.Members,
		"timestamp": h.now().UTC(),
	}
}

func (h *WebHandlers) settingsStatus() map[string]any {
	now := h.now()
	gw := h.status.Gateway()
	rt := h.status.Runtime()
	uptime := rt.Uptime(now)

	return map[string]any{
		"botSettings": map[string]any{
			"version":       rt.Version,
			"uptime":        uptime.String(),
			"uptimeSeconds": int64(uptime.Seconds()),
			"totalServers":  gw.Guilds,
			"totalUsers":    gw.Members,
			"memory": map[string]any{
				"heapAllocBytes": rt.HeapAlloc,
				"heapSysBytes":   rt.HeapSys,
			},
			"goroutines": rt.Goroutines,
			"platform":   rt.Platform,
		},
		"timestamp": now.UTC(),
	}
}

// authorizeGuild parses the guildID path value and checks membership. It
// writes the error response and returns false when the request must stop.
func authorizeGuild(w http.ResponseWriter, r *http.Request) (snowflake.ID, bool) {
	user, ok := dashboard.UserFromContext(r.Context())
	if !ok {
		dashboard.WriteError(w, http.StatusUnauthorized, "Not logged in")
		return 0, false
	}

	guildID, err := snowflake.Parse(r.PathValue("guildID"))
	if err != nil {
		dashboard.WriteError(w, http.StatusBadRequest, "Invalid guild ID")
		return 0, false
	}

	if !user.CanAccess(guildID) {
		dashboard.WriteError(w, http.StatusForbidden, "Access denied")
		return 0, false
	}
	return guildID, true
}

func writeServerError(w http.ResponseWriter, guildID snowflake.ID, err error) {
	if errors.Is(err, domain.ErrServerNotFound) {
		dashboard.WriteError(w, http.StatusNotFound, "Server not found")
		return
	}
	slog.Error("failed to read server", "guild", guildID, "error", err)
	dashboard.WriteError(w, http.StatusInternalServerError, "Failed to get server")
}

func serverJSON(s *domain.ServerInfo) ServerJSON {
	features := s.Features
	if features == nil {
		features = []string{}
	}
	return ServerJSON{
		ID:                s.ID,
		Name:              s.Name,
		Description:       s.Description,
		Icon:              s.IconURL,
		Banner:            s.BannerURL,
		OwnerID:           s.OwnerID,
		CreatedAt:         s.CreatedAt.UTC(),
		Locale:            s.Locale,
		Features:          features,
		MemberCount:       s.MemberCount,
		ChannelCount:      s.ChannelCount,
		RoleCount:         s.RoleCount,
		EmojiCount:        s.EmojiCount,
		BoostTier:         s.BoostTier,
		BoostCount:        s.BoostCount,
		VerificationLevel: s.VerificationLevel,
		AFKTimeoutSeconds: int64(s.AFKTimeout.Seconds()),
		AFKChannel:        s.AFKChannel,
		SystemChannel:     s.SystemChannel,
		RulesChannel:      s.RulesChannel,
	}
}

func channelJSON(c domain.ServerChannel) ChannelJSON {
	out := ChannelJSON{
		ID:               c.ID,
		Name:             c.Name,
		Type:             c.Type,
		Position:         c.Position,
		Topic:            c.Topic,
		NSFW:             c.NSFW,
		RateLimitPerUser: c.RateLimitPerUser,
	}
	if c.ParentID != 0 {
		parent := c.ParentID
		out.ParentID = &parent
	}
	return out
}
