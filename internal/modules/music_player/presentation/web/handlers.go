// Package web exposes the music player on the dashboard API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/dashboard"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

const (
	queueStreamInterval  = 2 * time.Second
	statusStreamInterval = 3 * time.Second
)

// TrackJSON is a track as served to the dashboard.
type TrackJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Duration    string `json:"duration"`
	DurationMS  int64  `json:"durationMs"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	RequestedBy string `json:"requestedBy,omitempty"`
	URL         string `json:"url"`
	IsStream    bool   `json:"isStream"`
}

// QueueJSON is the queue payload of the query endpoint and the queue stream.
type QueueJSON struct {
	Success    bool        `json:"success"`
	Queue      []TrackJSON `json:"queue"`
	NowPlaying *TrackJSON  `json:"nowPlaying"`
	IsPlaying  bool        `json:"isPlaying"`
	Volume     int         `json:"volume"`
	LoopMode   string      `json:"loopMode"`
	Timestamp  time.Time   `json:"timestamp"`
}

// ServerJSON summarizes one guild with a queue.
type ServerJSON struct {
	ID          snowflake.ID `json:"id"`
	Name        string       `json:"name,omitempty"`
	Icon        string       `json:"icon,omitempty"`
	CurrentSong *TrackJSON   `json:"currentSong"`
	QueueLength int          `json:"queueLength"`
	IsPlaying   bool         `json:"isPlaying"`
	Volume      int          `json:"volume"`
	LoopMode    string       `json:"loopMode"`
}

type controlRequest struct {
	Action string `json:"action"`
	Value  any    `json:"value"`
}

// Handlers serves the music dashboard endpoints.
type Handlers struct {
	queues   *usecases.QueueManager
	settings *usecases.SettingsService

	queueInterval  time.Duration
	statusInterval time.Duration
}

// NewHandlers creates new Handlers.
func NewHandlers(queues *usecases.QueueManager, settings *usecases.SettingsService) *Handlers {
	return &Handlers{
		queues:         queues,
		settings:       settings,
		queueInterval:  queueStreamInterval,
		statusInterval: statusStreamInterval,
	}
}

// Register mounts the queue, control and settings endpoints. All of them
// require a logged-in user.
func (h *Handlers) Register(r dashboard.Router) {
	r.HandleAuthenticated("GET /api/music/queue/{guildID}", http.HandlerFunc(h.GetQueue))
	r.HandleAuthenticated("POST /api/music/control/{guildID}", http.HandlerFunc(h.Control))
	r.HandleAuthenticated("GET /api/music/active-servers", http.HandlerFunc(h.ActiveServers))
	r.HandleAuthenticated("GET /api/real-time/music/queue/{guildID}", http.HandlerFunc(h.StreamQueue))
	r.HandleAuthenticated("GET /api/real-time/music/status", http.HandlerFunc(h.StreamStatus))
	h.registerSettings(r)
}

// GetQueue handles GET /api/music/queue/{guildID}.
func (h *Handlers) GetQueue(w http.ResponseWriter, r *http.Request) {
	guildID, ok := authorizeGuild(w, r)
	if !ok {
		return
	}

	snapshot, err := h.queues.Snapshot(guildID)
	if err != nil {
		if errors.Is(err, usecases.ErrNoActiveQueue) {
			dashboard.WriteError(w, http.StatusNotFound, "No active queue")
			return
		}
		slog.Error("failed to read queue", "guild", guildID, "error", err)
		dashboard.WriteError(w, http.StatusInternalServerError, "Failed to get music queue")
		return
	}

	dashboard.WriteJSON(w, http.StatusOK, queueJSON(snapshot))
}

// Control handles POST /api/music/control/{guildID}.
func (h *Handlers) Control(w http.ResponseWriter, r *http.Request) {
	guildID, ok := authorizeGuild(w, r)
	if !ok {
		return
	}

	var req controlRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		dashboard.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	action, err := usecases.ParseControlAction(req.Action)
	if err != nil {
		dashboard.WriteError(w, http.StatusBadRequest, "Invalid action")
		return
	}

	out, err := h.queues.Control(r.Context(), usecases.ControlInput{
		GuildID: guildID,
		Action:  action,
		Value:   controlValue(req.Value),
	})
	if err != nil {
		status, message := controlError(err)
		if status == http.StatusInternalServerError {
			slog.Error("music control failed", "guild", guildID, "action", action, "error", err)
		}
		dashboard.WriteError(w, status, message)
		return
	}

	dashboard.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   out.Message,
		"timestamp": time.Now().UTC(),
	})
}

// ActiveServers handles GET /api/music/active-servers.
func (h *Handlers) ActiveServers(w http.ResponseWriter, r *http.Request) {
	user, ok := dashboard.UserFromContext(r.Context())
	if !ok {
		dashboard.WriteError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	dashboard.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"servers":   h.activeServers(user),
		"timestamp": time.Now().UTC(),
	})
}

// StreamQueue handles GET /api/real-time/music/queue/{guildID}. A guild
// without a queue streams an empty, idle payload.
func (h *Handlers) StreamQueue(w http.ResponseWriter, r *http.Request) {
	guildID, ok := authorizeGuild(w, r)
	if !ok {
		return
	}

	dashboard.Stream(w, r, h.queueInterval, func(context.Context) (any, error) {
		snapshot, err := h.queues.Snapshot(guildID)
		if errors.Is(err, usecases.ErrNoActiveQueue) {
			return emptyQueueJSON(), nil
		}
		if err != nil {
			return nil, err
		}
		return queueJSON(snapshot), nil
	})
}

// StreamStatus handles GET /api/real-time/music/status.
func (h *Handlers) StreamStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := dashboard.UserFromContext(r.Context())
	if !ok {
		dashboard.WriteError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	dashboard.Stream(w, r, h.statusInterval, func(context.Context) (any, error) {
		servers := h.activeServers(user)
		queued := 0
		for _, s := range servers {
			queued += s.QueueLength
		}
		return map[string]any{
			"success":       true,
			"activeServers": servers,
			"stats": map[string]any{
				"activeServers": len(servers),
				"totalQueued":   queued,
			},
			"timestamp": time.Now().UTC(),
		}, nil
	})
}

func (h *Handlers) activeServers(user *dashboard.User) []ServerJSON {
	guilds := make(map[snowflake.ID]dashboard.Guild, len(user.Guilds))
	for _, g := range user.Guilds {
		guilds[g.ID] = g
	}

	servers := make([]ServerJSON, 0)
	for _, id := range h.queues.ActiveGuilds() {
		g, ok := guilds[id]
		if !ok {
			continue
		}
		snapshot, err := h.queues.Snapshot(id)
		if err != nil {
			// Destroyed between listing and reading.
			continue
		}
		servers = append(servers, ServerJSON{
			ID:          id,
			Name:        g.Name,
			Icon:        g.Icon,
			CurrentSong: trackJSONPtr(snapshot.Current),
			QueueLength: snapshot.Len(),
			IsPlaying:   snapshot.IsPlaying,
			Volume:      snapshot.Volume,
			LoopMode:    snapshot.LoopMode.String(),
		})
	}
	return servers
}

// authorizeGuild parses the guildID path value and checks membership. It
// writes the error response and returns false when the request must stop.
func authorizeGuild(w http.ResponseWriter, r *http.Request) (snowflake.ID, bool) {
	if _, ok := dashboard.UserFromContext(r.Context()); !ok {
		dashboard.WriteError(w, http.StatusUnauthorized, "Not logged in")
		return 0, false
	}

	guildID, err := snowflake.Parse(r.PathValue("guildID"))
	if err != nil {
		dashboard.WriteError(w, http.StatusBadRequest, "Invalid guild ID")
		return 0, false
	}
	return guildID, checkGuildAccess(w, r, guildID)
}

// checkGuildAccess writes the error response and returns false unless the
// logged-in user is a member of guildID.
func checkGuildAccess(w http.ResponseWriter, r *http.Request, guildID snowflake.ID) bool {
	user, ok := dashboard.UserFromContext(r.Context())
	if !ok {
		dashboard.WriteError(w, http.StatusUnauthorized, "Not logged in")
		return false
	}
	if guildID == 0 {
		dashboard.WriteError(w, http.StatusBadRequest, "Invalid guild ID")
		return false
	}
	if !user.CanAccess(guildID) {
		dashboard.WriteError(w, http.StatusForbidden, "Access denied")
		return false
	}
	return true
}

func controlError(err error) (int, string) {
	switch {
	case errors.Is(err, usecases.ErrNoActiveQueue):
		return http.StatusNotFound, "No active queue"
	case errors.Is(err, usecases.ErrNotPlaying):
		return http.StatusConflict, "Nothing is playing"
	case errors.Is(err, usecases.ErrInvalidVolume):
		return http.StatusBadRequest, "Volume must be between 0 and 100"
	case errors.Is(err, usecases.ErrInvalidControl):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "Failed to control music playback"
	}
}

// controlValue accepts both JSON numbers and strings.
func controlValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func queueJSON(s *usecases.QueueSnapshot) QueueJSON {
	queue := make([]TrackJSON, 0, len(s.Upcoming))
	for _, t := range s.Upcoming {
		queue = append(queue, trackJSON(t))
	}
	return QueueJSON{
		Success:    true,
		Queue:      queue,
		NowPlaying: trackJSONPtr(s.Current),
		IsPlaying:  s.IsPlaying,
		Volume:     s.Volume,
		LoopMode:   s.LoopMode.String(),
		Timestamp:  s.Timestamp,
	}
}

func emptyQueueJSON() QueueJSON {
	return QueueJSON{
		Success:   true,
		Queue:     []TrackJSON{},
		Volume:    domain.DefaultVolume,
		LoopMode:  domain.LoopModeNone.String(),
		Timestamp: time.Now().UTC(),
	}
}

func trackJSON(t *domain.Track) TrackJSON {
	return TrackJSON{
		ID:          string(t.ID),
		Title:       t.Title,
		Artist:      t.Artist,
		Duration:    t.FormattedDuration(),
		DurationMS:  t.Duration.Milliseconds(),
		Thumbnail:   t.ThumbnailURL,
		RequestedBy: t.RequesterName,
		URL:         t.SourceURL,
		IsStream:    t.IsStream,
	}
}

func trackJSONPtr(t *domain.Track) *TrackJSON {
	if t == nil {
		return nil
	}
	j := trackJSON(t)
	return &j
}
