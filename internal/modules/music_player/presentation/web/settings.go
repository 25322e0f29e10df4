package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/dashboard"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

const (
	// settingsCategory is the only category this module owns.
	settingsCategory = "music"

	// settingsExportVersion is bumped when the export layout changes.
	settingsExportVersion = "1"

	maxSettingsBody = 16 << 10
)

// MusicSettingsJSON is the music settings payload. Omitted fields are left unchanged.
type MusicSettingsJSON struct {
	DefaultVolume *int `json:"defaultVolume,omitempty"`
	MaxQueueSize  *int `json:"maxQueueSize,omitempty"`
}

// SettingsExportJSON is the document produced by export and accepted by import.
type SettingsExportJSON struct {
	Music      MusicSettingsJSON `json:"music"`
	ExportDate time.Time         `json:"exportDate,omitzero"`
	Version    string            `json:"version,omitempty"`
}

type saveSettingsRequest struct {
	GuildID  snowflake.ID      `json:"guildId"`
	Category string            `json:"category"`
	Settings MusicSettingsJSON `json:"settings"`
}

type resetSettingsRequest struct {
	GuildID  snowflake.ID `json:"guildId"`
	Category string       `json:"category"`
}

type importSettingsRequest struct {
	GuildID  snowflake.ID       `json:"guildId"`
	Settings SettingsExportJSON `json:"settings"`
}

func (h *Handlers) registerSettings(r dashboard.Router) {
	r.HandleAuthenticated("GET /api/settings/{guildID}", http.HandlerFunc(h.GetSettings))
	r.HandleAuthenticated("POST /api/settings/save", http.HandlerFunc(h.SaveSettings))
	r.HandleAuthenticated("POST /api/settings/reset", http.HandlerFunc(h.ResetSettings))
	r.HandleAuthenticated("GET /api/settings/export", http.HandlerFunc(h.ExportSettings))
	r.HandleAuthenticated("POST /api/settings/import", http.HandlerFunc(h.ImportSettings))
}

// GetSettings handles GET /api/settings/{guildID}.
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	guildID, ok := authorizeGuild(w, r)
	if !ok {
		return
	}

	settings, err := h.settings.Get(r.Context(), guildID)
	if err != nil {
		slog.Error("failed to load settings", "guild", guildID, "error", err)
		dashboard.WriteError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}

	dashboard.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"settings": map[string]any{settingsCategory: musicSettingsJSON(settings)},
	})
}

// SaveSettings handles POST /api/settings/save.
func (h *Handlers) SaveSettings(w http.ResponseWriter, r *http.Request) {
	var req saveSettingsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !checkGuildAccess(w, r, req.GuildID) || !checkCategory(w, req.Category) {
		return
	}

	settings, err := h.settings.Update(r.Context(), usecases.UpdateSettingsInput{
		GuildID:      req.GuildID,
		Volume:       req.Settings.DefaultVolume,
		MaxQueueSize: req.Settings.MaxQueueSize,
	})
	if err != nil {
		writeSettingsError(w, req.GuildID, err)
		return
	}

	dashboard.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Settings saved",
		"settings": musicSettingsJSON(settings),
	})
}

// ResetSettings handles POST /api/settings/reset.
func (h *Handlers) ResetSettings(w http.ResponseWriter, r *http.Request) {
	var req resetSettingsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !checkGuildAccess(w, r, req.GuildID) || !checkCategory(w, req.Category) {
		return
	}

	settings, err := h.settings.Reset(r.Context(), req.GuildID)
	if err != nil {
		writeSettingsError(w, req.GuildID, err)
		return
	}

	dashboard.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Settings reset to defaults",
		"settings": musicSettingsJSON(settings),
	})
}

// ExportSettings handles GET /api/settings/export?guildId=.
func (h *Handlers) ExportSettings(w http.ResponseWriter, r *http.Request) {
	guildID, err := snowflake.Parse(r.URL.Query().Get("guildId"))
	if err != nil {
		dashboard.WriteError(w, http.StatusBadRequest, "Invalid guild ID")
		return
	}
	if !checkGuildAccess(w, r, guildID) {
		return
	}

	settings, err := h.settings.Get(r.Context(), guildID)
	if err != nil {
		slog.Error("failed to load settings", "guild", guildID, "error", err)
		dashboard.WriteError(w, http.StatusInternalServerError, "Failed to export settings")
		return
	}

	dashboard.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"settings": SettingsExportJSON{
			Music:      musicSettingsJSON(settings),
			ExportDate: time.Now().UTC(),
			Version:    settingsExportVersion,
		},
		"filename": fmt.Sprintf("harmonybot-settings-%s.json", guildID),
	})
}

// ImportSettings handles POST /api/settings/import. The document is validated
// as a whole before anything is stored.
func (h *Handlers) ImportSettings(w http.ResponseWriter, r *http.Request) {
	var req importSettingsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !checkGuildAccess(w, r, req.GuildID) {
		return
	}

	music := req.Settings.Music
	if music.DefaultVolume == nil && music.MaxQueueSize == nil {
		dashboard.WriteError(w, http.StatusBadRequest, "No music settings to import")
		return
	}

	settings, err := h.settings.Update(r.Context(), usecases.UpdateSettingsInput{
		GuildID:      req.GuildID,
		Volume:       music.DefaultVolume,
		MaxQueueSize: music.MaxQueueSize,
	})
	if err != nil {
		writeSettingsError(w, req.GuildID, err)
		return
	}

	dashboard.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Settings imported",
		"settings": musicSettingsJSON(settings),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSettingsBody)).Decode(v); err != nil {
		dashboard.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func checkCategory(w http.ResponseWriter, category string) bool {
	if category != settingsCategory {
		dashboard.WriteError(w, http.StatusBadRequest, "Unknown settings category")
		return false
	}
	return true
}

func writeSettingsError(w http.ResponseWriter, guildID snowflake.ID, err error) {
	if errors.Is(err, domain.ErrInvalidSettings) {
		dashboard.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	slog.Error("failed to store settings", "guild", guildID, "error", err)
	dashboard.WriteError(w, http.StatusInternalServerError, "Failed to save settings")
}

func musicSettingsJSON(s *domain.GuildSettings) MusicSettingsJSON {
	volume, size := s.DefaultVolume, s.MaxQueueSize
	return MusicSettingsJSON{DefaultVolume: &volume, MaxQueueSize: &size}
}
