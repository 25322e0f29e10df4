package auto_delete

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/autodelete"
	"github.com/sglre6355/harmonybot/internal/bot"
	"github.com/sglre6355/harmonybot/internal/dashboard"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorInfo    = 0x3498DB
	colorError   = 0xE74C3C
)

// Scheduler is the part of *autodelete.Scheduler the module drives.
type Scheduler interface {
	Cancel(messageID snowflake.ID) bool
	SetEnabled(enabled bool)
	Stats() autodelete.Stats
}

// InteractionResponder answers component interactions. *discordgo.Session implements it.
type InteractionResponder interface {
	InteractionRespond(
		interaction *discordgo.Interaction,
		resp *discordgo.InteractionResponse,
		options ...discordgo.RequestOption,
	) error
}

// StatsJSON is the scheduler state served to the dashboard.
type StatsJSON struct {
	Enabled             bool    `json:"enabled"`
	Scheduled           int     `json:"scheduled"`
	DefaultDelaySeconds float64 `json:"defaultDelaySeconds"`
}

// Handlers holds the auto-delete command, button and route handlers.
type Handlers struct {
	scheduler Scheduler
}

// NewHandlers creates new Handlers.
func NewHandlers(scheduler Scheduler) *Handlers {
	return &Handlers{scheduler: scheduler}
}

// HandleCommand handles the /autodelete command.
func (h *Handlers) HandleCommand(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respond(r, "Error", "Invalid subcommand", colorError)
	}

	switch options[0].Name {
	case "on":
		h.scheduler.SetEnabled(true)
		return respond(r, "", "Auto-delete enabled. New replies will be removed after a delay.", colorSuccess)
	case "off":
		h.scheduler.SetEnabled(false)
		return respond(r, "", "Auto-delete disabled. Pending deletions still run.", colorSuccess)
	case "stats":
		stats := h.scheduler.Stats()
		state := "disabled"
		if stats.Enabled {
			state = "enabled"
		}
		return r.Respond(&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{
					{
						Title: "Auto-delete",
						Color: colorInfo,
						Fields: []*discordgo.MessageEmbedField{
							{Name: "State", Value: state, Inline: true},
							{Name: "Pending", Value: fmt.Sprintf("%d", stats.ScheduledCount), Inline: true},
							{Name: "Default Delay", Value: stats.DefaultDelay.String(), Inline: true},
						},
					},
				},
			},
		})
	default:
		return respond(r, "Error", "Unknown subcommand", colorError)
	}
}

// HandleKeepButton cancels the pending deletion of the message carrying the
// Keep button and removes the button. It ignores every other interaction.
func (h *Handlers) HandleKeepButton(s InteractionResponder, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent || i.Message == nil {
		return
	}
	if i.MessageComponentData().CustomID != autodelete.KeepButtonID {
		return
	}

	messageID, err := snowflake.Parse(i.Message.ID)
	if err != nil {
		slog.Warn("failed to parse message ID of keep button", "message", i.Message.ID, "error", err)
		return
	}

	kept := h.scheduler.Cancel(messageID)
	slog.Debug("pressed keep button", "message", messageID, "cancelled", kept)

	// Strip the button either way; a message that reached this point is staying.
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Components: []discordgo.MessageComponent{},
		},
	})
	if err != nil {
		slog.Error("failed to respond to keep button", "message", messageID, "error", err)
	}
}

// Stats returns the scheduler state for the dashboard.
func (h *Handlers) Stats() StatsJSON {
	stats := h.scheduler.Stats()
	return StatsJSON{
		Enabled:             stats.Enabled,
		Scheduled:           stats.ScheduledCount,
		DefaultDelaySeconds: stats.DefaultDelay.Seconds(),
	}
}

// GetStats handles GET /api/autodelete/stats.
func (h *Handlers) GetStats(w http.ResponseWriter, _ *http.Request) {
	dashboard.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   h.Stats(),
	})
}

func respond(r bot.Responder, title, description string, color int) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       title,
					Description: description,
					Color:       color,
				},
			},
		},
	})
}
