package presentation

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/harmonybot/internal/autodelete"
	"github.com/sglre6355/harmonybot/internal/bot"
	"github.com/sglre6355/harmonybot/internal/modules/general/application"
	"github.com/sglre6355/harmonybot/internal/modules/general/domain"
)

const colorInfo = 0x3498DB

// Discord allows 25 fields per embed.
const maxHelpFields = 25

// PingHandler handles the /ping command.
type PingHandler struct {
	interactor *application.PingInteractor
}

// NewPingHandler creates a new PingHandler.
func NewPingHandler(latency application.LatencySource) *PingHandler {
	return &PingHandler{
		interactor: application.NewPingInteractor(latency),
	}
}

// Handle processes the ping command and sends the response.
func (h *PingHandler) Handle(
	_ *discordgo.Session,
	_ *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	result := h.interactor.Execute()

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("%s %s", result.Message, result.LatencyText()),
		},
	})
}

// HelpHandler handles the /help command.
type HelpHandler struct {
	interactor *application.HelpInteractor
}

// NewHelpHandler creates a new HelpHandler listing the commands returned by commands.
func NewHelpHandler(commands func() []*discordgo.ApplicationCommand) *HelpHandler {
	return &HelpHandler{
		interactor: application.NewHelpInteractor(func() []domain.HelpEntry {
			return HelpEntries(commands())
		}),
	}
}

// Handle replies with the command list and a Keep button.
func (h *HelpHandler) Handle(
	_ *discordgo.Session,
	_ *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	page := h.interactor.Execute()

	embed := &discordgo.MessageEmbed{
		Title:       "Commands",
		Description: "Replies are removed automatically. Press Keep to pin a reply in place.",
		Color:       colorInfo,
	}
	for _, entry := range page.Entries {
		if len(embed.Fields) == maxHelpFields {
			break
		}
		value := entry.Description
		if len(entry.Subcommands) > 0 {
			value += "\n`" + strings.Join(entry.Subcommands, "` `") + "`"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "/" + entry.Name,
			Value: value,
		})
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: autodelete.KeepComponents(),
		},
	})
}

// HelpEntries converts slash command definitions into help entries.
func HelpEntries(commands []*discordgo.ApplicationCommand) []domain.HelpEntry {
	entries := make([]domain.HelpEntry, 0, len(commands))
	for _, cmd := range commands {
		entry := domain.HelpEntry{
			Name:        cmd.Name,
			Description: cmd.Description,
		}
		for _, opt := range cmd.Options {
			if opt.Type == discordgo.ApplicationCommandOptionSubCommand {
				entry.Subcommands = append(entry.Subcommands, opt.Name)
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
