// Package auto_delete exposes the reply deletion scheduler to users: the
// /autodelete command, the Keep button and the dashboard stats.
package auto_delete

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/harmonybot/internal/bot"
	"github.com/sglre6355/harmonybot/internal/dashboard"
)

func init() {
	bot.Register(&AutoDeleteModule{})
}

var _ bot.RouteProvider = (*AutoDeleteModule)(nil)

// AutoDeleteModule provides the auto-delete controls.
type AutoDeleteModule struct {
	handlers *Handlers
}

// Name returns the module name.
func (m *AutoDeleteModule) Name() string {
	return "auto_delete"
}

// Commands returns the slash commands for this module.
func (m *AutoDeleteModule) Commands() []*discordgo.ApplicationCommand {
	manageMessages := int64(discordgo.PermissionManageMessages)

	return []*discordgo.ApplicationCommand{
		{
			Name:                     "autodelete",
			Description:              "Control automatic removal of bot replies",
			DefaultMemberPermissions: &manageMessages,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "on",
					Description: "Remove new replies after a delay",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "off",
					Description: "Keep new replies",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "stats",
					Description: "Show pending deletions",
				},
			},
		},
	}
}

// CommandHandlers returns the command handlers for this module.
func (m *AutoDeleteModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"autodelete": m.handlers.HandleCommand,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *AutoDeleteModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			m.handlers.HandleKeepButton(s, i)
		},
	}
}

// Init initializes the module.
func (m *AutoDeleteModule) Init(deps bot.ModuleDependencies) error {
	if deps.Scheduler == nil {
		return errors.New("auto_delete requires the deletion scheduler")
	}
	m.handlers = NewHandlers(deps.Scheduler)
	return nil
}

// RegisterRoutes mounts the stats endpoint.
func (m *AutoDeleteModule) RegisterRoutes(r dashboard.Router) {
	if m.handlers == nil {
		return
	}
	r.HandleAuthenticated("GET /api/autodelete/stats", http.HandlerFunc(m.handlers.GetStats))
	r.AddStats("autoDelete", func() any {
		return m.handlers.Stats()
	})
}

// Shutdown cleans up module resources. The scheduler is owned by the bot.
func (m *AutoDeleteModule) Shutdown() error {
	return nil
}
