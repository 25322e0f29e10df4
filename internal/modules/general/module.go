// Package general provides the /ping and /help commands along with bot status
// and guild details for the dashboard.
package general

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/harmonybot/internal/bot"
	"github.com/sglre6355/harmonybot/internal/dashboard"
	"github.com/sglre6355/harmonybot/internal/modules/general/application"
	"github.com/sglre6355/harmonybot/internal/modules/general/infrastructure"
	"github.com/sglre6355/harmonybot/internal/modules/general/presentation"
)

func init() {
	bot.Register(&GeneralModule{})
}

// GeneralModule provides informational commands.
type GeneralModule struct {
	pingHandler *presentation.PingHandler
	helpHandler *presentation.HelpHandler
	webHandlers *presentation.WebHandlers
	gateway     *infrastructure.SessionGateway
}

var _ bot.RouteProvider = (*GeneralModule)(nil)

// Name returns the module name.
func (m *GeneralModule) Name() string {
	return "general"
}

// Commands returns the slash commands for this module.
func (m *GeneralModule) Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Check the bot's gateway latency",
		},
		{
			Name:        "help",
			Description: "List the available commands",
		},
	}
}

// CommandHandlers returns the command handlers for this module.
func (m *GeneralModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"ping": m.pingHandler.Handle,
		"help": m.helpHandler.Handle,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *GeneralModule) EventHandlers() []bot.EventHandler {
	if m.gateway == nil {
		return nil
	}
	return []bot.EventHandler{m.gateway.OnReady}
}

// RegisterRoutes mounts the status and server endpoints.
func (m *GeneralModule) RegisterRoutes(r dashboard.Router) {
	m.webHandlers.Register(r)
}

// Init initializes the module.
func (m *GeneralModule) Init(deps bot.ModuleDependencies) error {
	var (
		latency   application.LatencySource
		gateway   application.GatewaySource
		directory application.ServerDirectory
		version   string
	)
	if deps.Session != nil {
		latency = deps.Session
		m.gateway = infrastructure.NewSessionGateway(deps.Session)
		gateway = m.gateway
		directory = m.gateway
	}
	if deps.Config != nil {
		version = deps.Config.Version
	}

	m.pingHandler = presentation.NewPingHandler(latency)
	m.helpHandler = presentation.NewHelpHandler(allCommands)
	m.webHandlers = presentation.NewWebHandlers(
		application.NewStatusInteractor(gateway, version, time.Now()),
		application.NewServerInteractor(directory),
	)
	return nil
}

// Shutdown cleans up module resources.
func (m *GeneralModule) Shutdown() error {
	return nil
}

func allCommands() []*discordgo.ApplicationCommand {
	var commands []*discordgo.ApplicationCommand
	for _, mod := range bot.Modules() {
		commands = append(commands, mod.Commands()...)
	}
	return commands
}
