// Package profile provides the /avatar, /banner, /profile and /serveravatars
// commands.
package profile

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/harmonybot/internal/bot"
)

func init() {
	bot.Register(&ProfileModule{})
}

// ProfileModule shows user avatars, banners and profiles.
type ProfileModule struct {
	handlers *Handlers
}

// Name returns the module name.
func (m *ProfileModule) Name() string {
	return "profile"
}

// Commands returns the slash commands for this module.
func (m *ProfileModule) Commands() []*discordgo.ApplicationCommand {
	minSize, minLimit := float64(minImageSize), float64(1)
	userOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: "Whose to show (defaults to you)",
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "avatar",
			Description: "Show a user's avatar",
			Options: []*discordgo.ApplicationCommandOption{
				userOption,
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "size",
					Description: "Image size in pixels, rounded down to a power of two",
					MinValue:    &minSize,
					MaxValue:    maxImageSize,
				},
			},
		},
		{
			Name:        "banner",
			Description: "Show a user's profile banner",
			Options:     []*discordgo.ApplicationCommandOption{userOption},
		},
		{
			Name:        "profile",
			Description: "Show information about a user",
			Options:     []*discordgo.ApplicationCommandOption{userOption},
		},
		{
			Name:        "serveravatars",
			Description: "Show the avatars of server members",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "limit",
					Description: "How many members to show",
					MinValue:    &minLimit,
					MaxValue:    maxServerAvatars,
				},
			},
		},
	}
}

// CommandHandlers returns the command handlers for this module.
func (m *ProfileModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"avatar":        m.handlers.HandleAvatar,
		"banner":        m.handlers.HandleBanner,
		"profile":       m.handlers.HandleProfile,
		"serveravatars": m.handlers.HandleServerAvatars,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *ProfileModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			m.handlers.HandleViewButton(s, i)
		},
	}
}

// Init initializes the module.
func (m *ProfileModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		return errors.New("profile requires a Discord session")
	}
	m.handlers = NewHandlers(deps.Session, deps.Session.State)
	return nil
}

// Shutdown cleans up module resources.
func (m *ProfileModule) Shutdown() error {
	return nil
}
