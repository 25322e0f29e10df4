package application

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/general/domain"
)

// ServerDirectory looks up guilds the bot is in.
type ServerDirectory interface {
	Server(guildID snowflake.ID) (*domain.ServerInfo, error)
	Channels(guildID snowflake.ID) ([]domain.ServerChannel, error)
}

// ServerInteractor serves guild details to the dashboard.
type ServerInteractor struct {
	directory ServerDirectory
}

// NewServerInteractor creates a new ServerInteractor. A nil directory finds no servers.
func NewServerInteractor(directory ServerDirectory) *ServerInteractor {
	return &ServerInteractor{directory: directory}
}

// Server returns the details of a guild.
func (s *ServerInteractor) Server(guildID snowflake.ID) (*domain.ServerInfo, error) {
	if s.directory == nil {
		return nil, domain.ErrServerNotFound
	}
	return s.directory.Server(guildID)
}

// Channels returns a guild's channels ordered by position.
func (s *ServerInteractor) Channels(guildID snowflake.ID) ([]domain.ServerChannel, error) {
	if s.directory == nil {
		return nil, domain.ErrServerNotFound
	}
	return s.directory.Channels(guildID)
}
