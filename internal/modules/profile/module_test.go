package profile

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/harmonybot/internal/bot"
)

func TestProfileModule_RequiresSession(t *testing.T) {
	if err := (&ProfileModule{}).Init(bot.ModuleDependencies{}); err == nil {
		t.Error("expected error without a session")
	}
}

func TestProfileModule_HandlersMatchCommands(t *testing.T) {
	m := &ProfileModule{}
	if err := m.Init(bot.ModuleDependencies{Session: &discordgo.Session{State: discordgo.NewState()}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	handlers := m.CommandHandlers()
	for _, cmd := range m.Commands() {
		if handlers[cmd.Name] == nil {
			t.Errorf("command %q has no handler", cmd.Name)
		}
	}
	if len(handlers) != len(m.Commands()) {
		t.Errorf("expected %d handlers, got %d", len(m.Commands()), len(handlers))
	}
	if len(m.EventHandlers()) != 1 {
		t.Errorf("expected the view button handler, got %d handlers", len(m.EventHandlers()))
	}
}
