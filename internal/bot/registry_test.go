package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

// stubModule is a test double for Module
type stubModule struct {
	name          string
	commands      []*discordgo.ApplicationCommand
	handlers      map[string]InteractionHandler
	eventHandlers []EventHandler
	initErr       error
	shutErr       error
	initCalled    bool
	gotDeps       ModuleDependencies
}

func (m *stubModule) Name() string                                   { return m.name }
func (m *stubModule) Commands() []*discordgo.ApplicationCommand      { return m.commands }
func (m *stubModule) CommandHandlers() map[string]InteractionHandler { return m.handlers }
func (m *stubModule) EventHandlers() []EventHandler                  { return m.eventHandlers }
func (m *stubModule) Shutdown() error                                { return m.shutErr }

func (m *stubModule) Init(deps ModuleDependencies) error {
	m.initCalled = true
	m.gotDeps = deps
	return m.initErr
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(&stubModule{name: "music_player"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	modules := reg.Modules()
	if len(modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(modules))
	}
	if modules[0].Name() != "music_player" {
		t.Errorf("expected module name %q, got %q", "music_player", modules[0].Name())
	}
}

func TestRegistry_KeepsRegistrationOrder(t *testing.T) {
	reg := NewRegistry()

	names := []string{"general", "auto_delete", "music_player"}
	for _, name := range names {
		if err := reg.Register(&stubModule{name: name}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	modules := reg.Modules()
	for i, name := range names {
		if modules[i].Name() != name {
			t.Errorf("position %d: expected %q, got %q", i, name, modules[i].Name())
		}
	}
}

func TestRegistry_RejectsDuplicateName(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(&stubModule{name: "general"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Register(&stubModule{name: "general"}); err == nil {
		t.Error("expected error for duplicate module name, got nil")
	}
	if len(reg.Modules()) != 1 {
		t.Errorf("expected 1 module, got %d", len(reg.Modules()))
	}
}

func TestRegistry_ModulesReturnsSnapshot(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(&stubModule{name: "module-1"})

	modules := reg.Modules()
	_ = reg.Register(&stubModule{name: "module-2"})

	if len(modules) != 1 {
		t.Errorf("expected snapshot to have 1 module, got %d", len(modules))
	}
}

func TestGlobalRegistry(t *testing.T) {
	ResetGlobalRegistry()
	defer ResetGlobalRegistry()

	Register(&stubModule{name: "global-test"})

	modules := Modules()
	if len(modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(modules))
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic for duplicate global registration")
		}
	}()
	Register(&stubModule{name: "global-test"})
}
