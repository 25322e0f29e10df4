package auto_delete

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/autodelete"
	"github.com/sglre6355/harmonybot/internal/bot"
)

type mockScheduler struct {
	enabled   bool
	pending   map[snowflake.ID]bool
	cancelled []snowflake.ID
}

func newMockScheduler(pending ...snowflake.ID) *mockScheduler {
	m := &mockScheduler{enabled: true, pending: make(map[snowflake.ID]bool)}
	for _, id := range pending {
		m.pending[id] = true
	}
	return m
}

func (m *mockScheduler) Cancel(messageID snowflake.ID) bool {
	m.cancelled = append(m.cancelled, messageID)
	if !m.pending[messageID] {
		return false
	}
	delete(m.pending, messageID)
	return true
}

func (m *mockScheduler) SetEnabled(enabled bool) { m.enabled = enabled }

func (m *mockScheduler) Stats() autodelete.Stats {
	return autodelete.Stats{
		Enabled:        m.enabled,
		ScheduledCount: len(m.pending),
		DefaultDelay:   30 * time.Second,
	}
}

type mockInteractionResponder struct {
	calls []*discordgo.InteractionResponse
	err   error
}

func (m *mockInteractionResponder) InteractionRespond(
	_ *discordgo.Interaction,
	resp *discordgo.InteractionResponse,
	_ ...discordgo.RequestOption,
) error {
	m.calls = append(m.calls, resp)
	return m.err
}

func commandInteraction(subcommand string) *discordgo.InteractionCreate {
	data := discordgo.ApplicationCommandInteractionData{Name: "autodelete"}
	if subcommand != "" {
		data.Options = []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: subcommand, Type: discordgo.ApplicationCommandOptionSubCommand},
		}
	}
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
			Data: data,
		},
	}
}

func buttonInteraction(customID, messageID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionMessageComponent,
			Message: &discordgo.Message{ID: messageID},
			Data: discordgo.MessageComponentInteractionData{
				CustomID:      customID,
				ComponentType: discordgo.ButtonComponent,
			},
		},
	}
}

func TestHandleCommand(t *testing.T) {
	tests := []struct {
		name        string
		subcommand  string
		initial     bool
		wantEnabled bool
		wantColor   int
		wantText    string
	}{
		{
			name:        "on enables",
			subcommand:  "on",
			initial:     false,
			wantEnabled: true,
			wantColor:   colorSuccess,
			wantText:    "enabled",
		},
		{
			name:        "off disables",
			subcommand:  "off",
			initial:     true,
			wantEnabled: false,
			wantColor:   colorSuccess,
			wantText:    "disabled",
		},
		{
			name:        "unknown subcommand",
			subcommand:  "later",
			initial:     true,
			wantEnabled: true,
			wantColor:   colorError,
			wantText:    "Unknown subcommand",
		},
		{
			name:        "missing subcommand",
			initial:     true,
			wantEnabled: true,
			wantColor:   colorError,
			wantText:    "Invalid subcommand",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := newMockScheduler()
			scheduler.enabled = tt.initial
			responder := &bot.MockResponder{}

			err := NewHandlers(scheduler).HandleCommand(nil, commandInteraction(tt.subcommand), responder)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if scheduler.enabled != tt.wantEnabled {
				t.Errorf("expected enabled=%v, got %v", tt.wantEnabled, scheduler.enabled)
			}
			embed := responder.LastResponse.Data.Embeds[0]
			if embed.Color != tt.wantColor {
				t.Errorf("expected color %#x, got %#x", tt.wantColor, embed.Color)
			}
			if !strings.Contains(embed.Description, tt.wantText) {
				t.Errorf("expected description to contain %q, got %q", tt.wantText, embed.Description)
			}
		})
	}
}

func TestHandleCommand_Stats(t *testing.T) {
	scheduler := newMockScheduler(1, 2, 3)
	responder := &bot.MockResponder{}

	if err := NewHandlers(scheduler).HandleCommand(nil, commandInteraction("stats"), responder); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields := responder.LastResponse.Data.Embeds[0].Fields
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
	want := []string{"enabled", "3", "30s"}
	for i, f := range fields {
		if f.Value != want[i] {
			t.Errorf("field %q: expected %q, got %q", f.Name, want[i], f.Value)
		}
	}
}

func TestHandleCommand_ResponderError(t *testing.T) {
	expectedErr := errors.New("responder failed")
	responder := &bot.MockResponder{Err: expectedErr}

	err := NewHandlers(newMockScheduler()).HandleCommand(nil, commandInteraction("on"), responder)
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

func TestHandleKeepButton(t *testing.T) {
	tests := []struct {
		name          string
		interaction   *discordgo.InteractionCreate
		pending       []snowflake.ID
		wantCancelled []snowflake.ID
		wantResponses int
		wantPending   int
	}{
		{
			name:          "pending message is kept",
			interaction:   buttonInteraction(autodelete.KeepButtonID, "100"),
			pending:       []snowflake.ID{100, 200},
			wantCancelled: []snowflake.ID{100},
			wantResponses: 1,
			wantPending:   1,
		},
		{
			name:          "already kept message still loses the button",
			interaction:   buttonInteraction(autodelete.KeepButtonID, "100"),
			wantCancelled: []snowflake.ID{100},
			wantResponses: 1,
		},
		{
			name:        "other buttons are ignored",
			interaction: buttonInteraction("music:skip", "100"),
			pending:     []snowflake.ID{100},
			wantPending: 1,
		},
		{
			name:        "invalid message ID is ignored",
			interaction: buttonInteraction(autodelete.KeepButtonID, "not-a-number"),
		},
		{
			name:        "commands are ignored",
			interaction: commandInteraction("on"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := newMockScheduler(tt.pending...)
			session := &mockInteractionResponder{}

			NewHandlers(scheduler).HandleKeepButton(session, tt.interaction)

			if len(scheduler.cancelled) != len(tt.wantCancelled) {
				t.Fatalf("expected cancels %v, got %v", tt.wantCancelled, scheduler.cancelled)
			}
			for i, id := range tt.wantCancelled {
				if scheduler.cancelled[i] != id {
					t.Errorf("expected cancel of %d, got %d", id, scheduler.cancelled[i])
				}
			}
			if len(session.calls) != tt.wantResponses {
				t.Fatalf("expected %d responses, got %d", tt.wantResponses, len(session.calls))
			}
			if len(scheduler.pending) != tt.wantPending {
				t.Errorf("expected %d pending, got %d", tt.wantPending, len(scheduler.pending))
			}
			if tt.wantResponses == 0 {
				return
			}

			resp := session.calls[0]
			if resp.Type != discordgo.InteractionResponseUpdateMessage {
				t.Errorf("expected update message response, got %d", resp.Type)
			}
			if resp.Data == nil || resp.Data.Components == nil || len(resp.Data.Components) != 0 {
				t.Errorf("expected empty component list, got %+v", resp.Data)
			}
		})
	}
}

func TestGetStats(t *testing.T) {
	h := NewHandlers(newMockScheduler(1, 2))
	rec := httptest.NewRecorder()

	h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/autodelete/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Success bool      `json:"success"`
		Stats   StatsJSON `json:"stats"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !body.Success {
		t.Error("expected success")
	}
	want := StatsJSON{Enabled: true, Scheduled: 2, DefaultDelaySeconds: 30}
	if body.Stats != want {
		t.Errorf("expected %+v, got %+v", want, body.Stats)
	}
}
