package profile

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/harmonybot/internal/autodelete"
	"github.com/sglre6355/harmonybot/internal/bot"
)

const guildID = "500"

type mockUsers struct {
	users map[string]*discordgo.User
	err   error
	calls []string
}

func (m *mockUsers) User(userID string, _ ...discordgo.RequestOption) (*discordgo.User, error) {
	m.calls = append(m.calls, userID)
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[userID]; ok {
		return u, nil
	}
	return &discordgo.User{ID: userID, Username: "unknown"}, nil
}

type mockGuilds struct {
	guilds map[string]*discordgo.Guild
}

func (m *mockGuilds) Guild(id string) (*discordgo.Guild, error) {
	if g, ok := m.guilds[id]; ok {
		return g, nil
	}
	return nil, discordgo.ErrStateNotFound
}

type recordingResponder struct {
	response *discordgo.InteractionResponse
}

func (r *recordingResponder) InteractionRespond(
	_ *discordgo.Interaction,
	resp *discordgo.InteractionResponse,
	_ ...discordgo.RequestOption,
) error {
	r.response = resp
	return nil
}

var (
	alice = &discordgo.User{ID: "175928847299117063", Username: "alice", Avatar: "a1", Discriminator: "0"}
	bob   = &discordgo.User{ID: "200", Username: "bob", GlobalName: "Bobby", Discriminator: "0"}
)

func command(name string, options []*discordgo.ApplicationCommandInteractionDataOption, resolved *discordgo.ApplicationCommandInteractionDataResolved) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: guildID,
			Member:  &discordgo.Member{User: alice, Nick: "Al", Roles: []string{"r1", "r2"}, JoinedAt: time.Unix(1700000000, 0)},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:     name,
				Options:  options,
				Resolved: resolved,
			},
		},
	}
}

func userOption(id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  "user",
		Type:  discordgo.ApplicationCommandOptionUser,
		Value: id,
	}
}

func intOption(name string, v int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionInteger,
		Value: float64(v),
	}
}

func resolvedBob(withMember bool) *discordgo.ApplicationCommandInteractionDataResolved {
	resolved := &discordgo.ApplicationCommandInteractionDataResolved{
		Users: map[string]*discordgo.User{bob.ID: bob},
	}
	if withMember {
		resolved.Members = map[string]*discordgo.Member{bob.ID: {Nick: "", Roles: []string{"r1"}}}
	}
	return resolved
}

func testGuilds() *mockGuilds {
	return &mockGuilds{guilds: map[string]*discordgo.Guild{
		guildID: {
			ID:   guildID,
			Name: "Home",
			Roles: []*discordgo.Role{
				{ID: "r1", Color: 0x00FF00, Position: 1},
				{ID: "r2", Color: 0xFF0000, Position: 5},
				{ID: "r3", Color: 0x0000FF, Position: 9},
			},
			Members: []*discordgo.Member{
				{User: &discordgo.User{ID: "1", Username: "bot", Bot: true}},
				{User: &discordgo.User{ID: "2", Username: "carol"}, Nick: "Caz"},
				{User: &discordgo.User{ID: "3", Username: "dave"}},
				{User: &discordgo.User{ID: "4", Username: "erin"}},
			},
		},
	}}
}

func embed(t *testing.T, r *bot.MockResponder) *discordgo.MessageEmbed {
	t.Helper()
	if r.LastResponse == nil || r.LastResponse.Data == nil || len(r.LastResponse.Data.Embeds) == 0 {
		t.Fatal("expected an embed reply")
	}
	return r.LastResponse.Data.Embeds[0]
}

func TestImageSize(t *testing.T) {
	tests := []struct {
		in   int64
		want int
	}{
		{in: 1, want: 16},
		{in: 16, want: 16},
		{in: 100, want: 64},
		{in: 1024, want: 1024},
		{in: 1500, want: 1024},
		{in: 9000, want: 4096},
	}
	for _, tt := range tests {
		if got := imageSize(tt.in); got != tt.want {
			t.Errorf("imageSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHandleAvatar(t *testing.T) {
	tests := []struct {
		name      string
		options   []*discordgo.ApplicationCommandInteractionDataOption
		resolved  *discordgo.ApplicationCommandInteractionDataResolved
		wantTitle string
		wantSize  string
	}{
		{name: "defaults to invoker", wantTitle: "Avatar of alice", wantSize: "size=1024"},
		{name: "other user", options: []*discordgo.ApplicationCommandInteractionDataOption{userOption(bob.ID)}, resolved: resolvedBob(false), wantTitle: "Avatar of Bobby", wantSize: "size=1024"},
		{name: "custom size", options: []*discordgo.ApplicationCommandInteractionDataOption{intOption("size", 300)}, wantTitle: "Avatar of alice", wantSize: "size=256"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlers(&mockUsers{}, testGuilds())
			responder := &bot.MockResponder{}

			if err := h.HandleAvatar(nil, command("avatar", tt.options, tt.resolved), responder); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			e := embed(t, responder)
			if e.Title != tt.wantTitle {
				t.Errorf("expected title %q, got %q", tt.wantTitle, e.Title)
			}
			if e.Image == nil || !strings.Contains(e.Image.URL, tt.wantSize) {
				t.Errorf("expected image with %s, got %+v", tt.wantSize, e.Image)
			}
			if e.Footer == nil || !strings.Contains(e.Footer.Text, "alice") {
				t.Errorf("expected requester footer, got %+v", e.Footer)
			}

			row := responder.LastResponse.Data.Components[0].(discordgo.ActionsRow)
			link := row.Components[0].(discordgo.Button)
			if link.Style != discordgo.LinkButton || link.URL != e.Image.URL {
				t.Errorf("expected download link to the image, got %+v", link)
			}
			if keep := row.Components[1].(discordgo.Button); keep.CustomID != autodelete.KeepButtonID {
				t.Errorf("expected keep button, got %+v", keep)
			}
		})
	}
}

func TestHandleBanner(t *testing.T) {
	withBanner := &discordgo.User{ID: bob.ID, Username: "bob", Banner: "b1"}

	tests := []struct {
		name      string
		users     *mockUsers
		wantKind  bot.ReplyKind
		wantTitle string
		wantText  string
	}{
		{
			name:      "has banner",
			users:     &mockUsers{users: map[string]*discordgo.User{bob.ID: withBanner}},
			wantKind:  bot.ReplyDefault,
			wantTitle: "Banner of bob",
		},
		{
			name:     "no banner",
			users:    &mockUsers{users: map[string]*discordgo.User{bob.ID: bob}},
			wantKind: bot.ReplyError,
			wantText: "Bobby has no banner.",
		},
		{
			name:     "fetch fails",
			users:    &mockUsers{err: errors.New("rate limited")},
			wantKind: bot.ReplyError,
			wantText: "Failed to load the banner.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlers(tt.users, testGuilds())
			responder := &bot.MockResponder{}
			i := command("banner", []*discordgo.ApplicationCommandInteractionDataOption{userOption(bob.ID)}, resolvedBob(false))

			if err := h.HandleBanner(nil, i, responder); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if responder.LastKind != tt.wantKind {
				t.Errorf("expected kind %v, got %v", tt.wantKind, responder.LastKind)
			}
			e := embed(t, responder)
			if tt.wantTitle != "" && e.Title != tt.wantTitle {
				t.Errorf("expected title %q, got %q", tt.wantTitle, e.Title)
			}
			if tt.wantText != "" && e.Description != tt.wantText {
				t.Errorf("expected %q, got %q", tt.wantText, e.Description)
			}
			if len(tt.users.calls) != 1 || tt.users.calls[0] != bob.ID {
				t.Errorf("expected bob to be fetched, got %v", tt.users.calls)
			}
		})
	}
}

func TestHandleProfile_Member(t *testing.T) {
	h := NewHandlers(&mockUsers{}, testGuilds())
	responder := &bot.MockResponder{}

	if err := h.HandleProfile(nil, command("profile", nil, nil), responder); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := embed(t, responder)
	for _, want := range []string{
		"**Tag:** alice",
		"**ID:** " + alice.ID,
		"**Bot:** No",
		"**Account created:** <t:",
		"**Nickname:** Al",
		"**Joined server:** <t:1700000000:R>",
		"**Role color:** #FF0000",
		"**Roles:** 2",
	} {
		if !strings.Contains(e.Description, want) {
			t.Errorf("expected %q in %q", want, e.Description)
		}
	}

	row := responder.LastResponse.Data.Components[0].(discordgo.ActionsRow)
	if len(row.Components) != 3 {
		t.Fatalf("expected 3 buttons, got %d", len(row.Components))
	}
	if b := row.Components[0].(discordgo.Button); b.CustomID != viewAvatarPrefix+alice.ID {
		t.Errorf("unexpected avatar button %q", b.CustomID)
	}
	if b := row.Components[1].(discordgo.Button); b.CustomID != viewBannerPrefix+alice.ID {
		t.Errorf("unexpected banner button %q", b.CustomID)
	}
}

func TestHandleProfile_ResolvedUser(t *testing.T) {
	tests := []struct {
		name       string
		withMember bool
		wantNick   bool
	}{
		{name: "member of the server", withMember: true, wantNick: true},
		{name: "not a member", withMember: false, wantNick: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlers(&mockUsers{}, testGuilds())
			responder := &bot.MockResponder{}
			i := command("profile", []*discordgo.ApplicationCommandInteractionDataOption{userOption(bob.ID)}, resolvedBob(tt.withMember))

			if err := h.HandleProfile(nil, i, responder); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			e := embed(t, responder)
			if e.Title != "Profile of Bobby" {
				t.Errorf("unexpected title %q", e.Title)
			}
			if got := strings.Contains(e.Description, "**Nickname:** None"); got != tt.wantNick {
				t.Errorf("nickname line present = %v, want %v: %q", got, tt.wantNick, e.Description)
			}
			if tt.withMember && !strings.Contains(e.Description, "**Role color:** #00FF00") {
				t.Errorf("expected role color of r1, got %q", e.Description)
			}
		})
	}
}

func TestHandleServerAvatars(t *testing.T) {
	tests := []struct {
		name      string
		options   []*discordgo.ApplicationCommandInteractionDataOption
		guilds    *mockGuilds
		wantCount int
		wantError string
	}{
		{name: "skips bots", guilds: testGuilds(), wantCount: 3},
		{name: "limit", options: []*discordgo.ApplicationCommandInteractionDataOption{intOption("limit", 2)}, guilds: testGuilds(), wantCount: 2},
		{name: "no members", guilds: &mockGuilds{guilds: map[string]*discordgo.Guild{guildID: {ID: guildID}}}, wantError: "No members found."},
		{name: "uncached guild", guilds: &mockGuilds{}, wantError: "This server is not cached yet, try again shortly."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlers(&mockUsers{}, tt.guilds)
			responder := &bot.MockResponder{}

			if err := h.HandleServerAvatars(nil, command("serveravatars", tt.options, nil), responder); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			embeds := responder.LastResponse.Data.Embeds
			if tt.wantError != "" {
				if responder.LastKind != bot.ReplyError || embeds[0].Description != tt.wantError {
					t.Errorf("expected error %q, got %+v", tt.wantError, embeds[0])
				}
				return
			}
			if len(embeds) != tt.wantCount {
				t.Fatalf("expected %d embeds, got %d", tt.wantCount, len(embeds))
			}
			if embeds[0].Title != "Caz" {
				t.Errorf("expected nickname as title, got %q", embeds[0].Title)
			}
			if embeds[0].Author == nil || !strings.Contains(embeds[0].Author.Name, "Home") {
				t.Errorf("expected guild header, got %+v", embeds[0].Author)
			}
		})
	}
}

func TestHandleServerAvatars_OutsideGuild(t *testing.T) {
	h := NewHandlers(&mockUsers{}, testGuilds())
	responder := &bot.MockResponder{}
	i := command("serveravatars", nil, nil)
	i.GuildID = ""

	if err := h.HandleServerAvatars(nil, i, responder); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if responder.LastKind != bot.ReplyError {
		t.Errorf("expected error reply, got kind %v", responder.LastKind)
	}
}

func TestHandleViewButton(t *testing.T) {
	withBanner := &discordgo.User{ID: bob.ID, Username: "bob", Banner: "b1"}

	tests := []struct {
		name      string
		customID  string
		wantReply bool
		wantTitle string
	}{
		{name: "avatar", customID: viewAvatarPrefix + bob.ID, wantReply: true, wantTitle: "Avatar of bob"},
		{name: "banner", customID: viewBannerPrefix + bob.ID, wantReply: true, wantTitle: "Banner of bob"},
		{name: "other button", customID: autodelete.KeepButtonID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandlers(&mockUsers{users: map[string]*discordgo.User{bob.ID: withBanner}}, testGuilds())
			s := &recordingResponder{}
			i := &discordgo.InteractionCreate{
				Interaction: &discordgo.Interaction{
					Type: discordgo.InteractionMessageComponent,
					Data: discordgo.MessageComponentInteractionData{
						CustomID:      tt.customID,
						ComponentType: discordgo.ButtonComponent,
					},
				},
			}

			h.HandleViewButton(s, i)

			if !tt.wantReply {
				if s.response != nil {
					t.Errorf("expected no reply, got %+v", s.response)
				}
				return
			}
			if s.response == nil {
				t.Fatal("expected a reply")
			}
			data := s.response.Data
			if data.Flags&discordgo.MessageFlagsEphemeral == 0 {
				t.Error("expected an ephemeral reply")
			}
			if len(data.Components) != 0 {
				t.Error("expected no buttons on an ephemeral reply")
			}
			if data.Embeds[0].Title != tt.wantTitle {
				t.Errorf("expected title %q, got %q", tt.wantTitle, data.Embeds[0].Title)
			}
		})
	}
}

func TestHandleViewButton_IgnoresCommands(t *testing.T) {
	h := NewHandlers(&mockUsers{}, testGuilds())
	s := &recordingResponder{}

	h.HandleViewButton(s, command("avatar", nil, nil))

	if s.response != nil {
		t.Error("expected commands to be ignored")
	}
}
