package bot

import (
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

// ReplyKind selects how long a reply stays in the channel before it is deleted.
type ReplyKind int

const (
	ReplyDefault    ReplyKind = iota // Regular command replies
	ReplyNowPlaying                  // "Now playing" announcements
	ReplyError                       // Transient error notices
)

// ReplyDelays maps each ReplyKind to its deletion delay.
type ReplyDelays struct {
	Default    time.Duration
	NowPlaying time.Duration
	Error      time.Duration
}

// For returns the delay for the given kind.
func (d ReplyDelays) For(kind ReplyKind) time.Duration {
	switch kind {
	case ReplyNowPlaying:
		return d.NowPlaying
	case ReplyError:
		return d.Error
	default:
		return d.Default
	}
}

// ReplyScheduler registers sent replies for deferred deletion.
type ReplyScheduler interface {
	Schedule(messageID, channelID snowflake.ID, delay time.Duration) bool
}

// Responder provides an abstraction for responding to Discord interactions.
// This interface enables testing handlers without a live Discord connection.
type Responder interface {
	// Respond sends a response to an interaction. Visible replies are deleted after
	// the default delay.
	Respond(response *discordgo.InteractionResponse) error

	// RespondAs sends a response whose deletion delay is chosen by kind.
	RespondAs(response *discordgo.InteractionResponse, kind ReplyKind) error

	// Defer acknowledges the interaction; the reply is sent later with Edit.
	Defer() error

	// Edit replaces a deferred response.
	Edit(edit *discordgo.WebhookEdit, kind ReplyKind) error
}

// DiscordResponder implements Responder using a live Discord session.
type DiscordResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
	scheduler   ReplyScheduler
	delays      ReplyDelays
}

// NewDiscordResponder creates a new DiscordResponder. A nil scheduler disables
// reply deletion.
func NewDiscordResponder(
	s *discordgo.Session,
	i *discordgo.Interaction,
	scheduler ReplyScheduler,
	delays ReplyDelays,
) *DiscordResponder {
	return &DiscordResponder{
		session:     s,
		interaction: i,
		scheduler:   scheduler,
		delays:      delays,
	}
}

// Respond sends a response to the interaction via Discord API.
func (r *DiscordResponder) Respond(response *discordgo.InteractionResponse) error {
	return r.RespondAs(response, ReplyDefault)
}

// RespondAs sends a response and registers the resulting message for deletion.
func (r *DiscordResponder) RespondAs(
	response *discordgo.InteractionResponse,
	kind ReplyKind,
) error {
	if err := r.session.InteractionRespond(r.interaction, response); err != nil {
		return err
	}
	if !shouldSchedule(response) {
		return nil
	}

	msg, err := r.session.InteractionResponse(r.interaction)
	if err != nil {
		slog.Debug("failed to fetch interaction response", "error", err)
		return nil
	}
	r.schedule(msg, kind)
	return nil
}

// Defer acknowledges the interaction with a "thinking" state.
func (r *DiscordResponder) Defer() error {
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

// Edit replaces the deferred response and registers it for deletion.
func (r *DiscordResponder) Edit(edit *discordgo.WebhookEdit, kind ReplyKind) error {
	msg, err := r.session.InteractionResponseEdit(r.interaction, edit)
	if err != nil {
		return err
	}
	r.schedule(msg, kind)
	return nil
}

func (r *DiscordResponder) schedule(msg *discordgo.Message, kind ReplyKind) {
	if r.scheduler == nil || msg == nil {
		return
	}
	if msg.Flags&discordgo.MessageFlagsEphemeral != 0 {
		return
	}

	messageID, err := snowflake.Parse(msg.ID)
	if err != nil {
		return
	}
	channelID, err := snowflake.Parse(msg.ChannelID)
	if err != nil {
		return
	}
	r.scheduler.Schedule(messageID, channelID, r.delays.For(kind))
}

// shouldSchedule reports whether a response creates a deletable channel message.
func shouldSchedule(response *discordgo.InteractionResponse) bool {
	if response.Type != discordgo.InteractionResponseChannelMessageWithSource {
		return false
	}
	return response.Data == nil || response.Data.Flags&discordgo.MessageFlagsEphemeral == 0
}

// MockResponder is a test double for Responder.
type MockResponder struct {
	LastResponse *discordgo.InteractionResponse
	LastEdit     *discordgo.WebhookEdit
	LastKind     ReplyKind
	Deferred     bool
	Err          error
}

// Respond records the response for testing.
func (m *MockResponder) Respond(response *discordgo.InteractionResponse) error {
	return m.RespondAs(response, ReplyDefault)
}

// RespondAs records the response and kind for testing.
func (m *MockResponder) RespondAs(response *discordgo.InteractionResponse, kind ReplyKind) error {
	m.LastResponse = response
	m.LastKind = kind
	return m.Err
}

// Defer records that the interaction was deferred.
func (m *MockResponder) Defer() error {
	m.Deferred = true
	return m.Err
}

// Edit records the edit and kind for testing.
func (m *MockResponder) Edit(edit *discordgo.WebhookEdit, kind ReplyKind) error {
	m.LastEdit = edit
	m.LastKind = kind
	return m.Err
}

var (
	_ Responder = (*DiscordResponder)(nil)
	_ Responder = (*MockResponder)(nil)
)
