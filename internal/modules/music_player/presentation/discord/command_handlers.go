package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/bot"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
	colorInfo    = 0x3498DB
)

const queuePageSize = 10

// defaultLoadTimeout bounds how long /play waits for the resolver chain.
const defaultLoadTimeout = 10 * time.Second

const (
	nothingPlaying = "Nothing is playing."
	serverOnly     = "This command only works in a server."
)

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	queues      *usecases.QueueManager
	trackLoader *usecases.TrackLoaderService
	settings    *usecases.SettingsService
	voiceState  ports.VoiceStateProvider
	loadTimeout time.Duration
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	queues *usecases.QueueManager,
	trackLoader *usecases.TrackLoaderService,
	settings *usecases.SettingsService,
	voiceState ports.VoiceStateProvider,
) *CommandHandlers {
	return &CommandHandlers{
		queues:      queues,
		trackLoader: trackLoader,
		settings:    settings,
		voiceState:  voiceState,
		loadTimeout: defaultLoadTimeout,
	}
}

// Handlers returns the command name to handler map.
func (h *CommandHandlers) Handlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"play":       h.HandlePlay,
		"skip":       h.HandleSkip,
		"stop":       h.HandleStop,
		"volume":     h.HandleVolume,
		"loop":       h.HandleLoop,
		"shuffle":    h.HandleShuffle,
		"queue":      h.HandleQueue,
		"nowplaying": h.HandleNowPlaying,
		"leave":      h.HandleLeave,
		"settings":   h.HandleSettings,
	}
}

// HandlePlay handles the /play command.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, ok := guildOf(i)
	if !ok {
		return respondError(r, serverOnly)
	}

	if i.Member == nil || i.Member.User == nil {
		return respondError(r, "Invalid user")
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	textChannelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return respondError(r, "Invalid channel")
	}

	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" {
			query = strings.TrimSpace(opt.StringValue())
		}
	}
	if query == "" {
		return respondError(r, "Please provide a URL or search term.")
	}

	voiceChannelID, err := h.voiceState.GetUserVoiceChannel(guildID, userID)
	if err != nil || voiceChannelID == 0 {
		return respondError(r, errorMessage(usecases.ErrUserNotInVoice))
	}

	// Resolving can exceed the 3 second interaction deadline.
	if err := r.Defer(); err != nil {
		return err
	}

	loadCtx, cancel := context.WithTimeout(ctx, h.loadTimeout)
	loaded, err := h.trackLoader.LoadTrack(loadCtx, usecases.LoadTrackInput{
		Query:         query,
		RequesterID:   userID,
		RequesterName: requesterName(i.Member),
	})
	cancel()
	if err != nil {
		return editError(r, err)
	}

	if _, err := h.queues.GetOrCreate(ctx, usecases.CreateQueueInput{
		GuildID:        guildID,
		TextChannelID:  textChannelID,
		VoiceChannelID: voiceChannelID,
	}); err != nil {
		return editError(r, err)
	}

	out, err := h.queues.Enqueue(ctx, usecases.EnqueueInput{
		GuildID: guildID,
		Track:   loaded.Track,
	})
	if err != nil {
		return editError(r, err)
	}

	return r.Edit(&discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{enqueuedEmbed(loaded.Track, out)},
	}, bot.ReplyDefault)
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, ok := guildOf(i)
	if !ok {
		return respondError(r, serverOnly)
	}

	out, err := h.queues.Skip(context.Background(), guildID)
	if err != nil {
		return respondFailure(r, err)
	}

	description := fmt.Sprintf("Skipped %s.", trackLink(out.Skipped))
	if out.Next != nil {
		description += fmt.Sprintf("\nUp next: %s", trackLink(out.Next))
	}
	return respondSuccess(r, description)
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, ok := guildOf(i)
	if !ok {
		return respondError(r, serverOnly)
	}

	if err := h.queues.Stop(context.Background(), guildID); err != nil {
		return respondFailure(r, err)
	}
	return respondSuccess(r, "Stopped playback and cleared the queue.")
}

// HandleVolume handles the /volume command. Without a level it shows the current volume.
func (h *CommandHandlers) HandleVolume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, ok := guildOf(i)
	if !ok {
		return respondError(r, serverOnly)
	}

	level := -1
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "level" {
			level = int(opt.IntValue())
		}
	}

	if level < 0 {
		snapshot, err := h.queues.Snapshot(guildID)
		if err != nil {
			return respondFailure(r, err)
		}
		return respondInfo(r, fmt.Sprintf("Volume is %d%%.", snapshot.Volume))
	}

	if err := h.queues.SetVolume(context.Background(), guildID, level); err != nil {
		return respondFailure(r, err)
	}
	return respondSuccess(r, fmt.Sprintf("Volume set to %d%%.", level))
}

// HandleLoop handles the /loop command.
func (h *CommandHandlers) HandleLoop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, ok := guildOf(i)
	if !ok {
		return respondError(r, serverOnly)
	}

	var modeStr string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "mode" {
			modeStr = opt.StringValue()
		}
	}

	var (
		mode domain.LoopMode
		err  error
	)
	if modeStr == "" {
		mode, err = h.queues.CycleLoopMode(guildID)
		if err != nil {
			return respondFailure(r, err)
		}
	} else {
		mode, err = domain.ParseLoopMode(modeStr)
		if err != nil {
			return respondError(r, "Unknown loop mode")
		}
		if err := h.queues.SetLoopMode(guildID, mode); err != nil {
			return respondFailure(r, err)
		}
	}

	var description string
	switch mode {
	case domain.LoopModeSong:
		description = "Now looping the current track. Skipping it moves on to the next one."
	case domain.LoopModeQueue:
		description = "Now looping the queue."
	default:
		description = "Loop disabled."
	}
	return respondSuccess(r, description)
}

// HandleShuffle handles the /shuffle command.
func (h *CommandHandlers) HandleShuffle(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, ok := guildOf(i)
	if !ok {
		return respondError(r, serverOnly)
	}

	n, err := h.queues.Shuffle(guildID)
	if err != nil {
		return respondFailure(r, err)
	}
	if n < 2 {
		return respondInfo(r, "Not enough tracks to shuffle.")
	}
	return respondSuccess(r, fmt.Sprintf("Shuffled %d tracks.", n))
}

// HandleQueue handles the /queue command.
func (h *CommandHandlers) HandleQueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, ok := guildOf(i)
	if !ok {
		return respondError(r, serverOnly)
	}

	page := 1
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "page" {
			page = int(opt.IntValue())
		}
	}

	snapshot, err := h.queues.Snapshot(guildID)
	if err != nil {
		return respondFailure(r, err)
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{queueEmbed(snapshot, page)},
		},
	})
}

// HandleNowPlaying handles the /nowplaying command.
func (h *CommandHandlers) HandleNowPlaying(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, ok := guildOf(i)
	if !ok {
		return respondError(r, serverOnly)
	}

	snapshot, err := h.queues.Snapshot(guildID)
	if err != nil {
		return respondFailure(r, err)
	}
	if snapshot.Current == nil {
		return respondInfo(r, nothingPlaying)
	}

	track := snapshot.Current
	embed := &discordgo.MessageEmbed{
		Title:       "Now Playing",
		Description: trackLink(track),
		Color:       colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Artist", Value: orUnknown(track.Artist), Inline: true},
			{Name: "Duration", Value: track.FormattedDuration(), Inline: true},
			{Name: "Volume", Value: fmt.Sprintf("%d%%", snapshot.Volume), Inline: true},
		},
	}
	if track.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: track.ThumbnailURL}
	}
	if track.RequesterName != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Requested by " + track.RequesterName}
	}

	return r.RespondAs(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	}, bot.ReplyNowPlaying)
}

// HandleLeave handles the /leave command.
func (h *CommandHandlers) HandleLeave(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, ok := guildOf(i)
	if !ok {
		return respondError(r, serverOnly)
	}

	if err := h.queues.Destroy(context.Background(), guildID); err != nil {
		if errors.Is(err, usecases.ErrNoActiveQueue) {
			return respondInfo(r, "Not connected to a voice channel.")
		}
		return respondFailure(r, err)
	}
	return respondSuccess(r, "Disconnected.")
}

// HandleSettings handles the /settings command.
func (h *CommandHandlers) HandleSettings(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, ok := guildOf(i)
	if !ok {
		return respondError(r, serverOnly)
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, "Invalid subcommand")
	}

	subCmd := options[0]
	input := usecases.UpdateSettingsInput{GuildID: guildID}
	switch subCmd.Name {
	case "show":
		settings, err := h.settings.Get(ctx, guildID)
		if err != nil {
			slog.Error("failed to load settings", "guild", guildID, "error", err)
			return respondError(r, "Failed to load settings.")
		}
		return respondSettings(r, "Music Settings", settings)
	case "volume":
		for _, opt := range subCmd.Options {
			if opt.Name == "level" {
				v := int(opt.IntValue())
				input.Volume = &v
			}
		}
	case "maxqueue":
		for _, opt := range subCmd.Options {
			if opt.Name == "size" {
				v := int(opt.IntValue())
				input.MaxQueueSize = &v
			}
		}
	default:
		return respondError(r, "Unknown subcommand")
	}

	settings, err := h.settings.Update(ctx, input)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSettings) {
			return respondError(r, err.Error())
		}
		slog.Error("failed to update settings", "guild", guildID, "error", err)
		return respondError(r, "Failed to save settings.")
	}
	return respondSettings(r, "Settings Updated", settings)
}

// Response helpers.

func respondSuccess(r bot.Responder, description string) error {
	return respondEmbed(r, &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	}, bot.ReplyDefault)
}

func respondInfo(r bot.Responder, description string) error {
	return respondEmbed(r, &discordgo.MessageEmbed{
		Description: description,
		Color:       colorInfo,
	}, bot.ReplyDefault)
}

func respondError(r bot.Responder, message string) error {
	return respondEmbed(r, errorEmbed(message), bot.ReplyError)
}

// respondFailure maps a use case error to a reply. A missing queue is not
// treated as an error.
// guildOf returns the guild the interaction came from; DMs have none.
func guildOf(i *discordgo.InteractionCreate) (snowflake.ID, bool) {
	id, err := snowflake.Parse(i.GuildID)
	return id, err == nil && id != 0
}

func respondFailure(r bot.Responder, err error) error {
	if errors.Is(err, usecases.ErrNoActiveQueue) || errors.Is(err, usecases.ErrNotPlaying) {
		return respondInfo(r, nothingPlaying)
	}
	return respondError(r, errorMessage(err))
}

func respondEmbed(r bot.Responder, embed *discordgo.MessageEmbed, kind bot.ReplyKind) error {
	return r.RespondAs(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	}, kind)
}

func respondSettings(r bot.Responder, title string, settings *domain.GuildSettings) error {
	return respondEmbed(r, &discordgo.MessageEmbed{
		Title: title,
		Color: colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Default Volume", Value: fmt.Sprintf("%d%%", settings.DefaultVolume), Inline: true},
			{Name: "Max Queue Size", Value: fmt.Sprintf("%d", settings.MaxQueueSize), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Applies to queues created from now on"},
	}, bot.ReplyDefault)
}

func editError(r bot.Responder, err error) error {
	return r.Edit(&discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{errorEmbed(errorMessage(err))},
	}, bot.ReplyError)
}

func errorEmbed(message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Error",
		Description: message,
		Color:       colorError,
	}
}

// errorMessage turns a use case error into text safe to show in Discord.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, usecases.ErrUserNotInVoice):
		return "You must be in a voice channel to use this command."
	case errors.Is(err, usecases.ErrQueueFull):
		return "The queue is full."
	case errors.Is(err, usecases.ErrInvalidVolume):
		return "Volume must be between 0 and 100."
	case errors.Is(err, usecases.ErrNoResults):
		return "No results found."
	case errors.Is(err, usecases.ErrLoadFailed):
		return "Failed to load the track. Try another URL or search term."
	case errors.Is(err, usecases.ErrPlaybackFailed):
		return "Failed to start playback."
	case errors.Is(err, usecases.ErrNoActiveQueue), errors.Is(err, usecases.ErrNotPlaying):
		return nothingPlaying
	default:
		slog.Error("unexpected music command error", "error", err)
		return "Something went wrong."
	}
}

func enqueuedEmbed(track *usecases.Track, out *usecases.EnqueueOutput) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Color: colorSuccess,
	}
	if out.Started {
		embed.Description = fmt.Sprintf("Starting %s.", trackLink(track))
	} else {
		embed.Description = fmt.Sprintf("Added %s to the queue at position %d.", trackLink(track), out.Position)
	}
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Duration", Value: track.FormattedDuration(), Inline: true},
	}
	if track.ThumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: track.ThumbnailURL}
	}
	return embed
}

// queueEmbed renders one page of the upcoming tracks. Out of range pages are clamped.
func queueEmbed(snapshot *usecases.QueueSnapshot, page int) *discordgo.MessageEmbed {
	title := "Queue"
	switch snapshot.LoopMode {
	case domain.LoopModeSong:
		title = "Queue \U0001F502" // 🔂
	case domain.LoopModeQueue:
		title = "Queue \U0001F501" // 🔁
	}

	embed := &discordgo.MessageEmbed{
		Title: title,
		Color: colorSuccess,
	}

	if snapshot.Len() == 0 {
		embed.Description = "Queue is empty."
		return embed
	}

	totalPages := max(1, (len(snapshot.Upcoming)+queuePageSize-1)/queuePageSize)
	page = min(max(page, 1), totalPages)
	start := (page - 1) * queuePageSize
	end := min(start+queuePageSize, len(snapshot.Upcoming))

	var sb strings.Builder
	if snapshot.Current != nil {
		sb.WriteString("### Now Playing\n")
		writeTrackLine(&sb, 0, snapshot.Current)
	}
	if len(snapshot.Upcoming) > 0 {
		sb.WriteString("### Up Next\n")
		for idx, track := range snapshot.Upcoming[start:end] {
			writeTrackLine(&sb, start+idx+1, track)
		}
	}

	embed.Description = sb.String()
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf(
			"Page %d/%d | %d tracks | %s",
			page,
			totalPages,
			snapshot.Len(),
			domain.FormatDuration(snapshot.TotalDuration()),
		),
	}
	return embed
}

// writeTrackLine writes a single track line to the string builder. Position 0
// omits the number. Escapes period to prevent Discord markdown list formatting.
func writeTrackLine(sb *strings.Builder, position int, track *usecases.Track) {
	if position > 0 {
		fmt.Fprintf(sb, "%d\\. ", position)
	}
	fmt.Fprintf(sb, "%s - %s `%s`\n", trackLink(track), orUnknown(track.Artist), track.FormattedDuration())
}

func trackLink(track *usecases.Track) string {
	if track.SourceURL != "" {
		return fmt.Sprintf("[%s](%s)", track.Title, track.SourceURL)
	}
	return fmt.Sprintf("**%s**", track.Title)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// requesterName prefers the guild nickname, then the global display name.
func requesterName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User.GlobalName != "" {
		return member.User.GlobalName
	}
	return member.User.Username
}
