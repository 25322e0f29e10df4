package profile

import (
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/harmonybot/internal/autodelete"
	"github.com/sglre6355/harmonybot/internal/bot"
)

// Embed colors.
const (
	colorInfo    = 0x3498DB
	colorProfile = 0x9B59B6
	colorError   = 0xE74C3C
)

// Image sizes accepted by the Discord CDN are powers of two in this range.
const (
	minImageSize     = 16
	maxImageSize     = 4096
	defaultImageSize = 1024
)

// Discord allows 10 embeds per message.
const (
	maxServerAvatars     = 10
	defaultServerAvatars = 10
)

// Custom ID prefixes of the buttons on /profile replies. The user ID follows.
const (
	viewAvatarPrefix = "profile:avatar:"
	viewBannerPrefix = "profile:banner:"
)

// UserFetcher loads full user objects, including banners. *discordgo.Session implements it.
type UserFetcher interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
}

// GuildLookup reads cached guilds. *discordgo.State implements it.
type GuildLookup interface {
	Guild(guildID string) (*discordgo.Guild, error)
}

// InteractionResponder answers component interactions. *discordgo.Session implements it.
type InteractionResponder interface {
	InteractionRespond(
		interaction *discordgo.Interaction,
		resp *discordgo.InteractionResponse,
		options ...discordgo.RequestOption,
	) error
}

// Handlers holds the profile command and button handlers.
type Handlers struct {
	users  UserFetcher
	guilds GuildLookup
	now    func() time.Time
}

// NewHandlers creates new Handlers.
func NewHandlers(users UserFetcher, guilds GuildLookup) *Handlers {
	return &Handlers{
		users:  users,
		guilds: guilds,
		now:    time.Now,
	}
}

// HandleAvatar handles the /avatar command.
func (h *Handlers) HandleAvatar(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	data := i.ApplicationCommandData()
	user, _ := targetUser(i, data)
	size := defaultImageSize
	if opt := option(data.Options, "size"); opt != nil {
		size = imageSize(opt.IntValue())
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: avatarReply(user, size, h.footer(i)),
	})
}

// HandleBanner handles the /banner command. Banners are only returned when
// the user is fetched directly.
func (h *Handlers) HandleBanner(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	target, _ := targetUser(i, i.ApplicationCommandData())
	if target == nil {
		return respondError(r, "Could not determine the user.")
	}

	full, err := h.users.User(target.ID)
	if err != nil {
		slog.Error("failed to fetch user", "user", target.ID, "error", err)
		return respondError(r, "Failed to load the banner.")
	}

	data := bannerReply(full, h.footer(i))
	if data == nil {
		return respondError(r, fmt.Sprintf("%s has no banner.", full.DisplayName()))
	}
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// HandleProfile handles the /profile command.
func (h *Handlers) HandleProfile(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	user, member := targetUser(i, i.ApplicationCommandData())
	if user == nil {
		return respondError(r, "Could not determine the user.")
	}

	lines := []string{
		"**Tag:** " + user.String(),
		"**ID:** " + user.ID,
		"**Bot:** " + yesNo(user.Bot),
	}
	if created, err := discordgo.SnowflakeTimestamp(user.ID); err == nil {
		lines = append(lines, "**Account created:** "+relativeTime(created))
	}

	if member != nil {
		nick := member.Nick
		if nick == "" {
			nick = "None"
		}
		lines = append(lines, "**Nickname:** "+nick)
		if !member.JoinedAt.IsZero() {
			lines = append(lines, "**Joined server:** "+relativeTime(member.JoinedAt))
		}
		if color := h.roleColor(i.GuildID, member); color != 0 {
			lines = append(lines, fmt.Sprintf("**Role color:** #%06X", color))
		}
		lines = append(lines, fmt.Sprintf("**Roles:** %d", len(member.Roles)))
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Profile of " + user.DisplayName(),
					Description: strings.Join(lines, "\n"),
					Color:       colorProfile,
					Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("256")},
					Footer:      h.footer(i),
					Timestamp:   h.now().UTC().Format(time.RFC3339),
				},
			},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "View Avatar",
							Style:    discordgo.PrimaryButton,
							CustomID: viewAvatarPrefix + user.ID,
						},
						discordgo.Button{
							Label:    "View Banner",
							Style:    discordgo.PrimaryButton,
							CustomID: viewBannerPrefix + user.ID,
						},
						autodelete.KeepButton(),
					},
				},
			},
		},
	})
}

// HandleServerAvatars handles the /serveravatars command. It lists cached
// members who are not bots.
func (h *Handlers) HandleServerAvatars(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	if i.GuildID == "" {
		return respondError(r, "This command can only be used in a server.")
	}

	data := i.ApplicationCommandData()
	limit := defaultServerAvatars
	if opt := option(data.Options, "limit"); opt != nil {
		limit = int(min(max(opt.IntValue(), 1), maxServerAvatars))
	}

	guild, err := h.guilds.Guild(i.GuildID)
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return respondError(r, "This server is not cached yet, try again shortly.")
	}
	if err != nil {
		slog.Error("failed to read guild state", "guild", i.GuildID, "error", err)
		return respondError(r, "Failed to list server members.")
	}

	var embeds []*discordgo.MessageEmbed
	for _, m := range guild.Members {
		if len(embeds) == limit {
			break
		}
		if m.User == nil || m.User.Bot {
			continue
		}
		embeds = append(embeds, &discordgo.MessageEmbed{
			Title:     memberName(m),
			URL:       m.User.AvatarURL("1024"),
			Color:     colorInfo,
			Thumbnail: &discordgo.MessageEmbedThumbnail{URL: memberAvatarURL(m, "256")},
		})
	}
	if len(embeds) == 0 {
		return respondError(r, "No members found.")
	}

	embeds[0].Author = &discordgo.MessageEmbedAuthor{
		Name:    fmt.Sprintf("Avatars in %s (%d members)", guild.Name, len(embeds)),
		IconURL: guild.IconURL("64"),
	}
	embeds[len(embeds)-1].Footer = h.footer(i)

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     embeds,
			Components: autodelete.KeepComponents(),
		},
	})
}

// HandleViewButton answers the View Avatar and View Banner buttons with a
// reply only the presser sees. It ignores every other interaction.
func (h *Handlers) HandleViewButton(s InteractionResponder, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	customID := i.MessageComponentData().CustomID

	var data *discordgo.InteractionResponseData
	if userID, ok := strings.CutPrefix(customID, viewAvatarPrefix); ok {
		data = h.viewAvatar(userID, i)
	} else if userID, ok := strings.CutPrefix(customID, viewBannerPrefix); ok {
		data = h.viewBanner(userID, i)
	} else {
		return
	}

	data.Components = nil
	data.Flags = discordgo.MessageFlagsEphemeral
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		slog.Error("failed to respond to profile button", "custom_id", customID, "error", err)
	}
}

func (h *Handlers) viewAvatar(userID string, i *discordgo.InteractionCreate) *discordgo.InteractionResponseData {
	user, err := h.users.User(userID)
	if err != nil {
		slog.Error("failed to fetch user", "user", userID, "error", err)
		return errorData("Failed to load the avatar.")
	}
	return avatarReply(user, defaultImageSize, h.footer(i))
}

func (h *Handlers) viewBanner(userID string, i *discordgo.InteractionCreate) *discordgo.InteractionResponseData {
	user, err := h.users.User(userID)
	if err != nil {
		slog.Error("failed to fetch user", "user", userID, "error", err)
		return errorData("Failed to load the banner.")
	}
	if data := bannerReply(user, h.footer(i)); data != nil {
		return data
	}
	return errorData(fmt.Sprintf("%s has no banner.", user.DisplayName()))
}

// roleColor returns the color of the member's highest colored role, or 0.
func (h *Handlers) roleColor(guildID string, member *discordgo.Member) int {
	if h.guilds == nil || guildID == "" || len(member.Roles) == 0 {
		return 0
	}
	guild, err := h.guilds.Guild(guildID)
	if err != nil {
		return 0
	}

	held := make(map[string]bool, len(member.Roles))
	for _, id := range member.Roles {
		held[id] = true
	}
	color, position := 0, -1
	for _, role := range guild.Roles {
		if held[role.ID] && role.Color != 0 && role.Position > position {
			color, position = role.Color, role.Position
		}
	}
	return color
}

func (h *Handlers) footer(i *discordgo.InteractionCreate) *discordgo.MessageEmbedFooter {
	if u := invoker(i); u != nil {
		return &discordgo.MessageEmbedFooter{Text: "Requested by " + u.String()}
	}
	return nil
}

func avatarReply(user *discordgo.User, size int, footer *discordgo.MessageEmbedFooter) *discordgo.InteractionResponseData {
	if user == nil {
		return errorData("Could not determine the user.")
	}
	url := user.AvatarURL(strconv.Itoa(size))

	return &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       "Avatar of " + user.DisplayName(),
				Description: fmt.Sprintf("**Size:** %dx%d\n[Download](%s)", size, size, url),
				Image:       &discordgo.MessageEmbedImage{URL: url},
				Color:       colorInfo,
				Footer:      footer,
			},
		},
		Components: linkRow("Download Avatar", url),
	}
}

// bannerReply returns nil when the user has no banner.
func bannerReply(user *discordgo.User, footer *discordgo.MessageEmbedFooter) *discordgo.InteractionResponseData {
	url := user.BannerURL("1024")
	if url == "" {
		return nil
	}

	return &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       "Banner of " + user.DisplayName(),
				Description: fmt.Sprintf("[Download](%s)", url),
				Image:       &discordgo.MessageEmbedImage{URL: url},
				Color:       colorProfile,
				Footer:      footer,
			},
		},
		Components: linkRow("Download Banner", url),
	}
}

func linkRow(label, url string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label: label,
					Style: discordgo.LinkButton,
					URL:   url,
				},
				autodelete.KeepButton(),
			},
		},
	}
}

// targetUser returns the user named by the "user" option, or the invoker.
// The member is nil outside guilds.
func targetUser(i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) (*discordgo.User, *discordgo.Member) {
	if opt := option(data.Options, "user"); opt != nil && data.Resolved != nil {
		id, _ := opt.Value.(string)
		if user := data.Resolved.Users[id]; user != nil {
			member := data.Resolved.Members[id]
			if member != nil {
				// Resolved members carry no user.
				resolved := *member
				resolved.User = user
				member = &resolved
			}
			return user, member
		}
	}
	if i.Member != nil {
		return i.Member.User, i.Member
	}
	return i.User, nil
}

func invoker(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func option(options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range options {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}

// imageSize clamps size to the CDN range and rounds it down to a power of two.
func imageSize(size int64) int {
	size = min(max(size, minImageSize), maxImageSize)
	return 1 << (bits.Len64(uint64(size)) - 1)
}

func memberName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	return m.User.DisplayName()
}

func memberAvatarURL(m *discordgo.Member, size string) string {
	if m.Avatar != "" && m.GuildID != "" {
		return m.AvatarURL(size)
	}
	return m.User.AvatarURL(size)
}

func relativeTime(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func errorData(message string) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       "Error",
				Description: message,
				Color:       colorError,
			},
		},
	}
}

func respondError(r bot.Responder, message string) error {
	return r.RespondAs(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: errorData(message),
	}, bot.ReplyError)
}
