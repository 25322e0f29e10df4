package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/autodelete"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorRed = 0xE74C3C
)

// MessageSender posts messages to Discord channels.
type MessageSender interface {
	ChannelMessageSendComplex(
		channelID string,
		data *discordgo.MessageSend,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
}

// MessageScheduler registers posted messages for deferred deletion.
type MessageScheduler interface {
	Schedule(messageID, channelID snowflake.ID, delay time.Duration) bool
}

// NotifierDelays holds how long each notification kind stays in the channel.
type NotifierDelays struct {
	NowPlaying time.Duration
	Error      time.Duration
}

// Notifier sends notifications to Discord channels.
type Notifier struct {
	sender     MessageSender
	scheduler  MessageScheduler
	delays     NotifierDelays
	httpClient *http.Client
}

// NewNotifier creates a new Notifier. A nil scheduler leaves messages in place.
func NewNotifier(sender MessageSender, scheduler MessageScheduler, delays NotifierDelays) *Notifier {
	return &Notifier{
		sender:    sender,
		scheduler: scheduler,
		delays:    delays,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// SendNowPlaying posts a "Now Playing" embed with a Keep button and schedules
// its deletion.
func (n *Notifier) SendNowPlaying(channelID snowflake.ID, track *domain.Track) error {
	embed := n.nowPlayingEmbed(track)

	msg, err := n.sender.ChannelMessageSendComplex(channelID.String(), &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: autodelete.KeepComponents(),
	})
	if err != nil {
		return err
	}
	n.schedule(msg, n.delays.NowPlaying)
	return nil
}

// SendError sends an error message embed to the channel and schedules its deletion.
func (n *Notifier) SendError(channelID snowflake.ID, message string) error {
	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       colorRed,
	}

	msg, err := n.sender.ChannelMessageSendComplex(channelID.String(), &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		return err
	}
	n.schedule(msg, n.delays.Error)
	return nil
}

func (n *Notifier) nowPlayingEmbed(track *domain.Track) *discordgo.MessageEmbed {
	source := track.Source()

	artist := track.Artist
	if artist == "" {
		artist = "Unknown"
	}

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name:    "Now Playing",
			IconURL: source.IconURL(),
		},
		Title:     track.Title,
		URL:       track.SourceURL,
		Color:     source.Color(),
		Timestamp: track.EnqueuedAt.UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Artist",
				Value:  artist,
				Inline: true,
			},
			{
				Name:   "Duration",
				Value:  track.FormattedDuration(),
				Inline: true,
			},
		},
	}

	if track.RequesterName != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Requested by %s", track.RequesterName),
		}
	}

	videoID := domain.NewSearchQuery(track.SourceURL).YouTubeVideoID()
	if thumbnailURL := n.getBestThumbnail(source, videoID, track.ThumbnailURL); thumbnailURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{
			URL: thumbnailURL,
		}
	}

	return embed
}

func (n *Notifier) schedule(msg *discordgo.Message, delay time.Duration) {
	if n.scheduler == nil || msg == nil {
		return
	}

	messageID, err := snowflake.Parse(msg.ID)
	if err != nil {
		slog.Debug("failed to parse notification message ID", "id", msg.ID, "error", err)
		return
	}
	channelID, err := snowflake.Parse(msg.ChannelID)
	if err != nil {
		slog.Debug("failed to parse notification channel ID", "id", msg.ChannelID, "error", err)
		return
	}
	n.scheduler.Schedule(messageID, channelID, delay)
}

// getBestThumbnail attempts to find the best quality thumbnail for the track.
// YouTube videos are checked from maxresdefault down; Twitch artwork is upscaled
// to 1280x720 when available.
func (n *Notifier) getBestThumbnail(
	source domain.TrackSource,
	videoID string,
	fallbackURL string,
) string {
	switch source {
	case domain.TrackSourceYouTube:
		if videoID == "" {
			return fallbackURL
		}
		return n.getYouTubeThumbnail(videoID, fallbackURL)
	case domain.TrackSourceTwitch:
		return n.getTwitchThumbnail(fallbackURL)
	default:
		return fallbackURL
	}
}

func (n *Notifier) getYouTubeThumbnail(videoID string, fallbackURL string) string {
	qualities := []string{"maxresdefault", "sddefault", "hqdefault", "mqdefault"}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, quality := range qualities {
		url := fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", videoID, quality)
		if n.urlExists(ctx, url) {
			return url
		}
	}

	return fallbackURL
}

func (n *Notifier) getTwitchThumbnail(artworkURL string) string {
	if artworkURL == "" {
		return ""
	}

	highResURL := strings.Replace(artworkURL, "440x248", "1280x720", 1)
	if highResURL == artworkURL {
		return artworkURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if n.urlExists(ctx, highResURL) {
		return highResURL
	}

	return artworkURL
}

// urlExists checks if a URL returns a successful response using a HEAD request.
func (n *Notifier) urlExists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// Ensure Notifier implements ports.NotificationSender.
var _ ports.NotificationSender = (*Notifier)(nil)
