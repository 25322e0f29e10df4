// Package application wires the module event bus to the queue manager and the
// channel notifier.
package application

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// PlaybackCallbacks receives audio output callbacks. It is implemented by
// usecases.QueueManager.
type PlaybackCallbacks interface {
	OnTrackStarted(ctx context.Context, guildID snowflake.ID)
	OnTrackEnded(ctx context.Context, guildID snowflake.ID)
	OnTrackFailed(ctx context.Context, guildID snowflake.ID, message string)
	OnVoiceDisconnected(ctx context.Context, guildID snowflake.ID)
}

// PlaybackEventHandler forwards audio output events to the queue manager.
type PlaybackEventHandler struct {
	callbacks  PlaybackCallbacks
	subscriber ports.EventSubscriber
}

// NewPlaybackEventHandler creates a new PlaybackEventHandler.
func NewPlaybackEventHandler(
	callbacks PlaybackCallbacks,
	subscriber ports.EventSubscriber,
) *PlaybackEventHandler {
	return &PlaybackEventHandler{
		callbacks:  callbacks,
		subscriber: subscriber,
	}
}

// Start registers event handlers with the subscriber.
func (h *PlaybackEventHandler) Start() error {
	subscriptions := []struct {
		eventType reflect.Type
		handler   func(context.Context, domain.Event)
	}{
		{
			reflect.TypeFor[domain.TrackStartedEvent](),
			func(ctx context.Context, e domain.Event) {
				h.callbacks.OnTrackStarted(ctx, e.EventGuildID())
			},
		},
		{
			reflect.TypeFor[domain.TrackEndedEvent](),
			func(ctx context.Context, e domain.Event) {
				h.callbacks.OnTrackEnded(ctx, e.EventGuildID())
			},
		},
		{
			reflect.TypeFor[domain.TrackFailedEvent](),
			func(ctx context.Context, e domain.Event) {
				h.callbacks.OnTrackFailed(ctx, e.EventGuildID(), e.(domain.TrackFailedEvent).Message)
			},
		},
		{
			reflect.TypeFor[domain.VoiceDisconnectedEvent](),
			func(ctx context.Context, e domain.Event) {
				h.callbacks.OnVoiceDisconnected(ctx, e.EventGuildID())
			},
		},
	}

	for _, s := range subscriptions {
		if err := h.subscriber.Subscribe(s.eventType, s.handler); err != nil {
			return err
		}
	}

	slog.Debug("playback event handlers properly registered")

	return nil
}

// NotificationEventHandler posts channel notifications for queue events.
// Sends run on their own goroutines so a slow Discord request never holds up
// the guild's playback events.
type NotificationEventHandler struct {
	notifier   ports.NotificationSender
	subscriber ports.EventSubscriber
	inflight   sync.WaitGroup
}

// NewNotificationEventHandler creates a new NotificationEventHandler.
func NewNotificationEventHandler(
	notifier ports.NotificationSender,
	subscriber ports.EventSubscriber,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		notifier:   notifier,
		subscriber: subscriber,
	}
}

// Start registers event handlers with the subscriber.
func (h *NotificationEventHandler) Start() error {
	err := h.subscriber.Subscribe(
		reflect.TypeFor[domain.NowPlayingEvent](),
		func(_ context.Context, e domain.Event) {
			event := e.(domain.NowPlayingEvent)
			h.inflight.Go(func() { h.handleNowPlaying(event) })
		},
	)
	if err != nil {
		return err
	}

	err = h.subscriber.Subscribe(
		reflect.TypeFor[domain.PlaybackErrorEvent](),
		func(_ context.Context, e domain.Event) {
			event := e.(domain.PlaybackErrorEvent)
			h.inflight.Go(func() { h.handlePlaybackError(event) })
		},
	)
	if err != nil {
		return err
	}

	slog.Debug("notification event handlers properly registered")

	return nil
}

// Wait blocks until every notification already handed off has been sent.
func (h *NotificationEventHandler) Wait() {
	h.inflight.Wait()
}

func (h *NotificationEventHandler) handleNowPlaying(event domain.NowPlayingEvent) {
	if event.TextChannelID == 0 || event.Track == nil {
		return
	}
	if err := h.notifier.SendNowPlaying(event.TextChannelID, event.Track); err != nil {
		slog.Warn("failed to send now playing notification",
			"guild", event.GuildID,
			"channel", event.TextChannelID,
			"error", err,
		)
	}
}

func (h *NotificationEventHandler) handlePlaybackError(event domain.PlaybackErrorEvent) {
	if event.TextChannelID == 0 {
		return
	}

	message := "Failed to play the track, skipping."
	if event.Track != nil {
		message = "Failed to play **" + event.Track.Title + "**, skipping."
	}
	if err := h.notifier.SendError(event.TextChannelID, message); err != nil {
		slog.Warn("failed to send playback error notification",
			"guild", event.GuildID,
			"channel", event.TextChannelID,
			"error", err,
		)
	}
}
