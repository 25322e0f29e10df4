package infrastructure

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// ErrBusClosed is returned when publishing to a closed bus.
var ErrBusClosed = errors.New("event bus closed")

// Compile-time checks that ChannelEventBus implements ports interfaces.
var (
	_ ports.EventPublisher  = (*ChannelEventBus)(nil)
	_ ports.EventSubscriber = (*ChannelEventBus)(nil)
)

// guildLane holds the undelivered events of one guild. At most one goroutine
// drains a lane at a time.
type guildLane struct {
	pending []domain.Event
}

// ChannelEventBus delivers events asynchronously, one lane per guild.
// Events of a guild are delivered in publish order; a slow handler only
// delays its own guild. Publish never drops an event.
type ChannelEventBus struct {
	handlers map[reflect.Type][]func(context.Context, domain.Event)
	lanes    map[snowflake.ID]*guildLane

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.Mutex
}

// NewChannelEventBus creates a new ChannelEventBus.
func NewChannelEventBus() *ChannelEventBus {
	ctx, cancel := context.WithCancel(context.Background())

	return &ChannelEventBus{
		handlers: make(map[reflect.Type][]func(context.Context, domain.Event)),
		lanes:    make(map[snowflake.ID]*guildLane),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Publish enqueues an event on its guild's lane.
func (b *ChannelEventBus) Publish(event domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	name := reflect.TypeOf(event).Name()
	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", name)
		return ErrBusClosed
	}

	guildID := event.EventGuildID()
	lane, running := b.lanes[guildID]
	if !running {
		lane = &guildLane{}
		b.lanes[guildID] = lane
	}
	lane.pending = append(lane.pending, event)

	if !running {
		b.wg.Add(1)
		go b.drain(guildID, lane)
	}

	slog.Debug("published event", "type", name, "guild", guildID)
	return nil
}

// drain delivers the lane's events until it is empty, then retires the lane.
func (b *ChannelEventBus) drain(guildID snowflake.ID, lane *guildLane) {
	defer b.wg.Done()

	for {
		b.mu.Lock()
		if b.closed || len(lane.pending) == 0 {
			delete(b.lanes, guildID)
			b.mu.Unlock()
			return
		}
		event := lane.pending[0]
		lane.pending[0] = nil
		lane.pending = lane.pending[1:]
		handlers := b.handlers[reflect.TypeOf(event)]
		b.mu.Unlock()

		for _, handler := range handlers {
			b.invoke(handler, event)
		}
	}
}

// invoke runs one handler; a panicking handler must not kill the lane.
func (b *ChannelEventBus) invoke(handler func(context.Context, domain.Event), event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered panic in event handler",
				"type", reflect.TypeOf(event).Name(),
				"guild", event.EventGuildID(),
				"panic", r,
			)
		}
	}()
	handler(b.ctx, event)
}

// Subscribe registers a handler for events of the given concrete type.
func (b *ChannelEventBus) Subscribe(
	eventType reflect.Type,
	handler func(context.Context, domain.Event),
) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Close stops delivery and waits for running handlers to return.
// Events not yet delivered are discarded.
func (b *ChannelEventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()

	slog.Debug("channel event bus closed")
}
