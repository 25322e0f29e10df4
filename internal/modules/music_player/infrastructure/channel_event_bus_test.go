package infrastructure

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestChannelEventBus_DeliversByType(t *testing.T) {
	bus := NewChannelEventBus()
	defer bus.Close()

	var (
		mu      sync.Mutex
		started []snowflake.ID
		ended   []snowflake.ID
	)
	_ = bus.Subscribe(reflect.TypeFor[domain.TrackStartedEvent](), func(_ context.Context, e domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		started = append(started, e.EventGuildID())
	})
	_ = bus.Subscribe(reflect.TypeFor[domain.TrackEndedEvent](), func(_ context.Context, e domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		ended = append(ended, e.EventGuildID())
	})

	if err := bus.Publish(domain.TrackStartedEvent{GuildID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bus.Publish(domain.TrackEndedEvent{GuildID: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(started) == 1 && len(ended) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if started[0] != 1 || ended[0] != 2 {
		t.Errorf("unexpected delivery: started=%v ended=%v", started, ended)
	}
}

func TestChannelEventBus_PreservesOrderWithinGuild(t *testing.T) {
	bus := NewChannelEventBus()
	defer bus.Close()

	var (
		mu  sync.Mutex
		got []string
	)
	_ = bus.Subscribe(reflect.TypeFor[domain.TrackFailedEvent](), func(_ context.Context, e domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.(domain.TrackFailedEvent).Message)
	})
	_ = bus.Subscribe(reflect.TypeFor[domain.TrackEndedEvent](), func(context.Context, domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, "ended")
	})

	var want []string
	for i := range 50 {
		var event domain.Event = domain.TrackFailedEvent{GuildID: 7, Message: strconv.Itoa(i)}
		want = append(want, strconv.Itoa(i))
		if i%5 == 4 {
			event = domain.TrackEndedEvent{GuildID: 7}
			want[i] = "ended"
		}
		if err := bus.Publish(event); err != nil {
			t.Fatalf("publish %d failed: %v", i, err)
		}
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == len(want)
	})

	mu.Lock()
	defer mu.Unlock()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d delivered out of order: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChannelEventBus_GuildsAreIndependent(t *testing.T) {
	bus := NewChannelEventBus()
	defer bus.Close()

	block := make(chan struct{})
	defer close(block)
	entered := make(chan struct{})
	_ = bus.Subscribe(reflect.TypeFor[domain.NowPlayingEvent](), func(context.Context, domain.Event) {
		close(entered)
		<-block
	})
	ended := make(chan snowflake.ID, 1)
	_ = bus.Subscribe(reflect.TypeFor[domain.TrackEndedEvent](), func(_ context.Context, e domain.Event) {
		ended <- e.EventGuildID()
	})

	_ = bus.Publish(domain.NowPlayingEvent{GuildID: 1})
	<-entered
	_ = bus.Publish(domain.TrackEndedEvent{GuildID: 2})

	select {
	case id := <-ended:
		if id != 2 {
			t.Errorf("expected guild 2, got %d", id)
		}
	case <-time.After(time.Second):
		t.Fatal("guild 2 was held up by a handler for guild 1")
	}
}

func TestChannelEventBus_NeverDropsBehindBlockedHandler(t *testing.T) {
	bus := NewChannelEventBus()
	defer bus.Close()

	block := make(chan struct{})
	entered := make(chan struct{}, 1)
	var (
		mu    sync.Mutex
		ended int
	)
	_ = bus.Subscribe(reflect.TypeFor[domain.TrackStartedEvent](), func(context.Context, domain.Event) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-block
	})
	_ = bus.Subscribe(reflect.TypeFor[domain.TrackEndedEvent](), func(context.Context, domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		ended++
	})

	_ = bus.Publish(domain.TrackStartedEvent{GuildID: 1})
	<-entered
	for range 500 {
		if err := bus.Publish(domain.TrackEndedEvent{GuildID: 1}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}
	close(block)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ended == 500
	})
}

func TestChannelEventBus_RecoversFromPanic(t *testing.T) {
	bus := NewChannelEventBus()
	defer bus.Close()

	delivered := make(chan struct{}, 1)
	_ = bus.Subscribe(reflect.TypeFor[domain.TrackFailedEvent](), func(_ context.Context, e domain.Event) {
		if e.(domain.TrackFailedEvent).Message == "boom" {
			panic("boom")
		}
		delivered <- struct{}{}
	})

	_ = bus.Publish(domain.TrackFailedEvent{GuildID: 1, Message: "boom"})
	_ = bus.Publish(domain.TrackFailedEvent{GuildID: 1, Message: "ok"})

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not survive a panicking handler")
	}
}

func TestChannelEventBus_Close(t *testing.T) {
	bus := NewChannelEventBus()
	bus.Close()

	if err := bus.Publish(domain.TrackEndedEvent{GuildID: 1}); !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed, got %v", err)
	}
	err := bus.Subscribe(reflect.TypeFor[domain.TrackEndedEvent](), func(context.Context, domain.Event) {})
	if !errors.Is(err, ErrBusClosed) {
		t.Errorf("expected ErrBusClosed on subscribe, got %v", err)
	}

	// Closing twice is safe
	bus.Close()
}
