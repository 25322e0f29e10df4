package usecases

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

const (
	testGuildID = snowflake.ID(1)
	testTextID  = snowflake.ID(10)
	testVoiceID = snowflake.ID(20)
)

func mockTrack(title string) *domain.Track {
	return domain.NewTrack(domain.TrackParams{
		Title:       title,
		SourceURL:   "https://example.com/" + title,
		Duration:    3 * time.Minute,
		RequesterID: snowflake.ID(123),
	})
}

type mockAudioPlayer struct {
	plays      []string
	volumes    []int
	stops      int
	playErrs   map[string]error
	stopErr    error
	setVolumes []int
}

func (m *mockAudioPlayer) Play(_ context.Context, _ snowflake.ID, track *domain.Track, volume int) error {
	if err := m.playErrs[track.Title]; err != nil {
		return err
	}
	m.plays = append(m.plays, track.Title)
	m.volumes = append(m.volumes, volume)
	return nil
}

func (m *mockAudioPlayer) Stop(_ context.Context, _ snowflake.ID) error {
	m.stops++
	return m.stopErr
}

func (m *mockAudioPlayer) SetVolume(_ context.Context, _ snowflake.ID, volume int) error {
	m.setVolumes = append(m.setVolumes, volume)
	return nil
}

type mockVoiceConnection struct {
	joins    int
	leaves   int
	joinErr  error
	leaveErr error
}

func (m *mockVoiceConnection) JoinChannel(_ context.Context, _, _ snowflake.ID) error {
	if m.joinErr != nil {
		return m.joinErr
	}
	m.joins++
	return nil
}

func (m *mockVoiceConnection) LeaveChannel(_ context.Context, _ snowflake.ID) error {
	m.leaves++
	return m.leaveErr
}

type mockEventPublisher struct {
	events []domain.Event
}

func (m *mockEventPublisher) Publish(event domain.Event) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventPublisher) nowPlaying() []domain.NowPlayingEvent {
	var out []domain.NowPlayingEvent
	for _, e := range m.events {
		if ev, ok := e.(domain.NowPlayingEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

func (m *mockEventPublisher) playbackErrors() []domain.PlaybackErrorEvent {
	var out []domain.PlaybackErrorEvent
	for _, e := range m.events {
		if ev, ok := e.(domain.PlaybackErrorEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

type mockSettingsRepository struct {
	settings map[snowflake.ID]*domain.GuildSettings
	getErr   error
	saveErr  error
}

func newMockSettingsRepository() *mockSettingsRepository {
	return &mockSettingsRepository{settings: make(map[snowflake.ID]*domain.GuildSettings)}
}

func (m *mockSettingsRepository) Get(_ context.Context, guildID snowflake.ID) (*domain.GuildSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.settings[guildID]
	if !ok {
		return nil, domain.ErrSettingsNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *mockSettingsRepository) Save(_ context.Context, s *domain.GuildSettings) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	copied := *s
	m.settings[s.GuildID] = &copied
	return nil
}

type mockTrackResolver struct {
	results []*ports.TrackInfo
	err     error
	queries []string
}

func (m *mockTrackResolver) Name() string { return "mock" }

func (m *mockTrackResolver) Resolve(_ context.Context, q *domain.SearchQuery) ([]*ports.TrackInfo, error) {
	m.queries = append(m.queries, q.Query)
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

type fakeTimer struct {
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	pending := !t.stopped && !t.fired
	t.stopped = true
	return pending
}

func (t *fakeTimer) fire() {
	t.fired = true
	t.fn()
}

// harness wires a QueueManager to mocks. Spawned starts are queued and run by
// drain, and idle timers never fire on their own.
type harness struct {
	m        *QueueManager
	audio    *mockAudioPlayer
	voice    *mockVoiceConnection
	events   *mockEventPublisher
	settings *mockSettingsRepository
	timers   []*fakeTimer
	spawned  []func()
}

func newHarness() *harness {
	h := &harness{
		audio:    &mockAudioPlayer{playErrs: make(map[string]error)},
		voice:    &mockVoiceConnection{},
		events:   &mockEventPublisher{},
		settings: newMockSettingsRepository(),
	}
	h.m = NewQueueManager(
		h.audio,
		h.voice,
		h.events,
		NewSettingsService(h.settings, SettingsDefaults{}),
		QueueManagerConfig{IdleTimeout: time.Minute, StartTimeout: time.Second},
	)
	h.m.spawn = func(fn func()) { h.spawned = append(h.spawned, fn) }
	h.m.afterFunc = func(_ time.Duration, fn func()) timer {
		t := &fakeTimer{fn: fn}
		h.timers = append(h.timers, t)
		return t
	}
	return h
}

// drain runs spawned starts, including those spawned while draining.
func (h *harness) drain() {
	for len(h.spawned) > 0 {
		fn := h.spawned[0]
		h.spawned = h.spawned[1:]
		fn()
	}
}

// pendingTimer returns the idle timer that would fire next, or nil.
func (h *harness) pendingTimer() *fakeTimer {
	for i := len(h.timers) - 1; i >= 0; i-- {
		if t := h.timers[i]; !t.stopped && !t.fired {
			return t
		}
	}
	return nil
}

func (h *harness) createQueue() {
	_, err := h.m.GetOrCreate(context.Background(), CreateQueueInput{
		GuildID:        testGuildID,
		TextChannelID:  testTextID,
		VoiceChannelID: testVoiceID,
	})
	if err != nil {
		panic(err)
	}
}

func (h *harness) enqueue(title string) (*EnqueueOutput, error) {
	return h.m.Enqueue(context.Background(), EnqueueInput{GuildID: testGuildID, Track: mockTrack(title)})
}

// play enqueues the titles and confirms the first one started.
func (h *harness) play(titles ...string) {
	for _, title := range titles {
		if _, err := h.enqueue(title); err != nil {
			panic(err)
		}
	}
	h.drain()
	h.m.OnTrackStarted(context.Background(), testGuildID)
}

func (h *harness) snapshot() *QueueSnapshot {
	s, err := h.m.Snapshot(testGuildID)
	if err != nil {
		panic(err)
	}
	return s
}

func snapshotTitles(s *QueueSnapshot) []string {
	var out []string
	if s.Current != nil {
		out = append(out, s.Current.Title)
	}
	for _, t := range s.Upcoming {
		out = append(out, t.Title)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
