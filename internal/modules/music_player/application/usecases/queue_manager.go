package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
	"github.com/sglre6355/harmonybot/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "music_player"

// QueueManagerConfig holds the timing configuration of the QueueManager.
type QueueManagerConfig struct {
	// IdleTimeout is how long an empty, idle queue keeps the voice connection.
	IdleTimeout time.Duration
	// StartTimeout bounds voice join plus play for a single track.
	StartTimeout time.Duration
}

// SettingsReader supplies the per-guild defaults for new queues.
type SettingsReader interface {
	Get(ctx context.Context, guildID snowflake.ID) (*domain.GuildSettings, error)
}

// timer is the part of *time.Timer the manager needs.
type timer interface {
	Stop() bool
}

type queueEntry struct {
	mu        sync.Mutex
	queue     *domain.GuildQueue
	idleTimer timer
	destroyed bool
}

// startRequest describes a start attempt begun under the guild lock.
type startRequest struct {
	track      *domain.Track
	generation uint64
	ok         bool
}

// CreateQueueInput contains the input for the GetOrCreate use case.
type CreateQueueInput struct {
	GuildID        snowflake.ID
	TextChannelID  snowflake.ID
	VoiceChannelID snowflake.ID
}

// EnqueueInput contains the input for the Enqueue use case.
type EnqueueInput struct {
	GuildID snowflake.ID
	Track   *domain.Track
}

// EnqueueOutput contains the result of the Enqueue use case.
type EnqueueOutput struct {
	Position int  // 1-based position in the queue
	Started  bool // true if the track starts immediately
}

// SkipOutput contains the result of the Skip use case.
type SkipOutput struct {
	Skipped *domain.Track
	Next    *domain.Track // nil if nothing follows
}

// QueueStats summarizes all guild queues.
type QueueStats struct {
	ActiveQueues int `json:"activeQueues"`
	Playing      int `json:"playing"`
	QueuedTracks int `json:"queuedTracks"`
}

// QueueManager owns the playback queue of every guild and drives the playback
// state machine.
//
// Lock order is manager then guild entry. No I/O happens while holding either lock.
type QueueManager struct {
	audio     ports.AudioPlayer
	voice     ports.VoiceConnection
	publisher ports.EventPublisher
	settings  SettingsReader
	cfg       QueueManagerConfig

	mu      sync.Mutex
	entries map[snowflake.ID]*queueEntry

	spawn     func(func())
	afterFunc func(time.Duration, func()) timer
	shuffle   func(n int, swap func(i, j int))
}

// NewQueueManager creates a new QueueManager. settings may be nil, in which case
// new queues use the domain defaults.
func NewQueueManager(
	audio ports.AudioPlayer,
	voice ports.VoiceConnection,
	publisher ports.EventPublisher,
	settings SettingsReader,
	cfg QueueManagerConfig,
) *QueueManager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = 15 * time.Second
	}

	return &QueueManager{
		audio:     audio,
		voice:     voice,
		publisher: publisher,
		settings:  settings,
		cfg:       cfg,
		entries:   make(map[snowflake.ID]*queueEntry),
		spawn:     func(fn func()) { go fn() },
		afterFunc: func(d time.Duration, fn func()) timer {
			return time.AfterFunc(d, fn)
		},
		shuffle: rand.Shuffle,
	}
}

// GetOrCreate returns the guild's queue, creating it if needed.
func (m *QueueManager) GetOrCreate(ctx context.Context, input CreateQueueInput) (*QueueSnapshot, error) {
	if input.VoiceChannelID == 0 {
		return nil, ErrUserNotInVoice
	}

	if e := m.get(input.GuildID); e != nil {
		return e.snapshot(), nil
	}

	settings := m.guildSettings(ctx, input.GuildID)

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have won the race while settings loaded.
	if e, ok := m.entries[input.GuildID]; ok {
		return e.snapshot(), nil
	}

	e := &queueEntry{
		queue: domain.NewGuildQueue(
			input.GuildID,
			input.TextChannelID,
			input.VoiceChannelID,
			settings.DefaultVolume,
			settings.MaxQueueSize,
		),
	}
	m.entries[input.GuildID] = e
	telemetry.SetGauge(telemetry.ActiveQueues, len(m.entries))

	e.mu.Lock()
	m.armIdleLocked(input.GuildID, e)
	snapshot := snapshotOf(e.queue)
	e.mu.Unlock()

	slog.Info("created queue",
		"guild", input.GuildID,
		"text_channel", input.TextChannelID,
		"voice_channel", input.VoiceChannelID,
	)

	return snapshot, nil
}

// Enqueue appends a track to the guild's queue and starts playback if the queue was idle.
func (m *QueueManager) Enqueue(_ context.Context, input EnqueueInput) (*EnqueueOutput, error) {
	e := m.get(input.GuildID)
	if e == nil {
		return nil, ErrNoActiveQueue
	}

	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return nil, ErrNoActiveQueue
	}

	pos, err := e.queue.Append(input.Track)
	if err != nil {
		e.mu.Unlock()
		telemetry.Inc(telemetry.QueueFullRejections)
		return nil, err
	}
	req := m.beginLocked(input.GuildID, e)
	e.mu.Unlock()

	telemetry.Inc(telemetry.TracksEnqueued)
	slog.Debug("enqueued track", "guild", input.GuildID, "track", input.Track.Title, "position", pos)

	m.startAsync(input.GuildID, e, req)

	return &EnqueueOutput{Position: pos, Started: req.ok}, nil
}

// Skip ends the current track and advances. Under LoopModeQueue the skipped
// track moves to the tail, otherwise it is dropped.
func (m *QueueManager) Skip(ctx context.Context, guildID snowflake.ID) (*SkipOutput, error) {
	e := m.get(guildID)
	if e == nil {
		return nil, ErrNoActiveQueue
	}

	e.mu.Lock()
	skipped, ok := e.queue.Finish(domain.TriggerSkip)
	if !ok {
		e.mu.Unlock()
		return nil, ErrNotPlaying
	}
	req := m.beginLocked(guildID, e)
	e.mu.Unlock()

	if req.ok {
		m.startAsync(guildID, e, req)
	} else if err := m.audio.Stop(ctx, guildID); err != nil {
		slog.Warn("failed to stop playback after skip", "guild", guildID, "error", err)
	}

	slog.Debug("skipped track", "guild", guildID, "track", skipped.Title)

	return &SkipOutput{Skipped: skipped, Next: req.track}, nil
}

// Stop clears the queue and stops playback. The voice connection is kept until
// the idle timeout.
func (m *QueueManager) Stop(ctx context.Context, guildID snowflake.ID) error {
	e := m.get(guildID)
	if e == nil {
		return ErrNoActiveQueue
	}

	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return ErrNoActiveQueue
	}
	e.queue.Stop()
	m.armIdleLocked(guildID, e)
	e.mu.Unlock()

	if err := m.audio.Stop(ctx, guildID); err != nil {
		slog.Warn("failed to stop playback", "guild", guildID, "error", err)
	}

	slog.Debug("stopped queue", "guild", guildID)
	return nil
}

// Resume starts the head of an idle queue. It reports whether a start was triggered.
func (m *QueueManager) Resume(_ context.Context, guildID snowflake.ID) (bool, error) {
	e := m.get(guildID)
	if e == nil {
		return false, ErrNoActiveQueue
	}

	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return false, ErrNoActiveQueue
	}
	req := m.beginLocked(guildID, e)
	e.mu.Unlock()

	m.startAsync(guildID, e, req)
	return req.ok, nil
}

// SetVolume changes the queue volume and applies it to live playback.
func (m *QueueManager) SetVolume(ctx context.Context, guildID snowflake.ID, volume int) error {
	if !domain.ValidVolume(volume) {
		return fmt.Errorf("%w: got %d", ErrInvalidVolume, volume)
	}

	e := m.get(guildID)
	if e == nil {
		return ErrNoActiveQueue
	}

	e.mu.Lock()
	if err := e.queue.SetVolume(volume); err != nil {
		e.mu.Unlock()
		return err
	}
	active := e.queue.IsActive()
	e.mu.Unlock()

	if !active {
		return nil
	}
	if err := m.audio.SetVolume(ctx, guildID, volume); err != nil {
		return fmt.Errorf("failed to apply volume: %w", err)
	}
	return nil
}

// SetLoopMode changes the loop mode.
func (m *QueueManager) SetLoopMode(guildID snowflake.ID, mode domain.LoopMode) error {
	e := m.get(guildID)
	if e == nil {
		return ErrNoActiveQueue
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return ErrNoActiveQueue
	}
	e.queue.SetLoopMode(mode)
	return nil
}

// CycleLoopMode advances none -> song -> queue -> none and returns the new mode.
func (m *QueueManager) CycleLoopMode(guildID snowflake.ID) (domain.LoopMode, error) {
	e := m.get(guildID)
	if e == nil {
		return domain.LoopModeNone, ErrNoActiveQueue
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return domain.LoopModeNone, ErrNoActiveQueue
	}
	return e.queue.CycleLoopMode(), nil
}

// Shuffle randomizes the tracks after the current one and returns how many were shuffled.
func (m *QueueManager) Shuffle(guildID snowflake.ID) (int, error) {
	e := m.get(guildID)
	if e == nil {
		return 0, ErrNoActiveQueue
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return 0, ErrNoActiveQueue
	}
	return e.queue.Shuffle(m.shuffle), nil
}

// Destroy stops playback, leaves voice and removes the guild's queue.
func (m *QueueManager) Destroy(ctx context.Context, guildID snowflake.ID) error {
	e := m.get(guildID)
	if e == nil {
		return ErrNoActiveQueue
	}

	td, ok := m.detach(guildID, e, false)
	if !ok {
		return ErrNoActiveQueue
	}
	m.teardown(ctx, guildID, td, true)
	return nil
}

// Snapshot returns a read-only view of the guild's queue.
func (m *QueueManager) Snapshot(guildID snowflake.ID) (*QueueSnapshot, error) {
	e := m.get(guildID)
	if e == nil {
		return nil, ErrNoActiveQueue
	}
	return e.snapshot(), nil
}

// ActiveGuilds lists the guilds that have a queue, in ascending order.
func (m *QueueManager) ActiveGuilds() []snowflake.ID {
	m.mu.Lock()
	ids := make([]snowflake.ID, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	slices.Sort(ids)
	return ids
}

// Stats summarizes every queue.
func (m *QueueManager) Stats() QueueStats {
	m.mu.Lock()
	entries := make([]*queueEntry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	stats := QueueStats{ActiveQueues: len(entries)}
	for _, e := range entries {
		e.mu.Lock()
		if e.queue.IsPlaying() {
			stats.Playing++
		}
		stats.QueuedTracks += e.queue.Len()
		e.mu.Unlock()
	}
	return stats
}

// OnTrackStarted moves the queue to Playing when the output confirms the track.
func (m *QueueManager) OnTrackStarted(_ context.Context, guildID snowflake.ID) {
	e := m.get(guildID)
	if e == nil {
		return
	}

	e.mu.Lock()
	if e.destroyed || !e.queue.MarkStarted() {
		e.mu.Unlock()
		slog.Debug("ignored track start", "guild", guildID)
		return
	}
	track := e.queue.Current()
	textChannelID := e.queue.TextChannelID()
	e.mu.Unlock()

	telemetry.Inc(telemetry.TracksStarted)
	slog.Info("started track", "guild", guildID, "track", track.Title)

	m.publish(domain.NowPlayingEvent{
		GuildID:       guildID,
		TextChannelID: textChannelID,
		Track:         track,
	})
}

// OnTrackEnded applies the loop policy to the finished track and advances.
func (m *QueueManager) OnTrackEnded(_ context.Context, guildID snowflake.ID) {
	e := m.get(guildID)
	if e == nil {
		return
	}

	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	finished, ok := e.queue.Finish(domain.TriggerEnd)
	if !ok {
		e.mu.Unlock()
		slog.Debug("ignored track end", "guild", guildID)
		return
	}
	req := m.beginLocked(guildID, e)
	e.mu.Unlock()

	if finished != nil {
		slog.Debug("finished track", "guild", guildID, "track", finished.Title)
	}
	m.startAsync(guildID, e, req)
}

// OnTrackFailed drops the failed track regardless of loop mode, posts a notice
// and advances.
func (m *QueueManager) OnTrackFailed(_ context.Context, guildID snowflake.ID, message string) {
	e := m.get(guildID)
	if e == nil {
		return
	}

	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	failed, ok := e.queue.Finish(domain.TriggerError)
	if !ok {
		e.mu.Unlock()
		return
	}
	textChannelID := e.queue.TextChannelID()
	req := m.beginLocked(guildID, e)
	e.mu.Unlock()

	m.reportFailure(guildID, textChannelID, failed, message)
	m.startAsync(guildID, e, req)
}

// OnVoiceDisconnected removes the queue after the bot was disconnected externally.
func (m *QueueManager) OnVoiceDisconnected(ctx context.Context, guildID snowflake.ID) {
	e := m.get(guildID)
	if e == nil {
		return
	}

	td, ok := m.detach(guildID, e, false)
	if !ok {
		return
	}
	slog.Info("voice disconnected, destroying queue", "guild", guildID)
	m.teardown(ctx, guildID, td, false)
}

func (m *QueueManager) get(guildID snowflake.ID) *queueEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[guildID]
}

func (m *QueueManager) guildSettings(ctx context.Context, guildID snowflake.ID) *domain.GuildSettings {
	if m.settings == nil {
		return domain.DefaultGuildSettings(guildID)
	}
	settings, err := m.settings.Get(ctx, guildID)
	if err != nil {
		slog.Warn("failed to load guild settings, using defaults", "guild", guildID, "error", err)
		return domain.DefaultGuildSettings(guildID)
	}
	return settings
}

// beginLocked starts the head if the queue is idle, or arms the idle timer if
// there is nothing to play. e.mu must be held.
func (m *QueueManager) beginLocked(guildID snowflake.ID, e *queueEntry) startRequest {
	track, gen, ok := e.queue.Begin()
	if ok {
		m.stopIdleLocked(e)
		return startRequest{track: track, generation: gen, ok: true}
	}
	if e.queue.IsIdleAndEmpty() {
		m.armIdleLocked(guildID, e)
	}
	return startRequest{}
}

func (m *QueueManager) startAsync(guildID snowflake.ID, e *queueEntry, req startRequest) {
	if !req.ok {
		return
	}
	m.spawn(func() { m.runStart(guildID, e, req) })
}

// runStart joins voice if needed and asks the output to play the track. The
// result is discarded if the attempt went stale in the meantime.
func (m *QueueManager) runStart(guildID snowflake.ID, e *queueEntry, req startRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.StartTimeout)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, tracerName, "music.start",
		attribute.String("guild", guildID.String()),
		attribute.String("track", req.track.Title),
	)
	defer span.End()

	e.mu.Lock()
	if e.destroyed || e.queue.Generation() != req.generation {
		e.mu.Unlock()
		return
	}
	connected := e.queue.Connected()
	voiceChannelID := e.queue.VoiceChannelID()
	volume := e.queue.Volume()
	e.mu.Unlock()

	if !connected {
		if err := m.voice.JoinChannel(ctx, guildID, voiceChannelID); err != nil {
			err = fmt.Errorf("%w: failed to join voice channel: %w", ErrPlaybackFailed, err)
			telemetry.RecordError(span, err)
			m.failStart(guildID, e, req, err)
			return
		}

		e.mu.Lock()
		destroyed := e.destroyed
		if !destroyed {
			e.queue.SetConnected(true)
		}
		e.mu.Unlock()

		if destroyed {
			// Destroyed while joining; nobody else will release the connection.
			if err := m.voice.LeaveChannel(ctx, guildID); err != nil {
				slog.Warn("failed to leave voice channel", "guild", guildID, "error", err)
			}
			return
		}
	}

	if m.isStale(e, req) {
		return
	}

	if err := m.audio.Play(ctx, guildID, req.track, volume); err != nil {
		err = fmt.Errorf("%w: %w", ErrPlaybackFailed, err)
		telemetry.RecordError(span, err)
		m.failStart(guildID, e, req, err)
		return
	}

	// A stop that raced the play call must not leave audio running.
	e.mu.Lock()
	stoppedMeanwhile := !e.destroyed && e.queue.Generation() != req.generation && !e.queue.IsActive()
	e.mu.Unlock()
	if stoppedMeanwhile {
		if err := m.audio.Stop(ctx, guildID); err != nil {
			slog.Warn("failed to stop stale playback", "guild", guildID, "error", err)
		}
	}
}

func (m *QueueManager) isStale(e *queueEntry, req startRequest) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyed || e.queue.Generation() != req.generation
}

// failStart drops the head of a failed attempt and moves on to the next song.
func (m *QueueManager) failStart(guildID snowflake.ID, e *queueEntry, req startRequest, cause error) {
	e.mu.Lock()
	if e.destroyed || e.queue.Generation() != req.generation {
		e.mu.Unlock()
		return
	}
	failed, ok := e.queue.Finish(domain.TriggerError)
	if !ok {
		e.mu.Unlock()
		return
	}
	textChannelID := e.queue.TextChannelID()
	next := m.beginLocked(guildID, e)
	e.mu.Unlock()

	m.reportFailure(guildID, textChannelID, failed, cause.Error())
	m.startAsync(guildID, e, next)
}

func (m *QueueManager) reportFailure(
	guildID, textChannelID snowflake.ID,
	track *domain.Track,
	message string,
) {
	telemetry.Inc(telemetry.PlaybackErrors)

	title := ""
	if track != nil {
		title = track.Title
	}
	slog.Warn("dropped track after playback error", "guild", guildID, "track", title, "error", message)

	m.publish(domain.PlaybackErrorEvent{
		GuildID:       guildID,
		TextChannelID: textChannelID,
		Track:         track,
		Message:       message,
	})
}

// armIdleLocked starts the idle timer unless one is pending. e.mu must be held.
func (m *QueueManager) armIdleLocked(guildID snowflake.ID, e *queueEntry) {
	if e.idleTimer != nil {
		return
	}
	var armed timer
	armed = m.afterFunc(m.cfg.IdleTimeout, func() { m.onIdleTimeout(guildID, e, &armed) })
	e.idleTimer = armed
}

// stopIdleLocked cancels the idle timer. e.mu must be held.
func (m *QueueManager) stopIdleLocked(e *queueEntry) {
	if e.idleTimer != nil {
		e.idleTimer.Stop()
		e.idleTimer = nil
	}
}

// onIdleTimeout runs when the timer in armed fires. A timer that was replaced
// or stopped after it fired is stale and does nothing.
func (m *QueueManager) onIdleTimeout(guildID snowflake.ID, e *queueEntry, armed *timer) {
	e.mu.Lock()
	if e.idleTimer == nil || e.idleTimer != *armed {
		e.mu.Unlock()
		return
	}
	e.idleTimer = nil
	e.mu.Unlock()

	td, ok := m.detach(guildID, e, true)
	if !ok {
		return
	}

	slog.Info("queue idle, leaving voice", "guild", guildID)

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.StartTimeout)
	defer cancel()
	m.teardown(ctx, guildID, td, true)
}

type teardownState struct {
	connected bool
	active    bool
}

// detach removes e from the registry and marks it destroyed. With onlyIfIdle
// it does nothing unless the queue is idle and empty.
func (m *QueueManager) detach(guildID snowflake.ID, e *queueEntry, onlyIfIdle bool) (teardownState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries[guildID] != e {
		return teardownState{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed || (onlyIfIdle && !e.queue.IsIdleAndEmpty()) {
		return teardownState{}, false
	}

	td := teardownState{
		connected: e.queue.Connected(),
		active:    e.queue.IsActive(),
	}
	delete(m.entries, guildID)
	e.destroyed = true
	m.stopIdleLocked(e)
	e.queue.Stop()
	e.queue.SetConnected(false)

	telemetry.SetGauge(telemetry.ActiveQueues, len(m.entries))
	return td, true
}

// teardown releases the output and, if leave is set, the voice connection.
func (m *QueueManager) teardown(ctx context.Context, guildID snowflake.ID, td teardownState, leave bool) {
	if td.active {
		if err := m.audio.Stop(ctx, guildID); err != nil {
			slog.Warn("failed to stop playback", "guild", guildID, "error", err)
		}
	}
	if leave && td.connected {
		if err := m.voice.LeaveChannel(ctx, guildID); err != nil {
			slog.Warn("failed to leave voice channel", "guild", guildID, "error", err)
		}
	}
	slog.Info("destroyed queue", "guild", guildID)
}

func (m *QueueManager) publish(event domain.Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(event); err != nil {
		slog.Warn("failed to publish event", "guild", event.EventGuildID(), "error", err)
	}
}

func (e *queueEntry) snapshot() *QueueSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshotOf(e.queue)
}
