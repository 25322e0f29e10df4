// Package autodelete schedules deferred deletion of bot-authored messages.
package autodelete

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/telemetry"
	"golang.org/x/time/rate"
)

// deleteTimeout bounds a single delete call, including the wait for the rate limiter.
const deleteTimeout = 10 * time.Second

// Deleter removes a message from a channel.
type Deleter interface {
	DeleteMessage(channelID, messageID snowflake.ID) error
}

// Config holds the scheduler configuration loaded from environment variables.
type Config struct {
	Enabled         bool          `env:"AUTO_DELETE_ENABLED"           envDefault:"true"`
	DefaultDelay    time.Duration `env:"AUTO_DELETE_DELAY"             envDefault:"10s"`
	NowPlayingDelay time.Duration `env:"AUTO_DELETE_NOW_PLAYING_DELAY" envDefault:"30s"`
	ErrorDelay      time.Duration `env:"AUTO_DELETE_ERROR_DELAY"       envDefault:"5s"`
	// DeleteRate is the maximum number of deletes per second. Zero disables throttling.
	DeleteRate float64 `env:"AUTO_DELETE_RATE" envDefault:"5"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		DefaultDelay:    10 * time.Second,
		NowPlayingDelay: 30 * time.Second,
		ErrorDelay:      5 * time.Second,
		DeleteRate:      5,
	}
}

// Stats is a read-only snapshot of the scheduler.
type Stats struct {
	Enabled        bool
	ScheduledCount int
	DefaultDelay   time.Duration
}

type entry struct {
	channelID snowflake.ID
	fireAt    time.Time
	timer     *time.Timer
}

// Scheduler owns the registry of pending deletions keyed by message ID.
type Scheduler struct {
	deleter      Deleter
	defaultDelay time.Duration
	limiter      *rate.Limiter

	mu      sync.Mutex
	entries map[snowflake.ID]*entry
	enabled bool
	closed  bool
}

// NewScheduler creates a new Scheduler.
func NewScheduler(deleter Deleter, cfg Config) *Scheduler {
	if cfg.DefaultDelay <= 0 {
		cfg.DefaultDelay = DefaultConfig().DefaultDelay
	}

	s := &Scheduler{
		deleter:      deleter,
		defaultDelay: cfg.DefaultDelay,
		entries:      make(map[snowflake.ID]*entry),
		enabled:      cfg.Enabled,
	}
	if cfg.DeleteRate > 0 {
		burst := max(int(cfg.DeleteRate), 1)
		s.limiter = rate.NewLimiter(rate.Limit(cfg.DeleteRate), burst)
	}
	return s
}

// Schedule registers a one-shot deletion of the message after delay.
// A non-positive delay uses the default. Returns false without scheduling when the
// scheduler is disabled or the message is already scheduled.
func (s *Scheduler) Schedule(messageID, channelID snowflake.ID, delay time.Duration) bool {
	if delay <= 0 {
		delay = s.defaultDelay
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled || s.closed {
		return false
	}
	if _, exists := s.entries[messageID]; exists {
		return false
	}

	e := &entry{
		channelID: channelID,
		fireAt:    time.Now().Add(delay),
	}
	e.timer = time.AfterFunc(delay, func() { s.fire(messageID, e) })
	s.entries[messageID] = e

	telemetry.Inc(telemetry.DeletionsScheduled)
	telemetry.SetGauge(telemetry.PendingDeletions, len(s.entries))
	slog.Debug("scheduled message deletion", "message", messageID, "channel", channelID, "delay", delay)

	return true
}

// Cancel removes a pending deletion. Returns false if nothing was scheduled,
// including when the deletion already fired.
func (s *Scheduler) Cancel(messageID snowflake.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[messageID]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.entries, messageID)

	telemetry.Inc(telemetry.DeletionsCancelled)
	telemetry.SetGauge(telemetry.PendingDeletions, len(s.entries))
	slog.Debug("cancelled message deletion", "message", messageID)

	return true
}

// IsScheduled reports whether a deletion is pending for the message.
func (s *Scheduler) IsScheduled(messageID snowflake.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[messageID]
	return ok
}

// SetEnabled toggles scheduling. Pending deletions are left untouched.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// Enabled reports whether new deletions are accepted.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// DefaultDelay returns the delay used when Schedule is called without one.
func (s *Scheduler) DefaultDelay() time.Duration {
	return s.defaultDelay
}

// Stats returns a snapshot of the scheduler state.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Enabled:        s.enabled,
		ScheduledCount: len(s.entries),
		DefaultDelay:   s.defaultDelay,
	}
}

// Close stops every pending timer without deleting and rejects further schedules.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, id)
	}
	s.closed = true
	telemetry.SetGauge(telemetry.PendingDeletions, 0)
}

// fire removes the entry and deletes the message. Errors never escape.
func (s *Scheduler) fire(messageID snowflake.ID, e *entry) {
	s.mu.Lock()
	current, ok := s.entries[messageID]
	if !ok || current != e {
		// Cancelled, or replaced after a cancel.
		s.mu.Unlock()
		return
	}
	delete(s.entries, messageID)
	telemetry.SetGauge(telemetry.PendingDeletions, len(s.entries))
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			telemetry.Inc(telemetry.DeletionsFailed)
			slog.Error("recovered panic while deleting message", "message", messageID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			telemetry.Inc(telemetry.DeletionsFailed)
			slog.Warn("gave up waiting to delete message", "message", messageID, "error", err)
			return
		}
	}

	if err := s.deleter.DeleteMessage(e.channelID, messageID); err != nil {
		telemetry.Inc(telemetry.DeletionsFailed)
		slog.Debug("failed to delete message", "message", messageID, "channel", e.channelID, "error", err)
		return
	}

	slog.Debug("deleted message", "message", messageID, "channel", e.channelID)
}
