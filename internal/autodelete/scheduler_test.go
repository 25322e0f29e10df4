package autodelete

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type deletion struct {
	channelID snowflake.ID
	messageID snowflake.ID
}

type mockDeleter struct {
	mu      sync.Mutex
	deleted []deletion
	err     error
	panics  bool
	calls   chan deletion
}

func newMockDeleter() *mockDeleter {
	return &mockDeleter{calls: make(chan deletion, 16)}
}

func (m *mockDeleter) DeleteMessage(channelID, messageID snowflake.ID) error {
	d := deletion{channelID: channelID, messageID: messageID}
	m.mu.Lock()
	m.deleted = append(m.deleted, d)
	m.mu.Unlock()
	m.calls <- d
	if m.panics {
		panic("boom")
	}
	return m.err
}

func (m *mockDeleter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deleted)
}

func testConfig() Config {
	return Config{
		Enabled:      true,
		DefaultDelay: 20 * time.Millisecond,
	}
}

func waitForDeletion(t *testing.T, m *mockDeleter) deletion {
	t.Helper()
	select {
	case d := <-m.calls:
		return d
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for deletion")
		return deletion{}
	}
}

// waitForEmpty polls until the registry drains; deletes run after the entry is removed.
func waitForEmpty(t *testing.T, s *Scheduler) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.Stats().ScheduledCount == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected empty registry, got %d entries", s.Stats().ScheduledCount)
}

func TestScheduler_ScheduleFiresDeletion(t *testing.T) {
	deleter := newMockDeleter()
	s := NewScheduler(deleter, testConfig())

	if !s.Schedule(snowflake.ID(1), snowflake.ID(10), 10*time.Millisecond) {
		t.Fatal("expected schedule to succeed")
	}

	d := waitForDeletion(t, deleter)
	if d.messageID != 1 || d.channelID != 10 {
		t.Errorf("expected deletion of message 1 in channel 10, got %+v", d)
	}
	waitForEmpty(t, s)
}

func TestScheduler_DefaultDelayUsedForZero(t *testing.T) {
	deleter := newMockDeleter()
	s := NewScheduler(deleter, testConfig())

	s.Schedule(snowflake.ID(1), snowflake.ID(10), 0)

	if !s.IsScheduled(snowflake.ID(1)) {
		t.Fatal("expected message to be scheduled")
	}
	waitForDeletion(t, deleter)
}

func TestScheduler_DuplicateScheduleIsNoop(t *testing.T) {
	deleter := newMockDeleter()
	s := NewScheduler(deleter, testConfig())

	if !s.Schedule(snowflake.ID(1), snowflake.ID(10), 50*time.Millisecond) {
		t.Fatal("expected first schedule to succeed")
	}
	if s.Schedule(snowflake.ID(1), snowflake.ID(11), 10*time.Millisecond) {
		t.Error("expected duplicate schedule to be rejected")
	}
	if got := s.Stats().ScheduledCount; got != 1 {
		t.Errorf("expected 1 scheduled, got %d", got)
	}

	d := waitForDeletion(t, deleter)
	if d.channelID != 10 {
		t.Errorf("expected original channel 10 to be used, got %d", d.channelID)
	}
}

func TestScheduler_DisabledDoesNotSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	s := NewScheduler(newMockDeleter(), cfg)

	if s.Schedule(snowflake.ID(1), snowflake.ID(10), time.Millisecond) {
		t.Error("expected schedule to be rejected while disabled")
	}
	if got := s.Stats().ScheduledCount; got != 0 {
		t.Errorf("expected 0 scheduled, got %d", got)
	}
}

func TestScheduler_SetEnabledKeepsPendingTimers(t *testing.T) {
	deleter := newMockDeleter()
	s := NewScheduler(deleter, testConfig())

	s.Schedule(snowflake.ID(1), snowflake.ID(10), 20*time.Millisecond)
	s.SetEnabled(false)

	if s.Enabled() {
		t.Error("expected scheduler to be disabled")
	}
	waitForDeletion(t, deleter)
}

func TestScheduler_CancelBeforeFire(t *testing.T) {
	deleter := newMockDeleter()
	s := NewScheduler(deleter, testConfig())
	before := s.Stats().ScheduledCount

	s.Schedule(snowflake.ID(1), snowflake.ID(10), 100*time.Millisecond)
	if !s.Cancel(snowflake.ID(1)) {
		t.Fatal("expected cancel to remove the entry")
	}

	time.Sleep(150 * time.Millisecond)

	if deleter.count() != 0 {
		t.Errorf("expected no deletions, got %d", deleter.count())
	}
	if got := s.Stats().ScheduledCount; got != before {
		t.Errorf("expected scheduled count %d, got %d", before, got)
	}
}

func TestScheduler_CancelIsIdempotent(t *testing.T) {
	deleter := newMockDeleter()
	s := NewScheduler(deleter, testConfig())

	tests := []struct {
		name  string
		setup func()
	}{
		{
			name:  "never scheduled",
			setup: func() {},
		},
		{
			name: "cancelled twice",
			setup: func() {
				s.Schedule(snowflake.ID(1), snowflake.ID(10), time.Minute)
				s.Cancel(snowflake.ID(1))
			},
		},
		{
			name: "after firing",
			setup: func() {
				s.Schedule(snowflake.ID(1), snowflake.ID(10), time.Millisecond)
				waitForDeletion(t, deleter)
				waitForEmpty(t, s)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			if s.Cancel(snowflake.ID(1)) {
				t.Error("expected cancel to be a no-op")
			}
			if s.IsScheduled(snowflake.ID(1)) {
				t.Error("expected no entry for message")
			}
		})
	}
}

func TestScheduler_DeleteErrorStillRemovesEntry(t *testing.T) {
	deleter := newMockDeleter()
	deleter.err = errors.New("unknown message")
	s := NewScheduler(deleter, testConfig())

	s.Schedule(snowflake.ID(1), snowflake.ID(10), time.Millisecond)

	waitForDeletion(t, deleter)
	waitForEmpty(t, s)

	// The same message may be scheduled again once the entry is gone.
	if !s.Schedule(snowflake.ID(1), snowflake.ID(10), time.Minute) {
		t.Error("expected reschedule after failed delete to succeed")
	}
	s.Close()
}

func TestScheduler_DeleterPanicIsContained(t *testing.T) {
	deleter := newMockDeleter()
	deleter.panics = true
	s := NewScheduler(deleter, testConfig())

	s.Schedule(snowflake.ID(1), snowflake.ID(10), time.Millisecond)

	waitForDeletion(t, deleter)
	waitForEmpty(t, s)
}

func TestScheduler_Stats(t *testing.T) {
	s := NewScheduler(newMockDeleter(), testConfig())
	defer s.Close()

	s.Schedule(snowflake.ID(1), snowflake.ID(10), time.Minute)
	s.Schedule(snowflake.ID(2), snowflake.ID(10), time.Minute)

	stats := s.Stats()
	if !stats.Enabled {
		t.Error("expected enabled")
	}
	if stats.ScheduledCount != 2 {
		t.Errorf("expected 2 scheduled, got %d", stats.ScheduledCount)
	}
	if stats.DefaultDelay != 20*time.Millisecond {
		t.Errorf("expected default delay 20ms, got %v", stats.DefaultDelay)
	}
}

func TestScheduler_CloseStopsPendingTimers(t *testing.T) {
	deleter := newMockDeleter()
	s := NewScheduler(deleter, testConfig())

	s.Schedule(snowflake.ID(1), snowflake.ID(10), 20*time.Millisecond)
	s.Close()

	time.Sleep(50 * time.Millisecond)

	if deleter.count() != 0 {
		t.Errorf("expected no deletions after close, got %d", deleter.count())
	}
	if s.Schedule(snowflake.ID(2), snowflake.ID(10), time.Millisecond) {
		t.Error("expected schedule after close to be rejected")
	}
}

func TestNewScheduler_FallsBackToDefaultDelay(t *testing.T) {
	s := NewScheduler(newMockDeleter(), Config{Enabled: true})

	if got := s.DefaultDelay(); got != 10*time.Second {
		t.Errorf("expected default delay 10s, got %v", got)
	}
}
