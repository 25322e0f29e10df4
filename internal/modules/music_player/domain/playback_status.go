package domain

// PlaybackStatus is the state of a guild's audio output.
type PlaybackStatus int

const (
	StatusIdle     PlaybackStatus = iota // Nothing on the audio device
	StatusStarting                       // Play requested, waiting for the started callback
	StatusPlaying                        // Output confirmed the track started
)

// String returns a lower-case name for the status.
func (s PlaybackStatus) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusPlaying:
		return "playing"
	default:
		return "idle"
	}
}

// PlaybackTrigger is an input to the playback state machine.
type PlaybackTrigger int

const (
	TriggerStart PlaybackTrigger = iota
	TriggerEnd
	TriggerError
	TriggerSkip
	TriggerStop
)

// String returns a lower-case name for the trigger.
func (t PlaybackTrigger) String() string {
	switch t {
	case TriggerStart:
		return "start"
	case TriggerEnd:
		return "end"
	case TriggerError:
		return "error"
	case TriggerSkip:
		return "skip"
	default:
		return "stop"
	}
}

// Next returns the status reached by applying trigger to s.
// ok is false when the trigger is not valid in the current status.
//
// Start moves Idle to Starting and Starting to Playing. End, Error and Skip
// return an active status to Idle. Stop always lands in Idle.
func (s PlaybackStatus) Next(trigger PlaybackTrigger) (PlaybackStatus, bool) {
	switch trigger {
	case TriggerStart:
		switch s {
		case StatusIdle:
			return StatusStarting, true
		case StatusStarting:
			return StatusPlaying, true
		}
	case TriggerEnd, TriggerError, TriggerSkip:
		if s == StatusStarting || s == StatusPlaying {
			return StatusIdle, true
		}
	case TriggerStop:
		return StatusIdle, true
	}
	return s, false
}
