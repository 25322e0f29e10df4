package domain

import (
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

// TrackID is a unique identifier for a track in a queue.
type TrackID string

// Track is an immutable description of a queued song.
type Track struct {
	ID            TrackID
	Title         string
	Artist        string
	SourceURL     string // Resolved by the audio output at play time
	Duration      time.Duration
	ThumbnailURL  string
	SourceName    string // e.g. "youtube", "soundcloud"
	IsStream      bool
	RequesterID   snowflake.ID
	RequesterName string
	EnqueuedAt    time.Time
}

// TrackParams holds the fields needed to build a Track.
type TrackParams struct {
	Title         string
	Artist        string
	SourceURL     string
	Duration      time.Duration
	ThumbnailURL  string
	SourceName    string
	IsStream      bool
	RequesterID   snowflake.ID
	RequesterName string
}

// NewTrack creates a new Track with a fresh ID. Durations are truncated to seconds.
func NewTrack(p TrackParams) *Track {
	return &Track{
		ID:            TrackID(uuid.NewString()),
		Title:         p.Title,
		Artist:        p.Artist,
		SourceURL:     p.SourceURL,
		Duration:      p.Duration.Truncate(time.Second),
		ThumbnailURL:  p.ThumbnailURL,
		SourceName:    p.SourceName,
		IsStream:      p.IsStream,
		RequesterID:   p.RequesterID,
		RequesterName: p.RequesterName,
		EnqueuedAt:    time.Now().UTC(),
	}
}

// Source returns the parsed TrackSource for this track.
func (t *Track) Source() TrackSource {
	return ParseTrackSource(t.SourceName)
}

// IsValid returns true if the track can be handed to the audio output.
func (t *Track) IsValid() bool {
	return t.SourceURL != "" && t.Title != ""
}

// FormattedDuration returns the duration as mm:ss or hh:mm:ss, or LIVE for streams.
func (t *Track) FormattedDuration() string {
	if t.IsStream {
		return "LIVE"
	}
	return FormatDuration(t.Duration)
}

// FormatDuration renders d as mm:ss, or hh:mm:ss when it exceeds an hour.
func FormatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
