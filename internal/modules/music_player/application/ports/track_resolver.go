package ports

import (
	"context"
	"time"

	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// TrackInfo contains metadata about a resolved track.
type TrackInfo struct {
	Identifier   string // Provider-specific ID, e.g. a YouTube video ID
	Title        string
	Artist       string
	Duration     time.Duration
	URL          string
	ThumbnailURL string
	SourceName   string // e.g. "youtube", "soundcloud"
	IsStream     bool
}

// TrackResolver turns a search query or URL into playable track metadata.
type TrackResolver interface {
	// Name identifies the resolver in logs and configuration.
	Name() string

	// Resolve returns matching tracks, best match first. An empty result with a
	// nil error means nothing matched.
	Resolve(ctx context.Context, query *domain.SearchQuery) ([]*TrackInfo, error)
}
