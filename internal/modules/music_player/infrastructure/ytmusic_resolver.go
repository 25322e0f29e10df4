package infrastructure

import (
	"context"
	"fmt"

	"github.com/raitonoberu/ytmusic"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// YTMusicResolver searches YouTube Music songs. URLs are left to other resolvers.
type YTMusicResolver struct{}

// NewYTMusicResolver creates a new YTMusicResolver.
func NewYTMusicResolver() *YTMusicResolver {
	return &YTMusicResolver{}
}

// Name identifies the resolver.
func (r *YTMusicResolver) Name() string {
	return "ytmusic"
}

// Resolve searches YouTube Music for the query text.
func (r *YTMusicResolver) Resolve(
	ctx context.Context,
	query *domain.SearchQuery,
) ([]*ports.TrackInfo, error) {
	if query.IsURL {
		return nil, nil
	}

	type result struct {
		tracks []*ports.TrackInfo
		err    error
	}
	done := make(chan result, 1)
	go func() {
		res, err := ytmusic.TrackSearch(query.Query).Next()
		if err != nil {
			done <- result{err: err}
			return
		}

		tracks := make([]*ports.TrackInfo, 0, searchLimit)
		for _, v := range res.Tracks {
			if v.VideoID == "" {
				continue
			}
			artist := ""
			if len(v.Artists) > 0 {
				artist = v.Artists[0].Name
			}
			tracks = append(tracks, &ports.TrackInfo{
				Identifier: v.VideoID,
				Title:      v.Title,
				Artist:     artist,
				URL:        youtubeWatchURL(v.VideoID),
				SourceName: string(domain.TrackSourceYouTube),
			})
			if len(tracks) == searchLimit {
				break
			}
		}
		done <- result{tracks: tracks}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("youtube music search failed: %w", res.err)
		}
		return res.tracks, nil
	}
}

var _ ports.TrackResolver = (*YTMusicResolver)(nil)
