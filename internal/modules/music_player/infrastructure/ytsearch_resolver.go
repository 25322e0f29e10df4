package infrastructure

import (
	"context"
	"fmt"

	"github.com/ppalone/ytsearch"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// YTSearchResolver searches YouTube by scraping the results page. URLs are
// left to other resolvers.
type YTSearchResolver struct{}

// NewYTSearchResolver creates a new YTSearchResolver.
func NewYTSearchResolver() *YTSearchResolver {
	return &YTSearchResolver{}
}

// Name identifies the resolver.
func (r *YTSearchResolver) Name() string {
	return "ytsearch"
}

// Resolve searches YouTube for the query text.
func (r *YTSearchResolver) Resolve(
	ctx context.Context,
	query *domain.SearchQuery,
) ([]*ports.TrackInfo, error) {
	if query.IsURL {
		return nil, nil
	}

	res, err := ytsearch.NewClient(nil).Search(ctx, query.Query)
	if err != nil {
		return nil, fmt.Errorf("youtube search failed: %w", err)
	}

	tracks := make([]*ports.TrackInfo, 0, searchLimit)
	for _, v := range res.Results {
		if v.VideoID == "" {
			continue
		}
		tracks = append(tracks, &ports.TrackInfo{
			Identifier: v.VideoID,
			Title:      v.Title,
			URL:        youtubeWatchURL(v.VideoID),
			SourceName: string(domain.TrackSourceYouTube),
		})
		if len(tracks) == searchLimit {
			break
		}
	}
	return tracks, nil
}

var _ ports.TrackResolver = (*YTSearchResolver)(nil)
