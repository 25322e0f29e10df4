package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// YouTubeAPIResolver resolves queries through the YouTube Data API v3.
type YouTubeAPIResolver struct {
	svc *yt.Service
}

// NewYouTubeAPIResolver creates a resolver authenticated with an API key.
func NewYouTubeAPIResolver(ctx context.Context, apiKey string) (*YouTubeAPIResolver, error) {
	svc, err := yt.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	return &YouTubeAPIResolver{svc: svc}, nil
}

// Name identifies the resolver.
func (r *YouTubeAPIResolver) Name() string {
	return "youtube"
}

// Resolve looks up a video URL directly or searches for plain text. Non-YouTube
// URLs are left to other resolvers.
func (r *YouTubeAPIResolver) Resolve(
	ctx context.Context,
	query *domain.SearchQuery,
) ([]*ports.TrackInfo, error) {
	if query.IsURL {
		id := query.YouTubeVideoID()
		if id == "" {
			return nil, nil
		}
		return r.videos(ctx, []string{id})
	}

	res, err := r.svc.Search.List([]string{"id"}).
		Q(query.Query).
		Type("video").
		MaxResults(searchLimit).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search failed: %w", err)
	}

	ids := make([]string, 0, len(res.Items))
	for _, item := range res.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return r.videos(ctx, ids)
}

func (r *YouTubeAPIResolver) videos(ctx context.Context, ids []string) ([]*ports.TrackInfo, error) {
	res, err := r.svc.Videos.List([]string{"snippet", "contentDetails"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube video lookup failed: %w", err)
	}

	byID := make(map[string]*yt.Video, len(res.Items))
	for _, v := range res.Items {
		byID[v.Id] = v
	}

	// Keep the search ranking, which Videos.List does not preserve.
	tracks := make([]*ports.TrackInfo, 0, len(ids))
	for _, id := range ids {
		v, ok := byID[id]
		if !ok || v.Snippet == nil {
			continue
		}
		info := &ports.TrackInfo{
			Identifier: v.Id,
			Title:      v.Snippet.Title,
			Artist:     v.Snippet.ChannelTitle,
			URL:        youtubeWatchURL(v.Id),
			SourceName: string(domain.TrackSourceYouTube),
			IsStream:   v.Snippet.LiveBroadcastContent == "live",
		}
		if v.ContentDetails != nil {
			info.Duration = parseISODuration(v.ContentDetails.Duration)
		}
		if th := v.Snippet.Thumbnails; th != nil && th.High != nil {
			info.ThumbnailURL = th.High.Url
		}
		tracks = append(tracks, info)
	}
	return tracks, nil
}

// parseISODuration parses the PT#H#M#S form the Data API returns. Anything
// else yields zero.
func parseISODuration(s string) time.Duration {
	rest, ok := strings.CutPrefix(s, "P")
	if !ok {
		return 0
	}

	var total time.Duration
	inTime := false
	num := ""
	for _, c := range rest {
		switch {
		case c == 'T':
			inTime = true
		case c >= '0' && c <= '9':
			num += string(c)
		default:
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0
			}
			num = ""
			switch {
			case c == 'D' && !inTime:
				total += time.Duration(n) * 24 * time.Hour
			case c == 'H' && inTime:
				total += time.Duration(n) * time.Hour
			case c == 'M' && inTime:
				total += time.Duration(n) * time.Minute
			case c == 'S' && inTime:
				total += time.Duration(n) * time.Second
			default:
				return 0
			}
		}
	}
	return total
}

var _ ports.TrackResolver = (*YouTubeAPIResolver)(nil)
