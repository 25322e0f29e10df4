package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// ytdlpPrintFormat is the per-entry output template parsed by parseYtdlpOutput.
const ytdlpPrintFormat = "%(url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(extractor_key)s"

// YTDLPResolver resolves URLs and searches through the yt-dlp binary.
type YTDLPResolver struct{}

// NewYTDLPResolver creates a new YTDLPResolver.
func NewYTDLPResolver() *YTDLPResolver {
	return &YTDLPResolver{}
}

// Name identifies the resolver.
func (r *YTDLPResolver) Name() string {
	return "ytdlp"
}

// Resolve extracts metadata for a URL, or runs a search for plain text.
func (r *YTDLPResolver) Resolve(
	ctx context.Context,
	query *domain.SearchQuery,
) ([]*ports.TrackInfo, error) {
	target := query.Query
	items := fmt.Sprintf("1-%d", searchLimit)
	if query.IsURL {
		items = "1"
	} else {
		prefix := "ytsearch"
		if query.Source == domain.SourceYouTubeMusic {
			prefix = "ytmsearch"
		}
		target = fmt.Sprintf("%s%d:%s", prefix, searchLimit, query.Query)
	}

	res, err := ytdlp.New().
		FlatPlaylist().
		Print(ytdlpPrintFormat).
		PlaylistItems(items).
		NoWarnings().
		IgnoreConfig().
		Run(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w", err)
	}

	tracks := parseYtdlpOutput(res.Stdout)
	if query.IsURL {
		for _, t := range tracks {
			if t.URL == "" || t.URL == "NA" {
				t.URL = query.Query
			}
		}
	}
	return tracks, nil
}

// parseYtdlpOutput parses one tab-separated entry per line.
func parseYtdlpOutput(stdout string) []*ports.TrackInfo {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	tracks := make([]*ports.TrackInfo, 0, len(lines))
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if len(fields) < 4 {
			continue
		}

		u, title, uploader, duration := fields[0], fields[1], fields[2], fields[3]
		if title == "" || title == "NA" {
			continue
		}

		info := &ports.TrackInfo{
			Title: title,
			URL:   u,
		}
		if uploader != "NA" {
			info.Artist = uploader
		}
		if duration == "NA" || duration == "" {
			info.IsStream = true
		} else if d, err := time.ParseDuration(duration + "s"); err == nil {
			info.Duration = d
		}
		if len(fields) > 4 {
			info.SourceName = strings.ToLower(fields[4])
		}
		if id := domain.NewSearchQuery(u).YouTubeVideoID(); id != "" {
			info.Identifier = id
			info.SourceName = string(domain.TrackSourceYouTube)
		}
		tracks = append(tracks, info)
	}
	return tracks
}

var _ ports.TrackResolver = (*YTDLPResolver)(nil)
