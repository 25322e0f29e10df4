package usecases

import (
	"context"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
	"github.com/sglre6355/harmonybot/internal/telemetry"
)

// LoadTrackInput contains the input for the LoadTrack use case.
type LoadTrackInput struct {
	Query         string
	RequesterID   snowflake.ID
	RequesterName string
}

// LoadTrackOutput contains the result of the LoadTrack use case.
type LoadTrackOutput struct {
	Track *domain.Track
}

// TrackLoaderService handles track loading operations.
type TrackLoaderService struct {
	trackResolver ports.TrackResolver
}

// NewTrackLoaderService creates a new TrackLoaderService.
func NewTrackLoaderService(trackResolver ports.TrackResolver) *TrackLoaderService {
	return &TrackLoaderService{
		trackResolver: trackResolver,
	}
}

// LoadTrack resolves the query and builds a track from the best match.
func (s *TrackLoaderService) LoadTrack(
	ctx context.Context,
	input LoadTrackInput,
) (*LoadTrackOutput, error) {
	query := domain.NewSearchQuery(input.Query)
	if !query.IsValid() {
		return nil, ErrNoResults
	}

	results, err := s.resolve(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	info := results[0]
	track := domain.NewTrack(domain.TrackParams{
		Title:         info.Title,
		Artist:        info.Artist,
		SourceURL:     info.URL,
		Duration:      info.Duration,
		ThumbnailURL:  info.ThumbnailURL,
		SourceName:    info.SourceName,
		IsStream:      info.IsStream,
		RequesterID:   input.RequesterID,
		RequesterName: input.RequesterName,
	})
	if !track.IsValid() {
		return nil, ErrNoResults
	}

	return &LoadTrackOutput{
		Track: track,
	}, nil
}

// SearchTracksInput contains the input for the SearchTracks use case.
type SearchTracksInput struct {
	Query string
	Limit int
}

// SearchTracksOutput contains the result of the SearchTracks use case.
type SearchTracksOutput struct {
	Tracks []*ports.TrackInfo
}

// SearchTracks searches for tracks matching the query.
func (s *TrackLoaderService) SearchTracks(
	ctx context.Context,
	input SearchTracksInput,
) (*SearchTracksOutput, error) {
	query := domain.NewSearchQuery(input.Query)
	if !query.IsValid() {
		return &SearchTracksOutput{Tracks: nil}, nil
	}

	results, err := s.resolve(ctx, query)
	if err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 || limit > len(results) {
		limit = len(results)
	}

	return &SearchTracksOutput{
		Tracks: results[:limit],
	}, nil
}

func (s *TrackLoaderService) resolve(
	ctx context.Context,
	query *domain.SearchQuery,
) ([]*ports.TrackInfo, error) {
	var (
		results []*ports.TrackInfo
		err     error
	)
	telemetry.TimeFunc(telemetry.ResolveDuration, func() {
		results, err = s.trackResolver.Resolve(ctx, query)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return results, nil
}
