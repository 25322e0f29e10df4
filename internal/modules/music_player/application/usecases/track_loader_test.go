package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
)

func TestTrackLoaderService_LoadTrack(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		resolver  *mockTrackResolver
		wantErr   error
		wantTitle string
	}{
		{
			name:  "first result wins",
			query: "never gonna give you up",
			resolver: &mockTrackResolver{results: []*ports.TrackInfo{
				{Title: "Never Gonna Give You Up", Artist: "Rick Astley", URL: "https://youtu.be/dQw4w9WgXcQ", Duration: 213 * time.Second, SourceName: "youtube"},
				{Title: "Cover", URL: "https://youtu.be/other"},
			}},
			wantTitle: "Never Gonna Give You Up",
		},
		{
			name:     "no results",
			query:    "asdfghjkl",
			resolver: &mockTrackResolver{},
			wantErr:  ErrNoResults,
		},
		{
			name:     "resolver failure",
			query:    "song",
			resolver: &mockTrackResolver{err: errors.New("quota exceeded")},
			wantErr:  ErrLoadFailed,
		},
		{
			name:     "empty query",
			query:    "   ",
			resolver: &mockTrackResolver{},
			wantErr:  ErrNoResults,
		},
		{
			name:     "result without URL",
			query:    "song",
			resolver: &mockTrackResolver{results: []*ports.TrackInfo{{Title: "Broken"}}},
			wantErr:  ErrNoResults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewTrackLoaderService(tt.resolver)

			out, err := svc.LoadTrack(context.Background(), LoadTrackInput{
				Query:         tt.query,
				RequesterID:   snowflake.ID(42),
				RequesterName: "alice",
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Track.Title != tt.wantTitle {
				t.Errorf("expected title %q, got %q", tt.wantTitle, out.Track.Title)
			}
			if out.Track.RequesterID != 42 || out.Track.RequesterName != "alice" {
				t.Errorf("expected requester to be recorded, got %d %q", out.Track.RequesterID, out.Track.RequesterName)
			}
			if out.Track.SourceURL == "" {
				t.Error("expected source URL to be set")
			}
		})
	}
}

func TestTrackLoaderService_SearchTracks(t *testing.T) {
	resolver := &mockTrackResolver{results: []*ports.TrackInfo{
		{Title: "one"}, {Title: "two"}, {Title: "three"},
	}}
	svc := NewTrackLoaderService(resolver)

	out, err := svc.SearchTracks(context.Background(), SearchTracksInput{Query: "x", Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Tracks) != 2 {
		t.Errorf("expected 2 tracks, got %d", len(out.Tracks))
	}

	out, err = svc.SearchTracks(context.Background(), SearchTracksInput{Query: ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Tracks != nil {
		t.Error("expected empty query to skip the resolver")
	}
	if len(resolver.queries) != 1 {
		t.Errorf("expected one resolver call, got %d", len(resolver.queries))
	}
}
