package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// stubResolver is a test double for ports.TrackResolver.
type stubResolver struct {
	name   string
	tracks []*ports.TrackInfo
	err    error
	calls  int
}

func (s *stubResolver) Name() string { return s.name }

func (s *stubResolver) Resolve(context.Context, *domain.SearchQuery) ([]*ports.TrackInfo, error) {
	s.calls++
	return s.tracks, s.err
}

func TestResolverChain_Resolve(t *testing.T) {
	hit := []*ports.TrackInfo{{Title: "hit", URL: "https://example.com/hit"}}

	tests := []struct {
		name      string
		resolvers []*stubResolver
		wantTitle string
		wantErr   bool
		wantCalls []int
	}{
		{
			name: "first hit wins",
			resolvers: []*stubResolver{
				{name: "a", tracks: hit},
				{name: "b", tracks: hit},
			},
			wantTitle: "hit",
			wantCalls: []int{1, 0},
		},
		{
			name: "falls through empty and failing resolvers",
			resolvers: []*stubResolver{
				{name: "a"},
				{name: "b", err: errors.New("quota")},
				{name: "c", tracks: hit},
			},
			wantTitle: "hit",
			wantCalls: []int{1, 1, 1},
		},
		{
			name: "nothing matched",
			resolvers: []*stubResolver{
				{name: "a"},
				{name: "b", err: errors.New("down")},
			},
			wantCalls: []int{1, 1},
		},
		{
			name: "every resolver failed",
			resolvers: []*stubResolver{
				{name: "a", err: errors.New("down")},
				{name: "b", err: errors.New("down")},
			},
			wantErr:   true,
			wantCalls: []int{1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolvers := make([]ports.TrackResolver, len(tt.resolvers))
			for i, r := range tt.resolvers {
				resolvers[i] = r
			}
			chain := NewResolverChain(resolvers...)

			tracks, err := chain.Resolve(context.Background(), domain.NewSearchQuery("song"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantTitle == "" {
				if len(tracks) != 0 {
					t.Errorf("expected no tracks, got %d", len(tracks))
				}
			} else if len(tracks) == 0 || tracks[0].Title != tt.wantTitle {
				t.Errorf("expected %q, got %v", tt.wantTitle, tracks)
			}
			for i, r := range tt.resolvers {
				if r.calls != tt.wantCalls[i] {
					t.Errorf("resolver %s called %d times, want %d", r.name, r.calls, tt.wantCalls[i])
				}
			}
		})
	}
}

func TestBuildResolverChain(t *testing.T) {
	a := &stubResolver{name: "lavalink"}
	b := &stubResolver{name: "ytdlp"}

	chain, err := BuildResolverChain(" ytdlp , LAVALINK", a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := chain.Name(); got != "chain(ytdlp,lavalink)" {
		t.Errorf("unexpected order: %s", got)
	}

	if _, err := BuildResolverChain("lavalink,spotify", a, b); !errors.Is(err, ErrUnknownResolver) {
		t.Errorf("expected ErrUnknownResolver, got %v", err)
	}
	if _, err := BuildResolverChain(" , ", a, b); !errors.Is(err, ErrUnknownResolver) {
		t.Errorf("expected ErrUnknownResolver for empty list, got %v", err)
	}
}

func TestParseYtdlpOutput(t *testing.T) {
	out := "https://www.youtube.com/watch?v=abc123\tSong\tChannel\t215\tYoutube\n" +
		"https://www.twitch.tv/someone\tLive now\tsomeone\tNA\tTwitchStream\n" +
		"broken line\n" +
		"https://example.com/x\tNA\tNA\t10\tGeneric\n"

	tracks := parseYtdlpOutput(out)
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}

	yt := tracks[0]
	if yt.Identifier != "abc123" || yt.SourceName != "youtube" {
		t.Errorf("unexpected youtube entry: %+v", yt)
	}
	if yt.Duration != 215*time.Second || yt.IsStream {
		t.Errorf("unexpected duration: %v stream=%v", yt.Duration, yt.IsStream)
	}

	live := tracks[1]
	if !live.IsStream || live.SourceName != "twitchstream" || live.Artist != "someone" {
		t.Errorf("unexpected stream entry: %+v", live)
	}
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"PT3M20S", 3*time.Minute + 20*time.Second},
		{"PT1H2M3S", time.Hour + 2*time.Minute + 3*time.Second},
		{"PT45S", 45 * time.Second},
		{"P1DT1S", 24*time.Hour + time.Second},
		{"P0D", 0},
		{"", 0},
		{"3:20", 0},
		{"PTXS", 0},
	}

	for _, tt := range tests {
		if got := parseISODuration(tt.in); got != tt.want {
			t.Errorf("parseISODuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestURLOnlyResolversSkipText(t *testing.T) {
	ctx := context.Background()
	url := domain.NewSearchQuery("https://www.youtube.com/watch?v=abc")

	for _, r := range []ports.TrackResolver{NewYTSearchResolver(), NewYTMusicResolver()} {
		tracks, err := r.Resolve(ctx, url)
		if err != nil || tracks != nil {
			t.Errorf("%s: expected URL queries to be skipped, got %v %v", r.Name(), tracks, err)
		}
	}

	api := &YouTubeAPIResolver{}
	tracks, err := api.Resolve(ctx, domain.NewSearchQuery("https://soundcloud.com/a/b"))
	if err != nil || tracks != nil {
		t.Errorf("expected non-YouTube URLs to be skipped, got %v %v", tracks, err)
	}
}
