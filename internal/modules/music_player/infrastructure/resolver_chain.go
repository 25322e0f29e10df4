package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/domain"
)

// searchLimit is the number of results requested from search backends.
const searchLimit = 5

// ErrUnknownResolver is returned when a configured resolver name is not registered.
var ErrUnknownResolver = errors.New("unknown resolver")

// ResolverChain tries each resolver in order and returns the first non-empty result.
type ResolverChain struct {
	resolvers []ports.TrackResolver
}

// NewResolverChain creates a chain over resolvers, in priority order.
func NewResolverChain(resolvers ...ports.TrackResolver) *ResolverChain {
	return &ResolverChain{resolvers: resolvers}
}

// BuildResolverChain orders the available resolvers by the comma-separated names.
func BuildResolverChain(names string, available ...ports.TrackResolver) (*ResolverChain, error) {
	byName := make(map[string]ports.TrackResolver, len(available))
	for _, r := range available {
		byName[r.Name()] = r
	}

	var ordered []ports.TrackResolver
	for name := range strings.SplitSeq(names, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		r, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownResolver, name)
		}
		ordered = append(ordered, r)
	}
	if len(ordered) == 0 {
		return nil, fmt.Errorf("%w: no resolvers configured", ErrUnknownResolver)
	}
	return NewResolverChain(ordered...), nil
}

// Name identifies the chain.
func (c *ResolverChain) Name() string {
	names := make([]string, len(c.resolvers))
	for i, r := range c.resolvers {
		names[i] = r.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Resolve returns the first non-empty result. It fails only when every
// resolver failed.
func (c *ResolverChain) Resolve(
	ctx context.Context,
	query *domain.SearchQuery,
) ([]*ports.TrackInfo, error) {
	var errs []error
	for _, r := range c.resolvers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tracks, err := r.Resolve(ctx, query)
		if err != nil {
			slog.Warn("resolver failed, trying next",
				"resolver", r.Name(),
				"query", query.Query,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
			continue
		}
		if len(tracks) > 0 {
			slog.Debug("query resolved", "resolver", r.Name(), "query", query.Query, "results", len(tracks))
			return tracks, nil
		}
	}

	if len(errs) == len(c.resolvers) && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, nil
}

func youtubeWatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

var _ ports.TrackResolver = (*ResolverChain)(nil)
