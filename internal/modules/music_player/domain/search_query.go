package domain

import (
	"net/url"
	"strings"
)

// SearchSource is the Lavalink search prefix a free-text query is sent with.
type SearchSource string

const (
	SourceYouTube      SearchSource = "ytsearch"
	SourceYouTubeMusic SearchSource = "ytmsearch"
	SourceSoundCloud   SearchSource = "scsearch"
	// SourceDirect marks a URL that is loaded as is.
	SourceDirect SearchSource = ""
)

// searchPrefixes maps the prefixes a user may type to their source. Both the
// short forms and the Lavalink names are accepted.
var searchPrefixes = map[string]SearchSource{
	"yt":        SourceYouTube,
	"ytsearch":  SourceYouTube,
	"ytm":       SourceYouTubeMusic,
	"ytmsearch": SourceYouTubeMusic,
	"sc":        SourceSoundCloud,
	"scsearch":  SourceSoundCloud,
}

// SearchQuery is parsed user input for /play and its autocomplete.
type SearchQuery struct {
	Query  string
	Source SearchSource
	IsURL  bool
}

// NewSearchQuery parses user input. URLs are kept verbatim; a leading
// "sc:" or "ytm:" picks the search source; anything else searches YouTube.
func NewSearchQuery(input string) *SearchQuery {
	input = strings.TrimSpace(input)

	if isURL(input) {
		return &SearchQuery{Query: input, Source: SourceDirect, IsURL: true}
	}

	if prefix, rest, ok := strings.Cut(input, ":"); ok {
		if source, known := searchPrefixes[strings.ToLower(prefix)]; known {
			return &SearchQuery{Query: strings.TrimSpace(rest), Source: source}
		}
	}

	return &SearchQuery{Query: input, Source: SourceYouTube}
}

// LavalinkQuery returns the identifier passed to Lavalink's loadtracks.
func (q *SearchQuery) LavalinkQuery() string {
	if q.IsURL {
		return q.Query
	}
	return string(q.Source) + ":" + q.Query
}

// IsValid reports whether there is anything to search for.
func (q *SearchQuery) IsValid() bool {
	return q.Query != ""
}

// YouTubeVideoID returns the video ID of a youtube.com watch or shorts URL or
// a youtu.be link, and "" for anything else.
func (q *SearchQuery) YouTubeVideoID() string {
	if !q.IsURL {
		return ""
	}

	raw := q.Query
	if strings.HasPrefix(raw, "www.") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtu.be":
		return firstPathSegment(u.Path)
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return id
		}
		if rest, ok := strings.CutPrefix(u.Path, "/shorts/"); ok {
			return firstPathSegment(rest)
		}
	}
	return ""
}

func firstPathSegment(p string) string {
	seg, _, _ := strings.Cut(strings.TrimPrefix(p, "/"), "/")
	return seg
}

func isURL(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "www.")
}
