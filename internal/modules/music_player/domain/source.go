package domain

import "strings"

// TrackSource represents the origin platform of a track.
type TrackSource string

const (
	TrackSourceYouTube    TrackSource = "youtube"
	TrackSourceSoundCloud TrackSource = "soundcloud"
	TrackSourceTwitch     TrackSource = "twitch"
	TrackSourceOther      TrackSource = "other"
)

// ParseTrackSource converts a source name string to a TrackSource.
func ParseTrackSource(name string) TrackSource {
	switch strings.ToLower(name) {
	case "youtube", "youtube music", "ytmusic":
		return TrackSourceYouTube
	case "soundcloud":
		return TrackSourceSoundCloud
	case "twitch":
		return TrackSourceTwitch
	default:
		return TrackSourceOther
	}
}

// Color returns the embed color associated with the source.
func (s TrackSource) Color() int {
	switch s {
	case TrackSourceYouTube:
		return 0xFF0000
	case TrackSourceSoundCloud:
		return 0xFF5500
	case TrackSourceTwitch:
		return 0x9146FF
	default:
		return 0x5865F2
	}
}

// IconURL returns a small logo for the source, or an empty string.
func (s TrackSource) IconURL() string {
	switch s {
	case TrackSourceYouTube:
		return "https://www.youtube.com/s/desktop/favicon_144x144.png"
	case TrackSourceSoundCloud:
		return "https://a-v2.sndcdn.com/assets/images/sc-icons/favicon-2cadd14bdb.ico"
	case TrackSourceTwitch:
		return "https://static.twitchcdn.net/assets/favicon-32-e29e246c157142c94346.png"
	default:
		return ""
	}
}
