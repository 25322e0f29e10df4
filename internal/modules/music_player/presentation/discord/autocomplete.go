package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/harmonybot/internal/modules/music_player/application/usecases"
)

const (
	autocompleteLimit    = 10
	autocompleteMinQuery = 2
	autocompleteTimeout  = 2500 * time.Millisecond
	maxChoiceLength      = 100
)

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	trackLoader *usecases.TrackLoaderService
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(trackLoader *usecases.TrackLoaderService) *AutocompleteHandler {
	return &AutocompleteHandler{
		trackLoader: trackLoader,
	}
}

// HandlePlay handles autocomplete for the play command.
func (h *AutocompleteHandler) HandlePlay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" && opt.Focused {
			query = opt.StringValue()
			break
		}
	}

	respond := func(choices []*discordgo.ApplicationCommandOptionChoice) {
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionApplicationCommandAutocompleteResult,
			Data: &discordgo.InteractionResponseData{
				Choices: choices,
			},
		})
		if err != nil {
			slog.Debug("failed to respond to autocomplete", "error", err)
		}
	}

	// Don't search for very short queries
	if len([]rune(query)) < autocompleteMinQuery {
		respond([]*discordgo.ApplicationCommandOptionChoice{})
		return
	}

	// Discord drops autocomplete answers after 3 seconds.
	ctx, cancel := context.WithTimeout(context.Background(), autocompleteTimeout)
	defer cancel()

	output, err := h.trackLoader.SearchTracks(ctx, usecases.SearchTracksInput{
		Query: query,
		Limit: autocompleteLimit,
	})
	if err != nil {
		slog.Debug("autocomplete search failed", "query", query, "error", err)
		respond([]*discordgo.ApplicationCommandOptionChoice{})
		return
	}

	respond(playChoices(output.Tracks))
}

// playChoices turns search results into autocomplete choices whose value is
// the track URL, so /play loads exactly the selected result.
func playChoices(tracks []*ports.TrackInfo) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(tracks))
	for _, track := range tracks {
		if track.URL == "" || len(choices) == autocompleteLimit {
			continue
		}

		name := track.Title
		if track.Artist != "" {
			name = fmt.Sprintf("%s - %s", track.Title, track.Artist)
		}

		value := track.URL
		if len(value) > maxChoiceLength {
			value = track.Title
		}

		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate("🎵 "+name, maxChoiceLength),
			Value: truncate(value, maxChoiceLength),
		})
	}
	return choices
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
