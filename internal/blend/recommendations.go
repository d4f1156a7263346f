package blend

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/npezzotti/blend/internal/types"
	"github.com/samber/lo"
)

const (
	minSuggestionTitles = 3
	suggestionCount     = 5
)

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func roomMovies(room types.Room) []types.Movie {
	return lo.FlatMap(room.Playlists, func(p types.Playlist, _ int) []types.Movie {
		return p.Movies
	})
}

func libraryMovies(libs []types.Library) []types.Movie {
	return lo.FlatMap(libs, func(lib types.Library, _ int) []types.Movie {
		movies := lo.FlatMap(lib.Playlists, func(p types.Playlist, _ int) []types.Movie {
			return p.Movies
		})
		return append(movies, lib.Favorites...)
	})
}

// Recommendations returns movies from the participants' own playlists and
// favorites that are not yet in any of the room's playlists, one per title.
func (s *Service) Recommendations(ctx context.Context, caller Caller, roomId string) ([]types.Movie, error) {
	room, err := s.loadMember(ctx, roomId, caller.User.Id)
	if err != nil {
		return nil, err
	}

	libs, err := s.db.ListLibraries(ctx, room.Participants)
	if err != nil {
		return nil, err
	}

	inRoom := lo.SliceToMap(roomMovies(room), func(m types.Movie) (string, struct{}) {
		return titleKey(m.Title), struct{}{}
	})

	candidates := lo.Filter(libraryMovies(libs), func(m types.Movie, _ int) bool {
		_, ok := inRoom[titleKey(m.Title)]
		return !ok
	})

	return lo.UniqBy(candidates, func(m types.Movie) string {
		return titleKey(m.Title)
	}), nil
}

// SuggestTitles asks the assistant for new titles based on everything the
// room and its participants already have.
func (s *Service) SuggestTitles(ctx context.Context, caller Caller, roomId string) ([]string, error) {
	room, err := s.loadMember(ctx, roomId, caller.User.Id)
	if err != nil {
		return nil, err
	}

	libs, err := s.db.ListLibraries(ctx, room.Participants)
	if err != nil {
		return nil, err
	}

	known := lo.UniqBy(
		lo.Map(append(roomMovies(room), libraryMovies(libs)...), func(m types.Movie, _ int) string {
			return strings.TrimSpace(m.Title)
		}),
		titleKey,
	)
	if len(known) < minSuggestionTitles {
		return nil, types.NewValidationError("titles", fmt.Sprintf("at least %d movies are needed for suggestions", minSuggestionTitles))
	}

	if s.assistant == nil {
		return nil, fmt.Errorf("assistant not configured: %w", types.ErrUpstreamUnavailable)
	}

	reply, err := s.assistant.Generate(ctx, suggestionPrompt(known))
	if err != nil {
		return nil, err
	}

	titles, err := parseTitles(reply)
	if err != nil {
		s.log.Warn().Err(err).Str("room_id", roomId).Msg("unusable assistant suggestions")
		return nil, fmt.Errorf("parse suggestions: %w", types.ErrUpstreamUnavailable)
	}

	return titles, nil
}

func suggestionPrompt(titles []string) string {
	return fmt.Sprintf(
		"A group enjoys these movies: %s. Suggest %d other movies they would like. "+
			"Reply only with a JSON array of %d movie titles.",
		strings.Join(titles, "; "), suggestionCount, suggestionCount,
	)
}

// parseTitles extracts the JSON array of titles from a model reply, which may
// wrap it in prose or a code fence.
func parseTitles(reply string) ([]string, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in reply")
	}

	var titles []string
	if err := json.Unmarshal([]byte(reply[start:end+1]), &titles); err != nil {
		return nil, err
	}

	titles = lo.Compact(lo.Map(titles, func(t string, _ int) string {
		return strings.TrimSpace(t)
	}))
	if len(titles) == 0 {
		return nil, fmt.Errorf("empty title list")
	}

	return titles, nil
}
