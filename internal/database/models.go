package database

import (
	"strings"
	"time"

	"github.com/npezzotti/blend/internal/types"
)

// UpdatePlaylistParams holds the playlist fields to change. Nil fields are
// left untouched.
type UpdatePlaylistParams struct {
	Name       *string
	CoverImage *string
}

func checkPlaylistName(name string) error {
	if strings.TrimSpace(name) == "" {
		return types.NewValidationError("name", "must not be empty")
	}
	return nil
}

func checkMovie(m types.Movie) error {
	if strings.TrimSpace(m.Title) == "" {
		return types.NewValidationError("title", "must not be empty")
	}
	if m.Rating != nil && (*m.Rating < 0 || *m.Rating > 5) {
		return types.NewValidationError("rating", "must be between 0 and 5")
	}
	return nil
}

func checkChatMessage(msg types.ChatMessage) error {
	if msg.Sender == "" {
		return types.NewValidationError("sender", "must not be empty")
	}
	if strings.TrimSpace(msg.Message) == "" {
		return types.NewValidationError("message", "must not be empty")
	}
	return nil
}

// nextTimestamp keeps chat history timestamps non-decreasing even if the
// wall clock steps backwards.
func nextTimestamp(now, last time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if now.Before(last) {
		return last
	}
	return now
}

func cloneGenres(g []string) []string {
	if g == nil {
		return []string{}
	}
	return g
}
