package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "a@example.com", User{Id: "u1", Email: "a@example.com"}.DisplayName())
	assert.Equal(t, "u1", User{Id: "u1"}.DisplayName())
}

func TestRoomLookups(t *testing.T) {
	r := Room{
		Participants: []string{"u1", "u2"},
		Playlists:    []Playlist{{Id: "p1", Name: "Favs"}},
	}

	assert.True(t, r.HasParticipant("u2"))
	assert.False(t, r.HasParticipant("u3"))

	p, ok := r.Playlist("p1")
	assert.True(t, ok)
	assert.Equal(t, "Favs", p.Name)

	_, ok = r.Playlist("missing")
	assert.False(t, ok)
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("add playlist: %w", NewValidationError("name", "is required"))

	assert.True(t, errors.Is(err, ErrValidation))

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "name", ve.Field)
	assert.Equal(t, "name: is required", ve.Error())
}
