package database

import (
	"errors"
	"testing"

	"github.com/npezzotti/blend/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestNullHelpers(t *testing.T) {
	assert.False(t, nullString(nil).Valid)
	s := "cover.png"
	assert.Equal(t, "cover.png", nullString(&s).String)
	assert.True(t, nullString(&s).Valid)

	assert.False(t, nullFloat(nil).Valid)
	f := 4.5
	assert.Equal(t, 4.5, nullFloat(&f).Float64)
}

func TestNotFound(t *testing.T) {
	err := notFound("room", "abc")
	assert.True(t, errors.Is(err, types.ErrNotFound))
	assert.Equal(t, `room "abc": not found`, err.Error())
}
