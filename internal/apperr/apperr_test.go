package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_MatchesKind(t *testing.T) {
	err := New(ErrCapacity, "room is full")
	assert.EqualError(t, err, "room is full")
	assert.ErrorIs(t, err, ErrCapacity)
	assert.NotErrorIs(t, err, ErrConflict)

	wrapped := fmt.Errorf("join r1: %w", err)
	assert.ErrorIs(t, wrapped, ErrCapacity)
	assert.True(t, errors.Is(wrapped, err))
}

func TestCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{New(ErrValidation, "x"), "validation"},
		{New(ErrAuthorization, "x"), "authorization"},
		{New(ErrCapacity, "x"), "capacity"},
		{New(ErrNotFound, "x"), "not_found"},
		{New(ErrConflict, "x"), "conflict"},
		{errors.New("boom"), "internal"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Code(tc.err), tc.err.Error())
	}
}
