package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, ToDomainError(nil))
	})

	t.Run("domain errors pass through wrapped", func(t *testing.T) {
		orig := NewForbidden("nope")
		wrapped := fmt.Errorf("handler: %w", orig)
		de := ToDomainError(wrapped)
		require.NotNil(t, de)
		assert.Equal(t, CodeForbidden, de.Code)
		assert.Equal(t, http.StatusForbidden, de.HTTPStatus)
	})

	t.Run("no rows becomes not found", func(t *testing.T) {
		de := ToDomainError(pgx.ErrNoRows)
		assert.Equal(t, CodeNotFound, de.Code)
		assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
	})

	t.Run("anything else is internal", func(t *testing.T) {
		cause := errors.New("connection reset")
		de := ToDomainError(cause)
		assert.Equal(t, CodeInternal, de.Code)
		assert.ErrorIs(t, de, cause)
	})
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(NewInvalidState("closed", nil), CodeInvalidState))
	assert.True(t, IsKind(fmt.Errorf("ctx: %w", NewConflict("dup", nil)), CodeConflict))
	assert.False(t, IsKind(NewNotFound("ticket", nil), CodeConflict))
	assert.False(t, IsKind(errors.New("plain"), CodeNotFound))
}

func TestNotFoundMessage(t *testing.T) {
	err := NewNotFound("category", map[string]any{"category": "Refunds"})
	assert.Equal(t, "category not found", err.Error())
	assert.Equal(t, "Refunds", ToDomainError(err).Details["category"])
}
