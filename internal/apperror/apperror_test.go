package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		kind error
		msg  string
	}{
		{"missing listing", NotFound("listing", "cq1"), ErrNotFound, "listing not found with id cq1"},
		{"bad price", ValidationFailed("price", "price must be a number"), ErrValidation, "price must be a number"},
		{"email taken", Conflict("identity", "a@b.c"), ErrConflict, "identity conflict with id a@b.c"},
		{"not the owner", Forbidden("you can only change your own listings"), ErrForbidden, "you can only change your own listings"},
		{"no session", Unauthorized("sign in required"), ErrUnauthorized, "sign in required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			assert.Equal(t, tt.msg, tt.err.Error())
			assert.Same(t, tt.kind, tt.err.Unwrap())
		})
	}
}

func TestKindsDoNotOverlap(t *testing.T) {
	kinds := []error{ErrNotFound, ErrValidation, ErrConflict, ErrForbidden, ErrUnauthorized}

	assert.NotErrorIs(t, Forbidden("x"), ErrUnauthorized)
	assert.NotErrorIs(t, Unauthorized("x"), ErrForbidden)
	for i, a := range kinds {
		for j, b := range kinds {
			if i != j {
				assert.NotErrorIs(t, a, b)
			}
		}
	}
}

// Services wrap with %w; the kind and field must survive for writeError.
func TestSurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("creating listing: %w", ValidationFailed("images", "file type not allowed"))

	assert.ErrorIs(t, wrapped, ErrValidation)

	var appErr *AppError
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, "images", appErr.Field)
	assert.Equal(t, "file type not allowed", appErr.Message)
}

func TestFieldOnlyOnValidation(t *testing.T) {
	assert.Equal(t, "phone", ValidationFailed("phone", "bad").Field)
	assert.Empty(t, NotFound("user", "u1").Field)
	assert.Empty(t, Conflict("identity", "x").Field)
}
