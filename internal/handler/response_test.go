package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/estate-portal/internal/apperror"
	"github.com/sakif/estate-portal/internal/logger"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantKind    string
		wantMessage string
	}{
		{"validation", apperror.ValidationFailed("title", "title is required"), http.StatusBadRequest, "validation_error", "title is required"},
		{"unauthorized", apperror.Unauthorized("sign in"), http.StatusUnauthorized, "unauthorized", "sign in"},
		{"forbidden", apperror.Forbidden("not yours"), http.StatusForbidden, "forbidden", "not yours"},
		{"not found", apperror.NotFound("listing", "abc"), http.StatusNotFound, "not_found", "listing not found with id abc"},
		{"conflict", apperror.Conflict("identity", "a@b.c"), http.StatusConflict, "conflict", "identity conflict with id a@b.c"},
		{"wrapped", fmt.Errorf("service: %w", apperror.NotFound("user", "u1")), http.StatusNotFound, "not_found", "user not found with id u1"},
		{"backend failure hides details", errors.New("pq: relation listings does not exist"), http.StatusInternalServerError, "internal_error", "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/x", nil)

			writeError(rr, req, logger.Discard(), tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.wantKind, body.Error)
			assert.Equal(t, tt.wantMessage, body.Message)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var dst map[string]any
		err := decodeJSON(httptest.NewRecorder(), req, &dst)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("too large", func(t *testing.T) {
		big := `{"title":"` + strings.Repeat("a", maxJSONBody) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		var dst map[string]any
		err := decodeJSON(httptest.NewRecorder(), req, &dst)
		require.ErrorIs(t, err, apperror.ErrValidation)
		assert.Contains(t, err.Error(), "too large")
	})

	t.Run("ok", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x"}`))
		var dst struct{ Title string }
		require.NoError(t, decodeJSON(httptest.NewRecorder(), req, &dst))
		assert.Equal(t, "x", dst.Title)
	})
}

func TestIsForm(t *testing.T) {
	cases := map[string]bool{
		"application/json":                       false,
		"application/x-www-form-urlencoded":      true,
		"multipart/form-data; boundary=xyz":      true,
		"application/x-www-form-urlencoded; q=1": true,
		"":                                       false,
	}
	for ct, want := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Content-Type", ct)
		assert.Equal(t, want, isForm(req), ct)
	}
}
