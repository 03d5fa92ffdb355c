package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenFromRequest(t *testing.T) {
	t.Run("cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})
		r.Header.Set("Authorization", "Bearer from-header")

		token, err := TokenFromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "from-cookie", token, "cookie wins over header")
	})

	t.Run("bearer header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer from-header")

		token, err := TokenFromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "from-header", token)
	})

	t.Run("missing", func(t *testing.T) {
		for _, h := range []string{"", "Basic abc", "Bearer ", "bearer x"} {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if h != "" {
				r.Header.Set("Authorization", h)
			}
			_, err := TokenFromRequest(r)
			assert.ErrorIs(t, err, ErrNoToken, "header %q", h)
		}
	})
}

func TestCookies_IssueAndClear(t *testing.T) {
	tokens := newTestTokenService(t)
	cookies := NewCookies(tokens, true)

	rec := httptest.NewRecorder()
	require.NoError(t, cookies.Issue(rec, "cv37rs3pp9olc6atsptg"))

	res := rec.Result()
	require.Len(t, res.Cookies(), 1)
	c := res.Cookies()[0]
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, int(time.Hour.Seconds()), c.MaxAge)

	id, err := tokens.Validate(c.Value)
	require.NoError(t, err)
	assert.Equal(t, "cv37rs3pp9olc6atsptg", id)

	rec = httptest.NewRecorder()
	cookies.Clear(rec)
	cleared := rec.Result().Cookies()[0]
	assert.Equal(t, CookieName, cleared.Name)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestRequestIdentity(t *testing.T) {
	tokens := newTestTokenService(t)
	valid, err := tokens.Generate("cv37rs3pp9olc6atsptg")
	require.NoError(t, err)
	expired, err := tokens.GenerateWithDuration("cv37rs3pp9olc6atsptg", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		cookie  string
		wantID  string
		wantErr error
	}{
		{"valid", valid, "cv37rs3pp9olc6atsptg", nil},
		{"expired", expired, "", ErrInvalidToken},
		{"garbage", "nope", "", ErrInvalidToken},
		{"absent", "", "", ErrNoToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}

			id, err := NewRequestIdentity(r, tokens).CurrentIdentity(context.Background())
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
