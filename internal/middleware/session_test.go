package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/estate-portal/internal/apperror"
	"github.com/sakif/estate-portal/internal/auth"
	"github.com/sakif/estate-portal/internal/logger"
	"github.com/sakif/estate-portal/internal/model"
	"github.com/sakif/estate-portal/internal/session"
)

type profileMap map[string]*model.User

func (p profileMap) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := p[id]; ok {
		return u, nil
	}
	return nil, apperror.NotFound("user", id)
}

func TestSession_InstallsResolvedStore(t *testing.T) {
	tokens := newTestTokens(t)
	profiles := profileMap{"u1": {ID: "u1", Name: "Alice"}}

	var got session.State
	var hadStore bool
	h := Session(tokens, profiles, logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := session.FromContext(r.Context())
		hadStore = store != nil
		if hadStore {
			got = store.State()
		}
	}))

	token, err := tokens.Generate("u1")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, hadStore)
	assert.True(t, got.Auth)
	assert.False(t, got.Loading)
	assert.Equal(t, "Alice", got.UserInfo.Name)

	// Anonymous request: store present, signed out, settled.
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.True(t, hadStore)
	assert.Equal(t, session.State{}, got)

	// Valid token whose profile row is missing: signed out.
	orphan, err := tokens.Generate("ghost")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: orphan})
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, session.State{}, got)
}
