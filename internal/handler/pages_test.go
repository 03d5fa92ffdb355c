package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageHandler_PublicPages(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/login", "/register"} {
		rr := env.do(httptest.NewRequest(http.MethodGet, path, nil), "")

		require.Equal(t, http.StatusOK, rr.Code, path)
		assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rr.Body.String(), `action="/api`, path)
	}
}

func TestPageHandler_LoginShowsEscapedError(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/login?error=%3Cb%3Ebad%3C%2Fb%3E", nil), "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "&lt;b&gt;bad&lt;/b&gt;")
	assert.NotContains(t, rr.Body.String(), "<b>bad</b>")
}

func TestPageHandler_Home(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "home@example.com", "Homer")
	env.createListing(t, token, "Sunny duplex")

	rr := env.do(httptest.NewRequest(http.MethodGet, "/", nil), token)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Sunny duplex")
	assert.Contains(t, body, "Homer")
}

func TestPageHandler_Dashboard(t *testing.T) {
	env := newTestEnv(t)
	_, mine := env.register(t, "me@example.com", "Me")
	_, theirs := env.register(t, "them@example.com", "Them")
	admin, adminToken := env.register(t, "boss@example.com", "Boss")
	env.makeAdmin(t, admin)

	env.createListing(t, mine, "My flat")
	env.createListing(t, theirs, "Their flat")

	t.Run("own listings only", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil), mine)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "My flat")
		assert.NotContains(t, rr.Body.String(), "Their flat")
	})

	t.Run("admin sees everything", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil), adminToken)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "My flat")
		assert.Contains(t, rr.Body.String(), "Their flat")
	})
}

func TestPageHandler_AddListing(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "add@example.com", "Adder")

	rr := env.do(httptest.NewRequest(http.MethodGet, "/dashboard/add-listing", nil), token)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `name="images"`)
}

func TestPageHandler_Listing(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.register(t, "view@example.com", "Viewer")
	created := env.createListing(t, token, "Garden cottage")

	t.Run("found", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/listing/"+created.ID, nil), token)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Garden cottage")
		assert.Contains(t, rr.Body.String(), "Manage in dashboard")
	})

	t.Run("missing", func(t *testing.T) {
		rr := env.do(httptest.NewRequest(http.MethodGet, "/listing/nope", nil), token)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), "Not found")
	})
}
