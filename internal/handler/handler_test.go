package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/estate-portal/internal/auth"
	"github.com/sakif/estate-portal/internal/handler"
	"github.com/sakif/estate-portal/internal/logger"
	"github.com/sakif/estate-portal/internal/middleware"
	"github.com/sakif/estate-portal/internal/model"
	"github.com/sakif/estate-portal/internal/repository/sqlstore"
	"github.com/sakif/estate-portal/internal/service"
	"github.com/sakif/estate-portal/internal/storage"
)

const testBaseURL = "http://cdn.test"

// pngBytes is enough of a PNG for content sniffing.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

// testEnv wires the real services against in-memory SQLite and a disk
// bucket in a temp dir, behind the session middleware.
type testEnv struct {
	router     chi.Router
	db         *sqlstore.DB
	bucketRoot string
	tokens     *auth.TokenService
	auth       *service.AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Discard()

	db, err := sqlstore.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	root := t.TempDir()
	bucket, err := storage.NewDiskBucket(root)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService("handler-test-secret-123", time.Hour)
	require.NoError(t, err)
	cookies := auth.NewCookies(tokens, false)

	authSvc := service.NewAuthService(db.Identities(), db.Users(), tokens, auth.NewPasswordServiceForTest(4), log)
	listingSvc := service.NewListingService(db.Listings(), bucket, log)
	userSvc := service.NewUserService(db.Users(), bucket, log)

	authH := handler.NewAuthHandler(authSvc, cookies, nil, log)
	listingH := handler.NewListingHandler(listingSvc, testBaseURL, log)
	userH := handler.NewUserHandler(userSvc, testBaseURL, log)
	pageH, err := handler.NewPageHandler(listingSvc, testBaseURL, log)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(middleware.Session(tokens, db.Users(), log))

	r.Get("/login", pageH.HandleLogin)
	r.Get("/register", pageH.HandleRegister)
	r.Get("/", pageH.HandleHome)
	r.Get("/dashboard", pageH.HandleDashboard)
	r.Get("/dashboard/add-listing", pageH.HandleAddListing)
	r.Get("/listing/{id}", pageH.HandleListing)

	r.Post("/api/register", authH.HandleRegister)
	r.Post("/api/login", authH.HandleLogin)
	r.Get("/api/auth/logout", authH.HandleLogout)
	r.Get("/api/session", authH.HandleSession)
	r.Get("/auth/github/login", authH.HandleGitHubLogin)

	r.Get("/api/listings", listingH.HandleList)
	r.Post("/api/listings", listingH.HandleCreate)
	r.Get("/api/listing/{id}", listingH.HandleGetByID)
	r.Post("/api/listing/{id}", listingH.HandleCreate)
	r.Delete("/api/listing/{id}", listingH.HandleDelete)
	r.Put("/api/listing/update/{id}", listingH.HandleUpdate)
	r.With(middleware.SameOrigin(log)).Get("/api/listing/delete/{id}", listingH.HandleDelete)

	r.Get("/api/users", userH.HandleList)
	r.Get("/api/user/{id}", userH.HandleGetByID)
	r.Put("/api/profile", userH.HandleUpdateProfile)

	return &testEnv{router: r, db: db, bucketRoot: root, tokens: tokens, auth: authSvc}
}

// register creates an account and returns its profile and session token.
func (e *testEnv) register(t *testing.T, email, name string) (*model.User, string) {
	t.Helper()
	res, err := e.auth.Register(context.Background(), service.RegisterInput{
		Name:     name,
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	return res.User, res.Token
}

func (e *testEnv) makeAdmin(t *testing.T, user *model.User) {
	t.Helper()
	user.Role = model.RoleAdmin
	require.NoError(t, e.db.Users().Update(context.Background(), user))
}

func (e *testEnv) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func jsonRequest(method, target string, body any) *http.Request {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(target string, fields map[string]string) *http.Request {
	vals := url.Values{}
	for k, v := range fields {
		vals.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

type upload struct {
	field, filename string
	content         []byte
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}
