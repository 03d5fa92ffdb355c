package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sakif/estate-portal/internal/apperror"
	"github.com/sakif/estate-portal/internal/auth"
	"github.com/sakif/estate-portal/internal/model"
	"github.com/sakif/estate-portal/internal/service"
	"github.com/sakif/estate-portal/internal/session"
)

const oauthStateCookie = "oauth_state"

// AuthHandler serves registration, sign-in, sign-out, the session snapshot
// and the optional GitHub OAuth flow.
//
// Register and login accept either JSON (API clients) or an HTML form post
// (the page shells). Form posts are answered with redirects; JSON with JSON.
type AuthHandler struct {
	auth    *service.AuthService
	cookies *auth.Cookies
	github  *auth.GitHubProvider // nil when GitHub sign-in is not configured
	logger  *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	cookies *auth.Cookies,
	github *auth.GitHubProvider,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:    authService,
		cookies: cookies,
		github:  github,
		logger:  logger,
	}
}

// RegisterResponse mirrors the row-array shape of the other read endpoints.
type RegisterResponse struct {
	Data []*model.User `json:"data"`
}

// LoginResponse is returned by a successful JSON sign-in.
type LoginResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an identity and profile, then signs the new
// account in by setting the session cookie.
//
// HTTP: POST /api/register
// BODY: {"name": "...", "email": "...", "password": "...", "phone": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	form := isForm(r)
	if form {
		in = service.RegisterInput{
			Name:     r.FormValue("name"),
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
			Phone:    r.FormValue("phone"),
		}
	} else if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.auth.Register(r.Context(), in)
	if err != nil {
		if form {
			h.redirectWithError(w, r, "/register", err)
			return
		}
		writeError(w, r, h.logger, err)
		return
	}

	h.cookies.Set(w, result.Token)

	if form {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusCreated, RegisterResponse{Data: []*model.User{result.User}})
}

// HandleLogin signs in with email and password.
//
// HTTP: POST /api/login
// BODY: {"email": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	form := isForm(r)
	if form {
		in = loginRequest{Email: r.FormValue("email"), Password: r.FormValue("password")}
	} else if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.auth.SignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		if form {
			h.redirectWithError(w, r, "/login", err)
			return
		}
		writeError(w, r, h.logger, err)
		return
	}

	h.cookies.Set(w, result.Token)

	if form {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Message: "signed in successfully", User: result.User})
}

// HandleLogout expires the session cookie and clears this request's store.
// The token itself stays valid until it expires; without the cookie the
// browser no longer sends it.
//
// HTTP: GET /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	if store := session.FromContext(r.Context()); store != nil {
		store.SignOut()
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "signed out successfully"})
}

// HandleSession returns the Session Store snapshot for the current request:
//
//	{"userInfo": {...} | null, "auth": true|false, "loading": false}
//
// HTTP: GET /api/session
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	store := session.FromContext(r.Context())
	if store == nil {
		writeJSON(w, http.StatusOK, session.State{})
		return
	}
	writeJSON(w, http.StatusOK, store.State())
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
// A random state value goes into a short-lived cookie and is checked on the
// callback, which proves the callback was started here.
//
// HTTP: GET /auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, r, h.logger, apperror.NotFound("sign-in provider", "github"))
		return
	}

	state := auth.NewState()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow:
//  1. check the state cookie against the state parameter
//  2. exchange the code for the GitHub profile
//  3. sign in or create the linked account
//  4. set the session cookie and redirect home
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, r, h.logger, apperror.NotFound("sign-in provider", "github"))
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/login?error="+url.QueryEscape("GitHub sign-in was cancelled"), http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.cookies.Set(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// redirectWithError sends a form post back to its page with the error text
// in the query string. Only typed application errors are shown verbatim.
func (h *AuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, page string, err error) {
	msg := "Something went wrong, please try again"

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
		h.logger.Debug("form rejected", slog.String("page", page), slog.String("error", err.Error()))
	} else {
		h.logger.Error("form submission failed", slog.String("page", page), slog.String("error", err.Error()))
	}

	http.Redirect(w, r, page+"?error="+url.QueryEscape(msg), http.StatusSeeOther)
}
