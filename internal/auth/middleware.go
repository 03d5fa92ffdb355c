package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// CookieName is the session cookie holding the signed token.
const CookieName = "token"

// ErrNoToken means the request carried no session token at all.
var ErrNoToken = errors.New("auth: no session token")

// TokenFromRequest reads the session token from the cookie, falling back to
// an "Authorization: Bearer" header for API clients.
func TokenFromRequest(r *http.Request) (string, error) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), nil
		}
	}
	return "", ErrNoToken
}

// IdentityFromRequest validates the request's token and returns its identity.
func IdentityFromRequest(r *http.Request, tokens *TokenService) (string, error) {
	token, err := TokenFromRequest(r)
	if err != nil {
		return "", err
	}
	return tokens.Validate(token)
}

// Cookies writes and clears the session cookie.
type Cookies struct {
	tokens *TokenService
	secure bool
}

func NewCookies(tokens *TokenService, secure bool) *Cookies {
	return &Cookies{tokens: tokens, secure: secure}
}

// Issue signs a fresh token for identityID and sets it as the session cookie.
// It is used both at sign-in and to slide the expiry of a live session.
func (c *Cookies) Issue(w http.ResponseWriter, identityID string) error {
	token, err := c.tokens.Generate(identityID)
	if err != nil {
		return err
	}
	c.Set(w, token)
	return nil
}

// Set stores an already signed token as the session cookie.
func (c *Cookies) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(c.tokens.TTL()),
		MaxAge:   int(c.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie.
func (c *Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequestIdentity resolves the current identity of one HTTP request. It is
// what the per-request session store asks "who is signed in?".
type RequestIdentity struct {
	r      *http.Request
	tokens *TokenService
}

func NewRequestIdentity(r *http.Request, tokens *TokenService) *RequestIdentity {
	return &RequestIdentity{r: r, tokens: tokens}
}

// CurrentIdentity returns ErrNoToken or a wrapped ErrInvalidToken when no
// one is signed in.
func (i *RequestIdentity) CurrentIdentity(_ context.Context) (string, error) {
	return IdentityFromRequest(i.r, i.tokens)
}
