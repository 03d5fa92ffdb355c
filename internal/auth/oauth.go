package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const gitHubAPI = "https://api.github.com"

// GitHubUser is the part of GET /user that sign-in needs.
type GitHubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"` // empty when hidden in GitHub settings
	AvatarURL string `json:"avatar_url"`
}

// DisplayName prefers the profile name and falls back to the login.
func (u *GitHubUser) DisplayName() string {
	if n := strings.TrimSpace(u.Name); n != "" {
		return n
	}
	return u.Login
}

// GitHubProvider runs the OAuth authorization-code flow against GitHub.
type GitHubProvider struct {
	config *oauth2.Config
	apiURL string
}

// NewGitHubProvider configures the flow. callbackURL must match the OAuth
// app's registered callback exactly.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return newGitHubProvider(clientID, clientSecret, callbackURL, github.Endpoint, gitHubAPI)
}

func newGitHubProvider(clientID, clientSecret, callbackURL string, endpoint oauth2.Endpoint, apiURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoint,
		},
		apiURL: strings.TrimSuffix(apiURL, "/"),
	}
}

// NewState returns an unguessable value for the OAuth state cookie.
func NewState() string {
	return rand.Text()
}

// AuthURL is where the browser is sent to approve access.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for an access token and fetches the
// GitHub account it belongs to.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var u GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}
	if u.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}
	return &u, nil
}
