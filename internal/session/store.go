// Package session holds the per-request Session Store: who is signed in,
// whether that is known yet, and the profile row behind the identity.
//
// A Store is created for each request by the session middleware and carried
// in the request context. Nothing here is process-global.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sakif/estate-portal/internal/auth"
	"github.com/sakif/estate-portal/internal/model"
)

// IdentitySource answers "which identity, if any, is signed in?".
// auth.RequestIdentity is the production implementation.
type IdentitySource interface {
	CurrentIdentity(ctx context.Context) (string, error)
}

// ProfileSource loads the profile row of an identity.
type ProfileSource interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// State is a snapshot of the store. The JSON shape is what GET /api/session
// returns.
type State struct {
	UserInfo *model.User `json:"userInfo"`
	Auth     bool        `json:"auth"`
	Loading  bool        `json:"loading"`
}

// Store tracks the session of one request. It starts out loading and
// unauthenticated until FetchUser settles it.
type Store struct {
	identity IdentitySource
	profiles ProfileSource
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

func NewStore(identity IdentitySource, profiles ProfileSource, logger *slog.Logger) *Store {
	return &Store{
		identity: identity,
		profiles: profiles,
		logger:   logger,
		state:    State{Loading: true},
	}
}

// FetchUser resolves the current identity and its profile. It never returns
// an error: a missing session is a normal state, and a failed profile lookup
// is logged and leaves the store signed out. Concurrent calls are allowed;
// the last one to finish wins.
func (s *Store) FetchUser(ctx context.Context) {
	s.mu.Lock()
	s.state.Loading = true
	s.mu.Unlock()

	id, err := s.identity.CurrentIdentity(ctx)
	if err != nil || id == "" {
		if err == nil || errors.Is(err, auth.ErrNoToken) {
			s.logger.Debug("no active session")
		} else {
			s.logger.Debug("session token rejected", "error", err)
		}
		s.set(State{})
		return
	}

	user, err := s.profiles.GetUserByID(ctx, id)
	if err != nil {
		s.logger.Error("error fetching user profile", "identity_id", id, "error", err)
		s.set(State{})
		return
	}

	s.set(State{UserInfo: user, Auth: true})
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session returns the signed-in profile, or (nil, false). Safe on a nil
// Store, which is what FromContext yields outside the session middleware.
func (s *Store) Session() (*model.User, bool) {
	if s == nil {
		return nil, false
	}
	st := s.State()
	if !st.Auth || st.UserInfo == nil {
		return nil, false
	}
	return st.UserInfo, true
}

// SignOut clears the state. It does not touch the cookie; the logout
// handler does that.
func (s *Store) SignOut() {
	s.set(State{})
}

func (s *Store) set(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
