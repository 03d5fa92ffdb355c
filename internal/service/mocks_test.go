package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sakif/estate-portal/internal/apperror"
	"github.com/sakif/estate-portal/internal/model"
	"github.com/sakif/estate-portal/internal/repository"
)

// In-memory stand-ins for the repositories and the bucket. Each one can be
// told to fail so the compensation paths can be exercised.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

// ---- identities ---------------------------------------------------------

type mockIdentityRepo struct {
	byID      map[string]*model.Identity
	nextID    int
	createErr error
	deleted   []string
}

func newMockIdentityRepo() *mockIdentityRepo {
	return &mockIdentityRepo{byID: map[string]*model.Identity{}}
}

func (m *mockIdentityRepo) Create(_ context.Context, identity *model.Identity) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.byID {
		if identity.Email != "" && existing.Email == identity.Email {
			return apperror.Conflict("identity", identity.Email)
		}
		if identity.GitHubID != nil && existing.GitHubID != nil && *existing.GitHubID == *identity.GitHubID {
			return apperror.Conflict("identity", "github")
		}
	}
	m.nextID++
	identity.ID = fmt.Sprintf("id-%d", m.nextID)
	stored := *identity
	m.byID[identity.ID] = &stored
	return nil
}

func (m *mockIdentityRepo) GetByEmail(_ context.Context, email string) (*model.Identity, error) {
	for _, i := range m.byID {
		if i.Email == email {
			c := *i
			return &c, nil
		}
	}
	return nil, apperror.NotFound("identity", email)
}

func (m *mockIdentityRepo) GetByGitHubID(_ context.Context, githubID int64) (*model.Identity, error) {
	for _, i := range m.byID {
		if i.GitHubID != nil && *i.GitHubID == githubID {
			c := *i
			return &c, nil
		}
	}
	return nil, apperror.NotFound("identity", fmt.Sprint(githubID))
}

func (m *mockIdentityRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return apperror.NotFound("identity", id)
	}
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

// ---- users --------------------------------------------------------------

type mockUserRepo struct {
	users     map[string]*model.User
	createErr error
	updateErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*model.User{}}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	c := *u
	return &c, nil
}

func (m *mockUserRepo) List(_ context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

// ---- listings -----------------------------------------------------------

type mockListingRepo struct {
	listings  map[string]*model.Listing
	nextID    int
	createErr error
	lastOpts  repository.ListOptions
}

func newMockListingRepo() *mockListingRepo {
	return &mockListingRepo{listings: map[string]*model.Listing{}}
}

func (m *mockListingRepo) Create(_ context.Context, listing *model.Listing) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	listing.ID = fmt.Sprintf("listing-%d", m.nextID)
	stored := *listing
	m.listings[listing.ID] = &stored
	return nil
}

func (m *mockListingRepo) GetByID(_ context.Context, id string) (*model.Listing, error) {
	l, ok := m.listings[id]
	if !ok {
		return nil, apperror.NotFound("listing", id)
	}
	c := *l
	return &c, nil
}

func (m *mockListingRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Listing, error) {
	m.lastOpts = opts
	out := []model.Listing{}
	for _, l := range m.listings {
		out = append(out, *l)
	}
	return out, nil
}

func (m *mockListingRepo) Update(_ context.Context, listing *model.Listing) error {
	if _, ok := m.listings[listing.ID]; !ok {
		return apperror.NotFound("listing", listing.ID)
	}
	stored := *listing
	m.listings[listing.ID] = &stored
	return nil
}

func (m *mockListingRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.listings[id]; !ok {
		return apperror.NotFound("listing", id)
	}
	delete(m.listings, id)
	return nil
}

// ---- bucket -------------------------------------------------------------

type mockBucket struct {
	mu          sync.Mutex
	objects     map[string]string
	uploads     []string
	removeCalls [][]string
	// failUploadAt makes the Nth upload (1-based) fail; 0 disables.
	failUploadAt int
	removeErr    error
}

func newMockBucket() *mockBucket {
	return &mockBucket{objects: map[string]string{}}
}

func (b *mockBucket) Upload(_ context.Context, path string, body io.Reader, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads = append(b.uploads, path)
	if b.failUploadAt > 0 && len(b.uploads) == b.failUploadAt {
		return errors.New("bucket unavailable")
	}
	data, _ := io.ReadAll(body)
	b.objects[path] = string(data)
	return nil
}

func (b *mockBucket) Remove(_ context.Context, paths []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeCalls = append(b.removeCalls, append([]string(nil), paths...))
	if b.removeErr != nil {
		return b.removeErr
	}
	for _, p := range paths {
		delete(b.objects, p)
	}
	return nil
}

func images(n int) []ImageUpload {
	out := make([]ImageUpload, n)
	for i := range out {
		out[i] = ImageUpload{
			Filename:    fmt.Sprintf("photo-%d.png", i),
			ContentType: "image/png",
			Body:        strings.NewReader(fmt.Sprintf("img-%d", i)),
		}
	}
	return out
}
