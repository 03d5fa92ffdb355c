package session

import (
	"context"

	"github.com/sakif/estate-portal/internal/model"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying store.
func NewContext(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, contextKey{}, store)
}

// FromContext returns the request's store, or nil when none was installed.
func FromContext(ctx context.Context) *Store {
	s, _ := ctx.Value(contextKey{}).(*Store)
	return s
}

// Current is shorthand for FromContext(ctx).Session().
func Current(ctx context.Context) (*model.User, bool) {
	return FromContext(ctx).Session()
}
