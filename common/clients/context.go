package clients

import (
	"context"

	"github.com/ezbake/ezbake-image-frack/common/store"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// AuthorizationsKey is the context key for the caller's authorization
	// tokens (for the X-Authorizations header)
	AuthorizationsKey contextKey = "authorizations"
)

// WithAuthorizations adds the caller's authorization tokens to the context.
// Outbound requests carry them as the X-Authorizations header so collaborator
// services evaluate visibility with the same scope.
func WithAuthorizations(ctx context.Context, auths store.Authorizations) context.Context {
	return context.WithValue(ctx, AuthorizationsKey, auths)
}

// GetAuthorizations retrieves the authorization tokens from context.
// Returns the tokens and true if found, nil and false otherwise.
func GetAuthorizations(ctx context.Context) (store.Authorizations, bool) {
	auths, ok := ctx.Value(AuthorizationsKey).(store.Authorizations)
	return auths, ok && len(auths) > 0
}
