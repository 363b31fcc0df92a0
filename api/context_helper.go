package api

import (
	"context"
	"time"

	"github.com/civicpulse/complaints-api/lifecycle"
)

// QueryTimeout is the default timeout for database queries
const QueryTimeout = 10 * time.Second

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

type identityKey struct{}

// WithIdentity stores the verified caller in ctx
func WithIdentity(ctx context.Context, id lifecycle.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller verified by RequireBearer
func IdentityFrom(ctx context.Context) (lifecycle.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(lifecycle.Identity)
	return id, ok
}
