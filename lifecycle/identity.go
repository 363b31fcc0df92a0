package lifecycle

import (
	"context"

	"github.com/civicpulse/complaints-api/models"
)

// Identity is what a verified bearer token asserts about its holder
type Identity struct {
	SubjectID string
	Username  string
	Role      models.Role
}

// Verifier turns an opaque bearer token into an Identity
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (Identity, error)
}
