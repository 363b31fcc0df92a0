package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/civicpulse/complaints-api/lifecycle"
	"github.com/civicpulse/complaints-api/models"
)

const accessTokenType = "access"

// ErrInvalidToken is returned for any token that does not verify
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of an access token
type Claims struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	Type     string      `json:"typ"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 access tokens
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens returns a Tokens signing with secret. Issued tokens expire after ttl.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs an access token for user carrying role
func (t *Tokens) Issue(user models.User, role models.Role) (string, error) {
	if len(t.secret) == 0 {
		return "", errors.New("token secret is not configured")
	}
	now := t.now()
	claims := Claims{
		Username: user.Username,
		Role:     role,
		Type:     accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// VerifyToken checks the signature, expiry and claims of token
func (t *Tokens) VerifyToken(_ context.Context, token string) (lifecycle.Identity, error) {
	if len(t.secret) == 0 {
		return lifecycle.Identity{}, errors.Wrap(ErrInvalidToken, "token secret is not configured")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return lifecycle.Identity{}, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if claims.Type != accessTokenType || claims.Subject == "" || claims.Username == "" || !claims.Role.Valid() {
		return lifecycle.Identity{}, ErrInvalidToken
	}
	return lifecycle.Identity{
		SubjectID: claims.Subject,
		Username:  claims.Username,
		Role:      claims.Role,
	}, nil
}

// BearerToken returns the bearer token of r, or "" when there is none
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}
