package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	guardian "github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"

	"github.com/civicpulse/complaints-api/auth"
	"github.com/civicpulse/complaints-api/config"
	"github.com/civicpulse/complaints-api/databases"
	"github.com/civicpulse/complaints-api/lifecycle"
	"github.com/civicpulse/complaints-api/models"
)

// MiddlewareDB signs users in against the users collection
type MiddlewareDB struct {
	DB            databases.UserDatabase
	AllowList     auth.AllowList
	Tokens        *auth.Tokens
	authenticator guardian.Authenticator
}

type signInRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

// SetupGoGuardian sets up the go-guardian basic strategy used by SignIn
func (m *MiddlewareDB) SetupGoGuardian() {
	m.authenticator = guardian.New()
	cache := store.NewFIFO(context.Background(), 10*time.Minute)
	m.authenticator.EnableStrategy(basic.StrategyKey, basic.New(m.ValidateUser, cache))
}

// ValidateUser checks a username or e-mail and password against the stored hash
func (m *MiddlewareDB) ValidateUser(ctx context.Context, r *http.Request, login, password string) (guardian.Info, error) {
	user, err := m.DB.FindByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("failed to find user %s", login)
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("invalid credentials")
	}
	return guardian.NewDefaultUser(user.Username, user.ID.Hex(), nil, nil), nil
}

// SignIn authenticates HTTP basic credentials, or a JSON body with usernameOrEmail and
// password, and answers with a fresh token. The role is derived from the allow list at
// every sign-in and the stored role is corrected when it is stale.
func (m *MiddlewareDB) SignIn(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, _, ok := r.BasicAuth(); !ok {
		var req signInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UsernameOrEmail == "" || req.Password == "" {
			config.ErrorStatus("missing credentials", http.StatusBadRequest, w, err)
			return
		}
		r.SetBasicAuth(strings.TrimSpace(req.UsernameOrEmail), req.Password)
	}

	info, err := m.authenticator.Authenticate(r)
	if err != nil {
		config.ErrorStatus("invalid credentials", http.StatusUnauthorized, w, err)
		return
	}

	ctx, cancel := WithQueryTimeout(r.Context())
	defer cancel()

	user, err := m.DB.FindByID(ctx, info.ID())
	if err != nil {
		config.ErrorStatus("invalid credentials", http.StatusUnauthorized, w, err)
		return
	}

	role := auth.RoleFor(user.Username, m.AllowList)
	if user.Role != role {
		if err := m.DB.UpdateRole(ctx, user.ID, role); err != nil {
			config.ErrorStatus("failed to update role", http.StatusInternalServerError, w, err)
			return
		}
		zap.S().Infow("corrected stored role", "userId", user.ID.Hex(), "from", user.Role, "to", role)
		user.Role = role
	}

	token, err := m.Tokens.Issue(*user, role)
	if err != nil {
		config.ErrorStatus("failed to issue token", http.StatusInternalServerError, w, err)
		return
	}
	zap.S().Debugf("User %s Authenticated", user.Username)

	_ = json.NewEncoder(w).Encode(models.AuthResponse{Token: token, User: *user})
}

// RequireBearer rejects requests without a valid bearer token and stores the verified
// identity in the request context
func RequireBearer(verifier lifecycle.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r)
			if token == "" {
				config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, fmt.Errorf("missing bearer token"))
				return
			}
			id, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				zap.S().Errorw("unauthorized", "url", r.URL)
				config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
