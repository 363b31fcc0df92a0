package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/civicpulse/complaints-api/api"
	"github.com/civicpulse/complaints-api/auth"
	"github.com/civicpulse/complaints-api/config"
	"github.com/civicpulse/complaints-api/databases"
	"github.com/civicpulse/complaints-api/models"
)

// User exported for testing purposes
type User struct {
	DB        databases.UserDatabase
	AllowList auth.AllowList
	Tokens    *auth.Tokens
	Region    string
}

// SignUpHandler registers a citizen and signs them in. Usernames on the authority
// allow list are reserved.
func (u User) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req models.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := models.Validate(req); err != nil {
		config.ErrorStatus("missing required fields", http.StatusBadRequest, w, err)
		return
	}
	if u.AllowList.Contains(req.Username) {
		config.ErrorStatus("this username is reserved", http.StatusForbidden, w, errors.Errorf("username %s is reserved", req.Username))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	exists, err := u.DB.Exists(ctx, req.Username, req.Email)
	if err != nil {
		config.ErrorStatus("failed to check user", http.StatusInternalServerError, w, err)
		return
	}
	if exists {
		config.ErrorStatus("username or email already in use", http.StatusConflict, w, errors.New("duplicate user"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	now := time.Now().UTC()
	user, err := u.DB.InsertOne(ctx, models.User{
		Name:         strings.TrimSpace(req.Name),
		Username:     req.Username,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		PasswordHash: hash,
		Role:         models.RoleCitizen,
		Region:       u.Region,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}

	token, err := u.Tokens.Issue(*user, models.RoleCitizen)
	if err != nil {
		config.ErrorStatus("failed to issue token", http.StatusInternalServerError, w, err)
		return
	}
	zap.S().Infow("user signed up", "userId", user.ID.Hex(), "username", user.Username)

	b, err := json.Marshal(models.AuthResponse{Token: token, User: *user})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(b)
}
