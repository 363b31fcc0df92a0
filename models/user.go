package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is what a signed-in user is allowed to do
type Role string

// User roles
const (
	RoleCitizen   Role = "citizen"
	RoleAuthority Role = "authority"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleCitizen || r == RoleAuthority
}

// User holds the structure for the users collection in mongo. The stored role is a
// cache of the last sign-in; authorization always uses the role inside the token.
type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Username     string             `json:"username" bson:"username"`
	Email        string             `json:"email" bson:"email"`
	Phone        string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Address      string             `json:"address" bson:"address"`
	PasswordHash string             `json:"-" bson:"passwordHash"`
	Role         Role               `json:"role" bson:"role"`
	Avatar       string             `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Region       string             `json:"region" bson:"region"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// SignUpRequest is the body accepted when a citizen registers
type SignUpRequest struct {
	Name     string `json:"name" validate:"required"`
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"`
	Address  string `json:"address" validate:"required"`
}

// AuthResponse is returned by sign-up and sign-in
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
