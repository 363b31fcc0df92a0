// Package auth issues and verifies bearer tokens and derives user roles.
package auth

import (
	"strings"

	"github.com/civicpulse/complaints-api/models"
)

// AllowList is the set of usernames reserved for authorities
type AllowList map[string]struct{}

// NewAllowList builds an allow list from usernames. Entries are trimmed and
// lower-cased; empty entries are dropped.
func NewAllowList(usernames []string) AllowList {
	list := AllowList{}
	for _, u := range usernames {
		u = normalize(u)
		if u != "" {
			list[u] = struct{}{}
		}
	}
	return list
}

// Contains reports whether username is reserved for an authority
func (a AllowList) Contains(username string) bool {
	_, ok := a[normalize(username)]
	return ok
}

// Usernames returns the reserved usernames
func (a AllowList) Usernames() []string {
	out := make([]string, 0, len(a))
	for u := range a {
		out = append(out, u)
	}
	return out
}

// RoleFor derives the role of username from the allow list
func RoleFor(username string, allowList AllowList) models.Role {
	if allowList.Contains(username) {
		return models.RoleAuthority
	}
	return models.RoleCitizen
}

func normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
