package models

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the portal-level role resolved for an authenticated user.
// Roles arrive case-insensitive on the wire and are normalized to lowercase.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// ParseRole normalizes a wire-format role string. Unknown or empty values
// default to student: role resolution is best-effort and must never block an
// authenticated request.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleTeacher:
		return RoleTeacher
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleStudent
	}
}

// Satisfies reports whether the role meets a required role.
// Admin is a super-role and satisfies every check.
func (r Role) Satisfies(required Role) bool {
	return r == RoleAdmin || r == required
}

// SatisfiesAny reports whether the role meets any of the required roles.
func (r Role) SatisfiesAny(required []Role) bool {
	if r == RoleAdmin {
		return true
	}
	for _, want := range required {
		if r == want {
			return true
		}
	}
	return false
}

// Principal is the authenticated caller. It is resolved fresh from the
// identity provider on every request and never persisted by this system.
// ID is non-empty whenever authentication succeeded.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// SupabaseClaims represents the JWT claims structure from Supabase Auth.
// See: https://supabase.com/docs/guides/auth/jwts
type SupabaseClaims struct {
	jwt.RegisteredClaims                        // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string                 `json:"email"`
	AppMetadata          map[string]interface{} `json:"app_metadata"`
	UserMetadata         map[string]interface{} `json:"user_metadata"`
	Role                 string                 `json:"role"` // "authenticated" or "anon"
	SessionID            string                 `json:"session_id"`
	IsAnonymous          bool                   `json:"is_anonymous"`
}

// GetUserID returns the user ID from the JWT subject claim.
// This is the primary identifier for the authenticated user.
func (c *SupabaseClaims) GetUserID() string {
	return c.Subject
}
