package entity

import (
	"time"

	"github.com/google/uuid"
)

// AuthorizationResult is what a successful resolution grants.
type AuthorizationResult struct {
	User       *User      // Nil for credentials without an owner (sign_up).
	Scopes     ScopeSet   // Effective scopes of the credential.
	Credential Descriptor // Which credential was presented.
}

// Revocation is a store mutation produced by resolution: delete one persisted credential.
type Revocation struct {
	Kind CredentialKind
	ID   uuid.UUID
}

// AuthPolicy is the immutable authentication configuration shared by the resolver and the
// issuance flows. It is built once at start-up.
type AuthPolicy struct {
	AccessTokenLifetime  time.Duration // Default session length.
	StaySignedInLifetime time.Duration // Session length when the user asks to stay signed in.
	MagicLinkLifetime    time.Duration // Override lifetime applied when a magic link is consumed.
	SignUpLifetime       time.Duration // Lifetime and override of sign-up tokens.
	OTPLifetime          time.Duration // Lifetime and override of one-time passwords.
	APIKeyLifetime       time.Duration // Default API key lifetime.
	OTPLength            int           // Number of digits in a one-time code.
	DefaultRole          Role          // Role of users created through sign-up.
	Roles                RoleScopes    // Role to default scopes.
	MagicLinkBaseURL     string        // Base of links sent by email; the token is appended.
	SignUpBaseURL        string        // Base of sign-up links sent by email.
	DefaultRegion        string        // Region used to parse phone numbers without a country code.
}
