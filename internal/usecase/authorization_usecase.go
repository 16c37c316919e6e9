// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"gatekeeper/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// ResolveInput describes one authorization check.
type ResolveInput struct {
	Token          string                 // Raw bearer token. Empty means none was supplied.
	RequiredScopes entity.ScopeSet        // Scopes the endpoint needs. Empty is always satisfied.
	PermittedKinds entity.CredentialKinds // Kinds the endpoint accepts. Empty accepts every kind.
	Override       *time.Duration         // Shorter effective lifetime measured from issued.
}

// IssueInput defines the data required to mint a credential directly.
type IssueInput struct {
	Kind     entity.CredentialKind
	UserID   uuid.UUID     // Owner, required for persisted kinds.
	Email    string        // Subject of sign_up tokens.
	Lifetime time.Duration // Zero selects the kind's configured lifetime.
	Name     string        // API key name.
	Scopes   []string      // API key scopes.
	Code     string        // One-time code to hash into an otp row.
}

// --- Output DTOs ---

// IssueOutput returns an encoded token and the handle needed to revoke it.
type IssueOutput struct {
	Token      string
	Credential entity.Descriptor
}

// AuthorizationUsecase is the contract protected endpoints and issuance flows use to
// mint, check and revoke credentials.
type AuthorizationUsecase interface {
	// Resolve authorizes a token. Failures are *domainerrors.AuthError; any other error is an
	// infrastructure failure and must not be read as "access denied".
	Resolve(ctx context.Context, input *ResolveInput) (*entity.AuthorizationResult, error)
	Issue(ctx context.Context, input *IssueInput) (*IssueOutput, error)
	Revoke(ctx context.Context, credential entity.Descriptor) error
	RevokeAll(ctx context.Context, userID uuid.UUID, kind entity.CredentialKind) (int64, error)
}
