package repository

import (
	"context"

	"gatekeeper/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for credential persistence.
var (
	// ErrCredentialNotFound is returned when no row exists for a credential id.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrCredentialNotPersisted is returned when a store operation targets a kind that has no table.
	ErrCredentialNotPersisted = errors.New("credential kind is not persisted")
	// ErrAPIKeyNameTaken is returned when the owner already has an API key with the same name.
	ErrAPIKeyNameTaken = errors.New("api key name already taken")
)

// CredentialRepository persists the credential kinds that have a backing row.
type CredentialRepository interface {
	// Create stores the credential. API key scopes are stored with it.
	Create(ctx context.Context, cred entity.Credential) error

	// FetchByID loads the stored credential of the given kind.
	FetchByID(ctx context.Context, kind entity.CredentialKind, id uuid.UUID) (entity.Credential, error)

	// DeleteByID removes the credential. Deleting a missing row is not an error.
	DeleteByID(ctx context.Context, kind entity.CredentialKind, id uuid.UUID) error

	// DeleteByOwnerAndKind removes every credential of the kind owned by the user and
	// returns how many rows were removed.
	DeleteByOwnerAndKind(ctx context.Context, userID uuid.UUID, kind entity.CredentialKind) (int64, error)

	// ListOTPsByUser returns the user's outstanding OTPs, most recently issued first.
	ListOTPsByUser(ctx context.Context, userID uuid.UUID) ([]entity.OTP, error)

	// ListAPIKeysByUser returns the user's API keys with their scopes, most recently issued first.
	ListAPIKeysByUser(ctx context.Context, userID uuid.UUID) ([]entity.APIKey, error)
}
