package repository

import (
	"context"
	"errors"

	"gatekeeper/internal/domain/entity"
)

// ErrIdentityNotFound is returned when no user is linked to a provider identity.
var ErrIdentityNotFound = errors.New("identity not found")

// IdentityRepository stores the links between users and external identity providers.
type IdentityRepository interface {
	// Link records that the provider subject belongs to the user. Linking the same
	// subject twice is not an error.
	Link(ctx context.Context, identity *entity.Identity) error

	// FindByProviderSubject retrieves the link for a provider-specific subject.
	FindByProviderSubject(ctx context.Context, provider entity.ProviderType, subject string) (*entity.Identity, error)
}
