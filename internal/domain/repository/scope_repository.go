package repository

import (
	"context"

	"gatekeeper/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrUnknownScope is returned when a scope name is not in the catalogue.
var ErrUnknownScope = errors.New("unknown scope")

// ScopeRepository reads and maintains the scope catalogue.
type ScopeRepository interface {
	// ScopesForAPIKey returns the scopes granted to an API key.
	ScopesForAPIKey(ctx context.Context, keyID uuid.UUID) (entity.ScopeSet, error)

	// FindByNames returns the catalogue entries for the names. Unknown names yield ErrUnknownScope.
	FindByNames(ctx context.Context, names []string) ([]entity.Scope, error)

	// EnsureScopes creates the catalogue entries that do not exist yet.
	EnsureScopes(ctx context.Context, names []string) error
}
