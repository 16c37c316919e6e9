package usecase

import (
	"context"
	"time"

	"gatekeeper/internal/domain/entity"

	"github.com/google/uuid"
)

// CreateAPIKeyInput defines the data required to create an API key for the caller.
type CreateAPIKeyInput struct {
	Name     string
	Scopes   []string
	Lifetime time.Duration // Zero selects the configured API key lifetime.
}

// CreateAPIKeyOutput returns the key token. It is shown once and never stored in clear.
type CreateAPIKeyOutput struct {
	Token string
	Key   entity.APIKey
}

// APIKeyUsecase manages the API keys of the authenticated caller.
type APIKeyUsecase interface {
	// Create issues a key whose scopes must all be held by the caller.
	Create(ctx context.Context, caller *entity.AuthorizationResult, input *CreateAPIKeyInput) (*CreateAPIKeyOutput, error)
	List(ctx context.Context, caller *entity.AuthorizationResult) ([]entity.APIKey, error)
	Delete(ctx context.Context, caller *entity.AuthorizationResult, keyID uuid.UUID) error
}
