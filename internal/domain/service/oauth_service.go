package service

import (
	"context"

	"gatekeeper/internal/domain/entity"
)

// IdentityVerifier defines the interface for verifying social login tokens.
// This is specifically for ID token verification (like Google ID tokens).
type IdentityVerifier interface {
	// VerifyIDToken verifies an ID token and returns the identity it vouches for.
	VerifyIDToken(ctx context.Context, idToken string) (*entity.SocialIdentity, error)

	// GetProvider returns the provider type
	GetProvider() entity.ProviderType
}
