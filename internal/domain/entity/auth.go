package entity

import (
	"time"

	"github.com/google/uuid"
)

// ProviderType names an external identity provider used for social login.
type ProviderType string

const (
	// ProviderTypeGoogle is Google Sign-In.
	ProviderTypeGoogle ProviderType = "google"
)

// SocialIdentity is the verified identity returned by a social provider.
type SocialIdentity struct {
	Provider      ProviderType // The provider that vouched for the identity.
	Subject       string       // Provider-specific user id (Google's 'sub' claim).
	Email         string       // Address the provider verified.
	EmailVerified bool         // Only verified addresses may log in.
	Name          string       // Display name, informational.
}

// Identity links a provider subject to a local user.
type Identity struct {
	ID        uuid.UUID    // Unique identifier for the link.
	UserID    uuid.UUID    // Local user the identity belongs to.
	Provider  ProviderType // Provider that issued the subject.
	Subject   string       // Provider-specific user id.
	CreatedAt time.Time
}
