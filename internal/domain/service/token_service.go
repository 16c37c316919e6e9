package service

import (
	"gatekeeper/internal/domain/entity"
)

// TokenCodec signs credentials into bearer tokens and verifies them back into claims.
// Decode only checks the signature and the token structure; expiry is decided by the caller.
type TokenCodec interface {
	// Encode lays the credential out following its kind's claim mapping and signs it.
	Encode(cred entity.Credential) (string, error)

	// Decode verifies the token and returns its raw claims.
	Decode(token string) (entity.Claims, error)
}
