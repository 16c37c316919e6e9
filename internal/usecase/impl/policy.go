// Package impl contains the implementation of the application's business logic.
package impl

import (
	"gatekeeper/config"
	"gatekeeper/internal/domain/entity"

	"github.com/pkg/errors"
)

// NewAuthPolicy converts the validated auth section into the immutable policy shared by
// the resolver and the issuance flows.
func NewAuthPolicy(cfg *config.Config) (*entity.AuthPolicy, error) {
	if cfg == nil || cfg.Auth == nil {
		return nil, errors.New("auth configuration is required")
	}
	auth := cfg.Auth

	roles := make(map[entity.Role][]string, len(auth.Roles))
	for role, scopes := range auth.Roles {
		roles[entity.Role(role)] = scopes
	}

	return &entity.AuthPolicy{
		AccessTokenLifetime:  auth.AccessTokenLifetime,
		StaySignedInLifetime: auth.StaySignedInLifetime,
		MagicLinkLifetime:    auth.MagicLinkLifetime,
		SignUpLifetime:       auth.SignUpLifetime,
		OTPLifetime:          auth.OTPLifetime,
		APIKeyLifetime:       auth.APIKeyLifetime,
		OTPLength:            auth.OTPLength,
		DefaultRole:          entity.Role(auth.DefaultRole),
		Roles:                entity.NewRoleScopes(roles),
		MagicLinkBaseURL:     auth.MagicLinkBaseURL,
		SignUpBaseURL:        auth.SignUpBaseURL,
		DefaultRegion:        auth.DefaultRegion,
	}, nil
}
