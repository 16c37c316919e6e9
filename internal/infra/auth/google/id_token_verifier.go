// Package google verifies Google Sign-In ID tokens.
package google

import (
	"context"
	"log/slog"

	"gatekeeper/config"
	"gatekeeper/internal/domain/entity"
	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/domain/service"

	"github.com/pkg/errors"
	"google.golang.org/api/idtoken"
)

// ErrEmailNotVerified is returned when Google has not verified the token's email.
var ErrEmailNotVerified = errors.New("email not verified")

var validIssuers = map[string]bool{
	"https://accounts.google.com": true,
	"accounts.google.com":         true,
}

// ValidateFunc checks the signature, audience and expiry of an ID token.
type ValidateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// Verifier implements service.IdentityVerifier for Google ID tokens
type Verifier struct {
	clientID string
	validate ValidateFunc
	logger   *slog.Logger
}

// NewVerifier creates a verifier backed by Google's public keys
func NewVerifier(cfg *config.Config, logger *slog.Logger) service.IdentityVerifier {
	return NewVerifierWithValidator(cfg, logger, idtoken.Validate)
}

// NewVerifierWithValidator creates a verifier with a custom validation function
func NewVerifierWithValidator(cfg *config.Config, logger *slog.Logger, validate ValidateFunc) *Verifier {
	var clientID string
	if cfg.GoogleOAuth != nil {
		clientID = cfg.GoogleOAuth.ClientID
	}

	return &Verifier{
		clientID: clientID,
		validate: validate,
		logger:   logger,
	}
}

// VerifyIDToken implements service.IdentityVerifier
func (v *Verifier) VerifyIDToken(ctx context.Context, idToken string) (*entity.SocialIdentity, error) {
	if v.clientID == "" {
		return nil, domainerrors.ErrOAuthNotConfigured.WrapMessage("google client id is empty")
	}

	payload, err := v.validate(ctx, idToken, v.clientID)
	if err != nil {
		v.logger.Warn("Google ID token rejected", slog.Any("error", err))

		return nil, errors.Wrap(err, "token verification failed")
	}

	if !validIssuers[payload.Issuer] {
		return nil, errors.Errorf("invalid issuer: %s", payload.Issuer)
	}

	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	name, _ := payload.Claims["name"].(string)

	if email == "" || !verified {
		return nil, errors.Wrapf(ErrEmailNotVerified, "subject %s", payload.Subject)
	}

	v.logger.Debug("Google ID token verified", slog.String("subject", payload.Subject))

	return &entity.SocialIdentity{
		Provider:      entity.ProviderTypeGoogle,
		Subject:       payload.Subject,
		Email:         email,
		EmailVerified: verified,
		Name:          name,
	}, nil
}

// GetProvider returns the provider type
func (v *Verifier) GetProvider() entity.ProviderType {
	return entity.ProviderTypeGoogle
}
