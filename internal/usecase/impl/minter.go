package impl

import (
	"context"
	"time"

	"gatekeeper/internal/domain/entity"
	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/domain/repository"
	"gatekeeper/internal/domain/service"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/thejerf/abtime"
)

// minter builds credentials stamped with the current time, stores the persisted ones and
// signs them. Callers run persist inside a transaction so a signing failure rolls the row back.
type minter struct {
	codec  service.TokenCodec
	clock  abtime.AbstractTime
	policy *entity.AuthPolicy
}

func newMinter(codec service.TokenCodec, clock abtime.AbstractTime, policy *entity.AuthPolicy) *minter {
	return &minter{codec: codec, clock: clock, policy: policy}
}

func (m *minter) lifetime(ttl time.Duration) (entity.Lifetime, error) {
	lt, err := entity.LifetimeFrom(m.clock.Now(), ttl)
	if err != nil {
		return entity.Lifetime{}, errors.Wrap(domainerrors.ErrValidationFailed, err.Error())
	}

	return lt, nil
}

func (m *minter) sessionLifetime(staySignedIn bool) time.Duration {
	if staySignedIn {
		return m.policy.StaySignedInLifetime
	}

	return m.policy.AccessTokenLifetime
}

func (m *minter) accessToken(userID uuid.UUID, ttl time.Duration) (entity.AccessToken, error) {
	lt, err := m.lifetime(ttl)
	if err != nil {
		return entity.AccessToken{}, err
	}

	return entity.AccessToken{ID: uuid.New(), UserID: userID, Lifetime: lt}, nil
}

func (m *minter) otp(userID uuid.UUID, hashedCode string) (entity.OTP, error) {
	lt, err := m.lifetime(m.policy.OTPLifetime)
	if err != nil {
		return entity.OTP{}, err
	}

	return entity.OTP{ID: uuid.New(), UserID: userID, HashedCode: hashedCode, Lifetime: lt}, nil
}

func (m *minter) apiKey(userID uuid.UUID, name string, scopes entity.ScopeSet, ttl time.Duration) (entity.APIKey, error) {
	lt, err := m.lifetime(ttl)
	if err != nil {
		return entity.APIKey{}, err
	}

	return entity.APIKey{ID: uuid.New(), UserID: userID, Name: name, Scopes: scopes, Lifetime: lt}, nil
}

func (m *minter) signUp(email string, ttl time.Duration) (entity.SignUp, error) {
	lt, err := m.lifetime(ttl)
	if err != nil {
		return entity.SignUp{}, err
	}

	return entity.SignUp{Email: email, Lifetime: lt}, nil
}

// persist stores cred and returns its signed token.
func (m *minter) persist(ctx context.Context, repos repository.RepositoryFactory, cred entity.Credential) (string, error) {
	if err := repos.NewCredentialRepository().Create(ctx, cred); err != nil {
		return "", translateCredentialError(err)
	}

	return m.encode(cred)
}

func (m *minter) encode(cred entity.Credential) (string, error) {
	token, err := m.codec.Encode(cred)
	if err != nil {
		return "", errors.Wrap(domainerrors.ErrCredentialIssueFailed, err.Error())
	}

	return token, nil
}

// translateCredentialError maps store sentinels to client-facing errors. Everything else
// stays an infrastructure error.
func translateCredentialError(err error) error {
	switch {
	case errors.Is(err, repository.ErrAPIKeyNameTaken):
		return errors.Wrap(domainerrors.ErrAPIKeyNameTaken, err.Error())
	case errors.Is(err, repository.ErrUnknownScope):
		return errors.Wrap(domainerrors.ErrUnknownScope, err.Error())
	default:
		return errors.Wrap(err, "failed to store credential")
	}
}
