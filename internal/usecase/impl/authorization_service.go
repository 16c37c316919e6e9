package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "gatekeeper/internal/delivery/context"
	"gatekeeper/internal/domain/entity"
	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/domain/repository"
	"gatekeeper/internal/domain/service"
	"gatekeeper/internal/usecase"
	"gatekeeper/internal/util"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/thejerf/abtime"
	"go.uber.org/fx"
)

// authorizationService implements the AuthorizationUsecase interface.
type authorizationService struct {
	txManager repository.TransactionManager
	resolver  *Resolver
	minter    *minter
	hasher    service.PasswordHasher
	metrics   service.AuthMetrics
	policy    *entity.AuthPolicy
	logger    *slog.Logger
}

// AuthorizationServiceParams holds dependencies for AuthorizationService, injected by Fx.
type AuthorizationServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	Resolver  *Resolver
	Codec     service.TokenCodec
	Hasher    service.PasswordHasher
	Clock     abtime.AbstractTime
	Metrics   service.AuthMetrics
	Policy    *entity.AuthPolicy
	Logger    *slog.Logger
}

// NewAuthorizationService is the constructor for authorizationService.
func NewAuthorizationService(params AuthorizationServiceParams) usecase.AuthorizationUsecase {
	return &authorizationService{
		txManager: params.TxManager,
		resolver:  params.Resolver,
		minter:    newMinter(params.Codec, params.Clock, params.Policy),
		hasher:    params.Hasher,
		metrics:   params.Metrics,
		policy:    params.Policy,
		logger:    params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authorizationService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Resolve authorizes a bearer token. Lazy revocations are committed even when the
// resolution fails.
func (srv *authorizationService) Resolve(ctx context.Context, input *usecase.ResolveInput) (*entity.AuthorizationResult, error) {
	var eval *Evaluation

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		eval, err = srv.resolver.ResolveIn(ctx, repoFactory, input)

		return err
	})
	if err != nil {
		srv.log(ctx).Error("Failed to resolve authorization", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to resolve authorization")
	}

	srv.resolver.Observe(eval)
	if eval.Failure != nil {
		srv.log(ctx).Debug("Authorization rejected",
			slog.String("kind", eval.Kind.String()),
			slog.String("reason", eval.Failure.ErrorCode()),
			slog.Int("revoked", len(eval.Revocations)),
		)

		return nil, eval.Failure
	}

	return eval.Result, nil
}

// Issue mints a credential of any kind.
func (srv *authorizationService) Issue(ctx context.Context, input *usecase.IssueInput) (*usecase.IssueOutput, error) {
	srv.log(ctx).Debug("Issuing credential", slog.String("kind", input.Kind.String()))

	var (
		cred  entity.Credential
		token string
		err   error
	)

	if input.Kind == entity.KindSignUp {
		cred, token, err = srv.issueSignUp(input)
	} else {
		cred, token, err = srv.issuePersisted(ctx, input)
	}
	if err != nil {
		srv.log(ctx).Warn("Failed to issue credential", slog.String("kind", input.Kind.String()), slog.Any("error", err))

		return nil, err
	}

	srv.metrics.ObserveIssued(cred.Kind())

	return &usecase.IssueOutput{Token: token, Credential: entity.DescriptorOf(cred)}, nil
}

func (srv *authorizationService) issueSignUp(input *usecase.IssueInput) (entity.Credential, string, error) {
	email, err := util.NormalizeEmail(input.Email)
	if err != nil {
		return nil, "", errors.Wrap(domainerrors.ErrValidationFailed, err.Error())
	}

	cred, err := srv.minter.signUp(email, lifetimeOr(input.Lifetime, srv.policy.SignUpLifetime))
	if err != nil {
		return nil, "", err
	}
	token, err := srv.minter.encode(cred)
	if err != nil {
		return nil, "", err
	}

	return cred, token, nil
}

func (srv *authorizationService) issuePersisted(ctx context.Context, input *usecase.IssueInput) (entity.Credential, string, error) {
	var (
		cred  entity.Credential
		token string
	)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if _, err := repoFactory.NewUserRepository().FindByID(ctx, input.UserID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return errors.Wrap(domainerrors.ErrNotFound, "credential owner not found")
			}

			return errors.Wrap(err, "failed to find credential owner")
		}

		var err error
		cred, err = srv.buildPersisted(input)
		if err != nil {
			return err
		}
		token, err = srv.minter.persist(ctx, repoFactory, cred)

		return err
	})
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to issue credential")
	}

	return cred, token, nil
}

func (srv *authorizationService) buildPersisted(input *usecase.IssueInput) (entity.Credential, error) {
	switch input.Kind {
	case entity.KindAccessToken:
		return srv.minter.accessToken(input.UserID, lifetimeOr(input.Lifetime, srv.policy.AccessTokenLifetime))
	case entity.KindAPIKey:
		if input.Name == "" {
			return nil, errors.Wrap(domainerrors.ErrValidationFailed, "api key name is required")
		}

		return srv.minter.apiKey(input.UserID, input.Name, entity.NewScopeSet(input.Scopes...),
			lifetimeOr(input.Lifetime, srv.policy.APIKeyLifetime))
	case entity.KindOTP:
		if input.Code == "" {
			return nil, errors.Wrap(domainerrors.ErrValidationFailed, "otp code is required")
		}
		hashed, err := srv.hasher.Hash(input.Code)
		if err != nil {
			return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
		}

		return srv.minter.otp(input.UserID, hashed)
	default:
		return nil, errors.Wrapf(domainerrors.ErrValidationFailed, "unknown credential kind %q", input.Kind)
	}
}

// Revoke deletes the credential the descriptor names. Missing rows and JWT-only kinds
// are not an error.
func (srv *authorizationService) Revoke(ctx context.Context, credential entity.Descriptor) error {
	if !credential.Kind.Persisted() {
		return nil
	}

	id, err := uuid.Parse(credential.ID)
	if err != nil {
		return errors.Wrap(domainerrors.ErrValidationFailed, "credential id is not a uuid")
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.NewCredentialRepository().DeleteByID(ctx, credential.Kind, id)
	})
	if err != nil {
		srv.log(ctx).Error("Failed to revoke credential", slog.String("kind", credential.Kind.String()), slog.Any("error", err))

		return errors.Wrap(err, "failed to revoke credential")
	}

	srv.metrics.ObserveRevoked(credential.Kind, 1)
	srv.log(ctx).Info("Credential revoked", slog.String("kind", credential.Kind.String()), slog.String("credential_id", credential.ID))

	return nil
}

// RevokeAll deletes every credential of the kind owned by the user.
func (srv *authorizationService) RevokeAll(ctx context.Context, userID uuid.UUID, kind entity.CredentialKind) (int64, error) {
	if !kind.Persisted() {
		return 0, nil
	}

	var removed int64
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		removed, err = repoFactory.NewCredentialRepository().DeleteByOwnerAndKind(ctx, userID, kind)

		return err
	})
	if err != nil {
		srv.log(ctx).Error("Failed to revoke credentials", slog.Any("user_id", userID), slog.Any("error", err))

		return 0, errors.Wrap(err, "failed to revoke credentials")
	}

	srv.metrics.ObserveRevoked(kind, int(removed))
	srv.log(ctx).Info("Credentials revoked", slog.Any("user_id", userID), slog.String("kind", kind.String()), slog.Int64("count", removed))

	return removed, nil
}

func lifetimeOr(requested, fallback time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}

	return fallback
}
