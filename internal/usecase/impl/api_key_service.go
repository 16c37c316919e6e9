package impl

import (
	"context"
	"log/slog"

	deliverycontext "gatekeeper/internal/delivery/context"
	"gatekeeper/internal/domain/entity"
	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/domain/repository"
	"gatekeeper/internal/domain/service"
	"gatekeeper/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/thejerf/abtime"
	"go.uber.org/fx"
)

// apiKeyService implements the APIKeyUsecase interface.
type apiKeyService struct {
	txManager repository.TransactionManager
	minter    *minter
	authority *ScopeAuthority
	metrics   service.AuthMetrics
	policy    *entity.AuthPolicy
	logger    *slog.Logger
}

// APIKeyServiceParams holds dependencies for APIKeyService, injected by Fx.
type APIKeyServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	Codec     service.TokenCodec
	Authority *ScopeAuthority
	Clock     abtime.AbstractTime
	Metrics   service.AuthMetrics
	Policy    *entity.AuthPolicy
	Logger    *slog.Logger
}

// NewAPIKeyService is the constructor for apiKeyService.
func NewAPIKeyService(params APIKeyServiceParams) usecase.APIKeyUsecase {
	return &apiKeyService{
		txManager: params.TxManager,
		minter:    newMinter(params.Codec, params.Clock, params.Policy),
		authority: params.Authority,
		metrics:   params.Metrics,
		policy:    params.Policy,
		logger:    params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *apiKeyService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Create issues an API key. A caller can only delegate scopes it holds itself.
func (srv *apiKeyService) Create(ctx context.Context, caller *entity.AuthorizationResult, input *usecase.CreateAPIKeyInput) (*usecase.CreateAPIKeyOutput, error) {
	if caller == nil || caller.User == nil {
		return nil, domainerrors.ErrMissingAuthorization
	}

	if input.Name == "" {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, "api key name is required")
	}

	requested := entity.NewScopeSet(input.Scopes...)
	if !srv.authority.RequiredSubset(requested, caller.Scopes) {
		return nil, domainerrors.NotPermitted(requested.Missing(caller.Scopes))
	}

	key, err := srv.minter.apiKey(caller.User.ID, input.Name, requested, lifetimeOr(input.Lifetime, srv.policy.APIKeyLifetime))
	if err != nil {
		return nil, err
	}

	var token string
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		token, err = srv.minter.persist(ctx, repoFactory, key)

		return err
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to create api key", slog.Any("user_id", caller.User.ID), slog.String("name", input.Name), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to create api key")
	}

	srv.metrics.ObserveIssued(entity.KindAPIKey)
	srv.log(ctx).Info("API key created", slog.Any("user_id", caller.User.ID), slog.Any("key_id", key.ID), slog.Any("scopes", key.Scopes.Names()))

	return &usecase.CreateAPIKeyOutput{Token: token, Key: key}, nil
}

// List returns the caller's API keys.
func (srv *apiKeyService) List(ctx context.Context, caller *entity.AuthorizationResult) ([]entity.APIKey, error) {
	if caller == nil || caller.User == nil {
		return nil, domainerrors.ErrMissingAuthorization
	}

	var keys []entity.APIKey
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		keys, err = repoFactory.NewCredentialRepository().ListAPIKeysByUser(ctx, caller.User.ID)

		return err
	})
	if err != nil {
		srv.log(ctx).Error("Failed to list api keys", slog.Any("user_id", caller.User.ID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to list api keys")
	}

	return keys, nil
}

// Delete removes one of the caller's API keys.
func (srv *apiKeyService) Delete(ctx context.Context, caller *entity.AuthorizationResult, keyID uuid.UUID) error {
	if caller == nil || caller.User == nil {
		return domainerrors.ErrMissingAuthorization
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		credRepo := repoFactory.NewCredentialRepository()

		stored, err := credRepo.FetchByID(ctx, entity.KindAPIKey, keyID)
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return errors.Wrap(domainerrors.ErrAPIKeyNotFound, "api key not found")
		}
		if err != nil {
			return errors.Wrap(err, "failed to find api key")
		}

		// Keys of other users are reported as missing.
		if owner, _ := entity.OwnerOf(stored); owner != caller.User.ID {
			return errors.Wrap(domainerrors.ErrAPIKeyNotFound, "api key belongs to another user")
		}

		return credRepo.DeleteByID(ctx, entity.KindAPIKey, keyID)
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to delete api key", slog.Any("key_id", keyID), slog.Any("error", err))

		return errors.Wrap(err, "failed to delete api key")
	}

	srv.metrics.ObserveRevoked(entity.KindAPIKey, 1)
	srv.log(ctx).Info("API key deleted", slog.Any("user_id", caller.User.ID), slog.Any("key_id", keyID))

	return nil
}
