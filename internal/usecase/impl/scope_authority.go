package impl

import (
	"context"
	"log/slog"

	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// ScopeAuthority answers which scopes a role or an API key grants.
type ScopeAuthority struct {
	roles entity.RoleScopes
}

// NewScopeAuthority builds the authority over the policy's role table.
func NewScopeAuthority(policy *entity.AuthPolicy) *ScopeAuthority {
	return &ScopeAuthority{roles: policy.Roles}
}

// DefaultScopesForRole returns the scopes every access token of the role carries.
func (a *ScopeAuthority) DefaultScopesForRole(role entity.Role) entity.ScopeSet {
	return a.roles.ScopesFor(role)
}

// ScopesForAPIKey returns the scopes granted to the key through the join table.
func (a *ScopeAuthority) ScopesForAPIKey(ctx context.Context, repos repository.RepositoryFactory, keyID uuid.UUID) (entity.ScopeSet, error) {
	scopes, err := repos.NewScopeRepository().ScopesForAPIKey(ctx, keyID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load api key scopes")
	}

	return scopes, nil
}

// RequiredSubset reports whether available covers required.
func (a *ScopeAuthority) RequiredSubset(required, available entity.ScopeSet) bool {
	return required.SubsetOf(available)
}

// ScopeSeedParams holds the dependencies of SeedScopeCatalogue, injected by Fx.
type ScopeSeedParams struct {
	fx.In

	Lc        fx.Lifecycle
	Policy    *entity.AuthPolicy
	TxManager repository.TransactionManager
	Logger    *slog.Logger
}

// SeedScopeCatalogue makes sure every scope named by a role exists before the server
// starts accepting requests.
func SeedScopeCatalogue(params ScopeSeedParams) {
	params.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			names := params.Policy.Roles.AllScopes().Names()

			err := params.TxManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
				return repoFactory.NewScopeRepository().EnsureScopes(ctx, names)
			})
			if err != nil {
				return errors.Wrap(err, "failed to seed scope catalogue")
			}
			params.Logger.Info("Scope catalogue ready", slog.Int("scopes", len(names)))

			return nil
		},
	})
}
