package postgres

import (
	"context"

	"gatekeeper/internal/domain/entity"
	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/domain/repository"
	"gatekeeper/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// scopeRepository implements the domain.ScopeRepository interface.
type scopeRepository struct {
	db *gorm.DB
}

// NewScopeRepository is the constructor for scopeRepository.
func NewScopeRepository(db *gorm.DB) repository.ScopeRepository {
	return &scopeRepository{db: db}
}

// ScopesForAPIKey returns the scope names granted to an API key through the join table.
func (repo *scopeRepository) ScopesForAPIKey(ctx context.Context, keyID uuid.UUID) (entity.ScopeSet, error) {
	return scopeNamesForKey(repo.db.WithContext(ctx), keyID)
}

// FindByNames returns the catalogue entries for the names.
func (repo *scopeRepository) FindByNames(ctx context.Context, names []string) ([]entity.Scope, error) {
	wanted := entity.NewScopeSet(names...)
	if len(wanted) == 0 {
		return nil, nil
	}

	var scopeMs []model.ScopeModel
	if err := repo.db.WithContext(ctx).Where("name IN ?", wanted.Names()).Find(&scopeMs).Error; err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find scopes")
	}

	scopes := make([]entity.Scope, 0, len(scopeMs))
	for _, s := range scopeMs {
		scopes = append(scopes, entity.Scope{ID: s.ID, Name: s.Name})
	}

	if missing := wanted.Missing(entity.ScopeSetOf(scopes)); len(missing) > 0 {
		return nil, errors.Wrapf(repository.ErrUnknownScope, "%v", missing)
	}

	return scopes, nil
}

// EnsureScopes inserts the names that are not in the catalogue yet.
func (repo *scopeRepository) EnsureScopes(ctx context.Context, names []string) error {
	wanted := entity.NewScopeSet(names...)
	if len(wanted) == 0 {
		return nil
	}

	scopeMs := make([]model.ScopeModel, 0, len(wanted))
	for _, name := range wanted.Names() {
		scopeMs = append(scopeMs, model.ScopeModel{ID: uuid.New(), Name: name})
	}

	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&scopeMs).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to seed scopes")
	}

	return nil
}
