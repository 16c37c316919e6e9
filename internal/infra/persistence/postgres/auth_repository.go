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

// identityRepository implements the domain.IdentityRepository interface.
type identityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository is the constructor for identityRepository.
func NewIdentityRepository(db *gorm.DB) repository.IdentityRepository {
	return &identityRepository{db: db}
}

// Link persists the provider identity. An existing link for the same subject is kept.
func (repo *identityRepository) Link(ctx context.Context, identity *entity.Identity) error {
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	identityM := fromIdentityDomain(identity)

	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "subject"}},
			DoNothing: true,
		}).
		Create(identityM).Error
	if err != nil {
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrUserCreationFailed.WrapMessage("invalid user reference")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to link identity")
	}

	identity.CreatedAt = identityM.CreatedAt

	return nil
}

// FindByProviderSubject retrieves an identity link by its provider and provider-specific subject.
func (repo *identityRepository) FindByProviderSubject(ctx context.Context, provider entity.ProviderType, subject string) (*entity.Identity, error) {
	var identityM model.IdentityModel
	err := repo.db.WithContext(ctx).
		Where("provider = ? AND subject = ?", string(provider), subject).
		First(&identityM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrIdentityNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toIdentityDomain(&identityM), nil
}

// toIdentityDomain converts a GORM IdentityModel to a domain Identity entity.
func toIdentityDomain(data *model.IdentityModel) *entity.Identity {
	return &entity.Identity{
		ID:        data.ID,
		UserID:    data.UserID,
		Provider:  entity.ProviderType(data.Provider),
		Subject:   data.Subject,
		CreatedAt: data.CreatedAt,
	}
}

// fromIdentityDomain converts a domain Identity entity to a GORM IdentityModel.
func fromIdentityDomain(data *entity.Identity) *model.IdentityModel {
	return &model.IdentityModel{
		ID:       data.ID,
		UserID:   data.UserID,
		Provider: string(data.Provider),
		Subject:  data.Subject,
	}
}
