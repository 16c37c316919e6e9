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
)

// credentialRepository implements the domain.CredentialRepository interface.
// Each persisted kind has its own table.
type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository is the constructor for credentialRepository.
func NewCredentialRepository(db *gorm.DB) repository.CredentialRepository {
	return &credentialRepository{db: db}
}

// Create stores the credential row. API key scopes are stored in the same statement chain.
func (repo *credentialRepository) Create(ctx context.Context, cred entity.Credential) error {
	db := repo.db.WithContext(ctx)

	var err error
	switch c := cred.(type) {
	case entity.AccessToken:
		err = db.Create(fromAccessTokenDomain(c)).Error
	case entity.OTP:
		err = db.Create(fromOTPDomain(c)).Error
	case entity.APIKey:
		var keyM *model.APIKeyModel
		keyM, err = repo.fromAPIKeyDomain(ctx, c)
		if err != nil {
			return err
		}
		err = db.Create(keyM).Error
		if isUniqueConstraintViolation(err) {
			return errors.Wrapf(repository.ErrAPIKeyNameTaken, "name %q", c.Name)
		}
	default:
		return errors.Wrapf(repository.ErrCredentialNotPersisted, "kind %s", cred.Kind())
	}

	if err != nil {
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrCredentialIssueFailed.WrapMessage("invalid user reference")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create credential")
	}

	return nil
}

// FetchByID loads the stored credential of the given kind.
func (repo *credentialRepository) FetchByID(ctx context.Context, kind entity.CredentialKind, id uuid.UUID) (entity.Credential, error) {
	db := repo.db.WithContext(ctx)

	switch kind {
	case entity.KindAccessToken:
		var tokenM model.AccessTokenModel
		if err := db.Where("id = ?", id).First(&tokenM).Error; err != nil {
			return nil, fetchError(err)
		}

		return toAccessTokenDomain(&tokenM)
	case entity.KindOTP:
		var otpM model.OTPModel
		if err := db.Where("id = ?", id).First(&otpM).Error; err != nil {
			return nil, fetchError(err)
		}

		return toOTPDomain(&otpM)
	case entity.KindAPIKey:
		var keyM model.APIKeyModel
		if err := db.Where("id = ?", id).First(&keyM).Error; err != nil {
			return nil, fetchError(err)
		}
		scopes, err := scopeNamesForKey(db, keyM.ID)
		if err != nil {
			return nil, err
		}

		return toAPIKeyDomain(&keyM, scopes)
	default:
		return nil, errors.Wrapf(repository.ErrCredentialNotPersisted, "kind %s", kind)
	}
}

// DeleteByID removes the row. A missing row is not an error.
func (repo *credentialRepository) DeleteByID(ctx context.Context, kind entity.CredentialKind, id uuid.UUID) error {
	db := repo.db.WithContext(ctx)

	target, err := credentialModelFor(kind)
	if err != nil {
		return err
	}

	if kind == entity.KindAPIKey {
		if err := db.Where("api_key_id = ?", id).Delete(&model.APIKeyScopeModel{}).Error; err != nil {
			return domainerrors.NewDatabaseExecuteError(err, "failed to delete api key scopes")
		}
	}

	if err := db.Where("id = ?", id).Delete(target).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete credential")
	}

	return nil
}

// DeleteByOwnerAndKind removes every credential of the kind owned by the user.
func (repo *credentialRepository) DeleteByOwnerAndKind(ctx context.Context, userID uuid.UUID, kind entity.CredentialKind) (int64, error) {
	db := repo.db.WithContext(ctx)

	target, err := credentialModelFor(kind)
	if err != nil {
		return 0, err
	}

	if kind == entity.KindAPIKey {
		owned := db.Model(&model.APIKeyModel{}).Select("id").Where("user_id = ?", userID)
		if err := db.Where("api_key_id IN (?)", owned).Delete(&model.APIKeyScopeModel{}).Error; err != nil {
			return 0, domainerrors.NewDatabaseExecuteError(err, "failed to delete api key scopes")
		}
	}

	result := db.Where("user_id = ?", userID).Delete(target)
	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete credentials")
	}

	return result.RowsAffected, nil
}

// ListOTPsByUser returns outstanding OTPs, most recently issued first.
func (repo *credentialRepository) ListOTPsByUser(ctx context.Context, userID uuid.UUID) ([]entity.OTP, error) {
	var otpMs []model.OTPModel
	err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Order("created_at DESC").
		Find(&otpMs).Error
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to list otps")
	}

	otps := make([]entity.OTP, 0, len(otpMs))
	for i := range otpMs {
		otp, err := toOTPDomain(&otpMs[i])
		if err != nil {
			return nil, err
		}
		otps = append(otps, otp)
	}

	return otps, nil
}

// ListAPIKeysByUser returns the user's API keys with their scopes, most recently issued first.
func (repo *credentialRepository) ListAPIKeysByUser(ctx context.Context, userID uuid.UUID) ([]entity.APIKey, error) {
	db := repo.db.WithContext(ctx)

	var keyMs []model.APIKeyModel
	err := db.Where("user_id = ?", userID).
		Order("issued_at DESC").
		Order("created_at DESC").
		Find(&keyMs).Error
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to list api keys")
	}

	keys := make([]entity.APIKey, 0, len(keyMs))
	for i := range keyMs {
		scopes, err := scopeNamesForKey(db, keyMs[i].ID)
		if err != nil {
			return nil, err
		}
		key, err := toAPIKeyDomain(&keyMs[i], scopes)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, nil
}

func credentialModelFor(kind entity.CredentialKind) (any, error) {
	switch kind {
	case entity.KindAccessToken:
		return &model.AccessTokenModel{}, nil
	case entity.KindAPIKey:
		return &model.APIKeyModel{}, nil
	case entity.KindOTP:
		return &model.OTPModel{}, nil
	default:
		return nil, errors.Wrapf(repository.ErrCredentialNotPersisted, "kind %s", kind)
	}
}

func fetchError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.WithStack(repository.ErrCredentialNotFound)
	}

	return domainerrors.NewDatabaseExecuteError(err, "failed to fetch credential")
}

func scopeNamesForKey(db *gorm.DB, keyID uuid.UUID) (entity.ScopeSet, error) {
	var names []string
	err := db.Model(&model.APIKeyScopeModel{}).
		Joins("JOIN scopes ON scopes.id = api_key_scopes.scope_id").
		Where("api_key_scopes.api_key_id = ?", keyID).
		Pluck("scopes.name", &names).Error
	if err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to load api key scopes")
	}

	return entity.NewScopeSet(names...), nil
}

// --- Mapper Functions ---

func fromAccessTokenDomain(data entity.AccessToken) *model.AccessTokenModel {
	return &model.AccessTokenModel{
		ID:        data.ID,
		UserID:    data.UserID,
		IssuedAt:  data.Issued,
		ExpiresAt: data.Expiry,
	}
}

func toAccessTokenDomain(data *model.AccessTokenModel) (entity.AccessToken, error) {
	lt, err := entity.NewLifetime(data.IssuedAt, data.ExpiresAt)
	if err != nil {
		return entity.AccessToken{}, errors.Wrapf(err, "access token %s", data.ID)
	}

	return entity.AccessToken{ID: data.ID, UserID: data.UserID, Lifetime: lt}, nil
}

func fromOTPDomain(data entity.OTP) *model.OTPModel {
	return &model.OTPModel{
		ID:         data.ID,
		UserID:     data.UserID,
		HashedCode: data.HashedCode,
		IssuedAt:   data.Issued,
		ExpiresAt:  data.Expiry,
	}
}

func toOTPDomain(data *model.OTPModel) (entity.OTP, error) {
	lt, err := entity.NewLifetime(data.IssuedAt, data.ExpiresAt)
	if err != nil {
		return entity.OTP{}, errors.Wrapf(err, "otp %s", data.ID)
	}

	return entity.OTP{ID: data.ID, UserID: data.UserID, HashedCode: data.HashedCode, Lifetime: lt}, nil
}

// fromAPIKeyDomain resolves scope names to catalogue ids for the join rows.
func (repo *credentialRepository) fromAPIKeyDomain(ctx context.Context, data entity.APIKey) (*model.APIKeyModel, error) {
	keyM := &model.APIKeyModel{
		ID:        data.ID,
		UserID:    data.UserID,
		Name:      data.Name,
		IssuedAt:  data.Issued,
		ExpiresAt: data.Expiry,
	}
	if len(data.Scopes) == 0 {
		return keyM, nil
	}

	scopes, err := NewScopeRepository(repo.db).FindByNames(ctx, data.Scopes.Names())
	if err != nil {
		return nil, err
	}
	for _, s := range scopes {
		keyM.Scopes = append(keyM.Scopes, model.APIKeyScopeModel{APIKeyID: data.ID, ScopeID: s.ID})
	}

	return keyM, nil
}

func toAPIKeyDomain(data *model.APIKeyModel, scopes entity.ScopeSet) (entity.APIKey, error) {
	lt, err := entity.NewLifetime(data.IssuedAt, data.ExpiresAt)
	if err != nil {
		return entity.APIKey{}, errors.Wrapf(err, "api key %s", data.ID)
	}

	return entity.APIKey{
		ID:       data.ID,
		UserID:   data.UserID,
		Name:     data.Name,
		Scopes:   scopes,
		Lifetime: lt,
	}, nil
}
