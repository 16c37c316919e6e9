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

// userRepository implements the domain.UserRepository interface using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository is the constructor for userRepository.
// It returns the repository as a domain.UserRepository interface, adhering to dependency inversion.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// FindByID retrieves a single user by their unique ID.
func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return repo.findOne(ctx, "id = ?", id)
}

// FindByEmail retrieves a single user by their email address.
func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return repo.findOne(ctx, "email = ?", email)
}

// FindByPhoneNumber retrieves a single user by their E.164 phone number.
func (repo *userRepository) FindByPhoneNumber(ctx context.Context, phoneNumber string) (*entity.User, error) {
	return repo.findOne(ctx, "phone_number = ?", phoneNumber)
}

func (repo *userRepository) findOne(ctx context.Context, query string, arg any) (*entity.User, error) {
	var userM model.UserModel
	if err := repo.db.WithContext(ctx).Where(query, arg).First(&userM).Error; err != nil {
		// If the error is 'record not found', return a domain-specific error.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user")
	}

	return toUserDomain(&userM), nil
}

// Create persists a new user entity. The caller assigns the ID.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Username != nil {
		taken, err := repo.usernameTaken(ctx, *user.Username)
		if err != nil {
			return err
		}
		if taken {
			return errors.WithStack(repository.ErrUsernameTaken)
		}
	}

	userM := fromUserDomain(user)
	if err := repo.db.WithContext(ctx).Create(userM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return errors.WithStack(repository.ErrUserAlreadyExists)
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrUserCreationFailed.WrapMessage("missing required user information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create user")
	}

	user.CreatedAt = userM.CreatedAt
	user.UpdatedAt = userM.UpdatedAt

	return nil
}

func (repo *userRepository) usernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&model.UserModel{}).Where("username = ?", username).Count(&count).Error
	if err != nil {
		return false, domainerrors.NewDatabaseExecuteError(err, "failed to check username")
	}

	return count > 0, nil
}

// --- Mapper Functions ---
// These helpers convert between domain entities and persistence models.

// toUserDomain converts a GORM UserModel to a domain User entity.
func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	return &entity.User{
		ID:             data.ID,
		Email:          data.Email,
		PhoneNumber:    data.PhoneNumber,
		Username:       data.Username,
		HashedPassword: data.HashedPassword,
		RoleID:         entity.Role(data.RoleID),
		CreatedAt:      data.CreatedAt,
		UpdatedAt:      data.UpdatedAt,
	}
}

// fromUserDomain converts a domain User entity to a GORM UserModel for persistence.
func fromUserDomain(data *entity.User) *model.UserModel {
	if data == nil {
		return nil
	}

	return &model.UserModel{
		ID:             data.ID,
		Email:          data.Email,
		PhoneNumber:    data.PhoneNumber,
		Username:       data.Username,
		HashedPassword: data.HashedPassword,
		RoleID:         data.RoleID.String(),
	}
}
