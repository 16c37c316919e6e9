package postgres

import (
	"context"
	"testing"

	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUserRepository_CreateAndFind(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	user := &entity.User{
		ID:             uuid.New(),
		Email:          "alice@example.com",
		PhoneNumber:    strPtr("+886912345678"),
		Username:       strPtr("alice"),
		HashedPassword: strPtr("$2a$04$hash"),
		RoleID:         entity.RoleAdmin,
	}
	require.NoError(t, repo.Create(ctx, user))
	assert.False(t, user.CreatedAt.IsZero())

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
	assert.Equal(t, entity.RoleAdmin, byID.RoleID)
	assert.True(t, byID.IsPublic())
	assert.True(t, byID.CanUsePassword())

	byEmail, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byPhone, err := repo.FindByPhoneNumber(ctx, "+886912345678")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byPhone.ID)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, repository.ErrUserNotFound))
}

func TestUserRepository_CreateRejectsDuplicates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	require.NoError(t, repo.Create(ctx, &entity.User{Email: "bob@example.com", Username: strPtr("bob"), RoleID: entity.RoleUser}))

	err := repo.Create(ctx, &entity.User{Email: "bob@example.com", RoleID: entity.RoleUser})
	assert.True(t, errors.Is(err, repository.ErrUserAlreadyExists))

	err = repo.Create(ctx, &entity.User{Email: "robert@example.com", Username: strPtr("bob"), RoleID: entity.RoleUser})
	assert.True(t, errors.Is(err, repository.ErrUsernameTaken))
}

func TestUserRepository_PasswordlessUser(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "nopass@example.com")

	found, err := NewUserRepository(db).FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, found.CanUsePassword())
	assert.False(t, found.IsPublic())
}
