package postgres

import (
	"context"
	"testing"
	"time"

	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/domain/repository"
	"gatekeeper/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialRepository_AccessTokenLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCredentialRepository(db)
	user := seedUser(t, db, "owner@example.com")

	token := entity.AccessToken{ID: uuid.New(), UserID: user.ID, Lifetime: testLifetime(t, baseTime, time.Hour)}
	require.NoError(t, repo.Create(ctx, token))

	fetched, err := repo.FetchByID(ctx, entity.KindAccessToken, token.ID)
	require.NoError(t, err)
	assert.Equal(t, token, fetched)

	require.NoError(t, repo.DeleteByID(ctx, entity.KindAccessToken, token.ID))
	// Deleting again is a no-op.
	require.NoError(t, repo.DeleteByID(ctx, entity.KindAccessToken, token.ID))

	_, err = repo.FetchByID(ctx, entity.KindAccessToken, token.ID)
	assert.True(t, errors.Is(err, repository.ErrCredentialNotFound))
}

func TestCredentialRepository_SignUpIsNotPersisted(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCredentialRepository(db)

	err := repo.Create(ctx, entity.SignUp{Email: "new@example.com", Lifetime: testLifetime(t, baseTime, time.Hour)})
	assert.True(t, errors.Is(err, repository.ErrCredentialNotPersisted))

	_, err = repo.FetchByID(ctx, entity.KindSignUp, uuid.New())
	assert.True(t, errors.Is(err, repository.ErrCredentialNotPersisted))
}

func TestCredentialRepository_APIKeyScopes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCredentialRepository(db)
	user := seedUser(t, db, "keys@example.com")
	require.NoError(t, NewScopeRepository(db).EnsureScopes(ctx, []string{"users.read", "reports.export", "admin"}))

	key := entity.APIKey{
		ID:       uuid.New(),
		UserID:   user.ID,
		Name:     "ci",
		Scopes:   entity.NewScopeSet("users.read", "reports.export"),
		Lifetime: testLifetime(t, baseTime, 24*time.Hour),
	}
	require.NoError(t, repo.Create(ctx, key))

	fetched, err := repo.FetchByID(ctx, entity.KindAPIKey, key.ID)
	require.NoError(t, err)
	assert.Equal(t, key, fetched)

	scopes, err := NewScopeRepository(db).ScopesForAPIKey(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"reports.export", "users.read"}, scopes.Names())

	t.Run("name is unique per owner", func(t *testing.T) {
		dup := key
		dup.ID = uuid.New()
		err := repo.Create(ctx, dup)
		assert.True(t, errors.Is(err, repository.ErrAPIKeyNameTaken))

		other := seedUser(t, db, "other@example.com")
		dup.UserID = other.ID
		assert.NoError(t, repo.Create(ctx, dup))
	})

	t.Run("unknown scope is rejected", func(t *testing.T) {
		bad := entity.APIKey{
			ID:       uuid.New(),
			UserID:   user.ID,
			Name:     "bad",
			Scopes:   entity.NewScopeSet("nope"),
			Lifetime: testLifetime(t, baseTime, time.Hour),
		}
		err := repo.Create(ctx, bad)
		assert.True(t, errors.Is(err, repository.ErrUnknownScope))
	})

	t.Run("delete removes join rows", func(t *testing.T) {
		require.NoError(t, repo.DeleteByID(ctx, entity.KindAPIKey, key.ID))

		var count int64
		require.NoError(t, db.Model(&model.APIKeyScopeModel{}).Where("api_key_id = ?", key.ID).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestCredentialRepository_DeleteByOwnerAndKind(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCredentialRepository(db)
	owner := seedUser(t, db, "owner@example.com")
	bystander := seedUser(t, db, "bystander@example.com")

	for range 3 {
		require.NoError(t, repo.Create(ctx, entity.AccessToken{ID: uuid.New(), UserID: owner.ID, Lifetime: testLifetime(t, baseTime, time.Hour)}))
	}
	kept := entity.AccessToken{ID: uuid.New(), UserID: bystander.ID, Lifetime: testLifetime(t, baseTime, time.Hour)}
	require.NoError(t, repo.Create(ctx, kept))
	otp := entity.OTP{ID: uuid.New(), UserID: owner.ID, HashedCode: "hash", Lifetime: testLifetime(t, baseTime, time.Minute)}
	require.NoError(t, repo.Create(ctx, otp))

	count, err := repo.DeleteByOwnerAndKind(ctx, owner.ID, entity.KindAccessToken)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	count, err = repo.DeleteByOwnerAndKind(ctx, owner.ID, entity.KindAccessToken)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = repo.FetchByID(ctx, entity.KindAccessToken, kept.ID)
	assert.NoError(t, err)
	_, err = repo.FetchByID(ctx, entity.KindOTP, otp.ID)
	assert.NoError(t, err)
}

func TestCredentialRepository_ListOTPsByUser_MostRecentFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCredentialRepository(db)
	user := seedUser(t, db, "otp@example.com")

	var ids []uuid.UUID
	for i := range 3 {
		otp := entity.OTP{
			ID:         uuid.New(),
			UserID:     user.ID,
			HashedCode: "hash",
			Lifetime:   testLifetime(t, baseTime.Add(time.Duration(i)*time.Minute), 10*time.Minute),
		}
		require.NoError(t, repo.Create(ctx, otp))
		ids = append(ids, otp.ID)
	}

	otps, err := repo.ListOTPsByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, otps, 3)
	assert.Equal(t, ids[2], otps[0].ID)
	assert.Equal(t, ids[1], otps[1].ID)
	assert.Equal(t, ids[0], otps[2].ID)
	assert.Equal(t, "hash", otps[0].HashedCode)
}

func TestCredentialRepository_ListAPIKeysByUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewCredentialRepository(db)
	user := seedUser(t, db, "keys@example.com")
	require.NoError(t, NewScopeRepository(db).EnsureScopes(ctx, []string{"users.read"}))

	older := entity.APIKey{ID: uuid.New(), UserID: user.ID, Name: "older", Scopes: entity.NewScopeSet("users.read"), Lifetime: testLifetime(t, baseTime, time.Hour)}
	newer := entity.APIKey{ID: uuid.New(), UserID: user.ID, Name: "newer", Scopes: entity.NewScopeSet("users.read"), Lifetime: testLifetime(t, baseTime.Add(time.Minute), time.Hour)}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	keys, err := repo.ListAPIKeysByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []entity.APIKey{newer, older}, keys)
}
