package postgres

import (
	"context"
	"testing"

	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/domain/repository"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeRepository_EnsureScopesIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewScopeRepository(db)

	require.NoError(t, repo.EnsureScopes(ctx, []string{"users.read", "admin"}))
	require.NoError(t, repo.EnsureScopes(ctx, []string{"admin", "users.write", ""}))
	require.NoError(t, repo.EnsureScopes(ctx, nil))

	scopes, err := repo.FindByNames(ctx, []string{"users.read", "users.write", "admin"})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "users.read", "users.write"}, entity.ScopeSetOf(scopes).Names())
}

func TestScopeRepository_FindByNamesRejectsUnknown(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewScopeRepository(db)
	require.NoError(t, repo.EnsureScopes(ctx, []string{"users.read"}))

	_, err := repo.FindByNames(ctx, []string{"users.read", "billing"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrUnknownScope))
	assert.Contains(t, err.Error(), "billing")

	scopes, err := repo.FindByNames(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, scopes)
}
