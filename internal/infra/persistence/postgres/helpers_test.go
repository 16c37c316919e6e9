package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))

	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *entity.User {
	t.Helper()

	user := &entity.User{ID: uuid.New(), Email: email, RoleID: entity.RoleUser}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))

	return user
}

func testLifetime(t *testing.T, issued time.Time, ttl time.Duration) entity.Lifetime {
	t.Helper()

	lt, err := entity.LifetimeFrom(issued, ttl)
	require.NoError(t, err)

	return lt
}

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
