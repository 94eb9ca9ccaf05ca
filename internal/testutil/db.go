// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"chatproxy-be/internal/model"
	"chatproxy-be/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB returns an isolated in-memory sqlite database with the full schema.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.NewGormDB(database.GormConfig{
		Driver:   database.DriverSQLite,
		DSN:      dsn,
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, database.EnsureSchema(db, model.All(), model.Indexes()))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
