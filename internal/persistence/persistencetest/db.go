// Package persistencetest opens throwaway in-memory databases for tests.
package persistencetest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tangle/internal/core"
	"tangle/internal/persistence"
)

// NewDB returns a persistence.DB backed by a fresh in-memory sqlite database
// with the full schema applied. The single connection serializes concurrent
// access, so goroutine-heavy tests stay deterministic.
func NewDB(t *testing.T) *persistence.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gormDB.AutoMigrate(core.Models()...))

	db := persistence.New(gormDB)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
