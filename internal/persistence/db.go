package persistence

import (
	"context"
	"database/sql"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tangle/internal/config"
)

type DB struct {
	db     *gorm.DB
	Config *config.Config
}

// New wraps an already opened gorm connection. Used by tests; production
// connections are opened in Init.
func New(db *gorm.DB) *DB {
	return &DB{db: db}
}

func (db *DB) Init(_ context.Context) error {
	gormDB, err := gorm.Open(postgres.Open(db.Config.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return err
	}

	db.db = gormDB

	return nil
}

func (db *DB) WithContext(ctx context.Context) *gorm.DB {
	return db.db.WithContext(ctx)
}

func (db *DB) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return db.db.WithContext(ctx).Transaction(fn)
}

func (db *DB) EstimatedCount(tableName string) (int64, error) {
	var count int64
	return count, db.db.Raw(
		`SELECT reltuples::bigint AS count
				FROM pg_class
				WHERE relname = ?`, tableName,
	).Scan(&count).Error
}

func (db *DB) DB() (*sql.DB, error) {
	return db.db.DB()
}

func (db *DB) HealthCheck(ctx context.Context) error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (db *DB) Shutdown(_ context.Context) error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return nil
	}
	return sqlDB.Close()
}
