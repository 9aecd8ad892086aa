package storage

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgres opens the results database and migrates the given models.
// An empty dsn disables the database and returns nil.
func NewPostgres(dsn string, models ...any) (*gorm.DB, error) {
	if dsn == "" {
		return nil, nil
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("can't migrate database: %w", err)
	}

	return db, nil
}
