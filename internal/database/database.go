package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/rolegate/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the SQLite file at dbPath and migrates the credential
// and audit tables. ":memory:" gives a throwaway database.
func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting per connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&entities.User{}, &entities.AuditEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("database initialized")

	return &Database{DB: db}, nil
}

// SQL returns the underlying connection pool, shared with the flash
// message store.
func (d *Database) SQL() (*sql.DB, error) {
	return d.DB.DB()
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CountUsers returns the number of stored credential records.
func (d *Database) CountUsers() (int64, error) {
	var count int64
	err := d.DB.Model(&entities.User{}).Count(&count).Error
	return count, err
}
