package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thereayou/study-room/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ParseDialector picks a gorm driver from the DATABASE_URL scheme:
// postgres:// or postgresql:// for Postgres, sqlite:<path> for SQLite.
func ParseDialector(dsn string) (gorm.Dialector, error) {
	switch {
	case dsn == "":
		return nil, errors.New("DATABASE_URL is not set")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return postgres.Open(dsn), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite:"), "//")), nil
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme: %q", dsn)
	}
}

// Connect opens the database for dsn and migrates the schema.
func Connect(dsn string) (*Database, error) {
	dialector, err := ParseDialector(dsn)
	if err != nil {
		return nil, err
	}
	return Open(dialector, logger.Default.LogMode(logger.Warn))
}

func Open(dialector gorm.Dialector, log logger.Interface) (*Database, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         log,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	// SQLite only supports one writer; serialize on a single connection.
	if dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Room{}, &models.RoomMember{}, &models.Message{}); err != nil {
		return nil, err
	}

	return NewDatabase(db), nil
}
