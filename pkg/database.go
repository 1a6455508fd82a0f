package pkg

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sabaq-center/sabaq-service/internal/config"
	"github.com/sabaq-center/sabaq-service/internal/models"
)

// InitDatabase opens the Postgres connection and runs schema migration.
// TranslateError is required: the attendance uniqueness guarantee relies on
// gorm.ErrDuplicatedKey surfacing from the (session_id, user_id) constraint.
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormLogLevel := logger.Warn
	if cfg.Environment == "development" {
		gormLogLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(gormLogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return db, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Location{},
		&models.Sabaq{},
		&models.SabaqAdmin{},
		&models.Session{},
		&models.Enrollment{},
		&models.Attendance{},
		&models.Question{},
		&models.QuestionVote{},
		&models.EmailLog{},
		&models.SecurityLog{},
	)
}
