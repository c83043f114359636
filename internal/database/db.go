package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"mkitchen-backend/internal/config"
	"mkitchen-backend/internal/models"
)

var DB *gorm.DB

func Init(cfg *config.Config, logger *logrus.Logger) {
	var err error

	DB, err = Open(dialector(cfg), logger)
	if err != nil {
		logger.Fatalf("could not connect to database: %v", err)
	}

	if err := Migrate(DB); err != nil {
		logger.Fatalf("AutoMigrate failed: %v", err)
	}

	logger.Info("database connected, migration complete")
}

func dialector(cfg *config.Config) gorm.Dialector {
	if cfg.DBDriver == "mysql" {
		return mysql.Open(cfg.DatabaseDSN)
	}
	return postgres.Open(cfg.DatabaseDSN)
}

// Open connects with duplicate-key errors translated to gorm.ErrDuplicatedKey
// so the ledgers can tell a lost race from a broken connection.
func Open(d gorm.Dialector, logger *logrus.Logger) (*gorm.DB, error) {
	gcfg := &gorm.Config{TranslateError: true}
	if logger != nil {
		gcfg.Logger = gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	} else {
		gcfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	db, err := gorm.Open(d, gcfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Dialect is the name of the active SQL dialect ("postgres", "mysql", "sqlite").
func Dialect(db *gorm.DB) string {
	return db.Dialector.Name()
}
