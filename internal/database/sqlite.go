package database

import (
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/notebook/internal/notebook"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenSQLite establishes a SQLite connection, migrates the notebook schema and
// makes sure the root folder exists.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(logger),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	models := append(notebook.Models(), &migrationRecord{})
	if err := db.AutoMigrate(models...); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := applyMigrations(db, logger, schemaMigrations(logger)); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}

const gormSlowQueryThreshold = 200 * time.Millisecond

// gormLogWriter forwards gorm's formatted log lines to zap.
type gormLogWriter struct {
	logger *zap.Logger
}

func (w gormLogWriter) Printf(format string, args ...any) {
	w.logger.Warn("gorm", zap.String("detail", fmt.Sprintf(format, args...)))
}

// newGormLogger reports failed and slow statements through zap. Lookups that
// find nothing are expected by the store and stay quiet.
func newGormLogger(logger *zap.Logger) gormlogger.Interface {
	if logger == nil {
		return gormlogger.Default.LogMode(gormlogger.Silent)
	}
	return gormlogger.New(gormLogWriter{logger: logger.Named("gorm")}, gormlogger.Config{
		SlowThreshold:             gormSlowQueryThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
