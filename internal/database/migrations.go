package database

import (
	"context"
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/notebook/internal/notebook"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationBootstrapRootFolder = "2026-10-01_bootstrap_root_folder"
	migrationSeedDemoNotebook    = "2026-10-01_seed_demo_notebook"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func schemaMigrations(logger *zap.Logger) []migrationDefinition {
	return []migrationDefinition{
		{name: migrationBootstrapRootFolder, apply: func(db *gorm.DB) error {
			return bootstrapRootFolder(db, logger)
		}},
	}
}

// SeedDemo loads the sample notebook once per database. Later calls are
// skipped through the migration ledger.
func SeedDemo(db *gorm.DB, logger *zap.Logger) error {
	return applyMigrations(db, logger, []migrationDefinition{
		{name: migrationSeedDemoNotebook, apply: func(db *gorm.DB) error {
			return seedDemoNotebook(db, logger)
		}},
	})
}

func applyMigrations(db *gorm.DB, logger *zap.Logger, migrations []migrationDefinition) error {
	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := migration.apply(tx); err != nil {
				return err
			}
			appliedAt := time.Now().UTC().Unix()
			return tx.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error
		})
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

func bootstrapRootFolder(db *gorm.DB, logger *zap.Logger) error {
	cfg, err := notebookConfig(db, logger)
	if err != nil {
		return err
	}
	_, err = notebook.EnsureRoot(context.Background(), cfg)
	return err
}

func seedDemoNotebook(db *gorm.DB, logger *zap.Logger) error {
	cfg, err := notebookConfig(db, logger)
	if err != nil {
		return err
	}
	return notebook.SeedDemo(context.Background(), cfg)
}

func notebookConfig(db *gorm.DB, logger *zap.Logger) (notebook.ServiceConfig, error) {
	store, err := notebook.NewGormStore(db)
	if err != nil {
		return notebook.ServiceConfig{}, err
	}
	return notebook.ServiceConfig{
		Store:      store,
		IDProvider: notebook.NewUUIDProvider(),
		Logger:     logger,
	}, nil
}
