package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/notebook/internal/notebook"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestOpenSQLiteBootstrapsRootOnce(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "notebook.db")

	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationBootstrapRootFolder).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	if err := applyMigrations(database, zap.NewNop(), schemaMigrations(zap.NewNop())); err != nil {
		testContext.Fatalf("failed to reapply migrations: %v", err)
	}

	var roots int64
	if err := database.Model(&notebook.Folder{}).Where("parent_id IS NULL").Count(&roots).Error; err != nil {
		testContext.Fatalf("failed to count roots: %v", err)
	}
	if roots != 1 {
		testContext.Fatalf("expected exactly one root folder, got %d", roots)
	}
}

func TestSeedDemoRunsOnce(testContext *testing.T) {
	tempDir := testContext.TempDir()
	database, err := OpenSQLite(filepath.Join(tempDir, "seed.db"), zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		if err := SeedDemo(database, zap.NewNop()); err != nil {
			testContext.Fatalf("seed attempt %d failed: %v", attempt, err)
		}
	}

	store, err := notebook.NewGormStore(database)
	if err != nil {
		testContext.Fatalf("failed to construct store: %v", err)
	}
	folders, err := store.Folders().FindAll(context.Background())
	if err != nil {
		testContext.Fatalf("failed to list folders: %v", err)
	}
	if len(folders) != 3 {
		testContext.Fatalf("expected root, Java and iOS, got %d folders", len(folders))
	}
	if _, found, err := store.Tags().FindByName(context.Background(), "Programming Language"); err != nil || !found {
		testContext.Fatalf("expected seeded tag, found=%v err=%v", found, err)
	}
}

func TestOpenSQLiteRequiresPath(testContext *testing.T) {
	if _, err := OpenSQLite("", zap.NewNop()); err == nil {
		testContext.Fatalf("expected error for empty path")
	}
}

func TestSeedDemoSkipsPopulatedTreeAndRecordsLedger(testContext *testing.T) {
	database, err := OpenSQLite(filepath.Join(testContext.TempDir(), "populated.db"), zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	cfg, err := notebookConfig(database, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to build config: %v", err)
	}
	root, err := notebook.EnsureRoot(context.Background(), cfg)
	if err != nil {
		testContext.Fatalf("failed to ensure root: %v", err)
	}
	cfg.RootID = root.ID
	folders, err := notebook.NewFolderManager(cfg)
	if err != nil {
		testContext.Fatalf("failed to construct folder manager: %v", err)
	}
	if _, err := folders.Create(context.Background(), root.ID, "iOS"); err != nil {
		testContext.Fatalf("failed to create folder: %v", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		if err := SeedDemo(database, zap.NewNop()); err != nil {
			testContext.Fatalf("seed attempt %d failed: %v", attempt, err)
		}
	}

	children, err := folders.GetChildren(context.Background(), root.ID)
	if err != nil {
		testContext.Fatalf("failed to list children: %v", err)
	}
	if len(children) != 1 || children[0].Name != "iOS" {
		testContext.Fatalf("expected only iOS under root, got %+v", children)
	}
	var record migrationRecord
	if err := database.Where("name = ?", migrationSeedDemoNotebook).Take(&record).Error; err != nil {
		testContext.Fatalf("expected seed ledger row: %v", err)
	}
}

func TestApplyMigrationsRollsBackFailedMigration(testContext *testing.T) {
	database, err := OpenSQLite(filepath.Join(testContext.TempDir(), "rollback.db"), zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	failure := errors.New("migration failed")
	migration := migrationDefinition{name: "2026-10-02_failing", apply: func(tx *gorm.DB) error {
		if err := tx.Create(&migrationRecord{Name: "partial", AppliedAtSeconds: 1}).Error; err != nil {
			return err
		}
		return failure
	}}

	if err := applyMigrations(database, zap.NewNop(), []migrationDefinition{migration}); !errors.Is(err, failure) {
		testContext.Fatalf("expected migration failure, got %v", err)
	}

	var count int64
	if err := database.Model(&migrationRecord{}).Where("name IN ?", []string{"partial", migration.name}).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count ledger rows: %v", err)
	}
	if count != 0 {
		testContext.Fatalf("expected failed migration to leave no rows, got %d", count)
	}
}
