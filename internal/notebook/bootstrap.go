package notebook

import (
	"context"

	"go.uber.org/zap"
)

const (
	opEnsureRoot = "bootstrap.ensure_root"
	opSeedDemo   = "bootstrap.seed_demo"
)

// EnsureRoot returns the root folder, creating it when the store holds none.
// cfg.RootID is ignored.
func EnsureRoot(ctx context.Context, cfg ServiceConfig) (Folder, error) {
	base, err := newCore(opEnsureRoot, cfg)
	if err != nil {
		return Folder{}, err
	}

	var root Folder
	err = base.store.WithinTransaction(ctx, func(tx Store) error {
		existing, found, err := tx.Folders().FindRoot(ctx)
		if err != nil {
			return base.failure(opEnsureRoot, reasonQueryFailed, err)
		}
		if found {
			root = existing
			return nil
		}

		id, err := base.newID(opEnsureRoot)
		if err != nil {
			return err
		}
		now := base.now()
		created := Folder{
			ID:        id,
			Name:      RootFolderName,
			CreatedAt: now,
			UpdatedAt: now,
			ChildIDs:  []string{},
			NoteIDs:   []string{},
		}
		if err := tx.Folders().Save(ctx, &created); err != nil {
			return base.failure(opEnsureRoot, reasonSaveFailed, err, zap.String("folder_id", id))
		}
		base.loggerOrDefault().Info("root folder created", zap.String("folder_id", id))
		root = created
		return nil
	})
	if err != nil {
		return Folder{}, err
	}
	return root, nil
}

// SeedDemo populates an empty tree with a small sample hierarchy:
// Java and iOS below root, a Summary note in root, and a JDBC note in Java
// tagged "Programming Language". The whole seed runs in one transaction and is
// skipped when root already holds folders or notes.
func SeedDemo(ctx context.Context, cfg ServiceConfig) error {
	base, err := newCore(opSeedDemo, cfg)
	if err != nil {
		return err
	}

	return base.store.WithinTransaction(ctx, func(tx Store) error {
		txConfig := cfg
		txConfig.Store = tx
		root, err := EnsureRoot(ctx, txConfig)
		if err != nil {
			return err
		}
		if len(root.ChildIDs) > 0 || len(root.NoteIDs) > 0 {
			base.logNoOp(opSeedDemo, "tree_not_empty", zap.String("root_id", root.ID))
			return nil
		}
		txConfig.RootID = root.ID

		folders, err := NewFolderManager(txConfig)
		if err != nil {
			return err
		}
		notes, err := NewNoteManager(txConfig)
		if err != nil {
			return err
		}

		java, err := folders.Create(ctx, root.ID, "Java")
		if err != nil {
			return err
		}
		if _, err := folders.Create(ctx, root.ID, "iOS"); err != nil {
			return err
		}
		if _, err := notes.Create(ctx, root.ID, "Summary", "Overview of the notebook."); err != nil {
			return err
		}
		jdbc, err := notes.Create(ctx, java.ID, "JDBC", "Java Database Connectivity basics.")
		if err != nil {
			return err
		}
		if _, err := notes.AddTag(ctx, jdbc.ID, "Programming Language"); err != nil {
			return err
		}

		base.loggerOrDefault().Info("demo data seeded",
			zap.String("operation", opSeedDemo),
			zap.String("root_id", root.ID))
		return nil
	})
}
