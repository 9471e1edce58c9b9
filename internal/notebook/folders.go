package notebook

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	opFolderManagerNew  = "folders.new"
	opFolderGetAll      = "folders.get_all"
	opFolderGetByID     = "folders.get_by_id"
	opFolderGetChildren = "folders.get_children"
	opFolderCreate      = "folders.create"
	opFolderRename      = "folders.rename"
	opFolderMove        = "folders.move"
	opFolderDelete      = "folders.delete"
	opFolderUpdate      = "folders.update"
)

// FolderUpdateType selects the mutation applied by FolderManager.Update.
type FolderUpdateType string

const (
	FolderUpdateRename FolderUpdateType = "RENAME_FOLDER"
	FolderUpdateMove   FolderUpdateType = "MOVE_FOLDER"
)

// FolderUpdate is a tagged folder mutation request.
type FolderUpdate struct {
	Type       FolderUpdateType
	NewName    string
	ToParentID string
}

// FolderManager maintains the folder tree. The root folder is identified by
// the id established at bootstrap and can never be renamed, moved or deleted.
type FolderManager struct {
	core
	rootID string
}

// NewFolderManager constructs a FolderManager bound to the root folder id.
func NewFolderManager(cfg ServiceConfig) (*FolderManager, error) {
	base, err := newCore(opFolderManagerNew, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.RootID == "" {
		return nil, newServiceError(opFolderManagerNew, reasonMissingRootID, errMissingRootID)
	}
	return &FolderManager{core: base, rootID: cfg.RootID}, nil
}

// RootID returns the identifier of the root folder.
func (m *FolderManager) RootID() string {
	return m.rootID
}

func (m *FolderManager) isRoot(folder Folder) bool {
	return folder.ID == m.rootID
}

// GetAll returns every folder.
func (m *FolderManager) GetAll(ctx context.Context) ([]Folder, error) {
	if err := m.ready(opFolderGetAll); err != nil {
		return nil, err
	}
	m.loggerOrDefault().Info("get all folders")

	folders, err := m.store.Folders().FindAll(ctx)
	if err != nil {
		return nil, m.failure(opFolderGetAll, reasonQueryFailed, err)
	}
	return folders, nil
}

// GetByID returns the folder with the given id.
func (m *FolderManager) GetByID(ctx context.Context, id string) (Folder, error) {
	if err := m.ready(opFolderGetByID); err != nil {
		return Folder{}, err
	}
	m.loggerOrDefault().Info("get folder by id", zap.String("folder_id", id))

	folder, found, err := m.store.Folders().FindByID(ctx, id)
	if err != nil {
		return Folder{}, m.failure(opFolderGetByID, reasonQueryFailed, err, zap.String("folder_id", id))
	}
	if !found {
		return Folder{}, notFound(opFolderGetByID, EntityFolder, id)
	}
	return folder, nil
}

// GetChildren returns the direct child folders of parentID.
func (m *FolderManager) GetChildren(ctx context.Context, parentID string) ([]Folder, error) {
	if err := m.ready(opFolderGetChildren); err != nil {
		return nil, err
	}
	m.loggerOrDefault().Info("get child folders", zap.String("parent_id", parentID))

	parentExists, err := m.store.Folders().ExistsByID(ctx, parentID)
	if err != nil {
		return nil, m.failure(opFolderGetChildren, reasonQueryFailed, err, zap.String("parent_id", parentID))
	}
	if !parentExists {
		return nil, notFound(opFolderGetChildren, EntityFolder, parentID)
	}

	children, err := m.store.Folders().FindChildren(ctx, parentID)
	if err != nil {
		return nil, m.failure(opFolderGetChildren, reasonQueryFailed, err, zap.String("parent_id", parentID))
	}
	return children, nil
}

// Create adds an empty folder named name under parentID.
func (m *FolderManager) Create(ctx context.Context, parentID, name string) (Folder, error) {
	if err := m.ready(opFolderCreate); err != nil {
		return Folder{}, err
	}
	m.loggerOrDefault().Info("create folder", zap.String("parent_id", parentID), zap.String("name", name))

	name = normalizeName(name)
	if name == RootFolderName {
		return Folder{}, rootNameReserved(opFolderCreate)
	}
	if name == "" {
		return Folder{}, blankName(opFolderCreate, EntityFolder)
	}

	var created Folder
	err := m.store.WithinTransaction(ctx, func(tx Store) error {
		parent, err := m.loadFolder(ctx, tx, opFolderCreate, parentID)
		if err != nil {
			return err
		}

		conflict, err := tx.Folders().ExistsSiblingWithName(ctx, name, parent.ID)
		if err != nil {
			return m.failure(opFolderCreate, reasonQueryFailed, err, zap.String("parent_id", parent.ID))
		}
		if conflict {
			return nameConflict(opFolderCreate, EntityFolder, name)
		}

		id, err := m.newID(opFolderCreate)
		if err != nil {
			return err
		}
		now := m.now()
		parentRef := parent.ID
		folder := Folder{
			ID:        id,
			Name:      name,
			ParentID:  &parentRef,
			CreatedAt: now,
			UpdatedAt: now,
			ChildIDs:  []string{},
			NoteIDs:   []string{},
		}
		if err := tx.Folders().Save(ctx, &folder); err != nil {
			return m.writeFailure(opFolderCreate, EntityFolder, name, err, zap.String("folder_id", id))
		}

		parent.ChildIDs = appendID(parent.ChildIDs, folder.ID)
		parent.touch(now)
		if err := tx.Folders().Save(ctx, &parent); err != nil {
			return m.failure(opFolderCreate, reasonSaveFailed, err, zap.String("folder_id", parent.ID))
		}

		created = folder
		return nil
	})
	if err != nil {
		return Folder{}, err
	}
	return created, nil
}

// Rename changes the name of a non-root folder.
func (m *FolderManager) Rename(ctx context.Context, id, newName string) (Folder, error) {
	if err := m.ready(opFolderRename); err != nil {
		return Folder{}, err
	}
	m.loggerOrDefault().Info("rename folder", zap.String("folder_id", id), zap.String("new_name", newName))

	var renamed Folder
	err := m.store.WithinTransaction(ctx, func(tx Store) error {
		folder, err := m.loadFolder(ctx, tx, opFolderRename, id)
		if err != nil {
			return err
		}
		if m.isRoot(folder) {
			return rootPreserved(opFolderRename)
		}

		name := normalizeName(newName)
		if name == RootFolderName {
			return rootNameReserved(opFolderRename)
		}
		if name == "" {
			return blankName(opFolderRename, EntityFolder)
		}
		if name == folder.Name {
			m.logNoOp(opFolderRename, "name_unchanged", zap.String("folder_id", id))
			renamed = folder
			return nil
		}

		conflict, err := tx.Folders().ExistsSiblingWithName(ctx, name, folder.Parent())
		if err != nil {
			return m.failure(opFolderRename, reasonQueryFailed, err, zap.String("folder_id", id))
		}
		if conflict {
			return nameConflict(opFolderRename, EntityFolder, name)
		}

		folder.Name = name
		folder.touch(m.now())
		if err := tx.Folders().Save(ctx, &folder); err != nil {
			return m.writeFailure(opFolderRename, EntityFolder, name, err, zap.String("folder_id", id))
		}
		renamed = folder
		return nil
	})
	if err != nil {
		return Folder{}, err
	}
	return renamed, nil
}

// Move re-parents a non-root folder under newParentID. Moving a folder onto
// itself or onto its current parent is a logged no-op.
func (m *FolderManager) Move(ctx context.Context, id, newParentID string) (Folder, error) {
	if err := m.ready(opFolderMove); err != nil {
		return Folder{}, err
	}
	m.loggerOrDefault().Info("move folder", zap.String("folder_id", id), zap.String("new_parent_id", newParentID))

	var moved Folder
	err := m.store.WithinTransaction(ctx, func(tx Store) error {
		folder, err := m.loadFolder(ctx, tx, opFolderMove, id)
		if err != nil {
			return err
		}
		if m.isRoot(folder) {
			return rootPreserved(opFolderMove)
		}
		if newParentID == folder.ID {
			m.logNoOp(opFolderMove, "self_move", zap.String("folder_id", id))
			moved = folder
			return nil
		}
		if newParentID == folder.Parent() {
			m.logNoOp(opFolderMove, "same_parent", zap.String("folder_id", id), zap.String("parent_id", newParentID))
			moved = folder
			return nil
		}

		newParent, err := m.loadFolder(ctx, tx, opFolderMove, newParentID)
		if err != nil {
			return err
		}
		descendant, err := m.isWithinSubtree(ctx, tx, newParent, folder.ID)
		if err != nil {
			return err
		}
		if descendant {
			return badRequest(opFolderMove, EntityFolder, id, "destination lies inside the folder being moved")
		}

		conflict, err := tx.Folders().ExistsSiblingWithName(ctx, folder.Name, newParent.ID)
		if err != nil {
			return m.failure(opFolderMove, reasonQueryFailed, err, zap.String("folder_id", id))
		}
		if conflict {
			return nameConflict(opFolderMove, EntityFolder, folder.Name)
		}

		oldParent, err := m.loadFolder(ctx, tx, opFolderMove, folder.Parent())
		if err != nil {
			return err
		}

		now := m.now()
		newParentRef := newParent.ID
		folder.ParentID = &newParentRef
		folder.touch(now)
		if err := tx.Folders().Save(ctx, &folder); err != nil {
			return m.writeFailure(opFolderMove, EntityFolder, folder.Name, err, zap.String("folder_id", id))
		}

		oldParent.ChildIDs = removeID(oldParent.ChildIDs, folder.ID)
		oldParent.touch(now)
		if err := tx.Folders().Save(ctx, &oldParent); err != nil {
			return m.failure(opFolderMove, reasonSaveFailed, err, zap.String("folder_id", oldParent.ID))
		}

		newParent.ChildIDs = appendID(newParent.ChildIDs, folder.ID)
		newParent.touch(now)
		if err := tx.Folders().Save(ctx, &newParent); err != nil {
			return m.failure(opFolderMove, reasonSaveFailed, err, zap.String("folder_id", newParent.ID))
		}

		moved = folder
		return nil
	})
	if err != nil {
		return Folder{}, err
	}
	return moved, nil
}

// Delete removes a non-root folder together with its whole subtree. Notes in
// the subtree are detached from their tags before they are deleted.
func (m *FolderManager) Delete(ctx context.Context, id string) error {
	if err := m.ready(opFolderDelete); err != nil {
		return err
	}
	m.loggerOrDefault().Info("delete folder", zap.String("folder_id", id))

	return m.store.WithinTransaction(ctx, func(tx Store) error {
		folder, err := m.loadFolder(ctx, tx, opFolderDelete, id)
		if err != nil {
			return err
		}
		if m.isRoot(folder) {
			return rootPreserved(opFolderDelete)
		}

		parent, err := m.loadFolder(ctx, tx, opFolderDelete, folder.Parent())
		if err != nil {
			return err
		}
		now := m.now()
		parent.ChildIDs = removeID(parent.ChildIDs, folder.ID)
		parent.touch(now)
		if err := tx.Folders().Save(ctx, &parent); err != nil {
			return m.failure(opFolderDelete, reasonSaveFailed, err, zap.String("folder_id", parent.ID))
		}

		return m.deleteSubtree(ctx, tx, folder, now)
	})
}

// Update dispatches a tagged update request to Rename or Move.
func (m *FolderManager) Update(ctx context.Context, id string, update FolderUpdate) (Folder, error) {
	switch update.Type {
	case FolderUpdateRename:
		return m.Rename(ctx, id, update.NewName)
	case FolderUpdateMove:
		return m.Move(ctx, id, update.ToParentID)
	default:
		return Folder{}, unsupportedOperation(opFolderUpdate, string(update.Type))
	}
}

func (m *FolderManager) loadFolder(ctx context.Context, tx Store, operation, id string) (Folder, error) {
	folder, found, err := tx.Folders().FindByID(ctx, id)
	if err != nil {
		return Folder{}, m.failure(operation, reasonQueryFailed, err, zap.String("folder_id", id))
	}
	if !found {
		return Folder{}, notFound(operation, EntityFolder, id)
	}
	return folder, nil
}

// isWithinSubtree walks from candidate up to the root and reports whether
// ancestorID is met on the way.
func (m *FolderManager) isWithinSubtree(ctx context.Context, tx Store, candidate Folder, ancestorID string) (bool, error) {
	visited := map[string]struct{}{}
	current := candidate
	for {
		if current.ID == ancestorID {
			return true, nil
		}
		if current.IsRoot() {
			return false, nil
		}
		if _, seen := visited[current.ID]; seen {
			err := errors.New("folder parent chain contains a cycle")
			return false, m.failure(opFolderMove, reasonInconsistent, err, zap.String("folder_id", current.ID))
		}
		visited[current.ID] = struct{}{}

		parent, err := m.loadFolder(ctx, tx, opFolderMove, current.Parent())
		if err != nil {
			return false, err
		}
		current = parent
	}
}

// deleteSubtree removes folder, every folder below it, and every note they
// contain. Tags referencing a removed note lose that reference.
func (m *FolderManager) deleteSubtree(ctx context.Context, tx Store, folder Folder, now time.Time) error {
	ordered := []Folder{folder}
	for cursor := 0; cursor < len(ordered); cursor++ {
		children, err := tx.Folders().FindChildren(ctx, ordered[cursor].ID)
		if err != nil {
			return m.failure(opFolderDelete, reasonQueryFailed, err, zap.String("folder_id", ordered[cursor].ID))
		}
		ordered = append(ordered, children...)
	}

	touchedTags := map[string]Tag{}
	for _, current := range ordered {
		notes, err := tx.Notes().FindByIDs(ctx, current.NoteIDs)
		if err != nil {
			return m.failure(opFolderDelete, reasonQueryFailed, err, zap.String("folder_id", current.ID))
		}
		for _, note := range notes {
			for _, tagID := range note.TagIDs {
				tag, cached := touchedTags[tagID]
				if !cached {
					loaded, found, err := tx.Tags().FindByID(ctx, tagID)
					if err != nil {
						return m.failure(opFolderDelete, reasonQueryFailed, err, zap.String("tag_id", tagID))
					}
					if !found {
						continue
					}
					tag = loaded
				}
				if err := tx.Notes().DetachTag(ctx, note.ID, tagID); err != nil {
					return m.failure(opFolderDelete, reasonLinkFailed, err, zap.String("note_id", note.ID), zap.String("tag_id", tagID))
				}
				tag.NoteIDs = removeID(tag.NoteIDs, note.ID)
				tag.touch(now)
				touchedTags[tagID] = tag
			}
			if err := tx.Notes().DeleteByID(ctx, note.ID); err != nil {
				return m.failure(opFolderDelete, reasonDeleteFailed, err, zap.String("note_id", note.ID))
			}
		}
	}

	for tagID := range touchedTags {
		tag := touchedTags[tagID]
		if err := tx.Tags().Save(ctx, &tag); err != nil {
			return m.failure(opFolderDelete, reasonSaveFailed, err, zap.String("tag_id", tagID))
		}
	}

	for position := len(ordered) - 1; position >= 0; position-- {
		if err := tx.Folders().DeleteByID(ctx, ordered[position].ID); err != nil {
			return m.failure(opFolderDelete, reasonDeleteFailed, err, zap.String("folder_id", ordered[position].ID))
		}
	}
	m.loggerOrDefault().Info("folder subtree deleted",
		zap.String("folder_id", folder.ID),
		zap.Int("folders", len(ordered)),
		zap.Int("tags_updated", len(touchedTags)))
	return nil
}
