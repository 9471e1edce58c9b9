package notebook

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	opNoteManagerNew  = "notes.new"
	opNoteGetAll      = "notes.get_all"
	opNoteGetByFolder = "notes.get_by_folder"
	opNoteGetByTag    = "notes.get_by_tag"
	opNoteGetByID     = "notes.get_by_id"
	opNoteCreate      = "notes.create"
	opNoteRename      = "notes.rename"
	opNoteModify      = "notes.modify_content"
	opNoteMove        = "notes.move"
	opNoteAddTag      = "notes.add_tag"
	opNoteRemoveTag   = "notes.remove_tag"
	opNoteDelete      = "notes.delete"
	opNoteUpdate      = "notes.update"
)

var errMissingOwnerFolder = errors.New("note references a missing folder")

// NoteUpdateType selects the mutation applied by NoteManager.Update.
type NoteUpdateType string

const (
	NoteUpdateRename        NoteUpdateType = "RENAME_NOTE"
	NoteUpdateModifyContent NoteUpdateType = "MODIFY_CONTENT"
	NoteUpdateMove          NoteUpdateType = "MOVE_NOTE"
	NoteUpdateAddTag        NoteUpdateType = "ADD_TAG"
	NoteUpdateRemoveTag     NoteUpdateType = "REMOVE_TAG"
)

// NoteUpdate is a tagged note mutation request; only the fields relevant to
// Type are read.
type NoteUpdate struct {
	Type       NoteUpdateType
	NewName    string
	NewContent string
	ToFolderID string
	TagName    string
}

// NoteManager owns the note lifecycle: creation inside a folder, edits,
// moves between folders and the note side of tag membership.
type NoteManager struct {
	core
}

// NewNoteManager constructs a NoteManager.
func NewNoteManager(cfg ServiceConfig) (*NoteManager, error) {
	base, err := newCore(opNoteManagerNew, cfg)
	if err != nil {
		return nil, err
	}
	return &NoteManager{core: base}, nil
}

// GetAll returns every note.
func (m *NoteManager) GetAll(ctx context.Context) ([]Note, error) {
	if err := m.ready(opNoteGetAll); err != nil {
		return nil, err
	}
	m.loggerOrDefault().Info("get all notes")

	notes, err := m.store.Notes().FindAll(ctx)
	if err != nil {
		return nil, m.failure(opNoteGetAll, reasonQueryFailed, err)
	}
	return notes, nil
}

// GetByFolder returns the notes stored directly in folderID.
func (m *NoteManager) GetByFolder(ctx context.Context, folderID string) ([]Note, error) {
	if err := m.ready(opNoteGetByFolder); err != nil {
		return nil, err
	}
	m.loggerOrDefault().Info("get notes by folder", zap.String("folder_id", folderID))

	folderExists, err := m.store.Folders().ExistsByID(ctx, folderID)
	if err != nil {
		return nil, m.failure(opNoteGetByFolder, reasonQueryFailed, err, zap.String("folder_id", folderID))
	}
	if !folderExists {
		return nil, notFound(opNoteGetByFolder, EntityFolder, folderID)
	}

	notes, err := m.store.Notes().FindByFolder(ctx, folderID)
	if err != nil {
		return nil, m.failure(opNoteGetByFolder, reasonQueryFailed, err, zap.String("folder_id", folderID))
	}
	return notes, nil
}

// GetByTag returns the notes carrying tagID.
func (m *NoteManager) GetByTag(ctx context.Context, tagID string) ([]Note, error) {
	if err := m.ready(opNoteGetByTag); err != nil {
		return nil, err
	}
	m.loggerOrDefault().Info("get notes by tag", zap.String("tag_id", tagID))

	tag, found, err := m.store.Tags().FindByID(ctx, tagID)
	if err != nil {
		return nil, m.failure(opNoteGetByTag, reasonQueryFailed, err, zap.String("tag_id", tagID))
	}
	if !found {
		return nil, notFound(opNoteGetByTag, EntityTag, tagID)
	}

	notes, err := m.store.Notes().FindByIDs(ctx, tag.NoteIDs)
	if err != nil {
		return nil, m.failure(opNoteGetByTag, reasonQueryFailed, err, zap.String("tag_id", tagID))
	}
	return notes, nil
}

// GetByID returns the note with the given id.
func (m *NoteManager) GetByID(ctx context.Context, id string) (Note, error) {
	if err := m.ready(opNoteGetByID); err != nil {
		return Note{}, err
	}
	m.loggerOrDefault().Info("get note by id", zap.String("note_id", id))

	note, found, err := m.store.Notes().FindByID(ctx, id)
	if err != nil {
		return Note{}, m.failure(opNoteGetByID, reasonQueryFailed, err, zap.String("note_id", id))
	}
	if !found {
		return Note{}, notFound(opNoteGetByID, EntityNote, id)
	}
	return note, nil
}

// Create stores a new untagged note named name inside folderID.
func (m *NoteManager) Create(ctx context.Context, folderID, name, content string) (Note, error) {
	if err := m.ready(opNoteCreate); err != nil {
		return Note{}, err
	}
	m.loggerOrDefault().Info("create note", zap.String("folder_id", folderID), zap.String("name", name))

	var created Note
	err := m.store.WithinTransaction(ctx, func(tx Store) error {
		folder, err := m.loadFolder(ctx, tx, opNoteCreate, folderID)
		if err != nil {
			return err
		}

		name := normalizeName(name)
		if name == "" {
			return blankName(opNoteCreate, EntityNote)
		}
		conflict, err := tx.Notes().ExistsWithNameInFolder(ctx, name, folder.ID)
		if err != nil {
			return m.failure(opNoteCreate, reasonQueryFailed, err, zap.String("folder_id", folder.ID))
		}
		if conflict {
			return nameConflict(opNoteCreate, EntityNote, name)
		}

		id, err := m.newID(opNoteCreate)
		if err != nil {
			return err
		}
		now := m.now()
		note := Note{
			ID:        id,
			FolderID:  folder.ID,
			Name:      name,
			Content:   content,
			CreatedAt: now,
			UpdatedAt: now,
			TagIDs:    []string{},
		}
		if err := tx.Notes().Save(ctx, &note); err != nil {
			return m.writeFailure(opNoteCreate, EntityNote, name, err, zap.String("note_id", id))
		}

		folder.NoteIDs = appendID(folder.NoteIDs, note.ID)
		folder.touch(now)
		if err := tx.Folders().Save(ctx, &folder); err != nil {
			return m.failure(opNoteCreate, reasonSaveFailed, err, zap.String("folder_id", folder.ID))
		}

		created = note
		return nil
	})
	if err != nil {
		return Note{}, err
	}
	return created, nil
}

// Rename changes the note name; the name must stay unique inside its folder.
func (m *NoteManager) Rename(ctx context.Context, id, newName string) (Note, error) {
	if err := m.ready(opNoteRename); err != nil {
		return Note{}, err
	}
	m.loggerOrDefault().Info("rename note", zap.String("note_id", id), zap.String("new_name", newName))

	return m.mutate(ctx, opNoteRename, id, func(tx Store, note *Note, now time.Time) (bool, error) {
		name := normalizeName(newName)
		if name == "" {
			return false, blankName(opNoteRename, EntityNote)
		}
		if name == note.Name {
			m.logNoOp(opNoteRename, "name_unchanged", zap.String("note_id", id))
			return false, nil
		}
		conflict, err := tx.Notes().ExistsWithNameInFolder(ctx, name, note.FolderID)
		if err != nil {
			return false, m.failure(opNoteRename, reasonQueryFailed, err, zap.String("note_id", id))
		}
		if conflict {
			return false, nameConflict(opNoteRename, EntityNote, name)
		}
		note.Name = name
		return true, nil
	})
}

// ModifyContent replaces the note body. Writing identical content is a
// logged no-op that leaves UpdatedAt untouched.
func (m *NoteManager) ModifyContent(ctx context.Context, id, newContent string) (Note, error) {
	if err := m.ready(opNoteModify); err != nil {
		return Note{}, err
	}
	m.loggerOrDefault().Info("modify note content", zap.String("note_id", id))

	return m.mutate(ctx, opNoteModify, id, func(_ Store, note *Note, _ time.Time) (bool, error) {
		if note.Content == newContent {
			m.logNoOp(opNoteModify, "content_unchanged", zap.String("note_id", id))
			return false, nil
		}
		note.Content = newContent
		return true, nil
	})
}

// Move transfers the note to toFolderID. Moving into the current folder is a
// logged no-op.
func (m *NoteManager) Move(ctx context.Context, id, toFolderID string) (Note, error) {
	if err := m.ready(opNoteMove); err != nil {
		return Note{}, err
	}
	m.loggerOrDefault().Info("move note", zap.String("note_id", id), zap.String("to_folder_id", toFolderID))

	var moved Note
	err := m.store.WithinTransaction(ctx, func(tx Store) error {
		note, err := m.loadNote(ctx, tx, opNoteMove, id)
		if err != nil {
			return err
		}
		if note.FolderID == toFolderID {
			m.logNoOp(opNoteMove, "same_folder", zap.String("note_id", id), zap.String("folder_id", toFolderID))
			moved = note
			return nil
		}

		toFolder, err := m.loadFolder(ctx, tx, opNoteMove, toFolderID)
		if err != nil {
			return err
		}
		conflict, err := tx.Notes().ExistsWithNameInFolder(ctx, note.Name, toFolder.ID)
		if err != nil {
			return m.failure(opNoteMove, reasonQueryFailed, err, zap.String("note_id", id))
		}
		if conflict {
			return nameConflict(opNoteMove, EntityNote, note.Name)
		}
		fromFolder, err := m.ownerFolder(ctx, tx, opNoteMove, note)
		if err != nil {
			return err
		}

		now := m.now()
		note.FolderID = toFolder.ID
		note.touch(now)
		if err := tx.Notes().Save(ctx, &note); err != nil {
			return m.writeFailure(opNoteMove, EntityNote, note.Name, err, zap.String("note_id", id))
		}

		fromFolder.NoteIDs = removeID(fromFolder.NoteIDs, note.ID)
		fromFolder.touch(now)
		if err := tx.Folders().Save(ctx, &fromFolder); err != nil {
			return m.failure(opNoteMove, reasonSaveFailed, err, zap.String("folder_id", fromFolder.ID))
		}

		toFolder.NoteIDs = appendID(toFolder.NoteIDs, note.ID)
		toFolder.touch(now)
		if err := tx.Folders().Save(ctx, &toFolder); err != nil {
			return m.failure(opNoteMove, reasonSaveFailed, err, zap.String("folder_id", toFolder.ID))
		}

		moved = note
		return nil
	})
	if err != nil {
		return Note{}, err
	}
	return moved, nil
}

// AddTag links the note to the tag named tagName, creating the tag first if
// no tag carries that name yet. Adding a tag the note already has is a
// logged no-op.
func (m *NoteManager) AddTag(ctx context.Context, id, tagName string) (Note, error) {
	if err := m.ready(opNoteAddTag); err != nil {
		return Note{}, err
	}
	m.loggerOrDefault().Info("add tag to note", zap.String("note_id", id), zap.String("tag_name", tagName))

	return m.mutate(ctx, opNoteAddTag, id, func(tx Store, note *Note, now time.Time) (bool, error) {
		name := normalizeName(tagName)
		if name == "" {
			return false, blankName(opNoteAddTag, EntityTag)
		}

		tag, err := m.findOrCreateTag(ctx, tx, name, now)
		if err != nil {
			return false, err
		}
		if note.HasTag(tag.ID) {
			m.logNoOp(opNoteAddTag, "tag_already_present", zap.String("note_id", id), zap.String("tag_id", tag.ID))
			return false, nil
		}

		if err := tx.Notes().AttachTag(ctx, note.ID, tag.ID); err != nil {
			return false, m.failure(opNoteAddTag, reasonLinkFailed, err, zap.String("note_id", id), zap.String("tag_id", tag.ID))
		}
		tag.NoteIDs = appendID(tag.NoteIDs, note.ID)
		tag.touch(now)
		if err := tx.Tags().Save(ctx, &tag); err != nil {
			return false, m.failure(opNoteAddTag, reasonSaveFailed, err, zap.String("tag_id", tag.ID))
		}
		note.TagIDs = appendID(note.TagIDs, tag.ID)
		return true, nil
	})
}

// RemoveTag unlinks the tag named tagName from the note. The tag itself is
// kept even when no note references it anymore.
func (m *NoteManager) RemoveTag(ctx context.Context, id, tagName string) (Note, error) {
	if err := m.ready(opNoteRemoveTag); err != nil {
		return Note{}, err
	}
	m.loggerOrDefault().Info("remove tag from note", zap.String("note_id", id), zap.String("tag_name", tagName))

	return m.mutate(ctx, opNoteRemoveTag, id, func(tx Store, note *Note, now time.Time) (bool, error) {
		name := normalizeName(tagName)
		tag, found, err := tx.Tags().FindByName(ctx, name)
		if err != nil {
			return false, m.failure(opNoteRemoveTag, reasonQueryFailed, err, zap.String("tag_name", name))
		}
		if !found {
			return false, tagNotFound(opNoteRemoveTag, name)
		}
		if !note.HasTag(tag.ID) {
			return false, badRequest(opNoteRemoveTag, EntityNote, id, "note does not carry tag "+name)
		}

		if err := tx.Notes().DetachTag(ctx, note.ID, tag.ID); err != nil {
			return false, m.failure(opNoteRemoveTag, reasonLinkFailed, err, zap.String("note_id", id), zap.String("tag_id", tag.ID))
		}
		tag.NoteIDs = removeID(tag.NoteIDs, note.ID)
		tag.touch(now)
		if err := tx.Tags().Save(ctx, &tag); err != nil {
			return false, m.failure(opNoteRemoveTag, reasonSaveFailed, err, zap.String("tag_id", tag.ID))
		}
		note.TagIDs = removeID(note.TagIDs, tag.ID)
		return true, nil
	})
}

// Delete removes the note from its folder and from every tag that
// references it, then deletes the note.
func (m *NoteManager) Delete(ctx context.Context, id string) error {
	if err := m.ready(opNoteDelete); err != nil {
		return err
	}
	m.loggerOrDefault().Info("delete note", zap.String("note_id", id))

	return m.store.WithinTransaction(ctx, func(tx Store) error {
		note, err := m.loadNote(ctx, tx, opNoteDelete, id)
		if err != nil {
			return err
		}
		now := m.now()

		tags, err := tx.Tags().FindByIDs(ctx, note.TagIDs)
		if err != nil {
			return m.failure(opNoteDelete, reasonQueryFailed, err, zap.String("note_id", id))
		}
		for index := range tags {
			tag := tags[index]
			if err := tx.Notes().DetachTag(ctx, note.ID, tag.ID); err != nil {
				return m.failure(opNoteDelete, reasonLinkFailed, err, zap.String("note_id", id), zap.String("tag_id", tag.ID))
			}
			tag.NoteIDs = removeID(tag.NoteIDs, note.ID)
			tag.touch(now)
			if err := tx.Tags().Save(ctx, &tag); err != nil {
				return m.failure(opNoteDelete, reasonSaveFailed, err, zap.String("tag_id", tag.ID))
			}
		}

		folder, err := m.ownerFolder(ctx, tx, opNoteDelete, note)
		if err != nil {
			return err
		}
		folder.NoteIDs = removeID(folder.NoteIDs, note.ID)
		folder.touch(now)
		if err := tx.Folders().Save(ctx, &folder); err != nil {
			return m.failure(opNoteDelete, reasonSaveFailed, err, zap.String("folder_id", folder.ID))
		}

		if err := tx.Notes().DeleteByID(ctx, note.ID); err != nil {
			return m.failure(opNoteDelete, reasonDeleteFailed, err, zap.String("note_id", id))
		}
		return nil
	})
}

// Update dispatches a tagged update request to the matching operation.
func (m *NoteManager) Update(ctx context.Context, id string, update NoteUpdate) (Note, error) {
	switch update.Type {
	case NoteUpdateRename:
		return m.Rename(ctx, id, update.NewName)
	case NoteUpdateModifyContent:
		return m.ModifyContent(ctx, id, update.NewContent)
	case NoteUpdateMove:
		return m.Move(ctx, id, update.ToFolderID)
	case NoteUpdateAddTag:
		return m.AddTag(ctx, id, update.TagName)
	case NoteUpdateRemoveTag:
		return m.RemoveTag(ctx, id, update.TagName)
	default:
		return Note{}, unsupportedOperation(opNoteUpdate, string(update.Type))
	}
}

// mutate loads the note, applies change and, when change reports a
// modification, refreshes UpdatedAt on the note and its folder and persists
// both in the same transaction.
func (m *NoteManager) mutate(ctx context.Context, operation, id string, change func(tx Store, note *Note, now time.Time) (bool, error)) (Note, error) {
	var result Note
	err := m.store.WithinTransaction(ctx, func(tx Store) error {
		note, err := m.loadNote(ctx, tx, operation, id)
		if err != nil {
			return err
		}

		now := m.now()
		modified, err := change(tx, &note, now)
		if err != nil {
			return err
		}
		if !modified {
			result = note
			return nil
		}

		note.touch(now)
		if err := tx.Notes().Save(ctx, &note); err != nil {
			return m.writeFailure(operation, EntityNote, note.Name, err, zap.String("note_id", id))
		}

		folder, err := m.ownerFolder(ctx, tx, operation, note)
		if err != nil {
			return err
		}
		folder.touch(now)
		if err := tx.Folders().Save(ctx, &folder); err != nil {
			return m.failure(operation, reasonSaveFailed, err, zap.String("folder_id", folder.ID))
		}

		result = note
		return nil
	})
	if err != nil {
		return Note{}, err
	}
	return result, nil
}

// findOrCreateTag returns the tag named name, inserting an empty tag when
// none exists.
func (m *NoteManager) findOrCreateTag(ctx context.Context, tx Store, name string, now time.Time) (Tag, error) {
	tag, found, err := tx.Tags().FindByName(ctx, name)
	if err != nil {
		return Tag{}, m.failure(opNoteAddTag, reasonQueryFailed, err, zap.String("tag_name", name))
	}
	if found {
		return tag, nil
	}

	created, err := insertTag(ctx, &m.core, tx, opNoteAddTag, name, now)
	if err != nil {
		return Tag{}, err
	}
	m.loggerOrDefault().Info("tag created on first use", zap.String("tag_id", created.ID), zap.String("tag_name", name))
	return created, nil
}

func (m *NoteManager) loadNote(ctx context.Context, tx Store, operation, id string) (Note, error) {
	note, found, err := tx.Notes().FindByID(ctx, id)
	if err != nil {
		return Note{}, m.failure(operation, reasonQueryFailed, err, zap.String("note_id", id))
	}
	if !found {
		return Note{}, notFound(operation, EntityNote, id)
	}
	return note, nil
}

func (m *NoteManager) loadFolder(ctx context.Context, tx Store, operation, id string) (Folder, error) {
	folder, found, err := tx.Folders().FindByID(ctx, id)
	if err != nil {
		return Folder{}, m.failure(operation, reasonQueryFailed, err, zap.String("folder_id", id))
	}
	if !found {
		return Folder{}, notFound(operation, EntityFolder, id)
	}
	return folder, nil
}

// ownerFolder loads the folder a stored note belongs to. A missing owner means
// the store is inconsistent and is reported as an infrastructure failure.
func (m *NoteManager) ownerFolder(ctx context.Context, tx Store, operation string, note Note) (Folder, error) {
	folder, found, err := tx.Folders().FindByID(ctx, note.FolderID)
	if err != nil {
		return Folder{}, m.failure(operation, reasonQueryFailed, err, zap.String("folder_id", note.FolderID))
	}
	if !found {
		return Folder{}, m.failure(operation, reasonInconsistent, errMissingOwnerFolder,
			zap.String("note_id", note.ID), zap.String("folder_id", note.FolderID))
	}
	return folder, nil
}
