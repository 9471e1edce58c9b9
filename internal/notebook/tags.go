package notebook

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	opTagManagerNew = "tags.new"
	opTagGetAll     = "tags.get_all"
	opTagGetByID    = "tags.get_by_id"
	opTagGetByNote  = "tags.get_by_note"
	opTagCreate     = "tags.create"
	opTagRename     = "tags.rename"
	opTagDelete     = "tags.delete"
)

// TagManager owns the tag lifecycle. Tag names are globally unique.
type TagManager struct {
	core
}

// NewTagManager constructs a TagManager.
func NewTagManager(cfg ServiceConfig) (*TagManager, error) {
	base, err := newCore(opTagManagerNew, cfg)
	if err != nil {
		return nil, err
	}
	return &TagManager{core: base}, nil
}

// GetAll returns every tag.
func (m *TagManager) GetAll(ctx context.Context) ([]Tag, error) {
	if err := m.ready(opTagGetAll); err != nil {
		return nil, err
	}
	m.loggerOrDefault().Info("get all tags")

	tags, err := m.store.Tags().FindAll(ctx)
	if err != nil {
		return nil, m.failure(opTagGetAll, reasonQueryFailed, err)
	}
	return tags, nil
}

// GetByID returns the tag with the given id.
func (m *TagManager) GetByID(ctx context.Context, id string) (Tag, error) {
	if err := m.ready(opTagGetByID); err != nil {
		return Tag{}, err
	}
	m.loggerOrDefault().Info("get tag by id", zap.String("tag_id", id))

	tag, found, err := m.store.Tags().FindByID(ctx, id)
	if err != nil {
		return Tag{}, m.failure(opTagGetByID, reasonQueryFailed, err, zap.String("tag_id", id))
	}
	if !found {
		return Tag{}, notFound(opTagGetByID, EntityTag, id)
	}
	return tag, nil
}

// GetByNote returns the tags carried by noteID.
func (m *TagManager) GetByNote(ctx context.Context, noteID string) ([]Tag, error) {
	if err := m.ready(opTagGetByNote); err != nil {
		return nil, err
	}
	m.loggerOrDefault().Info("get tags by note", zap.String("note_id", noteID))

	note, found, err := m.store.Notes().FindByID(ctx, noteID)
	if err != nil {
		return nil, m.failure(opTagGetByNote, reasonQueryFailed, err, zap.String("note_id", noteID))
	}
	if !found {
		return nil, notFound(opTagGetByNote, EntityNote, noteID)
	}

	tags, err := m.store.Tags().FindByIDs(ctx, note.TagIDs)
	if err != nil {
		return nil, m.failure(opTagGetByNote, reasonQueryFailed, err, zap.String("note_id", noteID))
	}
	return tags, nil
}

// Create stores a new tag with no notes.
func (m *TagManager) Create(ctx context.Context, name string) (Tag, error) {
	if err := m.ready(opTagCreate); err != nil {
		return Tag{}, err
	}
	m.loggerOrDefault().Info("create tag", zap.String("name", name))

	name = normalizeName(name)
	if name == "" {
		return Tag{}, blankName(opTagCreate, EntityTag)
	}

	var created Tag
	err := m.store.WithinTransaction(ctx, func(tx Store) error {
		tag, err := insertTag(ctx, &m.core, tx, opTagCreate, name, m.now())
		if err != nil {
			return err
		}
		created = tag
		return nil
	})
	if err != nil {
		return Tag{}, err
	}
	return created, nil
}

// Rename changes the tag name; renaming to the current name is a logged no-op.
func (m *TagManager) Rename(ctx context.Context, id, newName string) (Tag, error) {
	if err := m.ready(opTagRename); err != nil {
		return Tag{}, err
	}
	m.loggerOrDefault().Info("rename tag", zap.String("tag_id", id), zap.String("new_name", newName))

	var renamed Tag
	err := m.store.WithinTransaction(ctx, func(tx Store) error {
		tag, err := m.loadTag(ctx, tx, opTagRename, id)
		if err != nil {
			return err
		}

		name := normalizeName(newName)
		if name == "" {
			return blankName(opTagRename, EntityTag)
		}
		if name == tag.Name {
			m.logNoOp(opTagRename, "name_unchanged", zap.String("tag_id", id))
			renamed = tag
			return nil
		}
		conflict, err := tx.Tags().ExistsByName(ctx, name)
		if err != nil {
			return m.failure(opTagRename, reasonQueryFailed, err, zap.String("tag_id", id))
		}
		if conflict {
			return nameConflict(opTagRename, EntityTag, name)
		}

		tag.Name = name
		tag.touch(m.now())
		if err := tx.Tags().Save(ctx, &tag); err != nil {
			return m.writeFailure(opTagRename, EntityTag, name, err, zap.String("tag_id", id))
		}
		renamed = tag
		return nil
	})
	if err != nil {
		return Tag{}, err
	}
	return renamed, nil
}

// Delete removes the tag from every note carrying it, then deletes the tag.
func (m *TagManager) Delete(ctx context.Context, id string) error {
	if err := m.ready(opTagDelete); err != nil {
		return err
	}
	m.loggerOrDefault().Info("delete tag", zap.String("tag_id", id))

	return m.store.WithinTransaction(ctx, func(tx Store) error {
		tag, err := m.loadTag(ctx, tx, opTagDelete, id)
		if err != nil {
			return err
		}

		notes, err := tx.Notes().FindByIDs(ctx, tag.NoteIDs)
		if err != nil {
			return m.failure(opTagDelete, reasonQueryFailed, err, zap.String("tag_id", id))
		}
		now := m.now()
		for index := range notes {
			note := notes[index]
			if err := tx.Notes().DetachTag(ctx, note.ID, tag.ID); err != nil {
				return m.failure(opTagDelete, reasonLinkFailed, err, zap.String("note_id", note.ID), zap.String("tag_id", id))
			}
			note.TagIDs = removeID(note.TagIDs, tag.ID)
			note.touch(now)
			if err := tx.Notes().Save(ctx, &note); err != nil {
				return m.failure(opTagDelete, reasonSaveFailed, err, zap.String("note_id", note.ID))
			}
		}

		if err := tx.Tags().DeleteByID(ctx, tag.ID); err != nil {
			return m.failure(opTagDelete, reasonDeleteFailed, err, zap.String("tag_id", id))
		}
		return nil
	})
}

func (m *TagManager) loadTag(ctx context.Context, tx Store, operation, id string) (Tag, error) {
	tag, found, err := tx.Tags().FindByID(ctx, id)
	if err != nil {
		return Tag{}, m.failure(operation, reasonQueryFailed, err, zap.String("tag_id", id))
	}
	if !found {
		return Tag{}, notFound(operation, EntityTag, id)
	}
	return tag, nil
}

// insertTag saves a new empty tag named name. name must already be
// normalized and non-blank.
func insertTag(ctx context.Context, c *core, tx Store, operation, name string, now time.Time) (Tag, error) {
	conflict, err := tx.Tags().ExistsByName(ctx, name)
	if err != nil {
		return Tag{}, c.failure(operation, reasonQueryFailed, err, zap.String("tag_name", name))
	}
	if conflict {
		return Tag{}, nameConflict(operation, EntityTag, name)
	}

	id, err := c.newID(operation)
	if err != nil {
		return Tag{}, err
	}
	tag := Tag{
		ID:        id,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		NoteIDs:   []string{},
	}
	if err := tx.Tags().Save(ctx, &tag); err != nil {
		return Tag{}, c.writeFailure(operation, EntityTag, name, err, zap.String("tag_id", id))
	}
	return tag, nil
}
