package notebook

import (
	"context"
	"errors"
)

// ErrDuplicateName is returned by a Store when a write violates one of the
// unique name constraints backing the sibling, in-folder and tag rules.
var ErrDuplicateName = errors.New("notebook: duplicate name")

// Store is the persistence collaborator used by the managers. Every mutating
// manager operation runs inside WithinTransaction and only touches the
// transactional Store handed to the callback.
type Store interface {
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error
	Folders() FolderRepository
	Notes() NoteRepository
	Tags() TagRepository
}

// FolderRepository loads and persists folders. Loaded folders carry their
// ChildIDs and NoteIDs.
type FolderRepository interface {
	FindAll(ctx context.Context) ([]Folder, error)
	FindByID(ctx context.Context, id string) (Folder, bool, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	FindRoot(ctx context.Context) (Folder, bool, error)
	FindChildren(ctx context.Context, parentID string) ([]Folder, error)
	ExistsSiblingWithName(ctx context.Context, name, parentID string) (bool, error)
	Save(ctx context.Context, folder *Folder) error
	DeleteByID(ctx context.Context, id string) error
}

// NoteRepository loads and persists notes together with their tag membership.
type NoteRepository interface {
	FindAll(ctx context.Context) ([]Note, error)
	FindByID(ctx context.Context, id string) (Note, bool, error)
	FindByIDs(ctx context.Context, ids []string) ([]Note, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	FindByFolder(ctx context.Context, folderID string) ([]Note, error)
	ExistsWithNameInFolder(ctx context.Context, name, folderID string) (bool, error)
	Save(ctx context.Context, note *Note) error
	DeleteByID(ctx context.Context, id string) error
	AttachTag(ctx context.Context, noteID, tagID string) error
	DetachTag(ctx context.Context, noteID, tagID string) error
}

// TagRepository loads and persists tags. Loaded tags carry their NoteIDs.
type TagRepository interface {
	FindAll(ctx context.Context) ([]Tag, error)
	FindByID(ctx context.Context, id string) (Tag, bool, error)
	FindByIDs(ctx context.Context, ids []string) ([]Tag, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	FindByName(ctx context.Context, name string) (Tag, bool, error)
	Save(ctx context.Context, tag *Tag) error
	DeleteByID(ctx context.Context, id string) error
}
