package notebook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

const (
	queryID                = "id = ?"
	queryIDIn              = "id IN ?"
	queryParentID          = "parent_id = ?"
	queryParentIDIn        = "parent_id IN ?"
	queryFolderID          = "folder_id = ?"
	queryFolderIDIn        = "folder_id IN ?"
	queryNoteIDIn          = "note_id IN ?"
	queryTagIDIn           = "tag_id IN ?"
	queryRoot              = "parent_id IS NULL"
	queryParentName        = "parent_id = ? AND name = ?"
	queryFolderName        = "folder_id = ? AND name = ?"
	queryName              = "name = ?"
	queryNoteTag           = "note_id = ? AND tag_id = ?"
	orderCreated           = "created_at ASC, id ASC"
	orderName              = "name ASC"
	sqliteUniqueConstraint = "UNIQUE constraint failed"
)

var errMissingGormDatabase = errors.New("gorm database handle is required")

// GormStore implements Store on top of a gorm connection.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db as a Store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errMissingGormDatabase
	}
	return &GormStore{db: db}, nil
}

// WithinTransaction runs fn in a database transaction; any error returned by
// fn rolls the transaction back and is returned unchanged.
func (s *GormStore) WithinTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) Folders() FolderRepository {
	return gormFolderRepository{db: s.db}
}

func (s *GormStore) Notes() NoteRepository {
	return gormNoteRepository{db: s.db}
}

func (s *GormStore) Tags() TagRepository {
	return gormTagRepository{db: s.db}
}

type gormFolderRepository struct {
	db *gorm.DB
}

func (r gormFolderRepository) FindAll(ctx context.Context) ([]Folder, error) {
	var folders []Folder
	if err := r.db.WithContext(ctx).Order(orderCreated).Find(&folders).Error; err != nil {
		return nil, err
	}
	return folders, hydrateFolders(ctx, r.db, folders)
}

func (r gormFolderRepository) FindByID(ctx context.Context, id string) (Folder, bool, error) {
	return r.takeOne(ctx, queryID, id)
}

func (r gormFolderRepository) FindRoot(ctx context.Context) (Folder, bool, error) {
	return r.takeOne(ctx, queryRoot)
}

func (r gormFolderRepository) takeOne(ctx context.Context, query string, args ...any) (Folder, bool, error) {
	var folder Folder
	err := r.db.WithContext(ctx).Where(query, args...).Take(&folder).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Folder{}, false, nil
	}
	if err != nil {
		return Folder{}, false, err
	}
	folders := []Folder{folder}
	if err := hydrateFolders(ctx, r.db, folders); err != nil {
		return Folder{}, false, err
	}
	return folders[0], true, nil
}

func (r gormFolderRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.db, &Folder{}, queryID, id)
}

func (r gormFolderRepository) FindChildren(ctx context.Context, parentID string) ([]Folder, error) {
	var folders []Folder
	if err := r.db.WithContext(ctx).Where(queryParentID, parentID).Order(orderName).Find(&folders).Error; err != nil {
		return nil, err
	}
	return folders, hydrateFolders(ctx, r.db, folders)
}

func (r gormFolderRepository) ExistsSiblingWithName(ctx context.Context, name, parentID string) (bool, error) {
	return exists(ctx, r.db, &Folder{}, queryParentName, parentID, name)
}

func (r gormFolderRepository) Save(ctx context.Context, folder *Folder) error {
	return translateWriteError(r.db.WithContext(ctx).Save(folder).Error)
}

func (r gormFolderRepository) DeleteByID(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where(queryID, id).Delete(&Folder{}).Error
}

type gormNoteRepository struct {
	db *gorm.DB
}

func (r gormNoteRepository) FindAll(ctx context.Context) ([]Note, error) {
	var notes []Note
	if err := r.db.WithContext(ctx).Order(orderCreated).Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, hydrateNotes(ctx, r.db, notes)
}

func (r gormNoteRepository) FindByID(ctx context.Context, id string) (Note, bool, error) {
	var note Note
	err := r.db.WithContext(ctx).Where(queryID, id).Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Note{}, false, nil
	}
	if err != nil {
		return Note{}, false, err
	}
	notes := []Note{note}
	if err := hydrateNotes(ctx, r.db, notes); err != nil {
		return Note{}, false, err
	}
	return notes[0], true, nil
}

func (r gormNoteRepository) FindByIDs(ctx context.Context, ids []string) ([]Note, error) {
	if len(ids) == 0 {
		return []Note{}, nil
	}
	var notes []Note
	if err := r.db.WithContext(ctx).Where(queryIDIn, ids).Order(orderName).Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, hydrateNotes(ctx, r.db, notes)
}

func (r gormNoteRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.db, &Note{}, queryID, id)
}

func (r gormNoteRepository) FindByFolder(ctx context.Context, folderID string) ([]Note, error) {
	var notes []Note
	if err := r.db.WithContext(ctx).Where(queryFolderID, folderID).Order(orderName).Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, hydrateNotes(ctx, r.db, notes)
}

func (r gormNoteRepository) ExistsWithNameInFolder(ctx context.Context, name, folderID string) (bool, error) {
	return exists(ctx, r.db, &Note{}, queryFolderName, folderID, name)
}

func (r gormNoteRepository) Save(ctx context.Context, note *Note) error {
	return translateWriteError(r.db.WithContext(ctx).Save(note).Error)
}

func (r gormNoteRepository) DeleteByID(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where(queryID, id).Delete(&Note{}).Error
}

func (r gormNoteRepository) AttachTag(ctx context.Context, noteID, tagID string) error {
	return r.db.WithContext(ctx).Create(&NoteTag{NoteID: noteID, TagID: tagID}).Error
}

func (r gormNoteRepository) DetachTag(ctx context.Context, noteID, tagID string) error {
	return r.db.WithContext(ctx).Where(queryNoteTag, noteID, tagID).Delete(&NoteTag{}).Error
}

type gormTagRepository struct {
	db *gorm.DB
}

func (r gormTagRepository) FindAll(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := r.db.WithContext(ctx).Order(orderCreated).Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, hydrateTags(ctx, r.db, tags)
}

func (r gormTagRepository) FindByID(ctx context.Context, id string) (Tag, bool, error) {
	return r.takeOne(ctx, queryID, id)
}

func (r gormTagRepository) FindByName(ctx context.Context, name string) (Tag, bool, error) {
	return r.takeOne(ctx, queryName, name)
}

func (r gormTagRepository) takeOne(ctx context.Context, query string, args ...any) (Tag, bool, error) {
	var tag Tag
	err := r.db.WithContext(ctx).Where(query, args...).Take(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Tag{}, false, nil
	}
	if err != nil {
		return Tag{}, false, err
	}
	tags := []Tag{tag}
	if err := hydrateTags(ctx, r.db, tags); err != nil {
		return Tag{}, false, err
	}
	return tags[0], true, nil
}

func (r gormTagRepository) FindByIDs(ctx context.Context, ids []string) ([]Tag, error) {
	if len(ids) == 0 {
		return []Tag{}, nil
	}
	var tags []Tag
	if err := r.db.WithContext(ctx).Where(queryIDIn, ids).Order(orderName).Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, hydrateTags(ctx, r.db, tags)
}

func (r gormTagRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return exists(ctx, r.db, &Tag{}, queryID, id)
}

func (r gormTagRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	return exists(ctx, r.db, &Tag{}, queryName, name)
}

func (r gormTagRepository) Save(ctx context.Context, tag *Tag) error {
	return translateWriteError(r.db.WithContext(ctx).Save(tag).Error)
}

func (r gormTagRepository) DeleteByID(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where(queryID, id).Delete(&Tag{}).Error
}

type membershipRow struct {
	OwnerID  string `gorm:"column:owner_id"`
	MemberID string `gorm:"column:member_id"`
}

func hydrateFolders(ctx context.Context, db *gorm.DB, folders []Folder) error {
	if len(folders) == 0 {
		return nil
	}
	ids, index := make([]string, len(folders)), make(map[string]int, len(folders))
	for position := range folders {
		ids[position] = folders[position].ID
		index[folders[position].ID] = position
		folders[position].ChildIDs = []string{}
		folders[position].NoteIDs = []string{}
	}

	var children []membershipRow
	if err := db.WithContext(ctx).Model(&Folder{}).
		Select("parent_id AS owner_id, id AS member_id").
		Where(queryParentIDIn, ids).
		Order(orderName).
		Scan(&children).Error; err != nil {
		return err
	}
	for _, row := range children {
		position := index[row.OwnerID]
		folders[position].ChildIDs = append(folders[position].ChildIDs, row.MemberID)
	}

	var notes []membershipRow
	if err := db.WithContext(ctx).Model(&Note{}).
		Select("folder_id AS owner_id, id AS member_id").
		Where(queryFolderIDIn, ids).
		Order(orderName).
		Scan(&notes).Error; err != nil {
		return err
	}
	for _, row := range notes {
		position := index[row.OwnerID]
		folders[position].NoteIDs = append(folders[position].NoteIDs, row.MemberID)
	}
	return nil
}

func hydrateNotes(ctx context.Context, db *gorm.DB, notes []Note) error {
	if len(notes) == 0 {
		return nil
	}
	ids, index := make([]string, len(notes)), make(map[string]int, len(notes))
	for position := range notes {
		ids[position] = notes[position].ID
		index[notes[position].ID] = position
		notes[position].TagIDs = []string{}
	}

	var rows []membershipRow
	if err := db.WithContext(ctx).Model(&NoteTag{}).
		Select("note_id AS owner_id, tag_id AS member_id").
		Where(queryNoteIDIn, ids).
		Order("tag_id ASC").
		Scan(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		position := index[row.OwnerID]
		notes[position].TagIDs = append(notes[position].TagIDs, row.MemberID)
	}
	return nil
}

func hydrateTags(ctx context.Context, db *gorm.DB, tags []Tag) error {
	if len(tags) == 0 {
		return nil
	}
	ids, index := make([]string, len(tags)), make(map[string]int, len(tags))
	for position := range tags {
		ids[position] = tags[position].ID
		index[tags[position].ID] = position
		tags[position].NoteIDs = []string{}
	}

	var rows []membershipRow
	if err := db.WithContext(ctx).Model(&NoteTag{}).
		Select("tag_id AS owner_id, note_id AS member_id").
		Where(queryTagIDIn, ids).
		Order("note_id ASC").
		Scan(&rows).Error; err != nil {
		return err
	}
	for _, row := range rows {
		position := index[row.OwnerID]
		tags[position].NoteIDs = append(tags[position].NoteIDs, row.MemberID)
	}
	return nil
}

func exists(ctx context.Context, db *gorm.DB, model any, query string, args ...any) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), sqliteUniqueConstraint) {
		return fmt.Errorf("%w: %v", ErrDuplicateName, err)
	}
	return err
}
