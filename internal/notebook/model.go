package notebook

import "time"

// RootFolderName is reserved for the single unparented folder.
const RootFolderName = "root"

// Folder is a node of the folder tree. ChildIDs and NoteIDs are populated by
// the store on load and kept in sync by the managers.
type Folder struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null"`
	Name      string    `gorm:"column:name;size:255;not null;uniqueIndex:idx_folders_parent_name,priority:2"`
	ParentID  *string   `gorm:"column:parent_id;size:190;uniqueIndex:idx_folders_parent_name,priority:1"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
	ChildIDs  []string  `gorm:"-"`
	NoteIDs   []string  `gorm:"-"`
}

// TableName provides the explicit table binding for GORM.
func (Folder) TableName() string {
	return "folders"
}

// IsRoot reports whether the folder has no parent.
func (f Folder) IsRoot() bool {
	return f.ParentID == nil
}

// Parent returns the parent identifier or an empty string for the root.
func (f Folder) Parent() string {
	if f.ParentID == nil {
		return ""
	}
	return *f.ParentID
}

func (f *Folder) touch(at time.Time) {
	f.UpdatedAt = at
}

// Note is a named text document owned by exactly one folder.
type Note struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null"`
	FolderID  string    `gorm:"column:folder_id;size:190;not null;uniqueIndex:idx_notes_folder_name,priority:1"`
	Name      string    `gorm:"column:name;size:255;not null;uniqueIndex:idx_notes_folder_name,priority:2"`
	Content   string    `gorm:"column:content;type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
	TagIDs    []string  `gorm:"-"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// HasTag reports whether the note currently references the tag.
func (n Note) HasTag(tagID string) bool {
	return containsID(n.TagIDs, tagID)
}

func (n *Note) touch(at time.Time) {
	n.UpdatedAt = at
}

// Tag is a globally named label shared between notes.
type Tag struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null"`
	Name      string    `gorm:"column:name;size:255;not null;uniqueIndex:idx_tags_name"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
	NoteIDs   []string  `gorm:"-"`
}

// TableName provides the explicit table binding for GORM.
func (Tag) TableName() string {
	return "tags"
}

func (t *Tag) touch(at time.Time) {
	t.UpdatedAt = at
}

// NoteTag stores one side-independent membership row of the note/tag relation.
type NoteTag struct {
	NoteID string `gorm:"column:note_id;primaryKey;size:190;not null"`
	TagID  string `gorm:"column:tag_id;primaryKey;size:190;not null;index:idx_note_tags_tag"`
}

// TableName provides the explicit table binding for GORM.
func (NoteTag) TableName() string {
	return "note_tags"
}

// Models lists every persisted type for schema migration.
func Models() []any {
	return []any{&Folder{}, &Note{}, &Tag{}, &NoteTag{}}
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	filtered := make([]string, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			filtered = append(filtered, candidate)
		}
	}
	return filtered
}

func appendID(ids []string, id string) []string {
	if containsID(ids, id) {
		return ids
	}
	return append(ids, id)
}
