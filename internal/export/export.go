// Package export renders the notebook hierarchy as a nested YAML document.
package export

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/MarcoPoloResearchLab/notebook/internal/notebook"
	"gopkg.in/yaml.v3"
)

// FolderReader is the folder query surface the exporter walks.
type FolderReader interface {
	RootID() string
	GetByID(ctx context.Context, id string) (notebook.Folder, error)
	GetChildren(ctx context.Context, parentID string) ([]notebook.Folder, error)
}

// NoteReader lists the notes stored in a folder.
type NoteReader interface {
	GetByFolder(ctx context.Context, folderID string) ([]notebook.Note, error)
}

// TagReader lists every tag.
type TagReader interface {
	GetAll(ctx context.Context) ([]notebook.Tag, error)
}

// Document is the exported form of a whole notebook.
type Document struct {
	ExportedAt time.Time  `yaml:"exported_at"`
	Root       FolderNode `yaml:"root"`
	Tags       []TagEntry `yaml:"tags"`
}

// FolderNode is a folder with its nested folders and notes.
type FolderNode struct {
	ID        string       `yaml:"id"`
	Name      string       `yaml:"name"`
	CreatedAt time.Time    `yaml:"created_at"`
	UpdatedAt time.Time    `yaml:"updated_at"`
	Folders   []FolderNode `yaml:"folders,omitempty"`
	Notes     []NoteEntry  `yaml:"notes,omitempty"`
}

// NoteEntry is a note with its tags resolved to names.
type NoteEntry struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Content   string    `yaml:"content"`
	Tags      []string  `yaml:"tags,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// TagEntry summarizes a tag.
type TagEntry struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Notes int    `yaml:"notes"`
}

// Exporter builds Documents from the notebook managers.
type Exporter struct {
	folders FolderReader
	notes   NoteReader
	tags    TagReader
	clock   func() time.Time
}

// NewExporter constructs an Exporter. A nil clock defaults to time.Now.
func NewExporter(folders FolderReader, notes NoteReader, tags TagReader, clock func() time.Time) (*Exporter, error) {
	if folders == nil || notes == nil || tags == nil {
		return nil, fmt.Errorf("export: folder, note and tag readers are required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &Exporter{folders: folders, notes: notes, tags: tags, clock: clock}, nil
}

// Build walks the hierarchy from the root folder.
func (e *Exporter) Build(ctx context.Context) (Document, error) {
	tags, err := e.tags.GetAll(ctx)
	if err != nil {
		return Document{}, err
	}
	tagNames := make(map[string]string, len(tags))
	entries := make([]TagEntry, 0, len(tags))
	for _, tag := range tags {
		tagNames[tag.ID] = tag.Name
		entries = append(entries, TagEntry{ID: tag.ID, Name: tag.Name, Notes: len(tag.NoteIDs)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	root, err := e.folders.GetByID(ctx, e.folders.RootID())
	if err != nil {
		return Document{}, err
	}
	node, err := e.buildFolder(ctx, root, tagNames)
	if err != nil {
		return Document{}, err
	}

	return Document{
		ExportedAt: e.clock().UTC(),
		Root:       node,
		Tags:       entries,
	}, nil
}

func (e *Exporter) buildFolder(ctx context.Context, folder notebook.Folder, tagNames map[string]string) (FolderNode, error) {
	node := FolderNode{
		ID:        folder.ID,
		Name:      folder.Name,
		CreatedAt: folder.CreatedAt,
		UpdatedAt: folder.UpdatedAt,
	}

	notes, err := e.notes.GetByFolder(ctx, folder.ID)
	if err != nil {
		return FolderNode{}, err
	}
	for _, note := range notes {
		names := make([]string, 0, len(note.TagIDs))
		for _, tagID := range note.TagIDs {
			if name, ok := tagNames[tagID]; ok {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		node.Notes = append(node.Notes, NoteEntry{
			ID:        note.ID,
			Name:      note.Name,
			Content:   note.Content,
			Tags:      names,
			CreatedAt: note.CreatedAt,
			UpdatedAt: note.UpdatedAt,
		})
	}

	children, err := e.folders.GetChildren(ctx, folder.ID)
	if err != nil {
		return FolderNode{}, err
	}
	for _, child := range children {
		childNode, err := e.buildFolder(ctx, child, tagNames)
		if err != nil {
			return FolderNode{}, err
		}
		node.Folders = append(node.Folders, childNode)
	}
	return node, nil
}

// WriteYAML encodes document to w with two-space indentation.
func WriteYAML(w io.Writer, document Document) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(document); err != nil {
		return fmt.Errorf("export: encode yaml: %w", err)
	}
	return encoder.Close()
}
