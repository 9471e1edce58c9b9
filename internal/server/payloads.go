package server

import (
	"time"

	"github.com/MarcoPoloResearchLab/notebook/internal/notebook"
)

type folderPayload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parentId"`
	ChildIDs  []string  `json:"childIds"`
	NoteIDs   []string  `json:"noteIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type notePayload struct {
	ID        string    `json:"id"`
	FolderID  string    `json:"folderId"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	TagIDs    []string  `json:"tagIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type tagPayload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NoteIDs   []string  `json:"noteIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type folderCreationRequest struct {
	Name string `json:"name"`
}

type folderUpdateRequest struct {
	UpdateType string `json:"updateType"`
	NewName    string `json:"newName"`
	ToParentID string `json:"toParentId"`
}

type noteCreationRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type noteUpdateRequest struct {
	UpdateType string `json:"updateType"`
	NewName    string `json:"newName"`
	NewContent string `json:"newContent"`
	ToFolderID string `json:"toFolderId"`
	TagName    string `json:"tagName"`
}

type tagRequest struct {
	Name    string `json:"name"`
	NewName string `json:"newName"`
}

func newFolderPayload(folder notebook.Folder) folderPayload {
	return folderPayload{
		ID:        folder.ID,
		Name:      folder.Name,
		ParentID:  folder.ParentID,
		ChildIDs:  nonNil(folder.ChildIDs),
		NoteIDs:   nonNil(folder.NoteIDs),
		CreatedAt: folder.CreatedAt,
		UpdatedAt: folder.UpdatedAt,
	}
}

func newFolderPayloads(folders []notebook.Folder) []folderPayload {
	payloads := make([]folderPayload, 0, len(folders))
	for _, folder := range folders {
		payloads = append(payloads, newFolderPayload(folder))
	}
	return payloads
}

func newNotePayload(note notebook.Note) notePayload {
	return notePayload{
		ID:        note.ID,
		FolderID:  note.FolderID,
		Name:      note.Name,
		Content:   note.Content,
		TagIDs:    nonNil(note.TagIDs),
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
}

func newNotePayloads(notes []notebook.Note) []notePayload {
	payloads := make([]notePayload, 0, len(notes))
	for _, note := range notes {
		payloads = append(payloads, newNotePayload(note))
	}
	return payloads
}

func newTagPayload(tag notebook.Tag) tagPayload {
	return tagPayload{
		ID:        tag.ID,
		Name:      tag.Name,
		NoteIDs:   nonNil(tag.NoteIDs),
		CreatedAt: tag.CreatedAt,
		UpdatedAt: tag.UpdatedAt,
	}
}

func newTagPayloads(tags []notebook.Tag) []tagPayload {
	payloads := make([]tagPayload, 0, len(tags))
	for _, tag := range tags {
		payloads = append(payloads, newTagPayload(tag))
	}
	return payloads
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
