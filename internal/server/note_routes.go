package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/notebook/internal/notebook"
	"github.com/gin-gonic/gin"
)

func (h *httpHandler) listNotes(c *gin.Context) {
	notes, err := h.notes.GetAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": newNotePayloads(notes)})
}

func (h *httpHandler) listFolderNotes(c *gin.Context) {
	notes, err := h.notes.GetByFolder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": newNotePayloads(notes)})
}

func (h *httpHandler) listTagNotes(c *gin.Context) {
	notes, err := h.notes.GetByTag(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": newNotePayloads(notes)})
}

func (h *httpHandler) getNote(c *gin.Context) {
	note, err := h.notes.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newNotePayload(note))
}

func (h *httpHandler) createNote(c *gin.Context) {
	var request noteCreationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeInvalidBody(c, err)
		return
	}

	note, err := h.notes.Create(c.Request.Context(), c.Param("id"), request.Name, request.Content)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.publish(EntityNote, ActionCreated, note.ID, note.FolderID)
	c.JSON(http.StatusCreated, newNotePayload(note))
}

func (h *httpHandler) updateNote(c *gin.Context) {
	var request noteUpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeInvalidBody(c, err)
		return
	}

	noteID := c.Param("id")
	before, err := h.notes.GetByID(c.Request.Context(), noteID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	note, err := h.notes.Update(c.Request.Context(), noteID, notebook.NoteUpdate{
		Type:       notebook.NoteUpdateType(request.UpdateType),
		NewName:    request.NewName,
		NewContent: request.NewContent,
		ToFolderID: request.ToFolderID,
		TagName:    request.TagName,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.publish(EntityNote, ActionUpdated, changedNoteIDs(before, note)...)
	c.JSON(http.StatusOK, newNotePayload(note))
}

func (h *httpHandler) deleteNote(c *gin.Context) {
	noteID := c.Param("id")
	if err := h.notes.Delete(c.Request.Context(), noteID); err != nil {
		h.writeError(c, err)
		return
	}
	h.publish(EntityNote, ActionDeleted, noteID)
	c.Status(http.StatusNoContent)
}

// changedNoteIDs lists the note, its folder(s) and any tag whose membership
// differs between before and after.
func changedNoteIDs(before, after notebook.Note) []string {
	ids := []string{after.ID, after.FolderID}
	if before.FolderID != after.FolderID {
		ids = append(ids, before.FolderID)
	}
	ids = append(ids, symmetricDifference(before.TagIDs, after.TagIDs)...)
	return ids
}

func symmetricDifference(left, right []string) []string {
	seen := make(map[string]int, len(left)+len(right))
	for _, id := range left {
		seen[id] |= 1
	}
	for _, id := range right {
		seen[id] |= 2
	}
	var diff []string
	for _, id := range append(append([]string{}, left...), right...) {
		if mask, ok := seen[id]; ok && mask != 3 {
			diff = append(diff, id)
			delete(seen, id)
		}
	}
	return diff
}
