package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h *httpHandler) listTags(c *gin.Context) {
	tags, err := h.tags.GetAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": newTagPayloads(tags)})
}

func (h *httpHandler) listNoteTags(c *gin.Context) {
	tags, err := h.tags.GetByNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": newTagPayloads(tags)})
}

func (h *httpHandler) getTag(c *gin.Context) {
	tag, err := h.tags.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTagPayload(tag))
}

func (h *httpHandler) createTag(c *gin.Context) {
	var request tagRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeInvalidBody(c, err)
		return
	}

	tag, err := h.tags.Create(c.Request.Context(), request.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.publish(EntityTag, ActionCreated, tag.ID)
	c.JSON(http.StatusCreated, newTagPayload(tag))
}

func (h *httpHandler) updateTag(c *gin.Context) {
	var request tagRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeInvalidBody(c, err)
		return
	}
	newName := request.NewName
	if strings.TrimSpace(newName) == "" {
		newName = request.Name
	}

	tag, err := h.tags.Rename(c.Request.Context(), c.Param("id"), newName)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.publish(EntityTag, ActionUpdated, tag.ID)
	c.JSON(http.StatusOK, newTagPayload(tag))
}

func (h *httpHandler) deleteTag(c *gin.Context) {
	tagID := c.Param("id")
	before, err := h.tags.GetByID(c.Request.Context(), tagID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.tags.Delete(c.Request.Context(), tagID); err != nil {
		h.writeError(c, err)
		return
	}
	h.publish(EntityTag, ActionDeleted, append([]string{tagID}, before.NoteIDs...)...)
	c.Status(http.StatusNoContent)
}
