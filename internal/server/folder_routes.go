package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/notebook/internal/notebook"
	"github.com/gin-gonic/gin"
)

func (h *httpHandler) listFolders(c *gin.Context) {
	folders, err := h.folders.GetAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": newFolderPayloads(folders)})
}

func (h *httpHandler) getFolder(c *gin.Context) {
	folder, err := h.folders.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFolderPayload(folder))
}

func (h *httpHandler) listSubFolders(c *gin.Context) {
	folders, err := h.folders.GetChildren(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": newFolderPayloads(folders)})
}

func (h *httpHandler) createRootChild(c *gin.Context) {
	h.createFolderUnder(c, h.folders.RootID())
}

func (h *httpHandler) createSubFolder(c *gin.Context) {
	h.createFolderUnder(c, c.Param("id"))
}

func (h *httpHandler) createFolderUnder(c *gin.Context, parentID string) {
	var request folderCreationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeInvalidBody(c, err)
		return
	}

	folder, err := h.folders.Create(c.Request.Context(), parentID, request.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.publish(EntityFolder, ActionCreated, folder.ID, folder.Parent())
	c.JSON(http.StatusCreated, newFolderPayload(folder))
}

func (h *httpHandler) updateFolder(c *gin.Context) {
	var request folderUpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.writeInvalidBody(c, err)
		return
	}

	folderID := c.Param("id")
	previousParent := ""
	if request.UpdateType == string(notebook.FolderUpdateMove) {
		if current, err := h.folders.GetByID(c.Request.Context(), folderID); err == nil {
			previousParent = current.Parent()
		}
	}

	folder, err := h.folders.Update(c.Request.Context(), folderID, notebook.FolderUpdate{
		Type:       notebook.FolderUpdateType(request.UpdateType),
		NewName:    request.NewName,
		ToParentID: request.ToParentID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	ids := []string{folder.ID}
	if previousParent != "" && previousParent != folder.Parent() {
		ids = append(ids, previousParent, folder.Parent())
	}
	h.publish(EntityFolder, ActionUpdated, ids...)
	c.JSON(http.StatusOK, newFolderPayload(folder))
}

func (h *httpHandler) deleteFolder(c *gin.Context) {
	folderID := c.Param("id")
	if err := h.folders.Delete(c.Request.Context(), folderID); err != nil {
		h.writeError(c, err)
		return
	}
	h.publish(EntityFolder, ActionDeleted, folderID)
	c.Status(http.StatusNoContent)
}
