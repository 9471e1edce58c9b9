package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/notebook/internal/auth"
	"github.com/MarcoPoloResearchLab/notebook/internal/notebook"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	subjectContextKey = "notebook_subject"
	apiPrefix         = "/api/v1"
)

var (
	errMissingFolderManager = errors.New("folder manager dependency required")
	errMissingNoteManager   = errors.New("note manager dependency required")
	errMissingTagManager    = errors.New("tag manager dependency required")
)

// RequestAuthenticator validates the credentials carried by a request and
// returns the authenticated subject.
type RequestAuthenticator interface {
	ValidateRequest(r *http.Request) (string, error)
}

// Dependencies wires the HTTP surface. Authenticator and Feed are optional:
// without an Authenticator every route is open, and without a Feed the
// events route is not registered.
type Dependencies struct {
	Folders       *notebook.FolderManager
	Notes         *notebook.NoteManager
	Tags          *notebook.TagManager
	Authenticator RequestAuthenticator
	Feed          *ChangeFeed
	Logger        *zap.Logger
	Heartbeat     time.Duration
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Folders == nil {
		return nil, errMissingFolderManager
	}
	if deps.Notes == nil {
		return nil, errMissingNoteManager
	}
	if deps.Tags == nil {
		return nil, errMissingTagManager
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := deps.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler := &httpHandler{
		folders:       deps.Folders,
		notes:         deps.Notes,
		tags:          deps.Tags,
		authenticator: deps.Authenticator,
		feed:          deps.Feed,
		logger:        logger,
		heartbeat:     heartbeat,
	}

	router.GET("/healthz", handler.handleHealth)

	api := router.Group(apiPrefix)
	if handler.authenticator != nil {
		api.Use(handler.authorizeRequest)
	}

	api.GET("/folders", handler.listFolders)
	api.POST("/folders", handler.createRootChild)
	api.GET("/folders/:id", handler.getFolder)
	api.PATCH("/folders/:id", handler.updateFolder)
	api.DELETE("/folders/:id", handler.deleteFolder)
	api.GET("/folders/:id/subFolders", handler.listSubFolders)
	api.POST("/folders/:id/subFolders", handler.createSubFolder)
	api.GET("/folders/:id/notes", handler.listFolderNotes)
	api.POST("/folders/:id/notes", handler.createNote)

	api.GET("/notes", handler.listNotes)
	api.GET("/notes/:id", handler.getNote)
	api.PATCH("/notes/:id", handler.updateNote)
	api.DELETE("/notes/:id", handler.deleteNote)
	api.GET("/notes/:id/tags", handler.listNoteTags)

	api.GET("/tags", handler.listTags)
	api.POST("/tags", handler.createTag)
	api.GET("/tags/:id", handler.getTag)
	api.PATCH("/tags/:id", handler.updateTag)
	api.DELETE("/tags/:id", handler.deleteTag)
	api.GET("/tags/:id/notes", handler.listTagNotes)

	if handler.feed != nil {
		api.GET("/events", handler.streamEvents)
	}

	return router, nil
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", "Last-Event-ID"},
		MaxAge:       12 * time.Hour,
	})
}

type httpHandler struct {
	folders       *notebook.FolderManager
	notes         *notebook.NoteManager
	tags          *notebook.TagManager
	authenticator RequestAuthenticator
	feed          *ChangeFeed
	logger        *zap.Logger
	heartbeat     time.Duration
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "root_id": h.folders.RootID()})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	subject, err := h.authenticator.ValidateRequest(c.Request)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorPayload{
			Error:   "unauthorized",
			Code:    "auth.unauthorized",
			Message: "bearer token missing or invalid",
		})
		return
	}
	c.Set(subjectContextKey, subject)
	c.Next()
}

type errorPayload struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps domain errors onto HTTP statuses; anything that is not a
// domain error is reported as an internal failure without leaking details.
func (h *httpHandler) writeError(c *gin.Context, err error) {
	var domainErr *notebook.Error
	if !errors.As(err, &domainErr) {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		code := "internal"
		var serviceErr *notebook.ServiceError
		if errors.As(err, &serviceErr) {
			code = serviceErr.Code()
		}
		c.JSON(http.StatusInternalServerError, errorPayload{
			Error:   "internal_error",
			Code:    code,
			Message: "internal server error",
		})
		return
	}

	h.logger.Info("request rejected",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.String("code", domainErr.Code()))
	c.JSON(statusForKind(domainErr.Kind), errorPayload{
		Error:   string(domainErr.Kind),
		Code:    domainErr.Code(),
		Message: domainErr.Error(),
	})
}

func statusForKind(kind notebook.ErrorKind) int {
	switch kind {
	case notebook.KindNotFound, notebook.KindTagNotFound:
		return http.StatusNotFound
	case notebook.KindNameConflict:
		return http.StatusConflict
	case notebook.KindBlankName, notebook.KindBadRequest, notebook.KindUnsupportedOperation, notebook.KindRootNameReserved:
		return http.StatusBadRequest
	case notebook.KindRootPreserved:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (h *httpHandler) writeInvalidBody(c *gin.Context, err error) {
	h.logger.Info("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, errorPayload{
		Error:   "invalid_request",
		Code:    "request.invalid_body",
		Message: "request body must be a valid JSON object",
	})
}
