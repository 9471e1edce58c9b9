package notebook

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	errMissingStore      = errors.New("store is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingRootID     = errors.New("root folder identifier is required")
	noOpLogger           = zap.NewNop()
)

const (
	reasonMissingStore      = "missing_store"
	reasonMissingIDProvider = "missing_id_provider"
	reasonMissingRootID     = "missing_root_id"
	reasonQueryFailed       = "query_failed"
	reasonSaveFailed        = "save_failed"
	reasonDeleteFailed      = "delete_failed"
	reasonLinkFailed        = "link_failed"
	reasonIDGeneration      = "id_generation_failed"
	reasonInconsistent      = "inconsistent_state"
)

// ServiceConfig carries the collaborators shared by the managers. RootID is
// only consulted by the FolderManager.
type ServiceConfig struct {
	Store      Store
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
	RootID     string
}

type core struct {
	store      Store
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

func newCore(operation string, cfg ServiceConfig) (core, error) {
	if cfg.Store == nil {
		return core{}, newServiceError(operation, reasonMissingStore, errMissingStore)
	}
	if cfg.IDProvider == nil {
		return core{}, newServiceError(operation, reasonMissingIDProvider, errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return core{
		store:      cfg.Store,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

func (c *core) ready(operation string) error {
	if c == nil || c.store == nil {
		c.logError(operation, reasonMissingStore, errMissingStore)
		return newServiceError(operation, reasonMissingStore, errMissingStore)
	}
	if c.idProvider == nil {
		c.logError(operation, reasonMissingIDProvider, errMissingIDProvider)
		return newServiceError(operation, reasonMissingIDProvider, errMissingIDProvider)
	}
	return nil
}

func (c *core) now() time.Time {
	return c.clock().UTC()
}

func (c *core) newID(operation string) (string, error) {
	id, err := c.idProvider.NewID()
	if err != nil {
		return "", c.failure(operation, reasonIDGeneration, err)
	}
	return id, nil
}

// failure logs an infrastructure error and wraps it as a ServiceError.
func (c *core) failure(operation, reason string, err error, fields ...zap.Field) error {
	c.logError(operation, reason, err, fields...)
	return newServiceError(operation, reason, err)
}

// writeFailure maps unique-constraint violations raised by the store to a
// name conflict and wraps everything else as a ServiceError.
func (c *core) writeFailure(operation string, entity EntityKind, name string, err error, fields ...zap.Field) error {
	if errors.Is(err, ErrDuplicateName) {
		return nameConflict(operation, entity, name)
	}
	return c.failure(operation, reasonSaveFailed, err, fields...)
}

func (c *core) logNoOp(operation, reason string, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	attrs = append(attrs, fields...)
	c.loggerOrDefault().Info("operation skipped", attrs...)
}

func (c *core) loggerOrDefault() *zap.Logger {
	if c == nil {
		return noOpLogger
	}
	if c.logger == nil {
		return noOpLogger
	}
	return c.logger
}

func (c *core) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	c.loggerOrDefault().Error("notebook service error", attrs...)
}

// normalizeName trims surrounding whitespace; an empty result means blank.
func normalizeName(raw string) string {
	return strings.TrimSpace(raw)
}
