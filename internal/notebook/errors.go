package notebook

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain failures independently of any transport.
type ErrorKind string

const (
	KindNotFound             ErrorKind = "not_found"
	KindBlankName            ErrorKind = "blank_name"
	KindNameConflict         ErrorKind = "name_conflict"
	KindRootPreserved        ErrorKind = "root_preserved"
	KindRootNameReserved     ErrorKind = "root_name_reserved"
	KindTagNotFound          ErrorKind = "tag_not_found"
	KindBadRequest           ErrorKind = "bad_request"
	KindUnsupportedOperation ErrorKind = "unsupported_operation"
)

// EntityKind names the entity an error refers to.
type EntityKind string

const (
	EntityFolder EntityKind = "folder"
	EntityNote   EntityKind = "note"
	EntityTag    EntityKind = "tag"
)

// Error is a domain rule violation raised by a manager operation.
type Error struct {
	Kind      ErrorKind
	Operation string
	Entity    EntityKind
	Subject   string
	Detail    string
}

// Sentinels for errors.Is. Only the kind is compared.
var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrBlankName            = &Error{Kind: KindBlankName}
	ErrNameConflict         = &Error{Kind: KindNameConflict}
	ErrRootPreserved        = &Error{Kind: KindRootPreserved}
	ErrRootNameReserved     = &Error{Kind: KindRootNameReserved}
	ErrTagNotFound          = &Error{Kind: KindTagNotFound}
	ErrBadRequest           = &Error{Kind: KindBadRequest}
	ErrUnsupportedOperation = &Error{Kind: KindUnsupportedOperation}
)

func (e *Error) Error() string {
	var message string
	switch e.Kind {
	case KindNotFound:
		message = fmt.Sprintf("%s not found: %s", e.entityLabel(), e.Subject)
	case KindBlankName:
		message = fmt.Sprintf("%s name must not be blank", e.entityLabel())
	case KindNameConflict:
		message = fmt.Sprintf("%s name already in use: %s", e.entityLabel(), e.Subject)
	case KindRootPreserved:
		message = "root folder cannot be modified"
	case KindRootNameReserved:
		message = fmt.Sprintf("folder name %q is reserved for the root folder", RootFolderName)
	case KindTagNotFound:
		message = fmt.Sprintf("tag not found: %s", e.Subject)
	case KindBadRequest:
		message = fmt.Sprintf("invalid %s operation on %s", e.entityLabel(), e.Subject)
	case KindUnsupportedOperation:
		message = fmt.Sprintf("unsupported update type: %s", e.Subject)
	default:
		message = string(e.Kind)
	}
	if e.Detail != "" {
		message = message + ": " + e.Detail
	}
	if e.Operation == "" {
		return message
	}
	return e.Operation + ": " + message
}

func (e *Error) entityLabel() string {
	if e.Entity == "" {
		return "entity"
	}
	return string(e.Entity)
}

// Code returns a stable machine readable code such as folders.create.name_conflict.
func (e *Error) Code() string {
	if e.Operation == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s.%s", e.Operation, e.Kind)
}

// Is matches sentinel errors by kind. A reserved-name violation is also a
// root preservation violation.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	if other.Kind == e.Kind {
		return true
	}
	return other.Kind == KindRootPreserved && e.Kind == KindRootNameReserved
}

// KindOf extracts the domain kind from err, or an empty kind when err is not
// a domain error.
func KindOf(err error) ErrorKind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}

func notFound(operation string, entity EntityKind, id string) error {
	return &Error{Kind: KindNotFound, Operation: operation, Entity: entity, Subject: id}
}

func blankName(operation string, entity EntityKind) error {
	return &Error{Kind: KindBlankName, Operation: operation, Entity: entity}
}

func nameConflict(operation string, entity EntityKind, name string) error {
	return &Error{Kind: KindNameConflict, Operation: operation, Entity: entity, Subject: name}
}

func rootPreserved(operation string) error {
	return &Error{Kind: KindRootPreserved, Operation: operation, Entity: EntityFolder}
}

func rootNameReserved(operation string) error {
	return &Error{Kind: KindRootNameReserved, Operation: operation, Entity: EntityFolder, Subject: RootFolderName}
}

func tagNotFound(operation, name string) error {
	return &Error{Kind: KindTagNotFound, Operation: operation, Entity: EntityTag, Subject: name}
}

func badRequest(operation string, entity EntityKind, subject, detail string) error {
	return &Error{Kind: KindBadRequest, Operation: operation, Entity: entity, Subject: subject, Detail: detail}
}

func unsupportedOperation(operation, updateType string) error {
	return &Error{Kind: KindUnsupportedOperation, Operation: operation, Subject: updateType}
}

// ServiceError reports an infrastructure failure (store, id generation)
// rather than a domain rule violation.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}
