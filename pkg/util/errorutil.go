package util

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

// NewInvalidTransition reports an illegal ticket status change. Rejected
// before any remote call.
func NewInvalidTransition(from, to string) error {
	return NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("status transition %s -> %s is not allowed", from, to),
		http.StatusUnprocessableEntity,
		map[string]any{"from": from, "to": to})
}

// NewInvalidAssignment reports a categoryId that does not belong to the
// requested queueId. Rejected before any remote call.
func NewInvalidAssignment(queueID, categoryID string) error {
	return NewDomainError("INVALID_ASSIGNMENT",
		"category does not belong to queue",
		http.StatusUnprocessableEntity,
		map[string]any{"queue_id": queueID, "category_id": categoryID})
}

// NewEmptyComment reports empty or whitespace-only comment text.
func NewEmptyComment() error {
	return NewDomainError("EMPTY_COMMENT", "comment text required", http.StatusBadRequest, nil)
}

// NewRemoteFailure wraps a non-success response or transport error from the
// system-of-record. The cause is retained for logging; the message shown to
// callers stays generic.
func NewRemoteFailure(err error) error {
	return &DomainError{
		Code:       "REMOTE_FAILURE",
		Message:    "remote operation failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewMutationInFlight reports a second mutation attempted while one is
// already pending for the same entity.
func NewMutationInFlight(entity, id string) error {
	return NewDomainError("MUTATION_IN_FLIGHT",
		"another change for this entity is still pending",
		http.StatusConflict,
		map[string]any{"entity": entity, "id": id})
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// IsCode reports whether err is a DomainError carrying the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
