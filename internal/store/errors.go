package store

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// StoreErrorCode categorizes write errors.
type StoreErrorCode string

const (
	// ErrCodeNotFound indicates the entity does not exist (or was deleted).
	ErrCodeNotFound StoreErrorCode = "NOT_FOUND"

	// ErrCodeAlreadyExists indicates an insert reused a live entity id.
	ErrCodeAlreadyExists StoreErrorCode = "ALREADY_EXISTS"

	// ErrCodeInvalidAttribute indicates an attribute name cannot be stored.
	ErrCodeInvalidAttribute StoreErrorCode = "INVALID_ATTRIBUTE"
)

// StoreError is returned for rejected writes.
type StoreError struct {
	Code       StoreErrorCode
	Collection string
	EntityID   string
	Message    string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("%s: %s (collection=%s, id=%s)", e.Code, e.Message, e.Collection, e.EntityID)
	}
	return fmt.Sprintf("%s: %s (collection=%s)", e.Code, e.Message, e.Collection)
}

// IsNotFound reports whether err is a NOT_FOUND store error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsAlreadyExists reports whether err is an ALREADY_EXISTS store error.
func IsAlreadyExists(err error) bool {
	return hasCode(err, ErrCodeAlreadyExists)
}

// IsInvalidAttribute reports whether err is an INVALID_ATTRIBUTE store error.
func IsInvalidAttribute(err error) bool {
	return hasCode(err, ErrCodeInvalidAttribute)
}

func hasCode(err error, code StoreErrorCode) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
