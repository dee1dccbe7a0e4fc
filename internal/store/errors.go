package store

import (
	"errors"
	"fmt"
)

// Error represents a rejected store or view operation.
//
// Rejections include:
//   - Duplicate key: add would violate key uniqueness in a collection
//   - Not found: update/remove of an absent key or unknown collection
//   - Invalid argument: malformed input (empty key, negative limit)
//
// Every Error is a rejected single operation. The store never enters a
// partially-updated state as a result of one.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Collection identifies the affected collection, if any.
	Collection string

	// Key identifies the affected record key, if any.
	Key string
}

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeDuplicateKey indicates an add with a key already present.
	ErrCodeDuplicateKey ErrorCode = "DUPLICATE_KEY"

	// ErrCodeNotFound indicates an absent key or unregistered collection.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInvalidArgument indicates malformed input to an operation.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Collection != "" && e.Key != "" {
		return fmt.Sprintf("%s: %s (collection=%s, key=%s)", e.Code, e.Message, e.Collection, e.Key)
	}
	if e.Collection != "" {
		return fmt.Sprintf("%s: %s (collection=%s)", e.Code, e.Message, e.Collection)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsDuplicateKey returns true if the error is a duplicate key rejection.
// Uses errors.As to handle wrapped errors.
func IsDuplicateKey(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == ErrCodeDuplicateKey
	}
	return false
}

// IsNotFound returns true if the error is a not-found rejection.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == ErrCodeNotFound
	}
	return false
}

// IsInvalidArgument returns true if the error is an invalid argument rejection.
// Uses errors.As to handle wrapped errors.
func IsInvalidArgument(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == ErrCodeInvalidArgument
	}
	return false
}

// NewDuplicateKeyError creates an Error for a key uniqueness violation.
func NewDuplicateKeyError(collection, key string) *Error {
	return &Error{
		Code:       ErrCodeDuplicateKey,
		Message:    "record key already exists in collection",
		Collection: collection,
		Key:        key,
	}
}

// NewNotFoundError creates an Error for an absent record.
func NewNotFoundError(collection, key string) *Error {
	return &Error{
		Code:       ErrCodeNotFound,
		Message:    "record not found in collection",
		Collection: collection,
		Key:        key,
	}
}

// NewUnknownCollectionError creates an Error for an unregistered collection.
func NewUnknownCollectionError(collection string) *Error {
	return &Error{
		Code:       ErrCodeNotFound,
		Message:    "collection not registered",
		Collection: collection,
	}
}

// NewInvalidArgumentError creates an Error for malformed input.
func NewInvalidArgumentError(message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidArgument,
		Message: message,
	}
}
