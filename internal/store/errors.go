package store

import (
	"errors"
	"fmt"
)

// StoreError represents a failure the caller can act on: a referenced row
// that does not exist within the caller's scope, or a stored record whose
// JSON blob no longer parses.
type StoreError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ID is the row identity involved, when known.
	ID int64
}

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeRecordNotFound indicates no data row with the id exists in scope.
	ErrCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"

	// ErrCodeTagNotFound indicates a referenced tag doesn't exist in scope.
	ErrCodeTagNotFound ErrorCode = "TAG_NOT_FOUND"

	// ErrCodeBucketNotFound indicates a referenced bucket doesn't exist.
	ErrCodeBucketNotFound ErrorCode = "BUCKET_NOT_FOUND"

	// ErrCodeFilterNotFound indicates no live saved filter matches.
	ErrCodeFilterNotFound ErrorCode = "FILTER_NOT_FOUND"

	// ErrCodeCorruptRecord indicates a stored properties blob failed to parse.
	ErrCodeCorruptRecord ErrorCode = "CORRUPT_RECORD"
)

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s: %s (id=%d)", e.Code, e.Message, e.ID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNotFound returns true for any of the not-found categories.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		switch se.Code {
		case ErrCodeRecordNotFound, ErrCodeTagNotFound, ErrCodeBucketNotFound, ErrCodeFilterNotFound:
			return true
		}
	}
	return false
}

// IsCorruptRecord returns true if the error is a corrupt record error.
// Uses errors.As to handle wrapped errors.
func IsCorruptRecord(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == ErrCodeCorruptRecord
}

func recordNotFound(id int64) *StoreError {
	return &StoreError{Code: ErrCodeRecordNotFound, Message: "record not found", ID: id}
}

func tagNotFound(id int64) *StoreError {
	return &StoreError{Code: ErrCodeTagNotFound, Message: "tag not found", ID: id}
}

func bucketNotFound(name string) *StoreError {
	return &StoreError{Code: ErrCodeBucketNotFound, Message: fmt.Sprintf("bucket %q not found", name)}
}

func filterNotFound(id int64) *StoreError {
	return &StoreError{Code: ErrCodeFilterNotFound, Message: "filter not found", ID: id}
}

func corruptRecord(id int64, cause error) *StoreError {
	return &StoreError{
		Code:    ErrCodeCorruptRecord,
		Message: fmt.Sprintf("stored properties are not valid JSON: %v", cause),
		ID:      id,
	}
}
