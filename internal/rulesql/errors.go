package rulesql

import (
	"errors"
	"fmt"
)

// CompileErrorCode categorizes compilation failures. All of them are caller
// errors: the same AST will fail the same way on retry.
type CompileErrorCode string

const (
	// ErrCodeUnknownField indicates a field path that resolves to neither a
	// declared relational column nor a legal JSON property path.
	ErrCodeUnknownField CompileErrorCode = "UNKNOWN_FIELD"

	// ErrCodeTypeMismatch indicates an operator applied to an incompatible
	// literal type (e.g. ordering on a boolean, string against a numeric
	// column).
	ErrCodeTypeMismatch CompileErrorCode = "TYPE_MISMATCH"

	// ErrCodeInvalidPagination indicates page < 1 or limit < 0.
	ErrCodeInvalidPagination CompileErrorCode = "INVALID_PAGINATION"

	// ErrCodeEmptyPropertyCast indicates a typed operation against a null
	// JSON property value (a null literal supplied where the operator needs
	// a typed operand to pick its cast target).
	ErrCodeEmptyPropertyCast CompileErrorCode = "EMPTY_PROPERTY_CAST"
)

// CompileError is returned when an AST cannot be compiled to SQL.
type CompileError struct {
	Code    CompileErrorCode
	Field   string // offending field path, when known
	Message string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func unknownField(field string) *CompileError {
	return &CompileError{
		Code:    ErrCodeUnknownField,
		Field:   field,
		Message: "field resolves to neither a declared column nor a JSON property path",
	}
}

func typeMismatch(field, format string, args ...any) *CompileError {
	return &CompileError{Code: ErrCodeTypeMismatch, Field: field, Message: fmt.Sprintf(format, args...)}
}

func invalidPagination(format string, args ...any) *CompileError {
	return &CompileError{Code: ErrCodeInvalidPagination, Message: fmt.Sprintf(format, args...)}
}

func emptyPropertyCast(field string) *CompileError {
	return &CompileError{
		Code:    ErrCodeEmptyPropertyCast,
		Field:   field,
		Message: "failed to operate on an empty property",
	}
}

// errCode extracts the CompileErrorCode from err, if any.
func errCode(err error) (CompileErrorCode, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return "", false
}

// IsUnknownField reports whether err is an unknown-field compile error.
func IsUnknownField(err error) bool {
	code, ok := errCode(err)
	return ok && code == ErrCodeUnknownField
}

// IsTypeMismatch reports whether err is a type-mismatch compile error.
func IsTypeMismatch(err error) bool {
	code, ok := errCode(err)
	return ok && code == ErrCodeTypeMismatch
}

// IsInvalidPagination reports whether err is an invalid-pagination error.
func IsInvalidPagination(err error) bool {
	code, ok := errCode(err)
	return ok && code == ErrCodeInvalidPagination
}

// IsEmptyPropertyCast reports whether err is an empty-property-cast error.
func IsEmptyPropertyCast(err error) bool {
	code, ok := errCode(err)
	return ok && code == ErrCodeEmptyPropertyCast
}
