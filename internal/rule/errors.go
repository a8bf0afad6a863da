package rule

import (
	"errors"
	"fmt"
)

// ParseErrorCode categorizes decoder failures.
type ParseErrorCode string

const (
	// ErrCodeMalformed indicates a filter payload that cannot be decoded:
	// unknown operator, leaf without a field path, group without children,
	// or a literal outside the supported scalar range.
	ErrCodeMalformed ParseErrorCode = "MALFORMED_RULE_TREE"

	// ErrCodeAmbiguous indicates a request carrying more than one of the
	// three filter encodings. There is no defined precedence between them,
	// so the combination is rejected outright.
	ErrCodeAmbiguous ParseErrorCode = "AMBIGUOUS_RULE_TREE"
)

// ParseError is returned for any caller-supplied filter payload the decoders
// reject. It is a client error: the same payload will never parse on retry.
type ParseError struct {
	Code    ParseErrorCode
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// malformed builds an ErrCodeMalformed ParseError.
func malformed(format string, args ...any) *ParseError {
	return &ParseError{Code: ErrCodeMalformed, Message: fmt.Sprintf(format, args...)}
}

// IsMalformed reports whether err is a malformed-rule-tree parse error.
// Uses errors.As to handle wrapped errors.
func IsMalformed(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Code == ErrCodeMalformed
}

// IsAmbiguous reports whether err is an ambiguous-rule-tree parse error.
func IsAmbiguous(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Code == ErrCodeAmbiguous
}
