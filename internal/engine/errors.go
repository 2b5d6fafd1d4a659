package engine

import (
	"errors"
	"fmt"
)

// ConversionError is a soft error recorded during one conversion run.
//
// Soft errors never abort a run: the failing constraint step is skipped,
// the error is logged, and processing continues with the next property.
type ConversionError struct {
	// Code identifies the error category.
	Code ErrorCode `json:"code"`

	// Path is the dotted field path of the property being processed.
	Path string `json:"path"`

	// Message is a human-readable description.
	Message string `json:"message"`
}

// ErrorCode categorizes conversion and validation errors.
type ErrorCode string

const (
	// ErrCodeConflict: destination already populated; both sides left untouched.
	ErrCodeConflict ErrorCode = "C001"

	// ErrCodeMissingProperty: a constraint target is not declared in the model.
	ErrCodeMissingProperty ErrorCode = "C002"

	// ErrCodeUnresolvablePath: an intermediate path segment is not declared.
	ErrCodeUnresolvablePath ErrorCode = "C003"

	// ErrCodeUnsupportedPath: versioned-side MoveTo only supports same-container targets.
	ErrCodeUnsupportedPath ErrorCode = "C004"

	// ErrCodeInvalidDefault: a default literal cannot be coerced to the property type.
	ErrCodeInvalidDefault ErrorCode = "C005"

	// ErrCodeNotContainer: an intermediate path key holds a non-object value.
	ErrCodeNotContainer ErrorCode = "C006"

	// ErrCodeConstraint: a constraint could not be built for this run.
	ErrCodeConstraint ErrorCode = "C007"

	// ErrCodeRequired: validation found a missing non-optional property.
	ErrCodeRequired ErrorCode = "C010"

	// ErrCodeKindMismatch: validation found a value that does not match its declared kind.
	ErrCodeKindMismatch ErrorCode = "C011"

	// ErrCodeViolation: a validation constraint rejected the value.
	ErrCodeViolation ErrorCode = "C012"
)

// Error implements the error interface.
func (e *ConversionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConflict returns true if the error is a destination conflict.
// Uses errors.As to handle wrapped errors.
func IsConflict(err error) bool {
	return hasCode(err, ErrCodeConflict)
}

// IsUnsupportedPath returns true if the error is a rejected versioned-side path.
func IsUnsupportedPath(err error) bool {
	return hasCode(err, ErrCodeUnsupportedPath)
}

func hasCode(err error, code ErrorCode) bool {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// LookupError reports a caller error: the requested version or type does not
// exist in the API catalog.
type LookupError struct {
	API     string
	Version string
	Type    string
	Err     error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s/%s/%s: %v", e.API, e.Version, e.Type, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}
