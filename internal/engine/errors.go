package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/treesync/internal/ir"
)

// SyncError represents an error detected while exporting or reconciling.
//
// Sync errors are always fatal to the operation that raised them:
//   - Reference not found: a reference string names no existing node
//   - Unknown reference tag: a reference string has an unrecognized prefix
//   - Unsupported category: a change addresses a category with no handler
//   - Unsupported shape: a change path is deeper or shallower than its
//     handler accepts
//   - Consistency violation: the store does not reflect a write it accepted
//
// Mutations applied before the error remain applied.
type SyncError struct {
	// Code identifies the error category.
	Code SyncErrorCode

	// Message is a human-readable description.
	Message string

	// Ref is the reference string involved, if any.
	Ref string

	// Path is the change path involved, if any.
	Path ir.Path

	// Err is the underlying cause, if any.
	Err error
}

// SyncErrorCode categorizes sync errors.
type SyncErrorCode string

const (
	// ErrCodeReferenceNotFound indicates a reference resolved to nothing.
	ErrCodeReferenceNotFound SyncErrorCode = "REFERENCE_NOT_FOUND"

	// ErrCodeUnknownReferenceTag indicates a malformed reference prefix.
	ErrCodeUnknownReferenceTag SyncErrorCode = "UNKNOWN_REFERENCE_TAG"

	// ErrCodeUnsupportedCategory indicates a change category with no handler.
	ErrCodeUnsupportedCategory SyncErrorCode = "UNSUPPORTED_CATEGORY"

	// ErrCodeUnsupportedShape indicates a path a handler cannot consume.
	ErrCodeUnsupportedShape SyncErrorCode = "UNSUPPORTED_SHAPE"

	// ErrCodeConsistencyViolation indicates the store contradicted itself.
	ErrCodeConsistencyViolation SyncErrorCode = "CONSISTENCY_VIOLATION"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Ref != "" {
		msg += fmt.Sprintf(" (ref=%q)", e.Ref)
	}
	if len(e.Path) > 0 {
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *SyncError) Unwrap() error { return e.Err }

// ErrorCode returns the SyncErrorCode carried by err, or "" if err is not a
// SyncError. Uses errors.As to handle wrapped errors.
func ErrorCode(err error) SyncErrorCode {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsReferenceNotFound reports whether err is a reference-not-found error.
func IsReferenceNotFound(err error) bool {
	return ErrorCode(err) == ErrCodeReferenceNotFound
}

// IsUnknownReferenceTag reports whether err is an unknown-tag error.
func IsUnknownReferenceTag(err error) bool {
	return ErrorCode(err) == ErrCodeUnknownReferenceTag
}

// IsUnsupportedCategory reports whether err is an unsupported-category error.
func IsUnsupportedCategory(err error) bool {
	return ErrorCode(err) == ErrCodeUnsupportedCategory
}

// IsUnsupportedShape reports whether err is an unsupported-shape error.
func IsUnsupportedShape(err error) bool {
	return ErrorCode(err) == ErrCodeUnsupportedShape
}

// IsConsistencyViolation reports whether err is a consistency error.
func IsConsistencyViolation(err error) bool {
	return ErrorCode(err) == ErrCodeConsistencyViolation
}

// NewReferenceNotFoundError creates a SyncError for an unresolvable reference.
func NewReferenceNotFoundError(ref string) *SyncError {
	return &SyncError{
		Code:    ErrCodeReferenceNotFound,
		Message: "reference does not resolve to a node",
		Ref:     ref,
	}
}

// NewUnknownReferenceTagError creates a SyncError for a malformed reference.
func NewUnknownReferenceTagError(ref string, cause error) *SyncError {
	return &SyncError{
		Code:    ErrCodeUnknownReferenceTag,
		Message: "reference has an unknown tag",
		Ref:     ref,
		Err:     cause,
	}
}

// NewUnsupportedCategoryError creates a SyncError for an unknown category.
func NewUnsupportedCategoryError(category string, path ir.Path) *SyncError {
	return &SyncError{
		Code:    ErrCodeUnsupportedCategory,
		Message: fmt.Sprintf("no handler for category %q", category),
		Path:    path,
	}
}

// NewUnsupportedShapeError creates a SyncError for an unconsumable path.
func NewUnsupportedShapeError(path ir.Path, format string, args ...any) *SyncError {
	return &SyncError{
		Code:    ErrCodeUnsupportedShape,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}

// NewConsistencyError creates a SyncError for a store that does not reflect
// its own write.
func NewConsistencyError(ref, message string) *SyncError {
	return &SyncError{
		Code:    ErrCodeConsistencyViolation,
		Message: message,
		Ref:     ref,
	}
}
