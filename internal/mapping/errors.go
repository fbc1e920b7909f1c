package mapping

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned for unknown profile or mapping ids.
	ErrNotFound = errors.New("not found")
	// ErrReadOnly is returned when mutating a built-in profile.
	ErrReadOnly = errors.New("profile is read-only")
	// ErrActiveProfile is returned when deleting the active profile.
	ErrActiveProfile = errors.New("cannot delete the active profile")
	// ErrUnsupportedBundle is returned for bundles of an unknown format version.
	ErrUnsupportedBundle = errors.New("unsupported bundle format")
)

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "profile" or "mapping"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Validation issue codes.
const (
	CodeRequired     = "required"
	CodeOutOfRange   = "out_of_range"
	CodeInvalidRange = "invalid_range"
	CodeInvalidValue = "invalid_value"
	CodeDuplicate    = "duplicate"
)

// FieldIssue is one violated field.
type FieldIssue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError lists every violated field of a rejected mutation.
type ValidationError struct {
	Issues []FieldIssue `json:"issues"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.Field + ": " + is.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether field was flagged with code.
func (e *ValidationError) Has(field, code string) bool {
	for _, is := range e.Issues {
		if is.Field == field && is.Code == code {
			return true
		}
	}
	return false
}
