package domain

import "fmt"

// ValidationError reports invalid operation input. It is raised before any
// catalog mutation is attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for the given input field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// UnsupportedOperationError reports an operation family/action combination
// outside the supported table.
type UnsupportedOperationError struct {
	Family OperationFamily
	Action string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation %s.%s", e.Family, e.Action)
}

// ResourceMutationError reports a failed catalog mutation for one resource.
// It is recorded per item; the surrounding batch continues.
type ResourceMutationError struct {
	Resource ResourceRef
	Field    Field
	Err      error
}

func (e *ResourceMutationError) Error() string {
	return fmt.Sprintf("mutation failed for %s %s field %s: %v", e.Resource.Type, e.Resource.ID, e.Field, e.Err)
}

func (e *ResourceMutationError) Unwrap() error {
	return e.Err
}

// SnapshotPersistenceError reports a failed snapshot write. The catalog
// mutations of the batch already succeeded and are not rolled back; only the
// revert feature is degraded.
type SnapshotPersistenceError struct {
	ShopID string
	Err    error
}

func (e *SnapshotPersistenceError) Error() string {
	return fmt.Sprintf("failed to persist snapshot for shop %s: %v", e.ShopID, e.Err)
}

func (e *SnapshotPersistenceError) Unwrap() error {
	return e.Err
}
