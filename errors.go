package relmap

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched by the typed errors below through errors.Is.
var (
	// ErrNotFound is returned when no row matches a by-id lookup.
	ErrNotFound = errors.New("relmap: entity not found")

	// ErrNotSingular is returned when a by-id lookup matches more than one row.
	ErrNotSingular = errors.New("relmap: entity not singular")

	// ErrInvalidMapping marks schema misuse discovered while resolving metadata.
	ErrInvalidMapping = errors.New("relmap: invalid mapping")

	// ErrMissingAnnotation marks a field or type that lacks a required tag.
	ErrMissingAnnotation = errors.New("relmap: missing annotation")

	// ErrInvalidColumnType marks a value that cannot be rendered as a SQL literal
	// or assigned to a column field.
	ErrInvalidColumnType = errors.New("relmap: invalid column type")

	// ErrInvalidResultSet marks a result row that does not fit the mapping.
	ErrInvalidResultSet = errors.New("relmap: invalid result set")
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("relmap: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("relmap: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the id that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the id that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError represents an error when a lookup expects a single row
// but receives several.
type NotSingularError struct {
	label string
	count int // -1 if unknown
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	if e.count >= 0 {
		return fmt.Sprintf("relmap: %s not singular (got %d results, expected 1)", e.label, e.count)
	}
	return fmt.Sprintf("relmap: %s not singular", e.label)
}

// Is reports whether the target error matches NotSingularError.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// Label returns the entity label.
func (e *NotSingularError) Label() string {
	return e.label
}

// Count returns the number of results, or -1 if unknown.
func (e *NotSingularError) Count() int {
	return e.count
}

// NewNotSingularError returns a new NotSingularError for the given entity type.
func NewNotSingularError(label string) *NotSingularError {
	return &NotSingularError{label: label, count: -1}
}

// NewNotSingularErrorWithCount returns a new NotSingularError with the result count.
func NewNotSingularErrorWithCount(label string, count int) *NotSingularError {
	return &NotSingularError{label: label, count: count}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// InvalidMappingError reports a type whose tags cannot be turned into a
// consistent descriptor.
type InvalidMappingError struct {
	Type  string // Go type name
	Field string // Go field name, empty for type-level problems
	msg   string
}

// Error returns the error string.
func (e *InvalidMappingError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("relmap: invalid mapping of %s.%s: %s", e.Type, e.Field, e.msg)
	}
	return fmt.Sprintf("relmap: invalid mapping of %s: %s", e.Type, e.msg)
}

// Is reports whether the target error matches ErrInvalidMapping.
func (e *InvalidMappingError) Is(err error) bool {
	return err == ErrInvalidMapping
}

// NewInvalidMappingError returns a type-level InvalidMappingError.
func NewInvalidMappingError(typ, format string, args ...any) *InvalidMappingError {
	return &InvalidMappingError{Type: typ, msg: fmt.Sprintf(format, args...)}
}

// NewFieldMappingError returns an InvalidMappingError attached to a field.
func NewFieldMappingError(typ, field, format string, args ...any) *InvalidMappingError {
	return &InvalidMappingError{Type: typ, Field: field, msg: fmt.Sprintf(format, args...)}
}

// IsInvalidMapping returns true if the error is an InvalidMappingError.
func IsInvalidMapping(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidMappingError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidMapping)
}

// MissingAnnotationError reports a type or field that carries none of the
// tags an operation expects.
type MissingAnnotationError struct {
	Type      string   // Go type name
	Field     string   // Go field name, empty for type-level problems
	FieldType string   // declared field type
	Expected  []string // tag kinds, any of which would satisfy the caller
}

// Error returns the error string.
func (e *MissingAnnotationError) Error() string {
	want := strings.Join(e.Expected, ", ")
	if e.Field == "" {
		if len(e.Expected) > 1 {
			return fmt.Sprintf("relmap: type %s is missing any of these annotations: %s", e.Type, want)
		}
		return fmt.Sprintf("relmap: type %s is missing annotation: %s", e.Type, want)
	}
	if len(e.Expected) > 1 {
		return fmt.Sprintf("relmap: field (%s %s.%s) is missing any of these annotations: %s", e.FieldType, e.Type, e.Field, want)
	}
	return fmt.Sprintf("relmap: field (%s %s.%s) is missing annotation: %s", e.FieldType, e.Type, e.Field, want)
}

// Is reports whether the target error matches ErrMissingAnnotation.
func (e *MissingAnnotationError) Is(err error) bool {
	return err == ErrMissingAnnotation
}

// IsMissingAnnotation returns true if the error is a MissingAnnotationError.
func IsMissingAnnotation(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingAnnotationError
	return errors.As(err, &e) || errors.Is(err, ErrMissingAnnotation)
}

// IsConfigError reports whether err is a configuration error, i.e. one that
// will fail every call for the same type until its tags are fixed.
func IsConfigError(err error) bool {
	return IsInvalidMapping(err) || IsMissingAnnotation(err)
}

// InvalidColumnTypeError reports a value of a kind that has no SQL literal
// form, or a column value that cannot be assigned to its field.
type InvalidColumnTypeError struct {
	Column string // column or field name, if known
	Type   string // offending Go type
	Err    error  // conversion failure, if any
}

// Error returns the error string.
func (e *InvalidColumnTypeError) Error() string {
	var sb strings.Builder
	sb.WriteString("relmap: invalid column type")
	if e.Column != "" {
		fmt.Fprintf(&sb, " for %q", e.Column)
	}
	if e.Type != "" {
		fmt.Fprintf(&sb, ": %s", e.Type)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Is reports whether the target error matches ErrInvalidColumnType.
func (e *InvalidColumnTypeError) Is(err error) bool {
	return err == ErrInvalidColumnType
}

// Unwrap returns the underlying conversion error.
func (e *InvalidColumnTypeError) Unwrap() error {
	return e.Err
}

// IsInvalidColumnType returns true if the error is an InvalidColumnTypeError.
func IsInvalidColumnType(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidColumnTypeError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidColumnType)
}

// InvalidResultSetError reports a row that references a missing column or an
// id that cannot be found.
type InvalidResultSetError struct {
	msg string
}

// Error returns the error string.
func (e *InvalidResultSetError) Error() string {
	return "relmap: invalid result set: " + e.msg
}

// Is reports whether the target error matches ErrInvalidResultSet.
func (e *InvalidResultSetError) Is(err error) bool {
	return err == ErrInvalidResultSet
}

// NewInvalidResultSetError returns a new InvalidResultSetError.
func NewInvalidResultSetError(format string, args ...any) *InvalidResultSetError {
	return &InvalidResultSetError{msg: fmt.Sprintf(format, args...)}
}

// IsInvalidResultSet returns true if the error is an InvalidResultSetError.
func IsInvalidResultSet(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidResultSetError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidResultSet)
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("relmap: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("relmap: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// QueryError wraps a failed select with the table and operation it served.
type QueryError struct {
	Entity string // table or type being queried
	Op     string // e.g. "find_by_id", "populate"
	Err    error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("relmap: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("relmap: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a failed insert, update or delete.
type MutationError struct {
	Entity string
	Op     string // "insert", "update" or "remove"
	Err    error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("relmap: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(entity, op string, err error) *MutationError {
	return &MutationError{Entity: entity, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}
