package salaries

import (
	"fmt"
	"strings"
)

// ConstraintError represents a violation of a declared table constraint
// (unique primary key, missing primary key, type coercion failure).
type ConstraintError struct {
	Table      string      // table name
	Column     string      // column name
	Value      interface{} // offending value (may be nil)
	Constraint string      // "unique", "primary_key", "type_mismatch"
	Reason     string      // human-readable explanation (optional)
}

func (e *ConstraintError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("constraint violation in %s.%s", e.Table, e.Column))

	if e.Constraint != "" {
		parts = append(parts, fmt.Sprintf("(%s)", e.Constraint))
	}

	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}

	return strings.Join(parts, " - ")
}

// NewUniqueViolation builds the error returned when an insert would duplicate
// an existing primary key.
func NewUniqueViolation(table, column string, value interface{}) *ConstraintError {
	return &ConstraintError{
		Table:      table,
		Column:     column,
		Value:      value,
		Constraint: "unique",
		Reason:     "duplicate value",
	}
}

// NotFoundError is returned when a lookup matches no stored row.
type NotFoundError struct {
	Table  string
	Column string
	Value  interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no row in %s with %s=%v", e.Table, e.Column, e.Value)
}

// NewNotFound builds the error returned by primary-key lookups that miss.
func NewNotFound(table, column string, value interface{}) *NotFoundError {
	return &NotFoundError{Table: table, Column: column, Value: value}
}
