package viewcache

import (
	"errors"
	"fmt"

	"github.com/roach88/viewcache/internal/query"
)

var (
	// ErrUnsupportedOperatorRange is returned when range resolution reaches an
	// operator a sorted view cannot answer. CanCacheQuery excludes these.
	ErrUnsupportedOperatorRange = errors.New("unsupported operator for range resolution")

	// ErrUnboundVariable is returned when the indexed variable has no binding.
	ErrUnboundVariable = query.ErrUnboundVariable

	// ErrNoVariableFilter is returned when resolving a query with no variable
	// filter to index on.
	ErrNoVariableFilter = errors.New("query has no variable filter")

	// ErrClosed is returned by a ViewStore after Close.
	ErrClosed = errors.New("view store closed")
)

// RangeError describes a failed range resolution.
type RangeError struct {
	Attribute string
	Operator  query.Operator
	Variable  string
	Err       error
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	switch {
	case e.Variable != "":
		return fmt.Sprintf("range %s %s %s%s: %v", e.Attribute, e.Operator, query.PlaceholderSigil, e.Variable, e.Err)
	case e.Attribute != "":
		return fmt.Sprintf("range %s %s: %v", e.Attribute, e.Operator, e.Err)
	default:
		return fmt.Sprintf("range: %v", e.Err)
	}
}

// Unwrap returns the underlying sentinel.
func (e *RangeError) Unwrap() error {
	return e.Err
}

// IsUnsupportedOperator reports whether err is an unsupported-operator failure.
func IsUnsupportedOperator(err error) bool {
	return errors.Is(err, ErrUnsupportedOperatorRange)
}

// IsUnboundVariable reports whether err is a missing-binding failure.
func IsUnboundVariable(err error) bool {
	return errors.Is(err, ErrUnboundVariable)
}
