package filter

import (
	"errors"
	"fmt"

	"github.com/pawbazaar/querykit/internal/orm/schema"
)

// ErrUnsupportedOperator is matched by every UnsupportedError
var ErrUnsupportedOperator = errors.New("unsupported filter operator")

// Shape describes how the field and the filter value line up
type Shape int

const (
	ScalarShape Shape = iota
	// ListFieldScalarValue is a collection field filtered by one value
	ListFieldScalarValue
	// ListFieldListValue is a collection field filtered by an array
	ListFieldListValue
)

// UnsupportedError reports an equation that is not valid for the field type
// and value shape it was applied to
type UnsupportedError struct {
	Type     schema.FieldType
	Equation Equation
	Shape    Shape
}

// Error implements the error interface
func (e *UnsupportedError) Error() string {
	switch e.Shape {
	case ListFieldScalarValue:
		return fmt.Sprintf("equation %s is not supported for %s fields with a single value", e.Equation, e.Type)
	case ListFieldListValue:
		return fmt.Sprintf("equation %s is not supported for %s fields with an array value", e.Equation, e.Type)
	}
	return fmt.Sprintf("equation %s is not supported for %s fields", e.Equation, e.Type)
}

// Unwrap returns ErrUnsupportedOperator
func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupportedOperator
}

func unsupported(t schema.FieldType, eq Equation, shape Shape) error {
	return &UnsupportedError{Type: t, Equation: eq, Shape: shape}
}
