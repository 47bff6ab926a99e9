package record

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidExtractionSchema = errors.New("invalid extraction schema")
	ErrUnknownField            = errors.New("unknown field")
	ErrUnsupportedPathDepth    = errors.New("nested field depth > 2 not supported")
)

// SchemaError names the field that failed validation.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: field %q: %s", ErrInvalidExtractionSchema, e.Field, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrInvalidExtractionSchema }
