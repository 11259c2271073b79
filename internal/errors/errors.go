// Package errors provides error handling utilities.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeSchemaMismatch indicates the dataset does not match the classifier schema
	TypeSchemaMismatch Type = "SCHEMA_MISMATCH"

	// TypeDataShape indicates a table is missing expected rows or columns
	TypeDataShape Type = "DATA_SHAPE"

	// TypeMissingCountry indicates a region references an absent country
	TypeMissingCountry Type = "MISSING_COUNTRY"

	// TypeMissingPopulation indicates a country has no population entry
	TypeMissingPopulation Type = "MISSING_POPULATION"

	// TypeInput indicates an input validation error
	TypeInput Type = "INPUT_ERROR"

	// TypeParsing indicates a parsing error
	TypeParsing Type = "PARSING_ERROR"

	// TypeConfig indicates a configuration error
	TypeConfig Type = "CONFIG_ERROR"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *Error) Is(t Type) bool {
	return e.Type == t
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// As finds the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsType checks if an error, or anything it wraps, is of a specific type
func IsType(err error, t Type) bool {
	if e, ok := As(err); ok {
		return e.Type == t
	}
	return false
}

// SchemaMismatch reports a dataset that does not fit the classifier schema.
func SchemaMismatch(table, format string, args ...interface{}) *Error {
	return Newf(TypeSchemaMismatch, "%s: %s", table, fmt.Sprintf(format, args...)).
		WithContext("table", table)
}

// DataShape reports a table missing the rows or columns an aggregation needs.
func DataShape(table, format string, args ...interface{}) *Error {
	return Newf(TypeDataShape, "%s: %s", table, fmt.Sprintf(format, args...)).
		WithContext("table", table)
}

// MissingCountry reports a region member absent from the country table.
func MissingCountry(region, code string) *Error {
	return Newf(TypeMissingCountry, "region %q references country %q which is not in the country table", region, code).
		WithContext("region", region).
		WithContext("country", code)
}

// MissingPopulation reports a country without a population entry.
func MissingPopulation(code string) *Error {
	return Newf(TypeMissingPopulation, "no population entry for country %q", code).
		WithContext("country", code)
}

// Input creates an input error
func Input(message string) *Error {
	return New(TypeInput, message)
}

// Parsing creates a parsing error
func Parsing(message string, cause error) *Error {
	return Wrap(TypeParsing, message, cause)
}

// Config creates a configuration error
func Config(message string, cause error) *Error {
	return Wrap(TypeConfig, message, cause)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}
