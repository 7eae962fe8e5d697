// Package errors provides structured errors for the mirror declaration engine.
// It defines error codes and categories for generation, registry queries and
// invocation argument validation, formatted for both terminal output and JSON.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error code
type ErrorCode string

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryGeneration covers per-unit generation failures (GEN001-099)
	CategoryGeneration ErrorCategory = "generation"
	// CategoryReference covers unresolved type references (REF100-199)
	CategoryReference ErrorCategory = "reference"
	// CategoryRegistry covers registry lifecycle and lookup errors (REG200-299)
	CategoryRegistry ErrorCategory = "registry"
	// CategoryInvocation covers argument validation before dispatch (INV300-399)
	CategoryInvocation ErrorCategory = "invocation"
)

const (
	// ErrGeneration indicates a compilation unit failed to load or parse.
	ErrGeneration ErrorCode = "GEN001"

	// ErrUnresolvedReference indicates a supertype, interface, mixin or type
	// argument could not be resolved. Never returned from an API; counted in
	// generation reports only.
	ErrUnresolvedReference ErrorCode = "REF101"

	// ErrNotInitialized indicates a query issued before Register completed.
	ErrNotInitialized ErrorCode = "REG201"
	// ErrNotFound indicates a lookup without a match.
	ErrNotFound ErrorCode = "REG202"

	// ErrMissingPositional indicates a required positional argument is missing.
	ErrMissingPositional ErrorCode = "INV301"
	// ErrMissingNamed indicates a required named argument is missing.
	ErrMissingNamed ErrorCode = "INV302"
	// ErrTooManyPositional indicates more positional arguments than parameters.
	ErrTooManyPositional ErrorCode = "INV303"
	// ErrUnexpectedNamed indicates a named argument without a parameter.
	ErrUnexpectedNamed ErrorCode = "INV304"
	// ErrImmutableField indicates a write to a final or const field.
	ErrImmutableField ErrorCode = "INV305"
)

// Error is a structured error carrying a code, a category and the entity
// the error is about.
type Error struct {
	// Code is the unique error code (e.g., "REG201")
	Code ErrorCode `json:"code"`
	// Category is the error category
	Category ErrorCategory `json:"category"`
	// Message is the primary error message
	Message string `json:"message"`
	// Entity names the declaration, unit or query the error refers to
	Entity string `json:"entity,omitempty"`
	// Detail carries additional context (optional)
	Detail string `json:"detail,omitempty"`

	cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same code. This lets
// callers match on sentinels such as NotInitialized.
func (e *Error) Is(target error) bool {
	var other *Error
	if !stderrors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// ToJSON returns the error as an indented JSON document
func (e *Error) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// WithDetail sets additional context on the error
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithCause attaches an underlying error
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// HasCode reports whether err (or any error it wraps) carries code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// Sentinels for errors.Is matching.
var (
	NotInitialized = &Error{Code: ErrNotInitialized, Category: CategoryRegistry}
	NotFound       = &Error{Code: ErrNotFound, Category: CategoryRegistry}
)

func newError(code ErrorCode, category ErrorCategory, entity, message string) *Error {
	return &Error{
		Code:     code,
		Category: category,
		Message:  message,
		Entity:   entity,
	}
}

// NewGeneration creates a GEN001 error for a unit that could not be generated
func NewGeneration(unit string, cause error) *Error {
	return newError(ErrGeneration, CategoryGeneration, unit,
		fmt.Sprintf("failed to generate unit %s", unit)).WithCause(cause)
}

// NewUnresolvedReference creates a REF101 record for reporting purposes
func NewUnresolvedReference(owner, reference string) *Error {
	return newError(ErrUnresolvedReference, CategoryReference, owner,
		fmt.Sprintf("unresolved reference %s in %s", reference, owner))
}

// NewNotInitialized creates a REG201 error for the named operation
func NewNotInitialized(operation string) *Error {
	return newError(ErrNotInitialized, CategoryRegistry, operation,
		fmt.Sprintf("registry not initialized: %s called before Register", operation))
}

// NewNotFound creates a REG202 error for a query that matched nothing
func NewNotFound(kind, query string) *Error {
	return newError(ErrNotFound, CategoryRegistry, query,
		fmt.Sprintf("%s not found: %s", kind, query))
}

// NewMissingPositional creates an INV301 error
func NewMissingPositional(owner, param string, index int) *Error {
	return newError(ErrMissingPositional, CategoryInvocation, owner,
		fmt.Sprintf("missing required positional parameter %q (index %d) for %s", param, index, owner))
}

// NewMissingNamed creates an INV302 error
func NewMissingNamed(owner, param string) *Error {
	return newError(ErrMissingNamed, CategoryInvocation, owner,
		fmt.Sprintf("missing required named parameter %q for %s", param, owner))
}

// NewTooManyPositional creates an INV303 error
func NewTooManyPositional(owner string, max, got int) *Error {
	return newError(ErrTooManyPositional, CategoryInvocation, owner,
		fmt.Sprintf("too many positional arguments for %s: expected at most %d, got %d", owner, max, got))
}

// NewUnexpectedNamed creates an INV304 error
func NewUnexpectedNamed(owner, name string) *Error {
	return newError(ErrUnexpectedNamed, CategoryInvocation, owner,
		fmt.Sprintf("unexpected named argument %q for %s", name, owner))
}

// NewImmutableField creates an INV305 error
func NewImmutableField(owner, field, reason string) *Error {
	return newError(ErrImmutableField, CategoryInvocation, owner,
		fmt.Sprintf("cannot set %s field %q on %s", reason, field, owner))
}
