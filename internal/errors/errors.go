// Package errors provides structured error construction for the tariff
// engine. Errors are built with a fluent builder, carry an optional hint
// and reportable details, and are marked with a sentinel class so callers
// can branch on the kind of failure without string matching.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel error classes. Every error produced by this package is marked
// with exactly one of these.
var (
	ErrValidation       = errors.New("validation_error")
	ErrNotFound         = errors.New("not_found")
	ErrAlreadyExists    = errors.New("already_exists")
	ErrInvalidOperation = errors.New("invalid_operation")
	ErrInternal         = errors.New("internal_error")
	ErrSystem           = errors.New("system_error")
)

// ErrorBuilder accumulates context before the error is finalised with Mark.
type ErrorBuilder struct {
	err     error
	hint    string
	details map[string]any
}

// NewError starts building an error with the given message.
func NewError(message string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(message)}
}

// NewErrorf starts building an error with a formatted message.
func NewErrorf(format string, args ...any) *ErrorBuilder {
	return &ErrorBuilder{err: errors.Newf(format, args...)}
}

// WithError starts building from an existing error, preserving its chain
// so errors.Is against the original (or any sentinel it wraps) keeps working.
func WithError(err error) *ErrorBuilder {
	if err == nil {
		err = errors.New("unknown error")
	}
	return &ErrorBuilder{err: err}
}

// WithHint attaches a human-readable hint describing how to fix the problem.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.hint = hint
	return b
}

// WithHintf attaches a formatted hint.
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.hint = fmt.Sprintf(format, args...)
	return b
}

// WithMessage wraps the error with an additional message prefix.
func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.Wrap(b.err, msg)
	return b
}

// WithReportableDetails attaches structured details that are safe to report.
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	b.details = details
	return b
}

// Mark finalises the builder, classifying the error with the given sentinel.
// The returned error satisfies errors.Is for the sentinel and for every
// error already in the chain.
func (b *ErrorBuilder) Mark(sentinel error) error {
	err := b.err
	if b.hint != "" {
		err = errors.WithHint(err, b.hint)
	}
	for k, v := range b.details {
		err = errors.WithDetailf(err, "%s: %v", k, v)
	}
	return errors.Mark(err, sentinel)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsNotFound reports whether err is classified as a not-found failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is classified as a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation reports whether err is classified as an invalid operation.
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}
