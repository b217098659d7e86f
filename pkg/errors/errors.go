package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies the known failure kinds in the system.
type Code int

const (
	Unknown Code = iota

	// ConfigInvalid aborts a run before search starts.
	ConfigInvalid

	// ExpressionParse covers malformed suggestion text.
	ExpressionParse

	// ExpressionTooTall marks a structurally valid tree over the height limit.
	ExpressionTooTall

	// Evaluation marks a failure executing a compiled genotype.
	Evaluation

	// Process marks malformed or unexpected transport messages.
	Process

	// Resource marks cleanup and teardown failures.
	Resource
)

func (c Code) String() string {
	switch c {
	case ConfigInvalid:
		return "config"
	case ExpressionParse:
		return "parse"
	case ExpressionTooTall:
		return "tree_too_tall"
	case Evaluation:
		return "evaluation"
	case Process:
		return "process"
	case Resource:
		return "resource"
	default:
		return "unknown"
	}
}

// Fields carries structured context about an error.
type Fields map[string]interface{}

// Error is a structured error with a code and optional context.
type Error struct {
	code     Code
	message  string
	original error
	fields   Fields
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.message)

	if e.original != nil {
		b.WriteString(": ")
		b.WriteString(e.original.Error())
	}

	if len(e.fields) > 0 {
		b.WriteString(" [")
		for k, v := range e.fields {
			fmt.Fprintf(&b, "%s=%v ", k, v)
		}
		b.WriteString("]")
	}

	return strings.TrimSpace(b.String())
}

func (e *Error) Unwrap() error {
	return e.original
}

func (e *Error) Code() Code {
	return e.code
}

// New creates a new error with a code and message.
func New(code Code, message string) error {
	return &Error{
		code:    code,
		message: message,
	}
}

// Newf creates a new error with a code and formatted message.
func Newf(code Code, format string, args ...interface{}) error {
	return &Error{
		code:    code,
		message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		code:     code,
		message:  message,
		original: err,
	}
}

// WithFields attaches structured context to an error.
func WithFields(err error, fields Fields) error {
	if err == nil {
		return nil
	}

	if e, ok := err.(*Error); ok {
		merged := make(Fields, len(e.fields)+len(fields))
		for k, v := range e.fields {
			merged[k] = v
		}
		for k, v := range fields {
			merged[k] = v
		}
		return &Error{
			code:     e.code,
			message:  e.message,
			original: e.original,
			fields:   merged,
		}
	}

	return &Error{
		code:     Unknown,
		message:  err.Error(),
		original: err,
		fields:   fields,
	}
}

// CodeOf extracts the code from an error chain, or Unknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return Unknown
}

// Is reports whether the error chain carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
