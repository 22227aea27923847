// Package apperr classifies the failures reqtree reports to its callers.
// Every error crossing a package boundary is a value; nothing panics.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the step that produced it.
type Kind int

const (
	// KindParse is a malformed YAML/JSON document on import.
	KindParse Kind = iota + 1
	// KindValidation is a tree or document that cannot be exported.
	KindValidation
	// KindRequestBuild aborts a send before any network call is made.
	KindRequestBuild
	// KindTransport is a network, timeout or protocol failure.
	KindTransport
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	case KindRequestBuild:
		return "request build"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	ErrEmptyPath      = errors.New("empty path")
	ErrNoServer       = errors.New("select a server")
	ErrInvalidBaseURL = errors.New("invalid base URL")
	ErrEmptyTree      = errors.New("tree is empty")
	ErrNoOperations   = errors.New("no exportable operations")
	ErrNotALeaf       = errors.New("node is not a request")
	ErrNoSuchNode     = errors.New("no node at path")
	ErrNoSuchServer   = errors.New("no server at index")
)

// Error wraps an underlying error with its classification.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

// Parse classifies err as a parse failure.
func Parse(op string, err error, format string, args ...any) *Error {
	return newError(KindParse, op, err, format, args...)
}

// Validation classifies err as a validation failure.
func Validation(op string, err error, format string, args ...any) *Error {
	return newError(KindValidation, op, err, format, args...)
}

// RequestBuild classifies err as a request build failure.
func RequestBuild(op string, err error, format string, args ...any) *Error {
	return newError(KindRequestBuild, op, err, format, args...)
}

// Transport classifies err as a transport failure.
func Transport(op string, err error, format string, args ...any) *Error {
	return newError(KindTransport, op, err, format, args...)
}

// KindOf returns the kind of the first classified error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
