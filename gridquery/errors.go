package gridquery

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrInvalidArgument  ErrorKind = "invalid_argument"
	ErrUnresolvedField  ErrorKind = "unresolved_field"
	ErrUnparseableValue ErrorKind = "unparseable_value"
	ErrInvalidOrder     ErrorKind = "invalid_order"
	ErrToken            ErrorKind = "token"
	ErrSource           ErrorKind = "source"
	ErrConfig           ErrorKind = "config"
)

// Error is returned for conditions that halt a request. Unresolved fields,
// unparseable values and invalid order entries are never returned; they only
// label the skipped steps of a Plan.
type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Field != "" {
		base = fmt.Sprintf("%s (field=%s)", base, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func InvalidArgument(msg string) *Error {
	return &Error{Kind: ErrInvalidArgument, Message: msg}
}

func TokenError(msg string) *Error {
	return &Error{Kind: ErrToken, Message: msg}
}

func ConfigError(field, msg string) *Error {
	return &Error{Kind: ErrConfig, Field: field, Message: msg}
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
