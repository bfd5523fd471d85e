package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies an Error so callers can branch without inspecting messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuth
	KindUnauthorized
	KindForbidden
	KindConflict
	KindInvalidTransition
	KindInvalidState
	KindOutOfRange
	KindNotFound
	KindNetwork
)

var kindNames = map[Kind]string{
	KindUnknown:           "Unknown",
	KindValidation:        "ValidationError",
	KindAuth:              "AuthError",
	KindUnauthorized:      "Unauthorized",
	KindForbidden:         "Forbidden",
	KindConflict:          "Conflict",
	KindInvalidTransition: "InvalidTransition",
	KindInvalidState:      "InvalidState",
	KindOutOfRange:        "OutOfRange",
	KindNotFound:          "NotFound",
	KindNetwork:           "NetworkError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// DefaultMessage is used whenever no human readable message could be extracted.
const DefaultMessage = "request failed"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// Error is the single error shape surfaced to the callers of core commands.
// Message is display-ready.
type Error struct {
	Kind    Kind
	Message string
	Status  int // HTTP status when the error came from a response, 0 otherwise
	Fields  []FieldError
	Err     error
}

func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func NewValidationError(msg string, flds ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: flds}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) > 0 {
		msgs := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			msgs = append(msgs, f.Field+": "+f.Error)
		}
		return strings.Join(msgs, "; ")
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return DefaultMessage
}

func (e *Error) Unwrap() error { return e.Err }

// FieldMap returns field errors keyed by field name, for inline rendering.
func (e *Error) FieldMap() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		m[f.Field] = f.Error
	}
	return m
}

// WithKind returns a copy of e reclassified as kind. Message and Fields are kept.
func (e *Error) WithKind(kind Kind) *Error {
	cp := *e
	cp.Kind = kind
	return &cp
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, KindUnknown if err does not carry one.
func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Reclassify turns an *Error of kind from into kind to, leaving any other error untouched.
func Reclassify(err error, from, to Kind) error {
	if e, ok := AsError(err); ok && e.Kind == from {
		return e.WithKind(to)
	}
	return err
}
