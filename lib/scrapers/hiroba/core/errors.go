package core

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failures shared by every hiroba component.
type Kind int

const (
	KindUnknown Kind = iota
	// account session absent or expired
	KindNotLogined
	// account-level session absent, as opposed to the card-level one
	KindNotNamcoLogined
	// transport failure or an unexpected status / redirect shape
	KindCannotConnect
	// the identity provider rejected the credentials
	KindInvalidIdPassword
	// the requested card is not in the card list
	KindNoMatchedCard
	// a state-mutating call reported a non-zero result code
	KindUnknownError
)

func (k Kind) String() string {
	switch k {
	case KindNotLogined:
		return "NOT_LOGINED"
	case KindNotNamcoLogined:
		return "NOT_NAMCO_LOGINED"
	case KindCannotConnect:
		return "CANNOT_CONNECT"
	case KindInvalidIdPassword:
		return "INVALID_ID_PASSWORD"
	case KindNoMatchedCard:
		return "NO_MATCHED_CARD"
	case KindUnknownError:
		return "UNKNOWN_ERROR"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a hiroba failure. Response is the raw exchange that triggered it, if any.
type Error struct {
	Kind     Kind
	Response *Response
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hiroba: %s: %s", e.Kind, e.Err.Error())
	}
	return fmt.Sprintf("hiroba: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality so that errors.Is(err, ErrNotLogined) works for any
// NOT_LOGINED error regardless of the attached response or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotLogined        = &Error{Kind: KindNotLogined}
	ErrNotNamcoLogined   = &Error{Kind: KindNotNamcoLogined}
	ErrCannotConnect     = &Error{Kind: KindCannotConnect}
	ErrInvalidIdPassword = &Error{Kind: KindInvalidIdPassword}
	ErrNoMatchedCard     = &Error{Kind: KindNoMatchedCard}
	ErrUnknownError      = &Error{Kind: KindUnknownError}
)

// NewError creates an Error of the given kind. res and cause may be nil.
func NewError(kind Kind, res *Response, cause error) *Error {
	return &Error{Kind: kind, Response: res, Err: cause}
}

// KindOf returns the Kind carried by err, or KindUnknown if err is not a hiroba error.
func KindOf(err error) Kind {
	var herr *Error
	if errors.As(err, &herr) {
		return herr.Kind
	}
	return KindUnknown
}

// IsLoginError is true for the errors that mean the session is no longer valid.
func IsLoginError(err error) bool {
	kind := KindOf(err)
	return kind == KindNotLogined || kind == KindNotNamcoLogined
}
