package domain

import (
	"errors"
	"fmt"
)

// Kind classifies business failures
type Kind string

const (
	KindUnknown      Kind = ""
	KindBadRequest   Kind = "BAD_REQUEST"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
)

// Error is an expected, caller-correctable failure.
// Sentinel values are compared by identity with errors.Is.
type Error struct {
	Kind    Kind
	Message string

	cause error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates a classified error
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Detail returns an error of sentinel's kind with a more specific message.
// errors.Is still matches sentinel.
func Detail(sentinel *Error, format string, args ...any) *Error {
	return &Error{Kind: sentinel.Kind, Message: fmt.Sprintf(format, args...), cause: sentinel}
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Store errors
var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("duplicate entry")
	ErrVersionConflict = errors.New("version conflict")
)

// Auth errors
//
// ErrTokenReused shares ErrTokenInvalid's message; only the server tells them apart.
var (
	ErrUsernameTaken      = &Error{Kind: KindConflict, Message: "username already exists"}
	ErrUsernameRequired   = &Error{Kind: KindBadRequest, Message: "username is required"}
	ErrWeakPassword       = &Error{Kind: KindBadRequest, Message: "password must be at least 8 characters"}
	ErrInvalidRole        = &Error{Kind: KindBadRequest, Message: "role must be 'admin' or 'client'"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Message: "invalid username or password"}
	ErrTokenInvalid       = &Error{Kind: KindUnauthorized, Message: "invalid refresh token"}
	ErrTokenReused        = &Error{Kind: KindUnauthorized, Message: "invalid refresh token"}
	ErrTokenOwnerGone     = &Error{Kind: KindNotFound, Message: "token owner not found"}
	ErrTokenNotFound      = &Error{Kind: KindNotFound, Message: "token not found"}
	ErrUserNotFound       = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrConcurrentWrite    = &Error{Kind: KindConflict, Message: "resource was modified concurrently, please retry"}
)

// Ledger errors
var (
	ErrClientNotFound       = &Error{Kind: KindNotFound, Message: "client not found"}
	ErrFundNotFound         = &Error{Kind: KindNotFound, Message: "fund not found"}
	ErrClientExists         = &Error{Kind: KindConflict, Message: "client profile already exists"}
	ErrInsufficientBalance  = &Error{Kind: KindBadRequest, Message: "insufficient balance"}
	ErrAlreadySubscribed    = &Error{Kind: KindConflict, Message: "client already holds an active subscription to this fund"}
	ErrNoActiveSubscription = &Error{Kind: KindBadRequest, Message: "client has no active subscription to this fund"}
	ErrInvalidAmount        = &Error{Kind: KindBadRequest, Message: "amount must be greater than 0"}
	ErrAmountPrecision      = &Error{Kind: KindBadRequest, Message: "amounts are limited to 2 decimal places and 16 integer digits"}
	ErrBelowMinimum         = &Error{Kind: KindBadRequest, Message: "amount is below the fund minimum"}
	ErrInvalidProfile       = &Error{Kind: KindBadRequest, Message: "name and a valid email are required"}
	ErrNegativeBalance      = &Error{Kind: KindBadRequest, Message: "balance cannot be negative"}
	ErrForbidden            = &Error{Kind: KindForbidden, Message: "you don't have permission to access this resource"}
)
