package token

import (
	"errors"
	"fmt"
)

// ErrorKind identifies why a token was rejected. The kind is logged
// internally but never surfaced to HTTP callers.
type ErrorKind string

const (
	KindMalformed       ErrorKind = "malformed"
	KindBadSignature    ErrorKind = "bad_signature"
	KindExpired         ErrorKind = "expired"
	KindSubjectMismatch ErrorKind = "subject_mismatch"
)

// Error is a recoverable token validation failure. Callers treat any
// Error as "unauthenticated"; the Kind exists for logging and tests.
type Error struct {
	Kind ErrorKind
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("token %s: %v", e.Kind, e.err)
	}
	return fmt.Sprintf("token %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.err }

func newError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, err: cause}
}

// KindOf returns the ErrorKind carried by err, or an empty kind if err
// is not a token error.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
