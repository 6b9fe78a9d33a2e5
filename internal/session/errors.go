package session

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorTransport       ErrorKind = "transport"
	ErrorStartConflict   ErrorKind = "start_conflict"
	ErrorInquiryNotFound ErrorKind = "inquiry_not_found"
	ErrorRemoteSession   ErrorKind = "remote_session"
	ErrorInactive        ErrorKind = "inactive"
)

const genericSessionFailure = "The session ended with an error"

type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UserMessage is the text shown to the user. Transport details stay out of
// it.
func (e *Error) UserMessage() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// IsKind reports whether err wraps a session error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var target *Error
	if !errors.As(err, &target) {
		return false
	}
	return target.Kind == kind
}

func transportError(message string, err error) *Error {
	return &Error{Kind: ErrorTransport, Message: message, Err: err}
}

func startConflictError(message string) *Error {
	return &Error{Kind: ErrorStartConflict, Message: message}
}

func inquiryNotFoundError(id string) *Error {
	return &Error{Kind: ErrorInquiryNotFound, Message: fmt.Sprintf("no pending inquiry %q", id)}
}

func inactiveError(message string) *Error {
	return &Error{Kind: ErrorInactive, Message: message}
}

func remoteSessionError(stopReason string) *Error {
	if stopReason == "" {
		stopReason = genericSessionFailure
	}
	return &Error{Kind: ErrorRemoteSession, Message: stopReason}
}
