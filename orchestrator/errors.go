package orchestrator

import (
	"errors"
	"fmt"
)

// ErrorCode classifies orchestrator failures.
type ErrorCode string

const (
	CodeCreationFailed     ErrorCode = "CREATION_FAILED"
	CodeReconnectionFailed ErrorCode = "RECONNECTION_FAILED"
	CodeExecutionFailed    ErrorCode = "EXECUTION_FAILED"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeUnavailable        ErrorCode = "UNAVAILABLE"
)

// Error is a typed orchestrator failure carrying the session it concerns
// and the underlying cause, if any.
type Error struct {
	Code      ErrorCode
	SessionID string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (session %s): %v", e.Code, e.SessionID, e.Err)
	}
	return fmt.Sprintf("%s (session %s)", e.Code, e.SessionID)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code ErrorCode, sessionID string, err error) *Error {
	return &Error{Code: code, SessionID: sessionID, Err: err}
}

// HasCode reports whether err is an orchestrator Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Code == code
}
