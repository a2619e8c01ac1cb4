package usecases

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Details returns the text of the underlying cause, falling back to the
// error itself when there is no cause.
func (e *Error) Details() string {
	if e == nil {
		return ""
	}
	if e.Err != nil && e.Err.Error() != "" {
		return e.Err.Error()
	}
	return e.Error()
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// InvalidInput builds the validation error returned for malformed requests.
func InvalidInput(reason string, err error) *Error {
	return newError(ErrorInvalidInput, reason, err)
}
