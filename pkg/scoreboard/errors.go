package scoreboard

import "errors"

// Code is a machine-readable error code.
type Code string

const (
	CodeInvalidArgument Code = "invalid_argument"
	CodeConflict        Code = "conflict"
	CodeNotFound        Code = "not_found"
)

// Sentinels for errors.Is. They match any *Error carrying the same code.
var (
	ErrInvalidArgument = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrConflict        = &Error{Code: CodeConflict, Message: "conflict"}
	ErrNotFound        = &Error{Code: CodeNotFound, Message: "not found"}
)

// Error is returned by every failing Board operation. Message names the rule
// that failed and the offending value.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf returns the code of err, or "" if err does not come from this package.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// BlameCaller reports whether err is a validation error the caller can fix
// by changing its input.
func BlameCaller(err error) bool {
	switch CodeOf(err) {
	case CodeInvalidArgument, CodeConflict, CodeNotFound:
		return true
	}
	return false
}
