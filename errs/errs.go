// Package errs provides the engine's error kinds and a small wrap/newf
// helper, mirroring the (codes, internal/errors) split the query engine
// this project is descended from keeps rather than reaching for a
// third-party error package.
package errs

import (
	"errors"
	"fmt"
)

// Code classifies an error per the policy table of the error handling design.
type Code int

const (
	CodeInherit Code = iota
	CodeConfiguration
	CodeSchema
	CodeTypeMismatch
	CodeDivByZero
	CodeTransportTransient
	CodeTransportFatal
	CodePanic
	CodeFrontierStarvation
	CodeInvalid
	CodeInternal
)

func (c Code) String() string {
	switch c {
	case CodeConfiguration:
		return "configuration"
	case CodeSchema:
		return "schema"
	case CodeTypeMismatch:
		return "type-mismatch"
	case CodeDivByZero:
		return "div-by-zero"
	case CodeTransportTransient:
		return "transport-transient"
	case CodeTransportFatal:
		return "transport-fatal"
	case CodePanic:
		return "panic"
	case CodeFrontierStarvation:
		return "frontier-starvation"
	case CodeInvalid:
		return "invalid"
	case CodeInternal:
		return "internal"
	default:
		return "inherit"
	}
}

// Error is a code-tagged error that can wrap a cause.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error with the given code and static message.
func New(code Code, msg string) error {
	return &Error{Code: code, Msg: msg}
}

// Newf builds an error with the given code and formatted message.
func Newf(code Code, format string, args ...interface{}) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an existing error, preserving it
// as the cause for errors.Is/As. A CodeInherit wrap keeps the cause's
// code if it is itself an *Error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	if code == CodeInherit {
		var inner *Error
		if errors.As(err, &inner) {
			code = inner.Code
		} else {
			code = CodeInternal
		}
	}
	return &Error{Code: code, Msg: msg, Err: err}
}

// CodeOf extracts the Code of an error, or CodeInternal if it is not
// one of ours.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// ExitCode maps an error's code to the process exit code table of the
// external interfaces design: 0 normal, 1 user/config error, 2 runtime
// failure, 3 transport unrecoverable.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case CodeConfiguration, CodeSchema, CodeDivByZero, CodeInvalid:
		return 1
	case CodeTransportFatal:
		return 3
	default:
		return 2
	}
}
