package engine

import (
	"errors"
	"fmt"

	"github.com/piwi3910/BarCut/internal/model"
)

// Caller-visible failure codes.
const (
	CodeNoObjectives      = "NO_OBJECTIVES"
	CodeNoItems           = "NO_ITEMS"
	CodeInfeasible        = "InfeasibleRequest"
	CodeOptimizationError = "OPTIMIZATION_ERROR"
	CodeInvalidRequest    = "INVALID_REQUEST"
)

// Error is an optimization failure carrying a caller-visible code.
// Piece is set when the failure concerns one specific request item.
type Error struct {
	Code    string
	Message string
	Piece   *model.Piece
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Piece != nil {
		msg += fmt.Sprintf(" [%s]", e.Piece)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Info converts the error into the response error shape.
func (e *Error) Info() *model.ErrorInfo {
	msg := e.Message
	if e.Piece != nil {
		msg += fmt.Sprintf(" [%s]", e.Piece)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return &model.ErrorInfo{Code: e.Code, Message: msg}
}

func newError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func infeasible(p model.Piece, format string, args ...any) *Error {
	piece := p
	return &Error{Code: CodeInfeasible, Message: fmt.Sprintf(format, args...), Piece: &piece}
}

func internalError(cause error, format string, args ...any) *Error {
	return &Error{Code: CodeOptimizationError, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf returns the code of an engine error, or OPTIMIZATION_ERROR for any
// other non-nil error.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeOptimizationError
}

// IsCode reports whether err is an engine error with the given code.
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// FailureResponse builds the response returned to callers on error.
func FailureResponse(err error, algorithm model.Algorithm) model.Response {
	var e *Error
	if !errors.As(err, &e) {
		e = internalError(err, "optimization failed")
	}
	return model.Response{
		Success:   false,
		Algorithm: algorithm,
		Error:     e.Info(),
	}
}
