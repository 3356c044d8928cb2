package apierr

import (
	"fmt"
	"net/http"
)

const (
	CodeInvalidRequest     = "invalid_request"
	CodeUnknownMode        = "unknown_mode"
	CodeNotFound           = "not_found"
	CodePreconditionFailed = "precondition_failed"
	CodeMissingPayload     = "missing_payload"
	CodeVersionConflict    = "version_conflict"
	CodeInvalidTransition  = "invalid_transition"
	CodeGenerationFailed   = "generation_failed"
	CodeInternal           = "internal"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(err error) *Error { return New(http.StatusBadRequest, CodeInvalidRequest, err) }

func Internal(err error) *Error { return New(http.StatusInternalServerError, CodeInternal, err) }
