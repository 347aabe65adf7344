package types

import (
	"errors"
	"fmt"
)

// Error codes. Every error surfaced by an operation carries one of these.
const (
	// ErrCodeInvalidArgument marks malformed input detected before any network call.
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"
	// ErrCodePreconditionFailed marks a lifecycle guard rejecting the transition.
	ErrCodePreconditionFailed = "PRECONDITION_FAILED"
	// ErrCodeCollaboratorFailure marks a content store or extension failure.
	ErrCodeCollaboratorFailure = "COLLABORATOR_FAILURE"
	// ErrCodeSubmissionFailure marks a gateway error at any broadcast stage.
	ErrCodeSubmissionFailure = "SUBMISSION_FAILURE"
)

// RequestError is the error type returned by every public operation.
type RequestError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error { return e.Err }

// Is matches any RequestError with the same code, so the sentinels below
// work with errors.Is.
func (e *RequestError) Is(target error) bool {
	t, ok := target.(*RequestError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrInvalidArgument    = &RequestError{Code: ErrCodeInvalidArgument}
	ErrPreconditionFailed = &RequestError{Code: ErrCodePreconditionFailed}
	ErrCollaboratorFailed = &RequestError{Code: ErrCodeCollaboratorFailure}
	ErrSubmissionFailed   = &RequestError{Code: ErrCodeSubmissionFailure}
)

func InvalidArgument(format string, args ...any) error {
	return &RequestError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func PreconditionFailed(format string, args ...any) error {
	return &RequestError{Code: ErrCodePreconditionFailed, Message: fmt.Sprintf(format, args...)}
}

func CollaboratorFailure(msg string, err error) error {
	return &RequestError{Code: ErrCodeCollaboratorFailure, Message: msg, Err: err}
}

func SubmissionFailure(msg string, err error) error {
	return &RequestError{Code: ErrCodeSubmissionFailure, Message: msg, Err: err}
}

// ErrorCode returns the code of a RequestError, or "" for any other error.
func ErrorCode(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
