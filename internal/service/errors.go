package service

import (
	"errors"
	"fmt"
)

// ErrCode classifies a failure for the transport layer.
type ErrCode string

const (
	ErrValidation             ErrCode = "VALIDATION_ERROR"
	ErrStateConflict          ErrCode = "STATE_CONFLICT"
	ErrQuotaExceeded          ErrCode = "QUOTA_EXCEEDED"
	ErrAccessDenied           ErrCode = "ACCESS_DENIED"
	ErrAlreadyExists          ErrCode = "ALREADY_EXISTS"
	ErrAlreadyWaitlisted      ErrCode = "ALREADY_WAITLISTED"
	ErrInsufficientCopies     ErrCode = "INSUFFICIENT_COPIES"
	ErrInvalidPackage         ErrCode = "INVALID_PACKAGE"
	ErrNotFound               ErrCode = "NOT_FOUND"
	ErrInvalidStateTransition ErrCode = "INVALID_STATE_TRANSITION"
	ErrOverdue                ErrCode = "OVERDUE"
)

type codedError struct {
	code ErrCode
	msg  string
}

func (e codedError) Error() string { return e.msg }
func (e codedError) Code() ErrCode { return e.code }

func makeErr(c ErrCode, format string, args ...any) error {
	return codedError{code: c, msg: fmt.Sprintf(format, args...)}
}

// Code extracts the error code, or "" for infrastructure errors.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}
