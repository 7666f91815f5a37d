package types

import (
	"errors"
	"fmt"
)

// CodedError is an error that knows how it should be reported to callers
type CodedError interface {
	error
	Code() ErrorCode
}

type paramError struct {
	msg string
}

func (e *paramError) Error() string   { return e.msg }
func (e *paramError) Code() ErrorCode { return CodeInvalidParams }

// InvalidParams returns a validation error carrying msg verbatim
func InvalidParams(format string, args ...interface{}) error {
	return &paramError{msg: fmt.Sprintf(format, args...)}
}

// CodeOf classifies err. Errors without a code are internal.
func CodeOf(err error) ErrorCode {
	var coded CodedError
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return CodeInternal
}

// Failure converts err into a failed result
func Failure(err error) *Result {
	return ErrorResult(CodeOf(err), err.Error())
}
