package util

import (
	"errors"
	"fmt"
)

// 错误类别，业务错误均通过 errors.Is 归类
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrBusinessRule    = errors.New("business rule violation")
	ErrAlreadyExists   = errors.New("already exists")
)

var (
	ErrUserNotFound        = NotFound("user not found")
	ErrEmailRegistered     = AlreadyExists("email already registered")
	ErrInvalidCredentials  = InvalidArgument("invalid email or password")
	ErrAccountDisabled     = BusinessRule("account disabled")
	ErrNoActiveSubmission  = NotFound("no active submission found for this assessment")
	ErrInvalidQuestionIDs  = InvalidArgument("one or more question IDs are invalid")
	ErrAssessmentInactive  = BusinessRule("assessment is not active")
	ErrMaxAttemptsExceeded = BusinessRule("maximum attempts reached for this assessment")
)

// AppError 携带错误类别和面向调用方的消息
type AppError struct {
	Kind    error
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Kind
}

func newAppError(kind error, format string, args ...interface{}) *AppError {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &AppError{Kind: kind, Message: msg}
}

func InvalidArgument(format string, args ...interface{}) error {
	return newAppError(ErrInvalidArgument, format, args...)
}

func NotFound(format string, args ...interface{}) error {
	return newAppError(ErrNotFound, format, args...)
}

func BusinessRule(format string, args ...interface{}) error {
	return newAppError(ErrBusinessRule, format, args...)
}

func AlreadyExists(format string, args ...interface{}) error {
	return newAppError(ErrAlreadyExists, format, args...)
}

// IsClientError 属于调用方可修正的错误（4xx）
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrBusinessRule) ||
		errors.Is(err, ErrAlreadyExists)
}
