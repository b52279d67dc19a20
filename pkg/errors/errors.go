package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrPersistence       = errors.New("persistence failure")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrRateLimited       = errors.New("rate limit exceeded")
)

// Коды ошибок, которые уходят клиенту по WebSocket
const (
	CodeInvalidArgument    = "invalid_argument"
	CodeNotFound           = "not_found"
	CodePersistenceFailure = "persistence_failure"
	CodeRateLimited        = "rate_limited"
)

// APIError: тело ответа REST API об ошибке.
type APIError struct {
	Message string `json:"error"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError строит тело ответа по ошибке. Для 5xx причина не раскрывается клиенту.
func NewAPIError(err error) *APIError {
	message := err.Error()
	if status := HTTPStatusFromError(err); status >= http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	return &APIError{
		Message: message,
		Code:    CodeFromError(err),
		Field:   FieldFromError(err),
	}
}

// ValidationError описывает некорректное поле пользовательского ввода.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// PersistenceError оборачивает сбой хранилища. errors.Is срабатывает
// и для ErrPersistence, и для исходной причины.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func HTTPStatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case IsTimeout(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrPersistence):
		return http.StatusInternalServerError
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func CodeFromError(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrPersistence):
		return CodePersistenceFailure
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	default:
		return CodePersistenceFailure
	}
}

// FieldFromError возвращает имя поля для ошибок валидации, иначе пустую строку.
func FieldFromError(err error) string {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Field
	}
	return ""
}
