package http

import (
	"fmt"
	"net/http"
)

// AppError is an error that knows its HTTP status and renders as one
// ValidationError-shaped item.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = map[string]interface{}{}
	}
	e.Params[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// errorCodes maps the statuses handlers raise to their stable codes.
var errorCodes = map[int]string{
	http.StatusBadRequest:          "ERR_BAD_REQUEST",
	http.StatusNotFound:            "ERR_NOT_FOUND",
	http.StatusConflict:            "ERR_CONFLICT",
	http.StatusTooManyRequests:     "ERR_RATE_LIMITED",
	http.StatusInternalServerError: "ERR_INTERNAL",
}

// StatusError builds an AppError whose code follows from status.
func StatusError(status int, message string) *AppError {
	code, ok := errorCodes[status]
	if !ok {
		code = fmt.Sprintf("ERR_HTTP_%d", status)
	}
	return NewAppError(code, "", message, status)
}

func NotFoundError(message string) *AppError { return StatusError(http.StatusNotFound, message) }

func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return NotFoundError(fmt.Sprintf(format, a...))
}

func BadRequestError(message string) *AppError { return StatusError(http.StatusBadRequest, message) }

func ConflictError(message string) *AppError { return StatusError(http.StatusConflict, message) }

func InternalError(message string) *AppError {
	return StatusError(http.StatusInternalServerError, message)
}
