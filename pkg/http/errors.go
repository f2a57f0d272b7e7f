package http

import (
	"fmt"
	"net/http"
)

// Error codes shared by the API handlers.
const (
	CodeBadRequest        = "ERR_BAD_REQUEST"
	CodeInvalidBody       = "ERR_BODY"
	CodeModelsUnavailable = "ERR_MODELS_UNAVAILABLE"
	CodeInference         = "ERR_INFERENCE"
	CodeInternal          = "ERR_INTERNAL"
)

// AppError is an error with a client-facing code and HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithError attaches the cause. It is logged, never serialized.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func BadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, "", message, http.StatusBadRequest)
}

func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return BadRequestError(fmt.Sprintf(format, a...))
}

func ServiceUnavailableError(code, message string) *AppError {
	return NewAppError(code, "", message, http.StatusServiceUnavailable)
}

func InternalError(code, message string) *AppError {
	if code == "" {
		code = CodeInternal
	}
	return NewAppError(code, "", message, http.StatusInternalServerError)
}
