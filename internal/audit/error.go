package audit

import (
	"errors"
	"fmt"
)

// ===== Error model (attendance と同型) =====
type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeInternal   Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string     { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError { return &APIError{Code: CodeValidation, Message: msg} }
func ErrInternal(msg string) *APIError {
	return &APIError{Code: CodeInternal, Message: msg}
}

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeValidation:
			return 400
		default:
			return 500
		}
	}
	return 500
}
