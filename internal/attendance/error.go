package attendance

import (
	"errors"
	"fmt"
)

// ===== Error model (audit と同型) =====
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeAlreadyCheckedIn  Code = "ALREADY_CHECKED_IN"
	CodeAlreadyCheckedOut Code = "ALREADY_CHECKED_OUT"
	CodeNotCheckedIn      Code = "NOT_CHECKED_IN"
	CodeRecordExists      Code = "RECORD_EXISTS"
	CodeRecordNotFound    Code = "RECORD_NOT_FOUND"
	CodeInternal          Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrInvalid(msg string) *APIError {
	return &APIError{Code: CodeValidation, Message: msg}
}

func ErrAlreadyCheckedIn() *APIError {
	return &APIError{Code: CodeAlreadyCheckedIn, Message: "already checked in today"}
}

func ErrAlreadyCheckedOut() *APIError {
	return &APIError{Code: CodeAlreadyCheckedOut, Message: "already checked out today"}
}

func ErrNotCheckedIn() *APIError {
	return &APIError{Code: CodeNotCheckedIn, Message: "must check in first"}
}

func ErrRecordExists() *APIError {
	return &APIError{Code: CodeRecordExists, Message: "attendance record already exists for this user and date"}
}

func ErrRecordNotFound() *APIError {
	return &APIError{Code: CodeRecordNotFound, Message: "attendance record not found"}
}

func ErrInternal(msg string) *APIError {
	return &APIError{Code: CodeInternal, Message: msg}
}

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeValidation:
			return 400
		case CodeRecordNotFound, CodeNotCheckedIn:
			return 404
		case CodeAlreadyCheckedIn, CodeAlreadyCheckedOut, CodeRecordExists:
			return 409
		default:
			return 500
		}
	}
	return 500
}
