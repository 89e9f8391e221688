package api

import "net/http"

// Error - тело ошибки в конверте ответа
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"` // ошибки по полям анкеты
}

type Response struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// APIError - ошибка обработчика вместе с HTTP-статусом
type APIError struct {
	Status int
	Err    Error
}

func NewError(status int, code, message string) *APIError {
	return &APIError{
		Status: status,
		Err:    Error{Code: code, Message: message},
	}
}

func ValidationError(details map[string]string) *APIError {
	return &APIError{
		Status: http.StatusBadRequest,
		Err: Error{
			Code:    "validation_error",
			Message: "invalid applicant profile",
			Details: details,
		},
	}
}
