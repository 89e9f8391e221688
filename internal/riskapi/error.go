package riskapi

import (
	"errors"
	"fmt"
)

const errorTitle = "RiskAPI"

const (
	timeoutMessage  = "The server is taking too long to respond. This might be because the server is waking up. Please wait a moment and try again."
	networkMessage  = "Cannot connect to server. Please check your internet connection."
	canceledMessage = "The request was canceled."
	invalidMessage  = "Invalid response format from server"
)

var (
	ErrTimeout  = errors.New(timeoutMessage)
	ErrNetwork  = errors.New(networkMessage)
	ErrCanceled = errors.New(canceledMessage)
)

type ErrorType string

const (
	TimeoutErrorT         ErrorType = "TimeoutError"
	NetworkErrorT         ErrorType = "NetworkError"
	CanceledErrorT        ErrorType = "CanceledError"
	ServerResponseErrorT  ErrorType = "ServerResponseError"
	InvalidResponseErrorT ErrorType = "InvalidResponseError"
	SerDeErrorT           ErrorType = "SerDeError"
)

// Error - ошибка обращения к API прогноза
type Error struct {
	Type     ErrorType
	Err      error
	Endpoint string
	Status   int // HTTP-статус ответа, 0 если ответа не было
}

func NewError(t ErrorType, e error) *Error {
	return &Error{Type: t, Err: e}
}

func (e *Error) SetEndpoint(endpoint string) *Error {
	newError := *e
	newError.Endpoint = endpoint

	return &newError
}

func (e *Error) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("%s: %s: %s: %s", errorTitle, e.Endpoint, e.Type, e.Err)
	}

	return fmt.Sprintf("%s: %s: %s", errorTitle, e.Type, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать ошибку с ErrTimeout, ErrNetwork и ErrCanceled по типу
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Type == TimeoutErrorT
	case ErrNetwork:
		return e.Type == NetworkErrorT
	case ErrCanceled:
		return e.Type == CanceledErrorT
	}
	return false
}

// Message возвращает текст ошибки для показа пользователю
func (e *Error) Message() string {
	switch e.Type {
	case TimeoutErrorT:
		return timeoutMessage
	case NetworkErrorT:
		return networkMessage
	case CanceledErrorT:
		return canceledMessage
	case SerDeErrorT:
		return invalidMessage
	}
	if e.Err == nil {
		return string(e.Type)
	}

	return e.Err.Error()
}

// Message извлекает пользовательский текст из любой ошибки клиента
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}

	return err.Error()
}
