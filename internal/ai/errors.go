package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Коды ошибок вызова модели. Провайдеры сводят свои ошибки к одному из них.
const (
	CodeAuth           = "auth"
	CodeRateLimit      = "rate_limit"
	CodeTimeout        = "timeout"
	CodeCanceled       = "canceled"
	CodeServer         = "server"
	CodeInvalidRequest = "invalid_request"
	CodeEmptyResponse  = "empty_response"
)

// CallError ошибка вызова модели с классификацией.
type CallError struct {
	Provider string
	Code     string
	Err      error
}

func (e *CallError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Code, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// ErrEmptyResponse модель вернула пустой текст.
var ErrEmptyResponse = errors.New("model returned no text")

// Code возвращает код ошибки или пустую строку, если это не CallError.
func Code(err error) string {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// classify сводит ошибку к коду по HTTP-статусу (0, если статус неизвестен) и тексту.
func classify(provider string, status int, err error) *CallError {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce
	}

	code := CodeServer
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeTimeout
	case errors.Is(err, context.Canceled):
		// клиент ушёл или процесс останавливается
		code = CodeCanceled
	case errors.Is(err, ErrEmptyResponse):
		code = CodeEmptyResponse
	case status == 401 || status == 403:
		code = CodeAuth
	case status == 429:
		code = CodeRateLimit
	case status == 408:
		code = CodeTimeout
	case status >= 500:
		code = CodeServer
	case status >= 400:
		code = CodeInvalidRequest
	case strings.Contains(strings.ToLower(err.Error()), "timeout"):
		code = CodeTimeout
	}
	return &CallError{Provider: provider, Code: code, Err: err}
}
