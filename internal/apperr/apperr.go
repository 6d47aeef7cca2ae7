// Package apperr はアプリケーション共通のエラー分類と HTTP への変換を提供します。
package apperr

import (
	"fmt"
	"net/http"
)

// エラーコードの定義
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

// FieldError はフィールド単位のバリデーションエラーです。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error は HTTP ステータスとエラーコードを持つアプリケーションエラーです。
type Error struct {
	Code    string
	Status  int
	Message string
	Fields  []FieldError
	cause   error
}

// Error は error インターフェースを実装します。
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap は原因となったエラーを返します。
func (e *Error) Unwrap() error {
	return e.cause
}

// Is はエラーコードが一致するかを判定します。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Validation は 400 を返すフィールドエラー付きのエラーを作成します。
func Validation(fields ...FieldError) *Error {
	return &Error{
		Code:    CodeValidation,
		Status:  http.StatusBadRequest,
		Message: "Validation failed",
		Fields:  fields,
	}
}

// BadRequest はリクエスト形式自体が不正な場合の 400 エラーを作成します。
func BadRequest(message string) *Error {
	return &Error{Code: CodeInvalidInput, Status: http.StatusBadRequest, Message: message}
}

// Unauthorized は 401 エラーを作成します。
func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Status: http.StatusUnauthorized, Message: message}
}

// Forbidden は 403 エラーを作成します。
func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Status: http.StatusForbidden, Message: message}
}

// NotFound は 404 エラーを作成します。
func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: message}
}

// Conflict は一意制約違反など 409 エラーを作成します。
func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Status: http.StatusConflict, Message: message}
}

// RateLimited は 429 エラーを作成します。
func RateLimited(message string) *Error {
	return &Error{Code: CodeRateLimited, Status: http.StatusTooManyRequests, Message: message}
}

// Internal は想定外のエラーを 500 として包みます。
func Internal(err error) *Error {
	return &Error{
		Code:    CodeInternal,
		Status:  http.StatusInternalServerError,
		Message: "Internal Server Error",
		cause:   err,
	}
}
