package auth

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yourusername/fuel-tracker/internal/apperr"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const maxDisplayNameLength = 64

// normalizeEmail は前後の空白を除いて小文字に揃えます。
// 保存・照合・レート制限キーで共通の正規形です。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validPassword は8文字以上かつ英字と数字を1文字以上含むかを検証します。
func validPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// validateRegister は登録リクエストを検証し、違反したフィールドを全て列挙します。
func validateRegister(req *registerRequest) []apperr.FieldError {
	var errs []apperr.FieldError

	if !emailPattern.MatchString(req.Email) {
		errs = append(errs, apperr.FieldError{Field: "email", Message: "Invalid email"})
	}
	if !validPassword(req.Password) {
		errs = append(errs, apperr.FieldError{
			Field:   "password",
			Message: "Password must be at least 8 chars and include a letter and a digit",
		})
	}
	if req.ConfirmPassword != req.Password {
		errs = append(errs, apperr.FieldError{Field: "confirmPassword", Message: "Passwords do not match"})
	}
	if req.DisplayName != nil && utf8.RuneCountInString(*req.DisplayName) > maxDisplayNameLength {
		errs = append(errs, apperr.FieldError{Field: "displayName", Message: "Display name is too long"})
	}

	return errs
}

// validateLogin はログインリクエストを検証します。
func validateLogin(req *loginRequest) []apperr.FieldError {
	var errs []apperr.FieldError

	if !emailPattern.MatchString(req.Email) {
		errs = append(errs, apperr.FieldError{Field: "email", Message: "Invalid email"})
	}
	if req.Password == "" {
		errs = append(errs, apperr.FieldError{Field: "password", Message: "Password is required"})
	}

	return errs
}
