package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidCredentials = "INVALID_CREDENTIALS"
	textCodeOTPExpired         = "OTP_EXPIRED"
	textCodeNotVerified        = "IDENTIFIER_NOT_VERIFIED"
	textCodeUserNotFound       = "USER_NOT_FOUND"
	textCodePasswordReused     = "PASSWORD_REUSED"
	textCodeTokenExpired       = "TOKEN_EXPIRED"
	textCodeTokenMalformed     = "TOKEN_MALFORMED"
	textCodeDeliveryFailed     = "CODE_DELIVERY_FAILED"
)

// ErrInvalidCredentials covers a wrong password, a wrong one-time code, and an
// unknown identifier during verification or login. The message is shared on
// purpose so callers cannot enumerate registered identifiers.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrCodeExpired is returned when a stored one-time code is past its window.
var ErrCodeExpired = goerrors.New("code has expired", goerrors.CategoryAuth).
	WithTextCode(textCodeOTPExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrNotVerified is returned when registration, login, or a password reset is
// attempted before the identifier has been verified.
var ErrNotVerified = goerrors.New("identifier has not been verified", goerrors.CategoryOperation).
	WithTextCode(textCodeNotVerified).
	WithCode(goerrors.CodeBadRequest)

// ErrUserNotFound is returned when no identity row exists for an identifier.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrPasswordReused rejects a password reset that would keep the same password.
var ErrPasswordReused = goerrors.New("new password must differ from the current password", goerrors.CategoryConflict).
	WithTextCode(textCodePasswordReused).
	WithCode(goerrors.CodeConflict)

// ErrTokenExpired is returned for session tokens past their expiry.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail signature or structural checks.
var ErrTokenMalformed = goerrors.New("token is malformed or invalid", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrDeliveryFailed is surfaced when the SMS/email collaborator could not be
// reached. The generated code stays valid so the caller can retry delivery.
var ErrDeliveryFailed = goerrors.New("failed to deliver one-time code", goerrors.CategoryOperation).
	WithTextCode(textCodeDeliveryFailed).
	WithCode(goerrors.CodeInternal)

func validationError(msg string) *goerrors.Error {
	return goerrors.New(msg, goerrors.CategoryValidation).WithCode(goerrors.CodeBadRequest)
}
