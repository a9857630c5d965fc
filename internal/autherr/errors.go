// Package autherr defines the client-facing known errors of the auth backend.
// Every error carries a stable machine-readable code and the HTTP status the
// API layer should respond with. Services return these values directly;
// handlers serialize them without further mapping.
package autherr

import (
	"errors"
	"fmt"
	"net/http"
)

// KnownError is a typed, client-facing error with a stable code.
type KnownError struct {
	Code    string         `json:"code"`
	Status  int            `json:"-"`
	Message string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *KnownError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches two KnownErrors by code, so errors.Is works against the
// package-level sentinels regardless of message or details.
func (e *KnownError) Is(target error) bool {
	var ke *KnownError
	if !errors.As(target, &ke) {
		return false
	}
	return e.Code == ke.Code
}

// Sentinel known errors. Compare with errors.Is.
var (
	ErrVerificationCodeNotFound = &KnownError{
		Code:    "VERIFICATION_CODE_NOT_FOUND",
		Status:  http.StatusNotFound,
		Message: "the verification code does not exist for this tenant",
	}
	ErrVerificationCodeExpired = &KnownError{
		Code:    "VERIFICATION_CODE_EXPIRED",
		Status:  http.StatusBadRequest,
		Message: "the verification code has expired",
	}
	ErrVerificationCodeAlreadyUsed = &KnownError{
		Code:    "VERIFICATION_CODE_ALREADY_USED",
		Status:  http.StatusConflict,
		Message: "the verification code has already been used",
	}
	ErrRedirectURLNotWhitelisted = &KnownError{
		Code:    "REDIRECT_URL_NOT_WHITELISTED",
		Status:  http.StatusBadRequest,
		Message: "the callback URL is not in the tenant's trusted domains",
	}
	ErrRefreshTokenNotFound = &KnownError{
		Code:    "REFRESH_TOKEN_NOT_FOUND",
		Status:  http.StatusUnauthorized,
		Message: "the refresh token is not valid for this tenant",
	}
	ErrRefreshTokenExpiredOrRevoked = &KnownError{
		Code:    "REFRESH_TOKEN_EXPIRED_OR_REVOKED",
		Status:  http.StatusUnauthorized,
		Message: "the refresh token has expired or was revoked",
	}
	ErrAccessTokenExpired = &KnownError{
		Code:    "ACCESS_TOKEN_EXPIRED",
		Status:  http.StatusUnauthorized,
		Message: "the access token has expired",
	}
	ErrUnparsableAccessToken = &KnownError{
		Code:    "UNPARSABLE_ACCESS_TOKEN",
		Status:  http.StatusUnauthorized,
		Message: "the access token could not be parsed",
	}
	ErrEmailPasswordMismatch = &KnownError{
		Code:    "EMAIL_PASSWORD_MISMATCH",
		Status:  http.StatusBadRequest,
		Message: "the email and password do not match",
	}
	ErrUserEmailAlreadyExists = &KnownError{
		Code:    "USER_EMAIL_ALREADY_EXISTS",
		Status:  http.StatusConflict,
		Message: "a user with this email already exists",
	}
	ErrEmailAlreadyVerified = &KnownError{
		Code:    "EMAIL_ALREADY_VERIFIED",
		Status:  http.StatusBadRequest,
		Message: "the contact channel is already verified",
	}
	ErrUserNotFound = &KnownError{
		Code:    "USER_NOT_FOUND",
		Status:  http.StatusNotFound,
		Message: "the user does not exist in this tenant",
	}
	ErrInvalidTotpCode = &KnownError{
		Code:    "INVALID_TOTP_CODE",
		Status:  http.StatusBadRequest,
		Message: "the TOTP code is invalid",
	}
	ErrPasskeyAuthenticationFailed = &KnownError{
		Code:    "PASSKEY_AUTHENTICATION_FAILED",
		Status:  http.StatusBadRequest,
		Message: "the passkey assertion could not be verified",
	}
	ErrSignUpNotEnabled = &KnownError{
		Code:    "SIGN_UP_NOT_ENABLED",
		Status:  http.StatusBadRequest,
		Message: "sign up is not enabled for this tenant",
	}
	ErrPasswordAuthNotEnabled = &KnownError{
		Code:    "PASSWORD_AUTHENTICATION_NOT_ENABLED",
		Status:  http.StatusBadRequest,
		Message: "password authentication is not enabled for this tenant",
	}
	ErrOTPAuthNotEnabled = &KnownError{
		Code:    "OTP_AUTHENTICATION_NOT_ENABLED",
		Status:  http.StatusBadRequest,
		Message: "sign in by email code is not enabled for this tenant",
	}
	ErrPasskeyAuthNotEnabled = &KnownError{
		Code:    "PASSKEY_AUTHENTICATION_NOT_ENABLED",
		Status:  http.StatusBadRequest,
		Message: "passkey authentication is not enabled for this tenant",
	}
	ErrUserDoesNotHavePassword = &KnownError{
		Code:    "USER_DOES_NOT_HAVE_PASSWORD",
		Status:  http.StatusBadRequest,
		Message: "the user does not have a password set",
	}
	ErrPasswordConfirmationMismatch = &KnownError{
		Code:    "PASSWORD_CONFIRMATION_MISMATCH",
		Status:  http.StatusBadRequest,
		Message: "the old password is incorrect",
	}
	ErrTenantNotFound = &KnownError{
		Code:    "TENANT_NOT_FOUND",
		Status:  http.StatusNotFound,
		Message: "unknown tenant",
	}
)

// MFARequiredCode is the code of the multi-factor continuation signal. It is
// not a failure: the response carries a fresh attempt code the client must
// present, together with a TOTP value, to the MFA sign-in endpoint.
const MFARequiredCode = "MULTI_FACTOR_AUTHENTICATION_REQUIRED"

// NewMFARequired builds the continuation signal carrying attemptCode.
func NewMFARequired(attemptCode string) *KnownError {
	return &KnownError{
		Code:    MFARequiredCode,
		Status:  http.StatusBadRequest,
		Message: "second factor required to finish signing in",
		Details: map[string]any{"attempt_code": attemptCode},
	}
}

// SchemaValidationCode is the code of every request validation failure.
const SchemaValidationCode = "SCHEMA_ERROR"

// NewSchemaValidation reports a malformed request body field. Stored-payload
// mismatches are integrity errors and must not use this constructor.
func NewSchemaValidation(field, reason string) *KnownError {
	return &KnownError{
		Code:    SchemaValidationCode,
		Status:  http.StatusBadRequest,
		Message: "request validation failed",
		Details: map[string]any{"field": field, "reason": reason},
	}
}
