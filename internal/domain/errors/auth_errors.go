package errors

import (
	"net/http"
	"strings"

	"gatekeeper/internal/errors"
)

// AuthError is a typed authorization failure. Besides the AppError contract it tells the
// transport whether the client's stored credential is permanently unusable.
type AuthError struct {
	httpCode    int
	errorCode   string
	message     string
	details     string
	forceLogout bool
}

// NewAuthError creates a new authorization failure
func NewAuthError(httpCode int, errorCode, message string, forceLogout bool) *AuthError {
	return &AuthError{
		httpCode:    httpCode,
		errorCode:   errorCode,
		message:     message,
		forceLogout: forceLogout,
	}
}

// Error implements the error interface
func (e *AuthError) Error() string {
	if e.details == "" {
		return e.message
	}

	return e.message + ": " + e.details
}

// HTTPCode returns the HTTP status code
func (e *AuthError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *AuthError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *AuthError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *AuthError) Details() string {
	return e.details
}

// ForceLogout reports whether the client should drop its stored credential.
func (e *AuthError) ForceLogout() bool {
	return e.forceLogout
}

// WithDetails returns a copy carrying details. The copy still matches the original with Is.
func (e *AuthError) WithDetails(details string) *AuthError {
	cp := *e
	cp.details = details

	return &cp
}

// Is matches any AuthError with the same error code.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}

	return t.errorCode == e.errorCode
}

// Authorization failures
var (
	ErrMissingAuthorization = NewAuthError(
		http.StatusUnauthorized,
		"MISSING_AUTHORIZATION",
		"缺少授權資訊",
		false,
	)

	ErrMultipleAuthorizationTypesProvided = NewAuthError(
		http.StatusBadRequest,
		"MULTIPLE_AUTHORIZATION_TYPES_PROVIDED",
		"同時提供了多種授權方式",
		false,
	)

	ErrImproperFormat = NewAuthError(
		http.StatusUnauthorized,
		"IMPROPER_FORMAT",
		"授權格式不正確",
		true,
	)

	ErrMissingRequiredClaims = NewAuthError(
		http.StatusUnauthorized,
		"MISSING_REQUIRED_CLAIMS",
		"授權缺少必要欄位",
		true,
	)

	ErrAuthorizationTypeNotPermitted = NewAuthError(
		http.StatusUnauthorized,
		"AUTHORIZATION_TYPE_NOT_PERMITTED",
		"此端點不接受此授權類型",
		true,
	)

	ErrAuthorizationExpired = NewAuthError(
		http.StatusUnauthorized,
		"AUTHORIZATION_EXPIRED",
		"授權已過期",
		true,
	)

	ErrUserNotFound = NewAuthError(
		http.StatusUnauthorized,
		"USER_NOT_FOUND",
		"找不到該使用者",
		true,
	)

	ErrNotPermitted = NewAuthError(
		http.StatusForbidden,
		"NOT_PERMITTED",
		"權限不足",
		false,
	)

	ErrInvalidOTP = NewAuthError(
		http.StatusUnauthorized,
		"INVALID_OTP",
		"驗證碼錯誤或已失效",
		false,
	)
)

// MultipleAuthorizationTypes names the transports that each supplied a token.
func MultipleAuthorizationTypes(sources []string) *AuthError {
	return ErrMultipleAuthorizationTypesProvided.WithDetails(strings.Join(sources, ","))
}

// MissingRequiredClaims names the claims a token lacks.
func MissingRequiredClaims[T ~string](claims []T) *AuthError {
	names := make([]string, len(claims))
	for i, c := range claims {
		names[i] = string(c)
	}

	return ErrMissingRequiredClaims.WithDetails(strings.Join(names, ","))
}

// NotPermitted names the scopes a credential lacks.
func NotPermitted(missing []string) *AuthError {
	return ErrNotPermitted.WithDetails(strings.Join(missing, ","))
}

// IsAuthorizationFailure reports whether err is a typed authorization failure rather than an
// infrastructure error.
func IsAuthorizationFailure(err error) bool {
	var authErr *AuthError

	return errors.As(err, &authErr)
}

// ShouldForceLogout reports whether err tells the client to drop its credential.
func ShouldForceLogout(err error) bool {
	authErr, ok := errors.AsType[*AuthError](err)

	return ok && authErr.ForceLogout()
}
