// Package response defines the JSON envelope shared by every endpoint.
package response

import (
	"net/http"

	deliverycontext "gatekeeper/internal/delivery/context"
	domainerrors "gatekeeper/internal/domain/errors"

	"github.com/labstack/echo/v4"
)

// SuccessResponse defines the structure for successful responses
type SuccessResponse struct {
	Data any       `json:"data"`
	Meta *MetaInfo `json:"meta"`
}

// ErrorResponse defines the structure for error responses
type ErrorResponse struct {
	Error *ErrorInfo `json:"error"`
	Meta  *MetaInfo  `json:"meta"`
}

// ErrorInfo contains detailed error information
type ErrorInfo struct {
	Code        string `json:"code"`                  // Machine-readable error code, e.g., "AUTHORIZATION_EXPIRED"
	Message     string `json:"message"`               // User-friendly error message
	Details     any    `json:"details,omitempty"`     // Additional error context (4xx only, never for 401)
	ForceLogout bool   `json:"forceLogout,omitempty"` // The client must discard its stored credential
}

// MetaInfo represents response metadata
type MetaInfo struct {
	RequestID string `json:"request_id"` // Request tracking ID
}

// Success returns a successful response
func Success(c echo.Context, statusCode int, data any) error {
	return c.JSON(statusCode, SuccessResponse{
		Data: data,
		Meta: meta(c),
	})
}

// Error returns an error response
func Error(c echo.Context, statusCode int, errorCode string, message string, details any) error {
	return c.JSON(statusCode, ErrorResponse{
		Error: errorInfo(statusCode, errorCode, message, details),
		Meta:  meta(c),
	})
}

// AuthFailure renders an authorization failure including its force-logout flag.
func AuthFailure(c echo.Context, err *domainerrors.AuthError) error {
	info := errorInfo(err.HTTPCode(), err.ErrorCode(), err.Message(), nonEmpty(err.Details()))
	info.ForceLogout = err.ForceLogout()

	return c.JSON(err.HTTPCode(), ErrorResponse{Error: info, Meta: meta(c)})
}

// BindingError returns a binding error response
func BindingError(c echo.Context, errorCode string, message string) error {
	return Error(c, http.StatusBadRequest, errorCode, message, nil)
}

// BadRequest returns a 400 error
func BadRequest(c echo.Context, errorCode string, message string) error {
	return Error(c, http.StatusBadRequest, errorCode, message, nil)
}

// InternalServerError returns a 500 error
func InternalServerError(c echo.Context, errorCode string, message string) error {
	return Error(c, http.StatusInternalServerError, errorCode, message, nil)
}

func errorInfo(statusCode int, errorCode, message string, details any) *ErrorInfo {
	// Server errors and token rejections never explain themselves.
	if statusCode >= http.StatusInternalServerError || statusCode == http.StatusUnauthorized {
		details = nil
	}

	return &ErrorInfo{
		Code:    errorCode,
		Message: message,
		Details: details,
	}
}

func meta(c echo.Context) *MetaInfo {
	return &MetaInfo{RequestID: deliverycontext.GetRequestID(c)}
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}

	return s
}
