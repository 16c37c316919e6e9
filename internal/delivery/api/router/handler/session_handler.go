package handler

import (
	"log/slog"
	"net/http"

	"gatekeeper/internal/delivery/api/middleware"
	"gatekeeper/internal/delivery/api/response"
	"gatekeeper/internal/delivery/api/session"
	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// SessionHandlerParams holds dependencies for SessionHandler, injected by Fx.
type SessionHandlerParams struct {
	fx.In

	AuthorizationUC usecase.AuthorizationUsecase
	Cookies         *session.Cookies
	Logger          *slog.Logger
}

// SessionHandler serves the authenticated caller's view of its own credential.
type SessionHandler struct {
	authorizationUC usecase.AuthorizationUsecase
	cookies         *session.Cookies
	logger          *slog.Logger
}

// NewSessionHandler is the constructor for SessionHandler
func NewSessionHandler(params SessionHandlerParams) *SessionHandler {
	return &SessionHandler{
		authorizationUC: params.AuthorizationUC,
		cookies:         params.Cookies,
		logger:          params.Logger,
	}
}

// AuthorizationResponse is the resolved credential of the caller.
type AuthorizationResponse struct {
	User       *UserResponse     `json:"user,omitempty"`
	Scopes     entity.ScopeSet   `json:"scopes"`
	Credential entity.Descriptor `json:"credential"`
}

// LogoutAllResponse reports how many sessions were ended.
type LogoutAllResponse struct {
	Revoked int64 `json:"revoked"`
}

// GetSession returns what the presented credential grants.
func (h *SessionHandler) GetSession(c echo.Context) error {
	result, err := middleware.Authorization(c)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, &AuthorizationResponse{
		User:       toUserResponse(result.User),
		Scopes:     result.Scopes,
		Credential: result.Credential,
	})
}

// Logout revokes the presented session and clears the cookie.
func (h *SessionHandler) Logout(c echo.Context) error {
	result, err := middleware.Authorization(c)
	if err != nil {
		return err
	}

	if err := h.authorizationUC.Revoke(c.Request().Context(), result.Credential); err != nil {
		return errors.WithStack(err)
	}
	h.cookies.Clear(c)

	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every session of the caller, including the presented one.
func (h *SessionHandler) LogoutAll(c echo.Context) error {
	result, err := middleware.Authorization(c)
	if err != nil {
		return err
	}

	revoked, err := h.authorizationUC.RevokeAll(c.Request().Context(), result.User.ID, entity.KindAccessToken)
	if err != nil {
		return errors.WithStack(err)
	}
	h.cookies.Clear(c)

	return response.Success(c, http.StatusOK, &LogoutAllResponse{Revoked: revoked})
}
