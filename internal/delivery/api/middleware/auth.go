package middleware

import (
	"log/slog"

	"gatekeeper/internal/delivery/api/session"
	deliverycontext "gatekeeper/internal/delivery/context"
	"gatekeeper/internal/domain/entity"
	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/usecase"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware resolves the request's credential and stores the result for handlers.
type AuthMiddleware struct {
	authz   usecase.AuthorizationUsecase
	cookies *session.Cookies
	logger  *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(authz usecase.AuthorizationUsecase, cookies *session.Cookies, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{authz: authz, cookies: cookies, logger: logger}
}

// Require admits requests whose credential is one of kinds (any kind when empty) and
// carries every scope in scopes. Failures that invalidate the credential also clear the
// session cookie.
func (m *AuthMiddleware) Require(kinds entity.CredentialKinds, scopes ...string) echo.MiddlewareFunc {
	required := entity.NewScopeSet(scopes...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			token, found, err := ExtractToken(req.Header, req.Cookies(), m.cookies.Name())
			if err != nil {
				return err
			}
			if !found {
				return domainerrors.ErrMissingAuthorization
			}

			result, err := m.authz.Resolve(req.Context(), &usecase.ResolveInput{
				Token:          token,
				RequiredScopes: required,
				PermittedKinds: kinds,
			})
			if err != nil {
				deliverycontext.GetLoggerOrDefault(req.Context(), m.logger).Debug("Authorization rejected",
					slog.String("path", c.Path()),
					slog.Any("error", err),
				)
				if domainerrors.ShouldForceLogout(err) {
					m.cookies.Clear(c)
				}

				return err
			}

			deliverycontext.SetAuthorization(c, result)

			return next(c)
		}
	}
}

// Authorization returns the result stored by Require.
func Authorization(c echo.Context) (*entity.AuthorizationResult, error) {
	result, ok := deliverycontext.GetAuthorization(c)
	if !ok {
		return nil, domainerrors.ErrMissingAuthorization
	}

	return result, nil
}
