package context

import (
	"gatekeeper/internal/domain/entity"

	"github.com/labstack/echo/v4"
)

// KeyAuthorization is the echo.Context key of the resolved credential.
const KeyAuthorization ContextKey = "authorization"

// SetAuthorization stores the resolution result for downstream handlers.
func SetAuthorization(c echo.Context, result *entity.AuthorizationResult) {
	c.Set(string(KeyAuthorization), result)
}

// GetAuthorization returns the resolution result stored by the auth middleware.
func GetAuthorization(c echo.Context) (*entity.AuthorizationResult, bool) {
	result, ok := c.Get(string(KeyAuthorization)).(*entity.AuthorizationResult)

	return result, ok && result != nil
}
