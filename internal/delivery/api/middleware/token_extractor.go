package middleware

import (
	"net/http"
	"strings"

	"gatekeeper/internal/domain/constants"
	domainerrors "gatekeeper/internal/domain/errors"

	"github.com/labstack/echo/v4"
)

const bearerScheme = "bearer"

// ExtractToken reads the bearer token from the Authorization header and the session cookie.
// A request carrying both is rejected before either token is decoded, even when they are
// equal. found is false when neither transport carries a token.
func ExtractToken(header http.Header, cookies []*http.Cookie, cookieName string) (token string, found bool, err error) {
	headerToken := bearerToken(header.Get(echo.HeaderAuthorization))
	cookieToken := cookieValue(cookies, cookieName)

	switch {
	case headerToken != "" && cookieToken != "":
		return "", false, domainerrors.MultipleAuthorizationTypes([]string{constants.AuthSourceHeader, constants.AuthSourceCookie})
	case headerToken != "":
		return headerToken, true, nil
	case cookieToken != "":
		return cookieToken, true, nil
	default:
		return "", false, nil
	}
}

// bearerToken returns the credential of a "Bearer <token>" header. The scheme is matched
// case-insensitively; any other scheme yields no token.
func bearerToken(value string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return ""
	}

	return strings.TrimSpace(token)
}

func cookieValue(cookies []*http.Cookie, name string) string {
	if name == "" {
		return ""
	}
	for _, cookie := range cookies {
		if cookie.Name == name && cookie.Value != "" {
			return cookie.Value
		}
	}

	return ""
}
