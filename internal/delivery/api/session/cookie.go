// Package session manages the HttpOnly cookie that carries a browser's access token.
package session

import (
	"net/http"
	"time"

	"gatekeeper/config"
	"gatekeeper/internal/domain/constants"

	"github.com/labstack/echo/v4"
)

const defaultCookieName = "gatekeeper_session"

// Cookies sets and clears the session cookie.
type Cookies struct {
	name   string
	domain string
	secure bool
}

// NewCookies builds the cookie settings from the auth section. Cookies are Secure unless
// the auth section asks otherwise in a local or develop environment.
func NewCookies(cfg *config.Config) *Cookies {
	c := &Cookies{name: defaultCookieName, secure: true}
	if cfg.Auth == nil {
		return c
	}
	if cfg.Auth.Cookie.Name != "" {
		c.name = cfg.Auth.Cookie.Name
	}
	c.domain = cfg.Auth.Cookie.Domain
	if cfg.Auth.Cookie.Insecure && (cfg.Env.Env == constants.EnvLocal || cfg.Env.Env == constants.EnvDevelop) {
		c.secure = false
	}

	return c
}

// Name returns the cookie name the token extractor looks for.
func (s *Cookies) Name() string {
	return s.name
}

// Set stores the token until expiry. Only Expires is sent; Max-Age stays unset.
func (s *Cookies) Set(c echo.Context, token string, expiry time.Time) {
	c.SetCookie(s.cookie(token, expiry, 0))
}

// Clear tells the browser to drop the cookie.
func (s *Cookies) Clear(c echo.Context) {
	c.SetCookie(s.cookie("", time.Unix(0, 0), -1))
}

func (s *Cookies) cookie(value string, expiry time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.name,
		Value:    value,
		Path:     "/",
		Domain:   s.domain,
		Expires:  expiry,
		MaxAge:   maxAge,
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
