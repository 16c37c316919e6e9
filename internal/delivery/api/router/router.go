// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"gatekeeper/config"
	"gatekeeper/internal/delivery/api/middleware"
	"gatekeeper/internal/delivery/api/router/handler"
	"gatekeeper/internal/domain/entity"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// ScopeAPIKeysManage guards the API key endpoints.
const ScopeAPIKeysManage = "api_keys.manage"

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	SessionHandler *handler.SessionHandler
	APIKeyHandler  *handler.APIKeyHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
	Gatherer       prometheus.Gatherer
	Config         *config.Config
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	sessionHandler *handler.SessionHandler
	apiKeyHandler  *handler.APIKeyHandler
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
	gatherer       prometheus.Gatherer
	config         *config.Config
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		sessionHandler: params.SessionHandler,
		apiKeyHandler:  params.APIKeyHandler,
		authMiddleware: params.AuthMiddleware,
		rateLimiter:    params.RateLimiter,
		gatherer:       params.Gatherer,
		config:         params.Config,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	if r.config.Metrics != nil && r.config.Metrics.Enabled {
		path := r.config.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		e.GET(path, handler.MetricsHandler(r.gatherer))
	}

	sessionKinds := entity.CredentialKinds{entity.KindAccessToken}
	bearerKinds := entity.CredentialKinds{entity.KindAccessToken, entity.KindAPIKey}

	// Credential issuance, throttled per client
	authGroup := e.Group("/auth")
	{
		throttled := authGroup.Group("", r.rateLimiter.Limit)
		throttled.POST("/login", r.authHandler.Login)
		throttled.POST("/otp", r.authHandler.RequestOTP)
		throttled.POST("/otp/verify", r.authHandler.VerifyOTP)
		throttled.POST("/magic-link", r.authHandler.RequestMagicLink)
		throttled.POST("/sign-up", r.authHandler.RequestSignUp)

		authGroup.POST("/magic-link/consume", r.authHandler.ConsumeMagicLink)
		authGroup.GET("/magic-link/qr", r.authHandler.MagicLinkQR)
		authGroup.POST("/sign-up/complete", r.authHandler.CompleteSignUp)
		authGroup.POST("/social/google", r.authHandler.GoogleLogin)

		// The caller's own credential. OTP tokens are only good for /otp/verify.
		authGroup.GET("/session", r.sessionHandler.GetSession, r.authMiddleware.Require(bearerKinds))
		authGroup.POST("/logout", r.sessionHandler.Logout, r.authMiddleware.Require(sessionKinds))
		authGroup.POST("/logout/all", r.sessionHandler.LogoutAll, r.authMiddleware.Require(sessionKinds))
	}

	// API v1 routes
	apiV1 := e.Group("/api/v1")

	// API key management, only from an interactive session
	apiKeysGroup := apiV1.Group("/api-keys")
	{
		apiKeysGroup.POST("", r.apiKeyHandler.CreateAPIKey, r.authMiddleware.Require(sessionKinds, ScopeAPIKeysManage))
		apiKeysGroup.GET("", r.apiKeyHandler.ListAPIKeys, r.authMiddleware.Require(sessionKinds, ScopeAPIKeysManage))
		apiKeysGroup.DELETE("/:id", r.apiKeyHandler.DeleteAPIKey, r.authMiddleware.Require(sessionKinds, ScopeAPIKeysManage))
	}
}
