package handler

import (
	"log/slog"
	"net/http"
	"time"

	"gatekeeper/internal/delivery/api/middleware"
	"gatekeeper/internal/delivery/api/response"
	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// APIKeyHandlerParams holds dependencies for APIKeyHandler, injected by Fx.
type APIKeyHandlerParams struct {
	fx.In

	APIKeyUC usecase.APIKeyUsecase
	Logger   *slog.Logger
}

// APIKeyHandler manages the caller's API keys
type APIKeyHandler struct {
	apiKeyUC usecase.APIKeyUsecase
	logger   *slog.Logger
}

// NewAPIKeyHandler is the constructor for APIKeyHandler
func NewAPIKeyHandler(params APIKeyHandlerParams) *APIKeyHandler {
	return &APIKeyHandler{
		apiKeyUC: params.APIKeyUC,
		logger:   params.Logger,
	}
}

// CreateAPIKeyRequest represents the request body for creating an API key
type CreateAPIKeyRequest struct {
	Name     string   `json:"name" validate:"required,max=64"`
	Scopes   []string `json:"scopes" validate:"max=64,dive,required,max=128"`
	Lifetime string   `json:"lifetime"` // Go duration such as "720h". Empty selects the default.
}

// CreateAPIKeyResponse carries the key token. It is shown only once.
type CreateAPIKeyResponse struct {
	Token string          `json:"token"`
	Key   *APIKeyResponse `json:"key"`
}

// CreateAPIKey issues a key whose scopes are a subset of the caller's.
func (h *APIKeyHandler) CreateAPIKey(c echo.Context) error {
	caller, err := middleware.Authorization(c)
	if err != nil {
		return err
	}

	var req CreateAPIKeyRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	var lifetime time.Duration
	if req.Lifetime != "" {
		lifetime, err = time.ParseDuration(req.Lifetime)
		if err != nil || lifetime <= 0 {
			return domainerrors.ErrValidationFailed.WithDetails("lifetime:duration")
		}
	}

	out, err := h.apiKeyUC.Create(c.Request().Context(), caller, &usecase.CreateAPIKeyInput{
		Name:     req.Name,
		Scopes:   req.Scopes,
		Lifetime: lifetime,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, &CreateAPIKeyResponse{
		Token: out.Token,
		Key:   toAPIKeyResponse(out.Key),
	})
}

// ListAPIKeys returns the caller's keys, newest first.
func (h *APIKeyHandler) ListAPIKeys(c echo.Context) error {
	caller, err := middleware.Authorization(c)
	if err != nil {
		return err
	}

	keys, err := h.apiKeyUC.List(c.Request().Context(), caller)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := make([]*APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		resp = append(resp, toAPIKeyResponse(key))
	}

	return response.Success(c, http.StatusOK, resp)
}

// DeleteAPIKey revokes one of the caller's keys.
func (h *APIKeyHandler) DeleteAPIKey(c echo.Context) error {
	caller, err := middleware.Authorization(c)
	if err != nil {
		return err
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return domainerrors.ErrAPIKeyNotFound
	}

	if err := h.apiKeyUC.Delete(c.Request().Context(), caller, keyID); err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}
