package handler

import (
	"log/slog"
	"net/http"
	"time"

	"gatekeeper/internal/delivery/api/response"
	"gatekeeper/internal/delivery/api/session"
	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/domain/service"
	"gatekeeper/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	IssuanceUC usecase.IssuanceUsecase
	Cookies    *session.Cookies
	Logger     *slog.Logger
}

// AuthHandler serves the public flows that mint credentials.
type AuthHandler struct {
	issuanceUC usecase.IssuanceUsecase
	cookies    *session.Cookies
	logger     *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		issuanceUC: params.IssuanceUC,
		cookies:    params.Cookies,
		logger:     params.Logger,
	}
}

// LoginRequest represents the request body for a password login
type LoginRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	StaySignedIn bool   `json:"staySignedIn"`
}

// RequestOTPRequest represents the request body for sending a one-time code
type RequestOTPRequest struct {
	Email       string `json:"email" validate:"required_without=PhoneNumber,excluded_with=PhoneNumber,omitempty,email"`
	PhoneNumber string `json:"phoneNumber" validate:"required_without=Email,omitempty,max=32"`
	Channel     string `json:"channel" validate:"omitempty,oneof=email sms"`
}

// VerifyOTPRequest represents the request body for verifying a one-time code
type VerifyOTPRequest struct {
	OTPToken     string `json:"otpToken"`
	Email        string `json:"email" validate:"omitempty,email"`
	PhoneNumber  string `json:"phoneNumber" validate:"omitempty,max=32"`
	Code         string `json:"code" validate:"required,numeric"`
	StaySignedIn bool   `json:"staySignedIn"`
}

// EmailRequest represents a request body carrying only an address
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ConsumeMagicLinkRequest represents the request body for consuming a magic link
type ConsumeMagicLinkRequest struct {
	Token        string `json:"token" validate:"required"`
	StaySignedIn bool   `json:"staySignedIn"`
}

// CompleteSignUpRequest represents the request body for finishing a sign-up
type CompleteSignUpRequest struct {
	Token       string `json:"token" validate:"required"`
	Username    string `json:"username" validate:"omitempty,min=3,max=32,alphanum"`
	Password    string `json:"password" validate:"omitempty,min=8,max=72"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=32"`
}

// SocialLoginRequest represents the request body for a provider login
type SocialLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// OTPResponse is returned once a code has been handed to the delivery queue.
type OTPResponse struct {
	OTPToken  string    `json:"otpToken"`
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LinkResponse is returned once a link has been handed to the delivery queue. It does not
// reveal whether the address belongs to an account.
type LinkResponse struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

// SocialLoginResponse is a session or a sign-up token for an unknown address.
type SocialLoginResponse struct {
	Session        *SessionResponse `json:"session,omitempty"`
	SignUpRequired bool             `json:"signUpRequired"`
	SignUpToken    string           `json:"signUpToken,omitempty"`
}

// bind decodes and validates a request body.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errors.Wrap(domainerrors.ErrValidationFailed.WithDetails("malformed request body"), err.Error())
	}

	return errors.WithStack(c.Validate(req))
}

// Login handles the password login request.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	out, err := h.issuanceUC.Login(c.Request().Context(), &usecase.LoginInput{
		Email:        req.Email,
		Password:     req.Password,
		StaySignedIn: req.StaySignedIn,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return h.session(c, http.StatusOK, out)
}

// RequestOTP sends a one-time code by email or SMS.
func (h *AuthHandler) RequestOTP(c echo.Context) error {
	var req RequestOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	out, err := h.issuanceUC.RequestOTP(c.Request().Context(), &usecase.RequestOTPInput{
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Channel:     service.Channel(req.Channel),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusAccepted, &OTPResponse{
		OTPToken:  out.OTPToken,
		Channel:   string(out.Channel),
		Recipient: out.Recipient,
		ExpiresAt: out.Credential.Expiry,
	})
}

// VerifyOTP exchanges a one-time code for a session.
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	out, err := h.issuanceUC.VerifyOTP(c.Request().Context(), &usecase.VerifyOTPInput{
		OTPToken:     req.OTPToken,
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		Code:         req.Code,
		StaySignedIn: req.StaySignedIn,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return h.session(c, http.StatusOK, out)
}

// RequestMagicLink emails a login link, or a sign-up link to an unknown address.
func (h *AuthHandler) RequestMagicLink(c echo.Context) error {
	var req EmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	out, err := h.issuanceUC.RequestMagicLink(c.Request().Context(), req.Email)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusAccepted, &LinkResponse{ExpiresAt: out.Expiry})
}

// ConsumeMagicLink exchanges a magic-link token for a fresh session.
func (h *AuthHandler) ConsumeMagicLink(c echo.Context) error {
	var req ConsumeMagicLinkRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	out, err := h.issuanceUC.ConsumeMagicLink(c.Request().Context(), req.Token, req.StaySignedIn)
	if err != nil {
		return errors.WithStack(err)
	}

	return h.session(c, http.StatusOK, out)
}

// MagicLinkQR renders a magic link as a PNG so it can be opened on another device.
func (h *AuthHandler) MagicLinkQR(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return response.BadRequest(c, "INVALID_INPUT", "token is required")
	}

	png, err := h.issuanceUC.MagicLinkQR(c.Request().Context(), token)
	if err != nil {
		return errors.WithStack(err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")

	return c.Blob(http.StatusOK, "image/png", png)
}

// RequestSignUp emails a sign-up link to a new address.
func (h *AuthHandler) RequestSignUp(c echo.Context) error {
	var req EmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	out, err := h.issuanceUC.RequestSignUp(c.Request().Context(), req.Email)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusAccepted, &LinkResponse{ExpiresAt: out.Expiry})
}

// CompleteSignUp creates the account named by a sign-up token and signs it in.
func (h *AuthHandler) CompleteSignUp(c echo.Context) error {
	var req CompleteSignUpRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	out, err := h.issuanceUC.CompleteSignUp(c.Request().Context(), &usecase.CompleteSignUpInput{
		Token:       req.Token,
		Username:    req.Username,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return h.session(c, http.StatusCreated, out)
}

// GoogleLogin signs in with a Google ID token.
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req SocialLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	out, err := h.issuanceUC.SocialLogin(c.Request().Context(), &usecase.SocialLoginInput{IDToken: req.IDToken})
	if err != nil {
		return errors.WithStack(err)
	}

	if out.SignUpRequired {
		return response.Success(c, http.StatusOK, &SocialLoginResponse{
			SignUpRequired: true,
			SignUpToken:    out.SignUpToken,
		})
	}

	h.cookies.Set(c, out.Session.Token, out.Session.Credential.Expiry)

	return response.Success(c, http.StatusOK, &SocialLoginResponse{Session: toSessionResponse(out.Session)})
}

// session sets the session cookie and returns the token for bearer clients.
func (h *AuthHandler) session(c echo.Context, status int, out *usecase.SessionOutput) error {
	h.cookies.Set(c, out.Token, out.Credential.Expiry)

	return response.Success(c, status, toSessionResponse(out))
}
