package usecase

import (
	"context"
	"time"

	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/domain/service"
)

// --- Input DTOs ---

// LoginInput defines the data required for a password login.
type LoginInput struct {
	Email        string
	Password     string
	StaySignedIn bool
}

// RequestOTPInput identifies the user a code is sent to. Exactly one of Email and
// PhoneNumber is set.
type RequestOTPInput struct {
	Email       string
	PhoneNumber string
	Channel     service.Channel // Defaults to the channel matching the identifier.
}

// VerifyOTPInput carries a submitted code. The user is identified by the OTP token
// returned from RequestOTP, or by email or phone number.
type VerifyOTPInput struct {
	OTPToken     string
	Email        string
	PhoneNumber  string
	Code         string
	StaySignedIn bool
}

// CompleteSignUpInput defines the data required to turn a sign-up token into an account.
type CompleteSignUpInput struct {
	Token       string
	Username    string
	Password    string
	PhoneNumber string
}

// SocialLoginInput carries a provider ID token.
type SocialLoginInput struct {
	IDToken string
}

// --- Output DTOs ---

// SessionOutput returns a freshly issued access token.
type SessionOutput struct {
	Token      string
	Credential entity.Descriptor
	User       *entity.User
}

// RequestOTPOutput returns the OTP token the client presents together with the code.
type RequestOTPOutput struct {
	OTPToken   string
	Credential entity.Descriptor
	Channel    service.Channel
	Recipient  string // Masked address or number the code was sent to.
}

// LinkOutput describes a link handed to the delivery queue. The token itself is never
// returned to the requester.
type LinkOutput struct {
	Kind   entity.CredentialKind // access_token for a magic link, sign_up for a new address.
	Expiry time.Time
}

// SocialLoginOutput is either a session or, for an unknown address, a sign-up token.
type SocialLoginOutput struct {
	Session        *SessionOutput
	SignUpRequired bool
	SignUpToken    string
}

// IssuanceUsecase defines the login, sign-up and link flows that mint credentials.
type IssuanceUsecase interface {
	Login(ctx context.Context, input *LoginInput) (*SessionOutput, error)
	RequestOTP(ctx context.Context, input *RequestOTPInput) (*RequestOTPOutput, error)
	VerifyOTP(ctx context.Context, input *VerifyOTPInput) (*SessionOutput, error)
	RequestMagicLink(ctx context.Context, email string) (*LinkOutput, error)
	ConsumeMagicLink(ctx context.Context, token string, staySignedIn bool) (*SessionOutput, error)
	RequestSignUp(ctx context.Context, email string) (*LinkOutput, error)
	CompleteSignUp(ctx context.Context, input *CompleteSignUpInput) (*SessionOutput, error)
	SocialLogin(ctx context.Context, input *SocialLoginInput) (*SocialLoginOutput, error)
	MagicLinkQR(ctx context.Context, token string) ([]byte, error)
}
