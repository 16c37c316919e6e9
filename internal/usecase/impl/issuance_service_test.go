package impl

import (
	"bytes"
	"context"
	"testing"
	"time"

	deliverycontext "gatekeeper/internal/delivery/context"
	"gatekeeper/internal/domain/entity"
	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/domain/repository"
	"gatekeeper/internal/domain/service"
	"gatekeeper/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) seedPhoneUser(t *testing.T, email, phone string) *entity.User {
	t.Helper()

	user := &entity.User{ID: uuid.New(), Email: email, PhoneNumber: &phone, RoleID: entity.RoleUser}
	require.NoError(t, h.txManager.Execute(context.Background(), func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.NewUserRepository().Create(context.Background(), user)
	}))

	return user
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, "u1@example.com", entity.RoleUser, "correct horse")
	h.seedUser(t, "nopass@example.com", entity.RoleUser, "")

	t.Run("success", func(t *testing.T) {
		out, err := h.issuance.Login(context.Background(), &usecase.LoginInput{Email: " U1@Example.com ", Password: "correct horse"})
		require.NoError(t, err)
		assert.Equal(t, user.ID, out.User.ID)
		assert.Equal(t, entity.KindAccessToken, out.Credential.Kind)
		assert.Equal(t, baseTime.Add(h.policy.AccessTokenLifetime), out.Credential.Expiry)

		result, err := h.resolve(out.Token, "users.read")
		require.NoError(t, err)
		assert.Equal(t, user.ID, result.User.ID)
	})

	t.Run("stay signed in", func(t *testing.T) {
		out, err := h.issuance.Login(context.Background(), &usecase.LoginInput{Email: "u1@example.com", Password: "correct horse", StaySignedIn: true})
		require.NoError(t, err)
		assert.Equal(t, baseTime.Add(h.policy.StaySignedInLifetime), out.Credential.Expiry)
	})

	failures := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "u1@example.com", password: "battery staple"},
		{name: "unknown user", email: "ghost@example.com", password: "correct horse"},
		{name: "password login disabled", email: "nopass@example.com", password: ""},
		{name: "malformed email", email: "not-an-email", password: "correct horse"},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.issuance.Login(context.Background(), &usecase.LoginInput{Email: tt.email, Password: tt.password})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials), "got %v", err)
		})
	}
}

func TestOTP_RequestDispatchesCode(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "u1@example.com", entity.RoleUser, "")
	h.codes.queue("123456")

	ctx := deliverycontext.WithRequestID(context.Background(), "req-1")
	out, err := h.issuance.RequestOTP(ctx, &usecase.RequestOTPInput{Email: "u1@example.com"})
	require.NoError(t, err)
	assert.Equal(t, service.ChannelEmail, out.Channel)
	assert.Equal(t, "u***@example.com", out.Recipient)
	assert.Equal(t, baseTime.Add(h.policy.OTPLifetime), out.Credential.Expiry)
	assert.True(t, h.stored(t, out.Credential))

	msg := h.dispatcher.last(t)
	assert.Equal(t, service.MessageOTPCode, msg.Kind)
	assert.Equal(t, "u1@example.com", msg.Recipient)
	assert.Equal(t, "123456", msg.Code)
	assert.Equal(t, "req-1", msg.RequestID)
}

func TestOTP_RequestBySMS(t *testing.T) {
	h := newHarness(t)
	h.seedPhoneUser(t, "u1@example.com", "+886912345678")
	h.codes.queue("654321")

	out, err := h.issuance.RequestOTP(context.Background(), &usecase.RequestOTPInput{PhoneNumber: "0912 345 678"})
	require.NoError(t, err)
	assert.Equal(t, service.ChannelSMS, out.Channel)
	assert.Equal(t, service.ChannelSMS, h.dispatcher.last(t).Channel)
	assert.Equal(t, "+886912345678", h.dispatcher.last(t).Recipient)

	session, err := h.issuance.VerifyOTP(context.Background(), &usecase.VerifyOTPInput{PhoneNumber: "+886 912 345 678", Code: "654321"})
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", session.User.Email)
}

func TestOTP_RequestRejections(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "u1@example.com", entity.RoleUser, "")

	tests := []struct {
		name  string
		input *usecase.RequestOTPInput
		want  error
	}{
		{name: "unknown email", input: &usecase.RequestOTPInput{Email: "ghost@example.com"}, want: domainerrors.ErrNotFound},
		{name: "unknown phone", input: &usecase.RequestOTPInput{PhoneNumber: "0912345678"}, want: domainerrors.ErrNotFound},
		{name: "bad phone", input: &usecase.RequestOTPInput{PhoneNumber: "12"}, want: domainerrors.ErrValidationFailed},
		{name: "sms without phone", input: &usecase.RequestOTPInput{Email: "u1@example.com", Channel: service.ChannelSMS}, want: domainerrors.ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.codes.queue("123456")
			_, err := h.issuance.RequestOTP(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestOTP_VerifySucceedsExactlyOnce(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, "u1@example.com", entity.RoleUser, "")
	h.codes.queue("123456")

	out, err := h.issuance.RequestOTP(context.Background(), &usecase.RequestOTPInput{Email: "u1@example.com"})
	require.NoError(t, err)

	session, err := h.issuance.VerifyOTP(context.Background(), &usecase.VerifyOTPInput{OTPToken: out.OTPToken, Code: "123456"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)
	assert.False(t, h.stored(t, out.Credential))

	_, err = h.issuance.VerifyOTP(context.Background(), &usecase.VerifyOTPInput{OTPToken: out.OTPToken, Code: "123456"})
	requireAuthError(t, err, domainerrors.ErrInvalidOTP)

	_, err = h.issuance.VerifyOTP(context.Background(), &usecase.VerifyOTPInput{Email: "u1@example.com", Code: "123456"})
	requireAuthError(t, err, domainerrors.ErrInvalidOTP)
}

func TestOTP_WrongCodeKeepsRow(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "u1@example.com", entity.RoleUser, "")
	h.codes.queue("123456")

	out, err := h.issuance.RequestOTP(context.Background(), &usecase.RequestOTPInput{Email: "u1@example.com"})
	require.NoError(t, err)

	_, err = h.issuance.VerifyOTP(context.Background(), &usecase.VerifyOTPInput{OTPToken: out.OTPToken, Code: "000000"})
	requireAuthError(t, err, domainerrors.ErrInvalidOTP)
	assert.True(t, h.stored(t, out.Credential))

	_, err = h.issuance.VerifyOTP(context.Background(), &usecase.VerifyOTPInput{Email: "ghost@example.com", Code: "123456"})
	requireAuthError(t, err, domainerrors.ErrInvalidOTP)

	_, err = h.issuance.VerifyOTP(context.Background(), &usecase.VerifyOTPInput{OTPToken: out.OTPToken, Code: "123456"})
	require.NoError(t, err)
}

func TestOTP_OlderCodeStaysValid(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "u1@example.com", entity.RoleUser, "")
	h.codes.queue("111111", "222222")

	first, err := h.issuance.RequestOTP(context.Background(), &usecase.RequestOTPInput{Email: "u1@example.com"})
	require.NoError(t, err)
	h.clock.Advance(time.Minute)
	second, err := h.issuance.RequestOTP(context.Background(), &usecase.RequestOTPInput{Email: "u1@example.com"})
	require.NoError(t, err)

	_, err = h.issuance.VerifyOTP(context.Background(), &usecase.VerifyOTPInput{Email: "u1@example.com", Code: "111111"})
	require.NoError(t, err)
	assert.False(t, h.stored(t, first.Credential))
	assert.True(t, h.stored(t, second.Credential), "only the matching code is consumed")

	_, err = h.issuance.VerifyOTP(context.Background(), &usecase.VerifyOTPInput{Email: "u1@example.com", Code: "222222"})
	require.NoError(t, err)
}

func TestOTP_ExpiredCodeIsRejectedAndRemoved(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "u1@example.com", entity.RoleUser, "")
	h.codes.queue("123456")

	out, err := h.issuance.RequestOTP(context.Background(), &usecase.RequestOTPInput{Email: "u1@example.com"})
	require.NoError(t, err)

	h.clock.Advance(h.policy.OTPLifetime + time.Second)

	_, err = h.issuance.VerifyOTP(context.Background(), &usecase.VerifyOTPInput{Email: "u1@example.com", Code: "123456"})
	requireAuthError(t, err, domainerrors.ErrInvalidOTP)
	assert.False(t, h.stored(t, out.Credential))
	assert.Equal(t, 1, h.metrics.revoked[entity.KindOTP])
}

func TestMagicLink_KnownUser(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, "u1@example.com", entity.RoleUser, "")

	out, err := h.issuance.RequestMagicLink(context.Background(), "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, entity.KindAccessToken, out.Kind)
	assert.Equal(t, baseTime.Add(h.policy.MagicLinkLifetime), out.Expiry)

	msg := h.dispatcher.last(t)
	assert.Equal(t, service.MessageMagicLink, msg.Kind)
	assert.Contains(t, msg.Link, h.policy.MagicLinkBaseURL+"?token=")

	token := h.dispatcher.linkToken(t)
	session, err := h.issuance.ConsumeMagicLink(context.Background(), token, true)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)
	assert.Equal(t, baseTime.Add(h.policy.StaySignedInLifetime), session.Credential.Expiry)

	_, err = h.issuance.ConsumeMagicLink(context.Background(), token, false)
	requireAuthError(t, err, domainerrors.ErrAuthorizationExpired)
}

func TestMagicLink_Expires(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "u1@example.com", entity.RoleUser, "")

	_, err := h.issuance.RequestMagicLink(context.Background(), "u1@example.com")
	require.NoError(t, err)
	token := h.dispatcher.linkToken(t)

	h.clock.Advance(16 * time.Minute)

	_, err = h.issuance.ConsumeMagicLink(context.Background(), token, false)
	requireAuthError(t, err, domainerrors.ErrAuthorizationExpired)
}

func TestMagicLink_SessionTokenUsesLinkLifetime(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, "u1@example.com", entity.RoleUser, "")
	session := h.issue(t, &usecase.IssueInput{Kind: entity.KindAccessToken, UserID: user.ID})

	h.clock.Advance(20 * time.Minute)

	_, err := h.issuance.ConsumeMagicLink(context.Background(), session.Token, false)
	requireAuthError(t, err, domainerrors.ErrAuthorizationExpired)
	assert.False(t, h.stored(t, session.Credential), "the override expiry revokes the row")
}

func TestMagicLink_UnknownEmailGetsSignUpLink(t *testing.T) {
	h := newHarness(t)

	out, err := h.issuance.RequestMagicLink(context.Background(), "New@Example.com")
	require.NoError(t, err)
	assert.Equal(t, entity.KindSignUp, out.Kind)

	msg := h.dispatcher.last(t)
	assert.Equal(t, service.MessageSignUp, msg.Kind)
	assert.Equal(t, "new@example.com", msg.Recipient)
	assert.Contains(t, msg.Link, h.policy.SignUpBaseURL)
}

func TestMagicLink_DispatchFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "u1@example.com", entity.RoleUser, "")
	h.dispatcher.err = errors.New("queue down")

	_, err := h.issuance.RequestMagicLink(context.Background(), "u1@example.com")
	require.NoError(t, err)
}

func TestSignUp(t *testing.T) {
	h := newHarness(t)

	out, err := h.issuance.RequestSignUp(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, entity.KindSignUp, out.Kind)
	token := h.dispatcher.linkToken(t)

	session, err := h.issuance.CompleteSignUp(context.Background(), &usecase.CompleteSignUpInput{
		Token:       token,
		Username:    "newbie",
		Password:    "hunter22",
		PhoneNumber: "0912345678",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", session.User.Email)
	assert.Equal(t, h.policy.DefaultRole, session.User.RoleID)
	require.NotNil(t, session.User.PhoneNumber)
	assert.Equal(t, "+886912345678", *session.User.PhoneNumber)

	result, err := h.resolve(session.Token, "users.read")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, result.User.ID)

	_, err = h.issuance.Login(context.Background(), &usecase.LoginInput{Email: "new@example.com", Password: "hunter22"})
	require.NoError(t, err)

	_, err = h.issuance.CompleteSignUp(context.Background(), &usecase.CompleteSignUpInput{Token: token})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrUserAlreadyExists), "got %v", err)

	_, err = h.issuance.RequestSignUp(context.Background(), "new@example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrUserAlreadyExists))
}

func TestSignUp_Rejections(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "u1@example.com", entity.RoleUser, "")

	session := h.issue(t, &usecase.IssueInput{Kind: entity.KindAccessToken, UserID: h.seedUser(t, "u2@example.com", entity.RoleUser, "").ID})
	_, err := h.issuance.CompleteSignUp(context.Background(), &usecase.CompleteSignUpInput{Token: session.Token})
	requireAuthError(t, err, domainerrors.ErrAuthorizationTypeNotPermitted)

	_, err = h.issuance.RequestSignUp(context.Background(), "new@example.com")
	require.NoError(t, err)
	token := h.dispatcher.linkToken(t)

	h.clock.Advance(h.policy.SignUpLifetime + time.Second)
	_, err = h.issuance.CompleteSignUp(context.Background(), &usecase.CompleteSignUpInput{Token: token})
	requireAuthError(t, err, domainerrors.ErrAuthorizationExpired)
}

func TestSocialLogin(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, "u1@example.com", entity.RoleUser, "")

	h.verifier.identity = &entity.SocialIdentity{
		Provider:      entity.ProviderTypeGoogle,
		Subject:       "google-sub-1",
		Email:         "U1@example.com",
		EmailVerified: true,
	}
	out, err := h.issuance.SocialLogin(context.Background(), &usecase.SocialLoginInput{IDToken: "id-token"})
	require.NoError(t, err)
	require.NotNil(t, out.Session)
	assert.False(t, out.SignUpRequired)
	assert.Equal(t, user.ID, out.Session.User.ID)

	// The linked subject keeps working after the provider address changes.
	h.verifier.identity = &entity.SocialIdentity{Provider: entity.ProviderTypeGoogle, Subject: "google-sub-1", Email: "renamed@example.com", EmailVerified: true}
	out, err = h.issuance.SocialLogin(context.Background(), &usecase.SocialLoginInput{IDToken: "id-token"})
	require.NoError(t, err)
	require.NotNil(t, out.Session)
	assert.Equal(t, user.ID, out.Session.User.ID)
}

func TestSocialLogin_UnknownUserNeedsSignUp(t *testing.T) {
	h := newHarness(t)
	h.verifier.identity = &entity.SocialIdentity{Provider: entity.ProviderTypeGoogle, Subject: "google-sub-2", Email: "new@example.com", EmailVerified: true}

	out, err := h.issuance.SocialLogin(context.Background(), &usecase.SocialLoginInput{IDToken: "id-token"})
	require.NoError(t, err)
	assert.True(t, out.SignUpRequired)
	assert.Nil(t, out.Session)
	require.NotEmpty(t, out.SignUpToken)

	session, err := h.issuance.CompleteSignUp(context.Background(), &usecase.CompleteSignUpInput{Token: out.SignUpToken})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", session.User.Email)
}

func TestSocialLogin_VerifierErrors(t *testing.T) {
	h := newHarness(t)

	h.verifier.err = errors.New("bad signature")
	_, err := h.issuance.SocialLogin(context.Background(), &usecase.SocialLoginInput{IDToken: "id-token"})
	assert.True(t, errors.Is(err, domainerrors.ErrOAuthTokenInvalid))

	h.verifier.err = domainerrors.ErrOAuthNotConfigured.WrapMessage("google client id is empty")
	_, err = h.issuance.SocialLogin(context.Background(), &usecase.SocialLoginInput{IDToken: "id-token"})
	assert.True(t, errors.Is(err, domainerrors.ErrOAuthNotConfigured))
}

func TestMagicLinkQR(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, "u1@example.com", entity.RoleUser, "")

	_, err := h.issuance.RequestMagicLink(context.Background(), "u1@example.com")
	require.NoError(t, err)

	link := h.dispatcher.linkToken(t)
	png, err := h.issuance.MagicLinkQR(context.Background(), link)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "output is a PNG image")

	signUp, err := h.issuance.RequestMagicLink(context.Background(), "new@example.com")
	require.NoError(t, err)
	require.Equal(t, entity.KindSignUp, signUp.Kind)
	_, err = h.issuance.MagicLinkQR(context.Background(), h.dispatcher.linkToken(t))
	require.NoError(t, err, "sign-up links render too")

	_, err = h.issuance.ConsumeMagicLink(context.Background(), link, false)
	require.NoError(t, err)
	_, err = h.issuance.MagicLinkQR(context.Background(), link)
	requireAuthError(t, err, domainerrors.ErrAuthorizationExpired)

	session := h.issue(t, &usecase.IssueInput{Kind: entity.KindAccessToken, UserID: user.ID, Lifetime: 24 * time.Hour})
	h.clock.Advance(h.policy.MagicLinkLifetime + time.Second)
	_, err = h.issuance.MagicLinkQR(context.Background(), session.Token)
	requireAuthError(t, err, domainerrors.ErrAuthorizationExpired)
	assert.False(t, h.stored(t, session.Credential), "the lapsed link is revoked")

	_, err = h.issuance.RequestMagicLink(context.Background(), "u1@example.com")
	require.NoError(t, err)
	expiring := h.dispatcher.linkToken(t)
	h.clock.Advance(h.policy.MagicLinkLifetime + time.Second)
	_, err = h.issuance.MagicLinkQR(context.Background(), expiring)
	requireAuthError(t, err, domainerrors.ErrAuthorizationExpired)

	otp := h.issue(t, &usecase.IssueInput{Kind: entity.KindOTP, UserID: user.ID, Code: "123456"})
	_, err = h.issuance.MagicLinkQR(context.Background(), otp.Token)
	requireAuthError(t, err, domainerrors.ErrAuthorizationTypeNotPermitted)

	_, err = h.issuance.MagicLinkQR(context.Background(), "garbage")
	requireAuthError(t, err, domainerrors.ErrImproperFormat)
}
