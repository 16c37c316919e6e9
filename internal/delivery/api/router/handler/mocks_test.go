package handler

import (
	"context"

	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockIssuance struct {
	mock.Mock
}

func (m *mockIssuance) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.SessionOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.SessionOutput)

	return out, args.Error(1)
}

func (m *mockIssuance) RequestOTP(ctx context.Context, input *usecase.RequestOTPInput) (*usecase.RequestOTPOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.RequestOTPOutput)

	return out, args.Error(1)
}

func (m *mockIssuance) VerifyOTP(ctx context.Context, input *usecase.VerifyOTPInput) (*usecase.SessionOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.SessionOutput)

	return out, args.Error(1)
}

func (m *mockIssuance) RequestMagicLink(ctx context.Context, email string) (*usecase.LinkOutput, error) {
	args := m.Called(ctx, email)
	out, _ := args.Get(0).(*usecase.LinkOutput)

	return out, args.Error(1)
}

func (m *mockIssuance) ConsumeMagicLink(ctx context.Context, token string, staySignedIn bool) (*usecase.SessionOutput, error) {
	args := m.Called(ctx, token, staySignedIn)
	out, _ := args.Get(0).(*usecase.SessionOutput)

	return out, args.Error(1)
}

func (m *mockIssuance) RequestSignUp(ctx context.Context, email string) (*usecase.LinkOutput, error) {
	args := m.Called(ctx, email)
	out, _ := args.Get(0).(*usecase.LinkOutput)

	return out, args.Error(1)
}

func (m *mockIssuance) CompleteSignUp(ctx context.Context, input *usecase.CompleteSignUpInput) (*usecase.SessionOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.SessionOutput)

	return out, args.Error(1)
}

func (m *mockIssuance) SocialLogin(ctx context.Context, input *usecase.SocialLoginInput) (*usecase.SocialLoginOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.SocialLoginOutput)

	return out, args.Error(1)
}

func (m *mockIssuance) MagicLinkQR(ctx context.Context, token string) ([]byte, error) {
	args := m.Called(ctx, token)
	out, _ := args.Get(0).([]byte)

	return out, args.Error(1)
}

type mockAuthorization struct {
	mock.Mock
}

func (m *mockAuthorization) Resolve(ctx context.Context, input *usecase.ResolveInput) (*entity.AuthorizationResult, error) {
	args := m.Called(ctx, input)
	result, _ := args.Get(0).(*entity.AuthorizationResult)

	return result, args.Error(1)
}

func (m *mockAuthorization) Issue(ctx context.Context, input *usecase.IssueInput) (*usecase.IssueOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*usecase.IssueOutput)

	return out, args.Error(1)
}

func (m *mockAuthorization) Revoke(ctx context.Context, credential entity.Descriptor) error {
	return m.Called(ctx, credential).Error(0)
}

func (m *mockAuthorization) RevokeAll(ctx context.Context, userID uuid.UUID, kind entity.CredentialKind) (int64, error) {
	args := m.Called(ctx, userID, kind)

	return args.Get(0).(int64), args.Error(1)
}

type mockAPIKeys struct {
	mock.Mock
}

func (m *mockAPIKeys) Create(ctx context.Context, caller *entity.AuthorizationResult, input *usecase.CreateAPIKeyInput) (*usecase.CreateAPIKeyOutput, error) {
	args := m.Called(ctx, caller, input)
	out, _ := args.Get(0).(*usecase.CreateAPIKeyOutput)

	return out, args.Error(1)
}

func (m *mockAPIKeys) List(ctx context.Context, caller *entity.AuthorizationResult) ([]entity.APIKey, error) {
	args := m.Called(ctx, caller)
	out, _ := args.Get(0).([]entity.APIKey)

	return out, args.Error(1)
}

func (m *mockAPIKeys) Delete(ctx context.Context, caller *entity.AuthorizationResult, keyID uuid.UUID) error {
	return m.Called(ctx, caller, keyID).Error(0)
}
