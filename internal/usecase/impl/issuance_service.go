package impl

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	deliverycontext "gatekeeper/internal/delivery/context"
	"gatekeeper/internal/domain/entity"
	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/domain/repository"
	"gatekeeper/internal/domain/service"
	"gatekeeper/internal/usecase"
	"gatekeeper/internal/util"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/thejerf/abtime"
	"go.uber.org/fx"
)

// dummyPassword is hashed once and compared against when a login names an unknown user,
// so both paths spend the same bcrypt time.
const dummyPassword = "gatekeeper-timing-equaliser"

// issuanceService implements the IssuanceUsecase interface.
type issuanceService struct {
	txManager  repository.TransactionManager
	resolver   *Resolver
	minter     *minter
	codec      service.TokenCodec
	hasher     service.PasswordHasher
	codes      service.CodeGenerator
	verifier   service.IdentityVerifier
	dispatcher service.MessageDispatcher
	qrCodes    service.QRCodeService
	metrics    service.AuthMetrics
	policy     *entity.AuthPolicy
	dummyHash  func() (string, error)
	logger     *slog.Logger
}

// IssuanceServiceParams holds dependencies for IssuanceService, injected by Fx.
type IssuanceServiceParams struct {
	fx.In

	TxManager  repository.TransactionManager
	Resolver   *Resolver
	Codec      service.TokenCodec
	Hasher     service.PasswordHasher
	Codes      service.CodeGenerator
	Verifier   service.IdentityVerifier
	Dispatcher service.MessageDispatcher
	QRCodes    service.QRCodeService
	Clock      abtime.AbstractTime
	Metrics    service.AuthMetrics
	Policy     *entity.AuthPolicy
	Logger     *slog.Logger
}

// NewIssuanceService is the constructor for issuanceService.
func NewIssuanceService(params IssuanceServiceParams) usecase.IssuanceUsecase {
	hasher := params.Hasher

	return &issuanceService{
		txManager:  params.TxManager,
		resolver:   params.Resolver,
		minter:     newMinter(params.Codec, params.Clock, params.Policy),
		codec:      params.Codec,
		hasher:     hasher,
		codes:      params.Codes,
		verifier:   params.Verifier,
		dispatcher: params.Dispatcher,
		qrCodes:    params.QRCodes,
		metrics:    params.Metrics,
		policy:     params.Policy,
		dummyHash: sync.OnceValues(func() (string, error) {
			return hasher.Hash(dummyPassword)
		}),
		logger: params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *issuanceService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Login checks a password and opens a session.
func (srv *issuanceService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.SessionOutput, error) {
	srv.log(ctx).Debug("Starting password login")

	email, err := util.NormalizeEmail(input.Email)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	var user *entity.User
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.NewUserRepository().FindByEmail(ctx, email)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to find user")
		}
		user = found

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Failed to load login user", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute login transaction")
	}

	// Check password outside transaction (bcrypt is CPU-bound).
	hash, err := srv.dummyHash()
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}
	if user != nil && user.CanUsePassword() {
		hash = *user.HashedPassword
	}
	matched := srv.hasher.Check(input.Password, hash)
	if !matched || user == nil || !user.CanUsePassword() {
		srv.log(ctx).Warn("Login failed", slog.String("email", util.MaskRecipient(email)))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	return srv.openSession(ctx, user, input.StaySignedIn)
}

// openSession issues an access token for a user that has already been authenticated.
func (srv *issuanceService) openSession(ctx context.Context, user *entity.User, staySignedIn bool) (*usecase.SessionOutput, error) {
	var session *usecase.SessionOutput
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		session, err = srv.sessionIn(ctx, repoFactory, user, staySignedIn)

		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open session")
	}
	srv.sessionOpened(ctx, session)

	return session, nil
}

// sessionIn stores and signs an access token inside the caller's transaction.
func (srv *issuanceService) sessionIn(
	ctx context.Context,
	repoFactory repository.RepositoryFactory,
	user *entity.User,
	staySignedIn bool,
) (*usecase.SessionOutput, error) {
	cred, err := srv.minter.accessToken(user.ID, srv.minter.sessionLifetime(staySignedIn))
	if err != nil {
		return nil, err
	}
	token, err := srv.minter.persist(ctx, repoFactory, cred)
	if err != nil {
		return nil, err
	}

	return &usecase.SessionOutput{
		Token:      token,
		Credential: entity.DescriptorOf(cred),
		User:       user,
	}, nil
}

func (srv *issuanceService) sessionOpened(ctx context.Context, session *usecase.SessionOutput) {
	srv.metrics.ObserveIssued(entity.KindAccessToken)
	srv.log(ctx).Info("Session opened", slog.Any("user_id", session.User.ID), slog.Time("expiry", session.Credential.Expiry))
}

// RequestOTP sends a one-time code to the user's email address or phone.
func (srv *issuanceService) RequestOTP(ctx context.Context, input *usecase.RequestOTPInput) (*usecase.RequestOTPOutput, error) {
	channel, recipient, err := srv.otpRecipient(input)
	if err != nil {
		return nil, err
	}

	code, err := srv.codes.Generate(srv.policy.OTPLength)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrCredentialIssueFailed, err.Error())
	}
	hashed, err := srv.hasher.Hash(code)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	var (
		cred  entity.OTP
		token string
	)
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		user, err := srv.findByRecipient(ctx, repoFactory, channel, recipient)
		if err != nil {
			return err
		}
		if channel == service.ChannelSMS && user.PhoneNumber == nil {
			return errors.Wrap(domainerrors.ErrValidationFailed, "user has no phone number")
		}

		cred, err = srv.minter.otp(user.ID, hashed)
		if err != nil {
			return err
		}
		token, err = srv.minter.persist(ctx, repoFactory, cred)

		return err
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to issue one-time code", slog.String("recipient", util.MaskRecipient(recipient)), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to issue one-time code")
	}

	srv.metrics.ObserveIssued(entity.KindOTP)
	srv.deliver(ctx, &service.OutboundMessage{
		Kind:      service.MessageOTPCode,
		Channel:   channel,
		Recipient: recipient,
		Code:      code,
	})

	return &usecase.RequestOTPOutput{
		OTPToken:   token,
		Credential: entity.DescriptorOf(cred),
		Channel:    channel,
		Recipient:  util.MaskRecipient(recipient),
	}, nil
}

// otpRecipient normalises the identifier and picks the delivery channel.
func (srv *issuanceService) otpRecipient(input *usecase.RequestOTPInput) (service.Channel, string, error) {
	if input.PhoneNumber != "" {
		phone, err := util.NormalizePhoneNumber(input.PhoneNumber, srv.policy.DefaultRegion)
		if err != nil {
			return "", "", errors.Wrap(domainerrors.ErrValidationFailed, err.Error())
		}
		if input.Channel == service.ChannelEmail {
			return "", "", errors.Wrap(domainerrors.ErrValidationFailed, "email channel needs an email address")
		}

		return service.ChannelSMS, phone, nil
	}

	email, err := util.NormalizeEmail(input.Email)
	if err != nil {
		return "", "", errors.Wrap(domainerrors.ErrValidationFailed, err.Error())
	}
	if input.Channel == service.ChannelSMS {
		return "", "", errors.Wrap(domainerrors.ErrValidationFailed, "sms channel needs a phone number")
	}

	return service.ChannelEmail, email, nil
}

func (srv *issuanceService) findByRecipient(
	ctx context.Context,
	repoFactory repository.RepositoryFactory,
	channel service.Channel,
	recipient string,
) (*entity.User, error) {
	users := repoFactory.NewUserRepository()

	var (
		user *entity.User
		err  error
	)
	if channel == service.ChannelSMS {
		user, err = users.FindByPhoneNumber(ctx, recipient)
	} else {
		user, err = users.FindByEmail(ctx, recipient)
	}
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.Wrap(domainerrors.ErrNotFound, "no user for recipient")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user")
	}

	return user, nil
}

// VerifyOTP checks a code against the user's outstanding OTPs, most recent first. Only the
// matching row is consumed.
func (srv *issuanceService) VerifyOTP(ctx context.Context, input *usecase.VerifyOTPInput) (*usecase.SessionOutput, error) {
	var (
		eval    *Evaluation
		failure error
		session *usecase.SessionOutput
	)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var user *entity.User
		if input.OTPToken != "" {
			var err error
			eval, err = srv.resolver.ResolveIn(ctx, repoFactory, &usecase.ResolveInput{
				Token:          input.OTPToken,
				PermittedKinds: entity.CredentialKinds{entity.KindOTP},
				Override:       &srv.policy.OTPLifetime,
			})
			if err != nil {
				return err
			}
			if eval.Failure != nil {
				// A consumed or lapsed code reads the same as a wrong one.
				failure = eval.Failure
				if errors.Is(eval.Failure, domainerrors.ErrAuthorizationExpired) {
					failure = domainerrors.ErrInvalidOTP
				}

				return nil
			}
			user = eval.Result.User
		} else {
			found, err := srv.otpUser(ctx, repoFactory, input)
			if err != nil {
				return err
			}
			if found == nil {
				failure = domainerrors.ErrInvalidOTP

				return nil
			}
			user = found
		}

		matched, err := srv.consumeOTP(ctx, repoFactory, user.ID, input.Code)
		if err != nil {
			return err
		}
		if !matched {
			failure = domainerrors.ErrInvalidOTP

			return nil
		}

		session, err = srv.sessionIn(ctx, repoFactory, user, input.StaySignedIn)

		return err
	})
	if err != nil {
		srv.log(ctx).Error("Failed to verify one-time code", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to verify one-time code")
	}

	if eval != nil {
		srv.resolver.Observe(eval)
	}
	if failure != nil {
		srv.log(ctx).Warn("One-time code rejected", slog.Any("error", failure))

		return nil, failure
	}
	srv.sessionOpened(ctx, session)

	return session, nil
}

// otpUser finds the user named by email or phone. Unknown users yield nil without error.
func (srv *issuanceService) otpUser(ctx context.Context, repoFactory repository.RepositoryFactory, input *usecase.VerifyOTPInput) (*entity.User, error) {
	channel, recipient, err := srv.otpRecipient(&usecase.RequestOTPInput{Email: input.Email, PhoneNumber: input.PhoneNumber})
	if err != nil {
		return nil, err
	}

	user, err := srv.findByRecipient(ctx, repoFactory, channel, recipient)
	if errors.Is(err, domainerrors.ErrNotFound) {
		return nil, nil
	}

	return user, err
}

// consumeOTP deletes the newest live OTP matching code. Expired rows met on the way are
// deleted as well.
func (srv *issuanceService) consumeOTP(ctx context.Context, repoFactory repository.RepositoryFactory, userID uuid.UUID, code string) (bool, error) {
	if code == "" {
		return false, nil
	}

	credRepo := repoFactory.NewCredentialRepository()
	otps, err := credRepo.ListOTPsByUser(ctx, userID)
	if err != nil {
		return false, errors.Wrap(err, "failed to list one-time codes")
	}

	now := srv.minter.clock.Now()
	for _, otp := range otps {
		if otp.ExpiredAt(now, &srv.policy.OTPLifetime) {
			if err := credRepo.DeleteByID(ctx, entity.KindOTP, otp.ID); err != nil {
				return false, errors.Wrap(err, "failed to delete expired one-time code")
			}
			srv.metrics.ObserveRevoked(entity.KindOTP, 1)

			continue
		}
		if !srv.hasher.Check(code, otp.HashedCode) {
			continue
		}
		if err := credRepo.DeleteByID(ctx, entity.KindOTP, otp.ID); err != nil {
			return false, errors.Wrap(err, "failed to consume one-time code")
		}

		return true, nil
	}

	return false, nil
}

// RequestMagicLink sends a login link to a known address, or a sign-up link to an unknown one.
func (srv *issuanceService) RequestMagicLink(ctx context.Context, email string) (*usecase.LinkOutput, error) {
	normalized, err := util.NormalizeEmail(email)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, err.Error())
	}

	var (
		cred  entity.Credential
		token string
	)
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		user, err := repoFactory.NewUserRepository().FindByEmail(ctx, normalized)
		if errors.Is(err, repository.ErrUserNotFound) {
			cred, token, err = srv.signUpToken(normalized)

			return err
		}
		if err != nil {
			return errors.Wrap(err, "failed to find user")
		}

		link, err := srv.minter.accessToken(user.ID, srv.policy.MagicLinkLifetime)
		if err != nil {
			return err
		}
		cred = link
		token, err = srv.minter.persist(ctx, repoFactory, link)

		return err
	})
	if err != nil {
		srv.log(ctx).Error("Failed to issue magic link", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to issue magic link")
	}

	srv.sendLink(ctx, cred, normalized, token)

	return &usecase.LinkOutput{Kind: cred.Kind(), Expiry: cred.Validity().Expiry}, nil
}

// ConsumeMagicLink trades a magic link for a session. The link's token is deleted in the
// same transaction, so it works once.
func (srv *issuanceService) ConsumeMagicLink(ctx context.Context, token string, staySignedIn bool) (*usecase.SessionOutput, error) {
	var (
		eval    *Evaluation
		session *usecase.SessionOutput
	)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		eval, err = srv.resolver.ResolveIn(ctx, repoFactory, &usecase.ResolveInput{
			Token:          token,
			PermittedKinds: entity.CredentialKinds{entity.KindAccessToken},
			Override:       &srv.policy.MagicLinkLifetime,
		})
		if err != nil || eval.Failure != nil {
			return err
		}

		linkID, err := uuid.Parse(eval.Result.Credential.ID)
		if err != nil {
			return errors.Wrap(err, "magic link id is not a uuid")
		}
		if err := repoFactory.NewCredentialRepository().DeleteByID(ctx, entity.KindAccessToken, linkID); err != nil {
			return errors.Wrap(err, "failed to consume magic link")
		}

		session, err = srv.sessionIn(ctx, repoFactory, eval.Result.User, staySignedIn)

		return err
	})
	if err != nil {
		srv.log(ctx).Error("Failed to consume magic link", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to consume magic link")
	}

	srv.resolver.Observe(eval)
	if eval.Failure != nil {
		return nil, eval.Failure
	}
	srv.metrics.ObserveRevoked(entity.KindAccessToken, 1)
	srv.sessionOpened(ctx, session)

	return session, nil
}

// RequestSignUp sends a sign-up link to an address that has no account yet.
func (srv *issuanceService) RequestSignUp(ctx context.Context, email string) (*usecase.LinkOutput, error) {
	normalized, err := util.NormalizeEmail(email)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed, err.Error())
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		_, err := repoFactory.NewUserRepository().FindByEmail(ctx, normalized)
		if err == nil {
			return errors.Wrap(domainerrors.ErrUserAlreadyExists, "sign-up requested for a registered address")
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}

		return errors.Wrap(err, "failed to find user")
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue sign-up link")
	}

	cred, token, err := srv.signUpToken(normalized)
	if err != nil {
		return nil, err
	}
	srv.sendLink(ctx, cred, normalized, token)

	return &usecase.LinkOutput{Kind: cred.Kind(), Expiry: cred.Validity().Expiry}, nil
}

func (srv *issuanceService) signUpToken(email string) (entity.SignUp, string, error) {
	cred, err := srv.minter.signUp(email, srv.policy.SignUpLifetime)
	if err != nil {
		return entity.SignUp{}, "", err
	}
	token, err := srv.minter.encode(cred)
	if err != nil {
		return entity.SignUp{}, "", err
	}

	return cred, token, nil
}

// CompleteSignUp creates the account a sign-up token vouches for and opens its first session.
func (srv *issuanceService) CompleteSignUp(ctx context.Context, input *usecase.CompleteSignUpInput) (*usecase.SessionOutput, error) {
	newUser := &entity.User{
		ID:     uuid.New(),
		RoleID: srv.policy.DefaultRole,
	}
	if input.Username != "" {
		newUser.Username = &input.Username
	}
	if input.PhoneNumber != "" {
		phone, err := util.NormalizePhoneNumber(input.PhoneNumber, srv.policy.DefaultRegion)
		if err != nil {
			return nil, errors.Wrap(domainerrors.ErrValidationFailed, err.Error())
		}
		newUser.PhoneNumber = &phone
	}
	if input.Password != "" {
		// Hash outside the transaction (bcrypt is CPU-bound).
		hashed, err := srv.hasher.Hash(input.Password)
		if err != nil {
			return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
		}
		newUser.HashedPassword = &hashed
	}

	var (
		eval    *Evaluation
		session *usecase.SessionOutput
	)
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		eval, err = srv.resolver.ResolveIn(ctx, repoFactory, &usecase.ResolveInput{
			Token:          input.Token,
			PermittedKinds: entity.CredentialKinds{entity.KindSignUp},
			Override:       &srv.policy.SignUpLifetime,
		})
		if err != nil || eval.Failure != nil {
			return err
		}

		newUser.Email = eval.Result.Credential.ID
		if err := srv.createUser(ctx, repoFactory, newUser); err != nil {
			return err
		}
		session, err = srv.sessionIn(ctx, repoFactory, newUser, false)

		return err
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to complete sign-up", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to complete sign-up")
	}

	srv.resolver.Observe(eval)
	if eval.Failure != nil {
		return nil, eval.Failure
	}
	srv.log(ctx).Info("User signed up", slog.Any("user_id", newUser.ID))
	srv.sessionOpened(ctx, session)

	return session, nil
}

func (srv *issuanceService) createUser(ctx context.Context, repoFactory repository.RepositoryFactory, user *entity.User) error {
	err := repoFactory.NewUserRepository().Create(ctx, user)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrUsernameTaken):
		return errors.Wrap(domainerrors.ErrUsernameTaken, err.Error())
	case errors.Is(err, repository.ErrUserAlreadyExists):
		return errors.Wrap(domainerrors.ErrUserAlreadyExists, err.Error())
	default:
		return errors.Wrap(domainerrors.ErrUserCreationFailed, err.Error())
	}
}

// SocialLogin signs in with a provider ID token. An address without an account gets a
// sign-up token instead of a session.
func (srv *issuanceService) SocialLogin(ctx context.Context, input *usecase.SocialLoginInput) (*usecase.SocialLoginOutput, error) {
	identity, err := srv.verifier.VerifyIDToken(ctx, input.IDToken)
	if err != nil {
		srv.log(ctx).Warn("Social login rejected", slog.String("provider", string(srv.verifier.GetProvider())), slog.Any("error", err))
		if errors.Is(err, domainerrors.ErrOAuthNotConfigured) {
			return nil, err
		}

		return nil, errors.Wrap(domainerrors.ErrOAuthTokenInvalid, err.Error())
	}

	email, err := util.NormalizeEmail(identity.Email)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrOAuthFailed, err.Error())
	}

	var (
		session *usecase.SessionOutput
		signUp  string
	)
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		user, err := srv.findSocialUser(ctx, repoFactory, identity, email)
		if err != nil {
			return err
		}
		if user == nil {
			_, signUp, err = srv.signUpToken(email)

			return err
		}
		session, err = srv.sessionIn(ctx, repoFactory, user, false)

		return err
	})
	if err != nil {
		srv.log(ctx).Error("Failed to complete social login", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to complete social login")
	}

	if session == nil {
		srv.metrics.ObserveIssued(entity.KindSignUp)

		return &usecase.SocialLoginOutput{SignUpRequired: true, SignUpToken: signUp}, nil
	}
	srv.sessionOpened(ctx, session)

	return &usecase.SocialLoginOutput{Session: session}, nil
}

// findSocialUser follows an existing provider link, or links the identity to the user
// registered under the verified address. Nil means no account exists.
func (srv *issuanceService) findSocialUser(
	ctx context.Context,
	repoFactory repository.RepositoryFactory,
	identity *entity.SocialIdentity,
	email string,
) (*entity.User, error) {
	identities := repoFactory.NewIdentityRepository()
	users := repoFactory.NewUserRepository()

	link, err := identities.FindByProviderSubject(ctx, identity.Provider, identity.Subject)
	switch {
	case err == nil:
		user, err := users.FindByID(ctx, link.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to find linked user")
		}

		return user, nil
	case !errors.Is(err, repository.ErrIdentityNotFound):
		return nil, errors.Wrap(err, "failed to find identity")
	}

	user, err := users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user")
	}

	err = identities.Link(ctx, &entity.Identity{
		ID:       uuid.New(),
		UserID:   user.ID,
		Provider: identity.Provider,
		Subject:  identity.Subject,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to link identity")
	}
	srv.log(ctx).Info("Linked social identity", slog.Any("user_id", user.ID), slog.String("provider", string(identity.Provider)))

	return user, nil
}

// MagicLinkQR renders the link a live magic-link or sign-up token opens as a PNG. The
// token is resolved first, so consumed or expired links are refused.
func (srv *issuanceService) MagicLinkQR(ctx context.Context, token string) ([]byte, error) {
	claims, err := srv.codec.Decode(token)
	if err != nil {
		return nil, domainerrors.ErrImproperFormat
	}
	kind, _ := claims.Kind()

	var (
		base     string
		lifetime time.Duration
	)
	switch kind {
	case entity.KindAccessToken:
		base, lifetime = srv.policy.MagicLinkBaseURL, srv.policy.MagicLinkLifetime
	case entity.KindSignUp:
		base, lifetime = srv.policy.SignUpBaseURL, srv.policy.SignUpLifetime
	default:
		return nil, domainerrors.ErrAuthorizationTypeNotPermitted.WithDetails(kind.String())
	}

	var eval *Evaluation
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		var err error
		eval, err = srv.resolver.ResolveIn(ctx, repoFactory, &usecase.ResolveInput{
			Token:          token,
			PermittedKinds: entity.CredentialKinds{kind},
			Override:       &lifetime,
		})

		return err
	})
	if err != nil {
		srv.log(ctx).Error("Failed to resolve magic link", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to resolve magic link")
	}
	srv.resolver.Observe(eval)
	if eval.Failure != nil {
		return nil, eval.Failure
	}

	link, err := linkWithToken(base, token)
	if err != nil {
		return nil, err
	}
	png, err := srv.qrCodes.GenerateLinkQR(link)
	if err != nil {
		srv.log(ctx).Error("Failed to render magic link QR code", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrInternalError, err.Error())
	}

	return png, nil
}

// sendLink hands a magic-link or sign-up link to the delivery queue.
func (srv *issuanceService) sendLink(ctx context.Context, cred entity.Credential, email, token string) {
	srv.metrics.ObserveIssued(cred.Kind())

	kind, base := service.MessageMagicLink, srv.policy.MagicLinkBaseURL
	if cred.Kind() == entity.KindSignUp {
		kind, base = service.MessageSignUp, srv.policy.SignUpBaseURL
	}

	link, err := linkWithToken(base, token)
	if err != nil {
		srv.log(ctx).Error("Failed to build link", slog.String("kind", string(kind)), slog.Any("error", err))

		return
	}

	srv.deliver(ctx, &service.OutboundMessage{
		Kind:      kind,
		Channel:   service.ChannelEmail,
		Recipient: email,
		Link:      link,
	})
}

// deliver publishes after commit. Delivery is fire-and-forget: failures are logged only.
func (srv *issuanceService) deliver(ctx context.Context, msg *service.OutboundMessage) {
	msg.RequestID = deliverycontext.GetRequestIDFromContext(ctx)

	if err := srv.dispatcher.Dispatch(ctx, msg); err != nil {
		srv.log(ctx).Warn("Failed to dispatch message",
			slog.String("kind", string(msg.Kind)),
			slog.String("channel", string(msg.Channel)),
			slog.String("recipient", util.MaskRecipient(msg.Recipient)),
			slog.Any("error", err),
		)
	}
}

func linkWithToken(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrapf(err, "invalid link base %q", base)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
