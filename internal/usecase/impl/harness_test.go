package impl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"testing"
	"time"

	"gatekeeper/config"
	"gatekeeper/internal/domain/entity"
	"gatekeeper/internal/domain/repository"
	"gatekeeper/internal/domain/service"
	"gatekeeper/internal/infra/auth"
	"gatekeeper/internal/infra/persistence/model"
	"gatekeeper/internal/infra/persistence/postgres"
	"gatekeeper/internal/infra/qrcode"
	"gatekeeper/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/abtime"
	"go.uber.org/fx/fxtest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-0123456789abcdef"

// roleGuest has no default scopes.
const roleGuest entity.Role = "guest"

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	return &config.Config{
		Auth: &config.AuthConfig{
			Secret:               testSecret,
			BcryptCost:           bcrypt.MinCost,
			OTPLength:            6,
			AccessTokenLifetime:  time.Hour,
			StaySignedInLifetime: 30 * 24 * time.Hour,
			MagicLinkLifetime:    15 * time.Minute,
			SignUpLifetime:       time.Hour,
			OTPLifetime:          10 * time.Minute,
			APIKeyLifetime:       365 * 24 * time.Hour,
			MagicLinkBaseURL:     "https://app.example.com/auth/magic",
			SignUpBaseURL:        "https://app.example.com/sign-up",
			DefaultRegion:        "TW",
			Cookie:               config.CookieConfig{Name: "gatekeeper_session"},
			DefaultRole:          "user",
			Roles: map[string][]string{
				"user":  {"users.read"},
				"admin": {"users.read", "users.write", "admin"},
				"guest": {},
			},
		},
	}
}

// recordingDispatcher keeps every dispatched message.
type recordingDispatcher struct {
	mu       sync.Mutex
	messages []service.OutboundMessage
	err      error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg *service.OutboundMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, *msg)

	return d.err
}

func (d *recordingDispatcher) Close() error { return nil }

func (d *recordingDispatcher) last(t *testing.T) service.OutboundMessage {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.messages, "no message dispatched")

	return d.messages[len(d.messages)-1]
}

// linkToken extracts the token query parameter of the last dispatched link.
func (d *recordingDispatcher) linkToken(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(d.last(t).Link)
	require.NoError(t, err)

	return u.Query().Get("token")
}

// sequenceCodes hands out the queued codes in order.
type sequenceCodes struct {
	mu    sync.Mutex
	codes []string
}

func (g *sequenceCodes) Generate(length int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.codes) == 0 {
		return "", errors.New("no code queued")
	}
	code := g.codes[0]
	g.codes = g.codes[1:]
	if len(code) != length {
		return "", errors.Errorf("queued code %q does not have %d digits", code, length)
	}

	return code, nil
}

func (g *sequenceCodes) queue(codes ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.codes = append(g.codes, codes...)
}

// stubVerifier returns a fixed identity or error.
type stubVerifier struct {
	identity *entity.SocialIdentity
	err      error
}

func (v *stubVerifier) VerifyIDToken(_ context.Context, _ string) (*entity.SocialIdentity, error) {
	return v.identity, v.err
}

func (v *stubVerifier) GetProvider() entity.ProviderType { return entity.ProviderTypeGoogle }

// recordingMetrics counts observations by label.
type recordingMetrics struct {
	mu          sync.Mutex
	resolutions map[string]int
	issued      map[entity.CredentialKind]int
	revoked     map[entity.CredentialKind]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		resolutions: make(map[string]int),
		issued:      make(map[entity.CredentialKind]int),
		revoked:     make(map[entity.CredentialKind]int),
	}
}

func (m *recordingMetrics) ObserveResolution(kind entity.CredentialKind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions[fmt.Sprintf("%s/%s", kind, outcome)]++
}

func (m *recordingMetrics) ObserveIssued(kind entity.CredentialKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued[kind]++
}

func (m *recordingMetrics) ObserveRevoked(kind entity.CredentialKind, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[kind] += count
}

func (m *recordingMetrics) resolution(kind entity.CredentialKind, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.resolutions[fmt.Sprintf("%s/%s", kind, outcome)]
}

// harness wires the services against an in-memory SQLite database and a manual clock.
type harness struct {
	db         *gorm.DB
	clock      *abtime.ManualTime
	policy     *entity.AuthPolicy
	codec      service.TokenCodec
	hasher     service.PasswordHasher
	txManager  repository.TransactionManager
	resolver   *Resolver
	authz      usecase.AuthorizationUsecase
	issuance   usecase.IssuanceUsecase
	apiKeys    usecase.APIKeyUsecase
	dispatcher *recordingDispatcher
	codes      *sequenceCodes
	verifier   *stubVerifier
	metrics    *recordingMetrics
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))

	return db
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := newTestConfig()
	policy, err := NewAuthPolicy(cfg)
	require.NoError(t, err)
	codec, err := auth.NewJWTCodec(cfg)
	require.NoError(t, err)

	h := &harness{
		db:         newTestDB(t),
		clock:      abtime.NewManualAtTime(baseTime),
		policy:     policy,
		codec:      codec,
		hasher:     auth.NewBcryptHasher(cfg),
		dispatcher: &recordingDispatcher{},
		codes:      &sequenceCodes{},
		verifier:   &stubVerifier{},
		metrics:    newRecordingMetrics(),
	}
	h.txManager = postgres.NewTransactionManager(h.db)

	lc := fxtest.NewLifecycle(t)
	SeedScopeCatalogue(ScopeSeedParams{Lc: lc, Policy: policy, TxManager: h.txManager, Logger: newDiscardLogger()})
	lc.RequireStart()

	authority := NewScopeAuthority(policy)
	h.resolver = NewResolver(codec, authority, h.clock, h.metrics)
	h.authz = NewAuthorizationService(AuthorizationServiceParams{
		TxManager: h.txManager,
		Resolver:  h.resolver,
		Codec:     codec,
		Hasher:    h.hasher,
		Clock:     h.clock,
		Metrics:   h.metrics,
		Policy:    policy,
		Logger:    newDiscardLogger(),
	})
	h.issuance = NewIssuanceService(IssuanceServiceParams{
		TxManager:  h.txManager,
		Resolver:   h.resolver,
		Codec:      codec,
		Hasher:     h.hasher,
		Codes:      h.codes,
		Verifier:   h.verifier,
		Dispatcher: h.dispatcher,
		QRCodes:    qrcode.NewQRCodeService(128, "M"),
		Clock:      h.clock,
		Metrics:    h.metrics,
		Policy:     policy,
		Logger:     newDiscardLogger(),
	})
	h.apiKeys = NewAPIKeyService(APIKeyServiceParams{
		TxManager: h.txManager,
		Codec:     codec,
		Authority: authority,
		Clock:     h.clock,
		Metrics:   h.metrics,
		Policy:    policy,
		Logger:    newDiscardLogger(),
	})

	return h
}

// seedUser stores a user. An empty password disables password login.
func (h *harness) seedUser(t *testing.T, email string, role entity.Role, password string) *entity.User {
	t.Helper()

	user := &entity.User{ID: uuid.New(), Email: email, RoleID: role}
	if password != "" {
		hashed, err := h.hasher.Hash(password)
		require.NoError(t, err)
		user.HashedPassword = &hashed
	}

	require.NoError(t, h.txManager.Execute(context.Background(), func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.NewUserRepository().Create(context.Background(), user)
	}))

	return user
}

func (h *harness) issue(t *testing.T, input *usecase.IssueInput) *usecase.IssueOutput {
	t.Helper()

	out, err := h.authz.Issue(context.Background(), input)
	require.NoError(t, err)

	return out
}

// stored reports whether the credential row still exists.
func (h *harness) stored(t *testing.T, d entity.Descriptor) bool {
	t.Helper()

	id, err := uuid.Parse(d.ID)
	require.NoError(t, err)

	var found bool
	require.NoError(t, h.txManager.Execute(context.Background(), func(repoFactory repository.RepositoryFactory) error {
		_, err := repoFactory.NewCredentialRepository().FetchByID(context.Background(), d.Kind, id)
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return nil
		}
		found = err == nil

		return err
	}))

	return found
}

func (h *harness) resolve(token string, required ...string) (*entity.AuthorizationResult, error) {
	return h.authz.Resolve(context.Background(), &usecase.ResolveInput{
		Token:          token,
		RequiredScopes: entity.NewScopeSet(required...),
	})
}
