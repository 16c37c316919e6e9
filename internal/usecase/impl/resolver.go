package impl

import (
	"context"
	"time"

	"gatekeeper/internal/domain/entity"
	domainerrors "gatekeeper/internal/domain/errors"
	"gatekeeper/internal/domain/repository"
	"gatekeeper/internal/domain/service"
	"gatekeeper/internal/usecase"

	"github.com/pkg/errors"
	"github.com/thejerf/abtime"
)

// outcomeOK labels successful resolutions in metrics.
const outcomeOK = "ok"

// Evaluation is the outcome of one resolution. Exactly one of Result and Failure is set.
// Revocations lists the rows that must be deleted whatever the outcome.
type Evaluation struct {
	Kind        entity.CredentialKind
	Result      *entity.AuthorizationResult
	Failure     *domainerrors.AuthError
	Revocations []entity.Revocation
}

// Outcome is the metrics label of the evaluation.
func (e *Evaluation) Outcome() string {
	if e.Failure != nil {
		return e.Failure.ErrorCode()
	}

	return outcomeOK
}

func (e *Evaluation) fail(failure *domainerrors.AuthError) *Evaluation {
	e.Failure = failure

	return e
}

// expire fails with AuthorizationExpired and schedules the row for deletion.
func (e *Evaluation) expire(cred entity.Credential) *Evaluation {
	if id, ok := entity.CredentialID(cred); ok {
		e.Revocations = append(e.Revocations, entity.Revocation{Kind: cred.Kind(), ID: id})
	}

	return e.fail(domainerrors.ErrAuthorizationExpired)
}

// Resolver turns a bearer token into an authorization result.
type Resolver struct {
	codec     service.TokenCodec
	authority *ScopeAuthority
	clock     abtime.AbstractTime
	metrics   service.AuthMetrics
}

// NewResolver is the constructor for Resolver.
func NewResolver(codec service.TokenCodec, authority *ScopeAuthority, clock abtime.AbstractTime, metrics service.AuthMetrics) *Resolver {
	return &Resolver{
		codec:     codec,
		authority: authority,
		clock:     clock,
		metrics:   metrics,
	}
}

// Evaluate runs the resolution pipeline against repos without mutating them. A non-nil
// error is an infrastructure failure; typed authorization failures are reported in the
// evaluation.
func (r *Resolver) Evaluate(ctx context.Context, repos repository.RepositoryFactory, input *usecase.ResolveInput) (*Evaluation, error) {
	eval := &Evaluation{}

	if input.Token == "" {
		return eval.fail(domainerrors.ErrMissingAuthorization), nil
	}

	claims, err := r.codec.Decode(input.Token)
	if err != nil {
		return eval.fail(domainerrors.ErrImproperFormat), nil
	}

	kind, ok := claims.Kind()
	if !ok {
		return eval.fail(domainerrors.MissingRequiredClaims([]entity.Claim{entity.ClaimType})), nil
	}
	mapping, ok := entity.MappingFor(kind)
	if !ok {
		return eval.fail(domainerrors.ErrAuthorizationTypeNotPermitted.WithDetails(kind.String())), nil
	}
	eval.Kind = kind
	if missing := entity.ValidateRequiredClaims(claims, mapping); len(missing) > 0 {
		return eval.fail(domainerrors.MissingRequiredClaims(missing)), nil
	}

	if !input.PermittedKinds.Contains(kind) {
		return eval.fail(domainerrors.ErrAuthorizationTypeNotPermitted.WithDetails(kind.String())), nil
	}

	cred, err := entity.DecodeCredential(kind, claims)
	if err != nil {
		return eval.fail(domainerrors.ErrImproperFormat), nil
	}

	now := r.clock.Now()
	if cred.Validity().ExpiredAt(now, input.Override) {
		return eval.expire(cred), nil
	}

	if !kind.Persisted() {
		if len(input.RequiredScopes) > 0 {
			return eval.fail(domainerrors.NotPermitted(input.RequiredScopes.Names())), nil
		}
		eval.Result = &entity.AuthorizationResult{
			Scopes:     entity.NewScopeSet(),
			Credential: entity.DescriptorOf(cred),
		}

		return eval, r.checkContext(ctx)
	}

	return r.evaluateStored(ctx, repos, input, eval, cred, now)
}

func (r *Resolver) evaluateStored(
	ctx context.Context,
	repos repository.RepositoryFactory,
	input *usecase.ResolveInput,
	eval *Evaluation,
	presented entity.Credential,
	now time.Time,
) (*Evaluation, error) {
	id, _ := entity.CredentialID(presented)

	stored, err := repos.NewCredentialRepository().FetchByID(ctx, presented.Kind(), id)
	if errors.Is(err, repository.ErrCredentialNotFound) {
		return eval.fail(domainerrors.ErrAuthorizationExpired), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch credential")
	}

	// The stored row is authoritative: its window may have been shortened server-side.
	if stored.Validity().ExpiredAt(now, input.Override) {
		return eval.expire(stored), nil
	}

	owner, _ := entity.OwnerOf(stored)
	if presentedOwner, _ := entity.OwnerOf(presented); presentedOwner != owner {
		return eval.fail(domainerrors.ErrImproperFormat), nil
	}

	user, err := repos.NewUserRepository().FindByID(ctx, owner)
	if errors.Is(err, repository.ErrUserNotFound) {
		return eval.fail(domainerrors.ErrUserNotFound), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find credential owner")
	}

	var effective entity.ScopeSet
	switch c := stored.(type) {
	case entity.APIKey:
		effective, err = r.authority.ScopesForAPIKey(ctx, repos, c.ID)
		if err != nil {
			return nil, err
		}
	default:
		effective = r.authority.DefaultScopesForRole(user.RoleID)
	}

	if !r.authority.RequiredSubset(input.RequiredScopes, effective) {
		return eval.fail(domainerrors.NotPermitted(input.RequiredScopes.Missing(effective))), nil
	}

	eval.Result = &entity.AuthorizationResult{
		User:       user,
		Scopes:     effective,
		Credential: entity.DescriptorOf(stored),
	}

	return eval, r.checkContext(ctx)
}

// checkContext keeps an aborted request from ever receiving a result.
func (r *Resolver) checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "resolution aborted")
	}

	return nil
}

// Apply deletes the evaluation's revoked rows. Rows that are already gone are ignored.
func (r *Resolver) Apply(ctx context.Context, repos repository.RepositoryFactory, eval *Evaluation) error {
	credRepo := repos.NewCredentialRepository()
	for _, rev := range eval.Revocations {
		if err := credRepo.DeleteByID(ctx, rev.Kind, rev.ID); err != nil {
			return errors.Wrapf(err, "failed to revoke %s", rev.Kind)
		}
	}

	return nil
}

// ResolveIn evaluates input and applies the revocations inside the caller's transaction.
// The caller must commit even when the evaluation failed so lazy revocation sticks.
func (r *Resolver) ResolveIn(ctx context.Context, repos repository.RepositoryFactory, input *usecase.ResolveInput) (*Evaluation, error) {
	eval, err := r.Evaluate(ctx, repos, input)
	if err != nil {
		return nil, err
	}
	if err := r.Apply(ctx, repos, eval); err != nil {
		return nil, err
	}

	return eval, nil
}

// Observe records a committed evaluation.
func (r *Resolver) Observe(eval *Evaluation) {
	r.metrics.ObserveResolution(eval.Kind, eval.Outcome())
	for _, rev := range eval.Revocations {
		r.metrics.ObserveRevoked(rev.Kind, 1)
	}
}
