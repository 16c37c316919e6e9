// Package entity contains the core business objects of the project.
package entity

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// CredentialKind discriminates the credential variants carried in the `type` claim.
type CredentialKind string

const (
	// KindAccessToken is a persisted session credential.
	KindAccessToken CredentialKind = "access_token"
	// KindAPIKey is a persisted, long-lived credential with its own scopes.
	KindAPIKey CredentialKind = "api_key"
	// KindOTP is a persisted one-time password handle.
	KindOTP CredentialKind = "otp"
	// KindSignUp is a signed token that is never stored.
	KindSignUp CredentialKind = "sign_up"
)

// ErrInvalidLifetime is returned when a credential's expiry is not after its issued time.
var ErrInvalidLifetime = errors.New("credential expiry must be after issued")

// String returns the wire representation of the kind.
func (k CredentialKind) String() string {
	return string(k)
}

// IsValid checks if the kind is one of the known variants.
func (k CredentialKind) IsValid() bool {
	switch k {
	case KindAccessToken, KindAPIKey, KindOTP, KindSignUp:
		return true
	default:
		return false
	}
}

// Persisted reports whether credentials of this kind have a backing row.
func (k CredentialKind) Persisted() bool {
	switch k {
	case KindAccessToken, KindAPIKey, KindOTP:
		return true
	default:
		return false
	}
}

// CredentialKinds is a set of kinds accepted by an endpoint.
type CredentialKinds []CredentialKind

// AllCredentialKinds returns every known kind.
func AllCredentialKinds() CredentialKinds {
	return CredentialKinds{KindAccessToken, KindAPIKey, KindOTP, KindSignUp}
}

// Contains checks if the set contains the kind. An empty set permits every kind.
func (ks CredentialKinds) Contains(kind CredentialKind) bool {
	if len(ks) == 0 {
		return kind.IsValid()
	}

	return slices.Contains(ks, kind)
}

// Lifetime is the validity window shared by every credential.
type Lifetime struct {
	Issued time.Time // When the credential was minted, second precision.
	Expiry time.Time // When the credential stops being valid, strictly after Issued.
}

// NewLifetime builds a Lifetime truncated to whole seconds and rejects expiry <= issued.
func NewLifetime(issued, expiry time.Time) (Lifetime, error) {
	lt := Lifetime{
		Issued: issued.Truncate(time.Second).UTC(),
		Expiry: expiry.Truncate(time.Second).UTC(),
	}
	if !lt.Expiry.After(lt.Issued) {
		return Lifetime{}, errors.Wrapf(ErrInvalidLifetime, "issued %s, expiry %s", lt.Issued, lt.Expiry)
	}

	return lt, nil
}

// LifetimeFrom builds a Lifetime starting at issued and lasting ttl.
func LifetimeFrom(issued time.Time, ttl time.Duration) (Lifetime, error) {
	return NewLifetime(issued, issued.Add(ttl))
}

// ExpiredAt reports whether the window is over at now, optionally tightened by an
// override lifetime measured from Issued.
func (lt Lifetime) ExpiredAt(now time.Time, override *time.Duration) bool {
	if now.After(lt.Expiry) {
		return true
	}

	return override != nil && now.After(lt.Issued.Add(*override))
}

// Validity returns the lifetime itself. Variants embed Lifetime and so satisfy
// the Validity part of Credential.
func (lt Lifetime) Validity() Lifetime {
	return lt
}

// Credential is the sealed sum of AccessToken, APIKey, OTP and SignUp.
type Credential interface {
	Kind() CredentialKind
	Validity() Lifetime
	isCredential()
}

// AccessToken is a persisted session. It also backs magic links.
type AccessToken struct {
	ID     uuid.UUID // Row id, carried as the token subject.
	UserID uuid.UUID // Owner of the session.
	Lifetime
}

// APIKey is a named, long-lived credential whose scopes are granted explicitly.
type APIKey struct {
	ID     uuid.UUID // Row id, carried in the `key` claim.
	UserID uuid.UUID // Owner, carried as the token subject.
	Name   string    // Unique per owner. Not part of the token.
	Scopes ScopeSet  // Granted scopes. Loaded from the store, not part of the token.
	Lifetime
}

// OTP is an outstanding one-time password. Only the hash of the code is kept.
type OTP struct {
	ID         uuid.UUID // Row id, carried as the token subject.
	UserID     uuid.UUID // User the code was sent to.
	HashedCode string    // One-way hash of the numeric code. Not part of the token.
	Lifetime
}

// SignUp proves control of an email address for account creation. Never stored.
type SignUp struct {
	Email string // Carried as the token subject.
	Lifetime
}

// Kind implements Credential.
func (AccessToken) Kind() CredentialKind { return KindAccessToken }

// Kind implements Credential.
func (APIKey) Kind() CredentialKind { return KindAPIKey }

// Kind implements Credential.
func (OTP) Kind() CredentialKind { return KindOTP }

// Kind implements Credential.
func (SignUp) Kind() CredentialKind { return KindSignUp }

func (AccessToken) isCredential() {}
func (APIKey) isCredential()      {}
func (OTP) isCredential()         {}
func (SignUp) isCredential()      {}

// Descriptor is the minimal handle to a credential returned to callers so they can
// revoke that exact credential later.
type Descriptor struct {
	Kind   CredentialKind `json:"kind"`
	ID     string         `json:"id"` // Row id for persisted kinds, email for sign_up.
	Expiry time.Time      `json:"expiry"`
}

// DescriptorOf builds the descriptor of a credential.
func DescriptorOf(cred Credential) Descriptor {
	d := Descriptor{
		Kind:   cred.Kind(),
		Expiry: cred.Validity().Expiry,
	}

	switch c := cred.(type) {
	case AccessToken:
		d.ID = c.ID.String()
	case APIKey:
		d.ID = c.ID.String()
	case OTP:
		d.ID = c.ID.String()
	case SignUp:
		d.ID = c.Email
	}

	return d
}

// OwnerOf returns the owning user id of a persisted credential.
func OwnerOf(cred Credential) (uuid.UUID, bool) {
	switch c := cred.(type) {
	case AccessToken:
		return c.UserID, true
	case APIKey:
		return c.UserID, true
	case OTP:
		return c.UserID, true
	default:
		return uuid.Nil, false
	}
}

// CredentialID returns the row id of a persisted credential.
func CredentialID(cred Credential) (uuid.UUID, bool) {
	switch c := cred.(type) {
	case AccessToken:
		return c.ID, true
	case APIKey:
		return c.ID, true
	case OTP:
		return c.ID, true
	default:
		return uuid.Nil, false
	}
}
