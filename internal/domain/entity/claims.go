package entity

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Claim is a wire claim name.
type Claim string

const (
	ClaimSubject  Claim = "sub"
	ClaimExpiry   Claim = "exp"
	ClaimIssued   Claim = "iat"
	ClaimType     Claim = "type"
	ClaimAPIKeyID Claim = "key"
	ClaimUserID   Claim = "uid"
)

// ErrMalformedClaim is returned when a claim is present but its value has the wrong shape.
var ErrMalformedClaim = errors.New("malformed claim")

// Claims is a decoded token payload keyed by claim name.
type Claims map[Claim]any

// SubjectField names the credential field a kind carries in the `sub` claim.
type SubjectField int

const (
	SubjectCredentialID SubjectField = iota + 1
	SubjectUserID
	SubjectEmail
)

// ClaimMapping describes how one credential kind is laid out in a token.
type ClaimMapping struct {
	Subject  SubjectField
	Extra    []Claim
	Required []Claim
}

var registeredClaims = []Claim{ClaimSubject, ClaimExpiry, ClaimIssued, ClaimType}

var claimMappings = map[CredentialKind]ClaimMapping{
	KindAccessToken: {
		Subject:  SubjectCredentialID,
		Extra:    []Claim{ClaimUserID},
		Required: append(append([]Claim{}, registeredClaims...), ClaimUserID),
	},
	KindAPIKey: {
		Subject:  SubjectUserID,
		Extra:    []Claim{ClaimAPIKeyID},
		Required: append(append([]Claim{}, registeredClaims...), ClaimAPIKeyID),
	},
	KindOTP: {
		Subject:  SubjectCredentialID,
		Extra:    []Claim{ClaimUserID},
		Required: append(append([]Claim{}, registeredClaims...), ClaimUserID),
	},
	KindSignUp: {
		Subject:  SubjectEmail,
		Required: registeredClaims,
	},
}

// MappingFor returns the claim mapping of a kind.
func MappingFor(kind CredentialKind) (ClaimMapping, bool) {
	m, ok := claimMappings[kind]

	return m, ok
}

// ValidateRequiredClaims returns the claims required by mapping that are absent from claims.
func ValidateRequiredClaims(claims Claims, mapping ClaimMapping) []Claim {
	var missing []Claim
	for _, c := range mapping.Required {
		if v, ok := claims[c]; !ok || v == nil {
			missing = append(missing, c)
		}
	}

	return missing
}

// Kind reads the `type` claim.
func (c Claims) Kind() (CredentialKind, bool) {
	s, ok := c.String(ClaimType)

	return CredentialKind(s), ok && s != ""
}

// String reads a string claim.
func (c Claims) String(name Claim) (string, bool) {
	s, ok := c[name].(string)

	return s, ok
}

// UUID reads a claim holding a textual UUID.
func (c Claims) UUID(name Claim) (uuid.UUID, error) {
	s, ok := c.String(name)
	if !ok {
		return uuid.Nil, errors.Wrapf(ErrMalformedClaim, "%s is not a string", name)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.Wrapf(ErrMalformedClaim, "%s is not a uuid", name)
	}

	return id, nil
}

// Time reads a claim holding epoch seconds.
func (c Claims) Time(name Claim) (time.Time, error) {
	var secs float64
	switch v := c[name].(type) {
	case float64:
		secs = v
	case int64:
		secs = float64(v)
	case int:
		secs = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, errors.Wrapf(ErrMalformedClaim, "%s is not numeric", name)
		}
		secs = f
	default:
		return time.Time{}, errors.Wrapf(ErrMalformedClaim, "%s is not numeric", name)
	}

	whole, frac := math.Modf(secs)

	return time.Unix(int64(whole), int64(frac*1e9)).Truncate(time.Second).UTC(), nil
}

// EncodeClaims lays a credential out as claims following its kind's mapping.
func EncodeClaims(cred Credential) Claims {
	lt := cred.Validity()
	claims := Claims{
		ClaimType:   cred.Kind().String(),
		ClaimIssued: lt.Issued.Unix(),
		ClaimExpiry: lt.Expiry.Unix(),
	}

	switch c := cred.(type) {
	case AccessToken:
		claims[ClaimSubject] = c.ID.String()
		claims[ClaimUserID] = c.UserID.String()
	case APIKey:
		claims[ClaimSubject] = c.UserID.String()
		claims[ClaimAPIKeyID] = c.ID.String()
	case OTP:
		claims[ClaimSubject] = c.ID.String()
		claims[ClaimUserID] = c.UserID.String()
	case SignUp:
		claims[ClaimSubject] = c.Email
	}

	return claims
}

// DecodeCredential builds the credential of the given kind from claims. Fields that are
// not carried in the token (API key name and scopes, OTP hash) are left zero.
func DecodeCredential(kind CredentialKind, claims Claims) (Credential, error) {
	issued, err := claims.Time(ClaimIssued)
	if err != nil {
		return nil, err
	}
	expiry, err := claims.Time(ClaimExpiry)
	if err != nil {
		return nil, err
	}
	lt, err := NewLifetime(issued, expiry)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindAccessToken:
		id, userID, err := decodeRowClaims(claims)
		if err != nil {
			return nil, err
		}

		return AccessToken{ID: id, UserID: userID, Lifetime: lt}, nil
	case KindAPIKey:
		userID, err := claims.UUID(ClaimSubject)
		if err != nil {
			return nil, err
		}
		keyID, err := claims.UUID(ClaimAPIKeyID)
		if err != nil {
			return nil, err
		}

		return APIKey{ID: keyID, UserID: userID, Lifetime: lt}, nil
	case KindOTP:
		id, userID, err := decodeRowClaims(claims)
		if err != nil {
			return nil, err
		}

		return OTP{ID: id, UserID: userID, Lifetime: lt}, nil
	case KindSignUp:
		email, ok := claims.String(ClaimSubject)
		if !ok || email == "" {
			return nil, errors.Wrapf(ErrMalformedClaim, "%s is not an email", ClaimSubject)
		}

		return SignUp{Email: email, Lifetime: lt}, nil
	default:
		return nil, errors.Errorf("unknown credential kind %q", kind)
	}
}

func decodeRowClaims(claims Claims) (id, userID uuid.UUID, err error) {
	if id, err = claims.UUID(ClaimSubject); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if userID, err = claims.UUID(ClaimUserID); err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	return id, userID, nil
}
