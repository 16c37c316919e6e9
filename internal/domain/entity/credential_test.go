package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLifetime(t *testing.T, issued time.Time, ttl time.Duration) Lifetime {
	t.Helper()

	lt, err := LifetimeFrom(issued, ttl)
	require.NoError(t, err)

	return lt
}

func TestNewLifetime_RejectsNonPositiveWindow(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry time.Time
	}{
		{"equal", issued},
		{"before", issued.Add(-time.Minute)},
		{"sub-second after", issued.Add(500 * time.Millisecond)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLifetime(issued, tt.expiry)
			assert.True(t, errors.Is(err, ErrInvalidLifetime))
		})
	}
}

func TestNewLifetime_TruncatesToSeconds(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 750_000_000, time.UTC)

	lt, err := LifetimeFrom(issued, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 0, lt.Issued.Nanosecond())
	assert.Equal(t, 0, lt.Expiry.Nanosecond())
	assert.Equal(t, time.Hour, lt.Expiry.Sub(lt.Issued))
}

func TestLifetime_ExpiredAt(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lt := mustLifetime(t, issued, time.Hour)
	override := 10 * time.Minute

	assert.False(t, lt.ExpiredAt(issued.Add(30*time.Minute), nil))
	assert.False(t, lt.ExpiredAt(issued.Add(time.Hour), nil), "expiry instant itself is still valid")
	assert.True(t, lt.ExpiredAt(issued.Add(time.Hour+time.Second), nil))
	assert.True(t, lt.ExpiredAt(issued.Add(11*time.Minute), &override))
	assert.False(t, lt.ExpiredAt(issued.Add(9*time.Minute), &override))
}

func TestCredentialRoundTrip(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lt := mustLifetime(t, issued, 90*time.Minute)

	creds := []Credential{
		AccessToken{ID: uuid.New(), UserID: uuid.New(), Lifetime: lt},
		APIKey{ID: uuid.New(), UserID: uuid.New(), Lifetime: lt},
		OTP{ID: uuid.New(), UserID: uuid.New(), Lifetime: lt},
		SignUp{Email: "a@b.com", Lifetime: lt},
	}

	for _, cred := range creds {
		t.Run(cred.Kind().String(), func(t *testing.T) {
			claims := EncodeClaims(cred)

			mapping, ok := MappingFor(cred.Kind())
			require.True(t, ok)
			assert.Empty(t, ValidateRequiredClaims(claims, mapping))

			kind, ok := claims.Kind()
			require.True(t, ok)

			decoded, err := DecodeCredential(kind, claims)
			require.NoError(t, err)
			assert.Equal(t, cred, decoded)
		})
	}
}

func TestCredentialRoundTrip_FloatTimestamps(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cred := AccessToken{ID: uuid.New(), UserID: uuid.New(), Lifetime: mustLifetime(t, issued, time.Hour)}

	// JSON decoding yields float64 numbers.
	claims := EncodeClaims(cred)
	claims[ClaimIssued] = float64(issued.Unix())
	claims[ClaimExpiry] = float64(issued.Add(time.Hour).Unix())

	decoded, err := DecodeCredential(KindAccessToken, claims)
	require.NoError(t, err)
	assert.Equal(t, cred, decoded)
}

func TestValidateRequiredClaims_ReportsMissing(t *testing.T) {
	mapping, ok := MappingFor(KindAPIKey)
	require.True(t, ok)

	claims := Claims{
		ClaimSubject: uuid.NewString(),
		ClaimType:    KindAPIKey.String(),
		ClaimIssued:  int64(1),
	}

	missing := ValidateRequiredClaims(claims, mapping)
	assert.ElementsMatch(t, []Claim{ClaimExpiry, ClaimAPIKeyID}, missing)
}

func TestDecodeCredential_RejectsBadValues(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		kind   CredentialKind
		claims Claims
	}{
		{
			name: "subject is not a uuid",
			kind: KindAccessToken,
			claims: Claims{
				ClaimSubject: "not-a-uuid", ClaimUserID: uuid.NewString(),
				ClaimIssued: issued.Unix(), ClaimExpiry: issued.Add(time.Hour).Unix(),
			},
		},
		{
			name: "expiry before issued",
			kind: KindSignUp,
			claims: Claims{
				ClaimSubject: "a@b.com",
				ClaimIssued:  issued.Unix(), ClaimExpiry: issued.Add(-time.Hour).Unix(),
			},
		},
		{
			name: "timestamp is a string",
			kind: KindOTP,
			claims: Claims{
				ClaimSubject: uuid.NewString(), ClaimUserID: uuid.NewString(),
				ClaimIssued: "yesterday", ClaimExpiry: issued.Unix(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCredential(tt.kind, tt.claims)
			assert.Error(t, err)
		})
	}
}

func TestCredentialKind_Persisted(t *testing.T) {
	assert.True(t, KindAccessToken.Persisted())
	assert.True(t, KindAPIKey.Persisted())
	assert.True(t, KindOTP.Persisted())
	assert.False(t, KindSignUp.Persisted())
	assert.False(t, CredentialKind("refresh").IsValid())
}

func TestCredentialKinds_Contains(t *testing.T) {
	assert.True(t, CredentialKinds(nil).Contains(KindSignUp), "empty set permits every kind")
	assert.False(t, CredentialKinds(nil).Contains(CredentialKind("bogus")))
	assert.False(t, CredentialKinds{KindAccessToken}.Contains(KindAPIKey))
}

func TestDescriptorOf(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lt := mustLifetime(t, issued, time.Hour)
	id := uuid.New()

	d := DescriptorOf(AccessToken{ID: id, UserID: uuid.New(), Lifetime: lt})
	assert.Equal(t, Descriptor{Kind: KindAccessToken, ID: id.String(), Expiry: lt.Expiry}, d)

	d = DescriptorOf(SignUp{Email: "a@b.com", Lifetime: lt})
	assert.Equal(t, "a@b.com", d.ID)
}
