package service

import (
	"gatekeeper/internal/domain/entity"
)

// AuthMetrics records authorization and issuance outcomes.
type AuthMetrics interface {
	// ObserveResolution counts a resolution. outcome is "ok" or the failure's error code.
	ObserveResolution(kind entity.CredentialKind, outcome string)

	// ObserveIssued counts an issued credential.
	ObserveIssued(kind entity.CredentialKind)

	// ObserveRevoked counts removed credential rows.
	ObserveRevoked(kind entity.CredentialKind, count int)
}
