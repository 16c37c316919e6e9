package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the account a credential belongs to.
type User struct {
	ID             uuid.UUID // The Global Unique Identifier (GUID) for the user.
	Email          string    // Unique login and contact address.
	PhoneNumber    *string   // Unique E.164 number, used for SMS codes. Optional.
	Username       *string   // Unique handle. A user with a username is publicly visible.
	HashedPassword *string   // bcrypt hash. Nil disables password login.
	RoleID         Role      // Selects the default scopes of access tokens and OTPs.
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsPublic reports whether the user has chosen a public username.
func (u *User) IsPublic() bool {
	return u.Username != nil && *u.Username != ""
}

// CanUsePassword reports whether password login is enabled for the user.
func (u *User) CanUsePassword() bool {
	return u.HashedPassword != nil && *u.HashedPassword != ""
}
