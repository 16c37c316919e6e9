package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table. IDs are generated by the application.
// It is an exported type so it can be used by the GORM Gen tool from other packages.
type UserModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PhoneNumber    *string   `gorm:"type:varchar(32);uniqueIndex"`
	Username       *string   `gorm:"type:varchar(64);uniqueIndex"`
	HashedPassword *string   `gorm:"type:varchar(255)"`
	RoleID         string    `gorm:"type:varchar(50);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Identities   []IdentityModel    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	AccessTokens []AccessTokenModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	APIKeys      []APIKeyModel      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	OTPs         []OTPModel         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
