package model

import (
	"time"

	"github.com/google/uuid"
)

// AccessTokenModel mirrors the 'access_tokens' table. Magic links are access tokens too.
type AccessTokenModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	IssuedAt  time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (AccessTokenModel) TableName() string {
	return "access_tokens"
}

// APIKeyModel mirrors the 'api_keys' table. Names are unique per owner.
type APIKeyModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_api_keys_user_name"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_api_keys_user_name"`
	IssuedAt  time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time

	Scopes []APIKeyScopeModel `gorm:"foreignKey:APIKeyID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (APIKeyModel) TableName() string {
	return "api_keys"
}

// APIKeyScopeModel mirrors the 'api_key_scopes' join table.
type APIKeyScopeModel struct {
	APIKeyID uuid.UUID `gorm:"type:uuid;primaryKey"`
	ScopeID  uuid.UUID `gorm:"type:uuid;primaryKey"`
}

// TableName explicitly sets the table name for GORM.
func (APIKeyScopeModel) TableName() string {
	return "api_key_scopes"
}

// OTPModel mirrors the 'otps' table. Only the hash of the code is stored.
type OTPModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index"`
	HashedCode string    `gorm:"type:varchar(255);not null"`
	IssuedAt   time.Time `gorm:"not null;index"`
	ExpiresAt  time.Time `gorm:"not null"`
	CreatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (OTPModel) TableName() string {
	return "otps"
}
