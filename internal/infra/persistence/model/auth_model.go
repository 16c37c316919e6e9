package model

import (
	"time"

	"github.com/google/uuid"
)

// IdentityModel mirrors the 'user_identities' table, linking provider subjects to users.
type IdentityModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Provider  string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_identity_provider_subject"`
	Subject   string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_identity_provider_subject"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (IdentityModel) TableName() string {
	return "user_identities"
}
