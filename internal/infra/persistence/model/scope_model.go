package model

import (
	"github.com/google/uuid"
)

// ScopeModel mirrors the 'scopes' catalogue table.
type ScopeModel struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"type:varchar(100);uniqueIndex;not null"`

	APIKeys []APIKeyScopeModel `gorm:"foreignKey:ScopeID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (ScopeModel) TableName() string {
	return "scopes"
}
