// Package model holds the GORM persistence models.
package model

// All returns every model in dependency order, for migrations and code generation.
func All() []any {
	return []any{
		&UserModel{},
		&IdentityModel{},
		&ScopeModel{},
		&AccessTokenModel{},
		&APIKeyModel{},
		&APIKeyScopeModel{},
		&OTPModel{},
	}
}
