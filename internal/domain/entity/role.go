package entity

// Role identifies a user's role. The set of roles comes from configuration.
type Role string

const (
	// RoleUser is the default role for self-registered users.
	RoleUser Role = "user"
	// RoleAdmin is the administrative role.
	RoleAdmin Role = "admin"
)

// String returns the string representation of the Role.
func (r Role) String() string {
	return string(r)
}

// RoleScopes is the static role to default scope table. It is built once and never
// mutated, so it is safe to share between goroutines without locking.
type RoleScopes struct {
	table map[Role]ScopeSet
}

// NewRoleScopes copies the given table.
func NewRoleScopes(table map[Role][]string) RoleScopes {
	copied := make(map[Role]ScopeSet, len(table))
	for role, names := range table {
		copied[role] = NewScopeSet(names...)
	}

	return RoleScopes{table: copied}
}

// ScopesFor returns a copy of the role's default scopes. Unknown roles have none.
func (rs RoleScopes) ScopesFor(role Role) ScopeSet {
	return rs.table[role].Clone()
}

// Has reports whether the role is configured.
func (rs RoleScopes) Has(role Role) bool {
	_, ok := rs.table[role]

	return ok
}

// AllScopes returns every scope name referenced by any role.
func (rs RoleScopes) AllScopes() ScopeSet {
	all := make(ScopeSet)
	for _, set := range rs.table {
		for name := range set {
			all[name] = struct{}{}
		}
	}

	return all
}
