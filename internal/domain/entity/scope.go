package entity

import (
	"encoding/json"
	"slices"

	"github.com/google/uuid"
)

// Scope is a named permission unit, e.g. "admin" or "users.read".
type Scope struct {
	ID   uuid.UUID
	Name string
}

// ScopeSet is a set of scope names. Names are unique, so sets are compared by name.
type ScopeSet map[string]struct{}

// NewScopeSet builds a set from names, ignoring empty ones.
func NewScopeSet(names ...string) ScopeSet {
	set := make(ScopeSet, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = struct{}{}
		}
	}

	return set
}

// ScopeSetOf builds a set from scope records.
func ScopeSetOf(scopes []Scope) ScopeSet {
	set := make(ScopeSet, len(scopes))
	for _, s := range scopes {
		set[s.Name] = struct{}{}
	}

	return set
}

// Contains reports whether name is in the set.
func (s ScopeSet) Contains(name string) bool {
	_, ok := s[name]

	return ok
}

// SubsetOf reports whether every scope in s is also in available. The empty set is a
// subset of anything.
func (s ScopeSet) SubsetOf(available ScopeSet) bool {
	for name := range s {
		if !available.Contains(name) {
			return false
		}
	}

	return true
}

// Missing returns the sorted names in s that are absent from available.
func (s ScopeSet) Missing(available ScopeSet) []string {
	var missing []string
	for name := range s {
		if !available.Contains(name) {
			missing = append(missing, name)
		}
	}
	slices.Sort(missing)

	return missing
}

// Clone returns an independent copy.
func (s ScopeSet) Clone() ScopeSet {
	out := make(ScopeSet, len(s))
	for name := range s {
		out[name] = struct{}{}
	}

	return out
}

// Names returns the scope names in sorted order.
func (s ScopeSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// MarshalJSON renders the set as a sorted array.
func (s ScopeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// UnmarshalJSON reads the array form written by MarshalJSON.
func (s *ScopeSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = NewScopeSet(names...)

	return nil
}
