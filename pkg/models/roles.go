package models

import (
	"fmt"
	"sort"
	"sync"
)

// Role names the kind of principal an account belongs to. The set of roles
// is open: new roles are added with RegisterRole.
type Role string

const (
	RoleStudent    Role = "student"
	RoleFaculty    Role = "faculty"
	RoleCashier    Role = "cashier"
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
)

// RoleSpec describes the shape of a role's extension record.
type RoleSpec struct {
	Role           Role
	RequiredFields []string
	OptionalFields []string
}

var (
	rolesMu sync.RWMutex
	roles   = map[Role]RoleSpec{}
)

func init() {
	RegisterRole(RoleSpec{Role: RoleStudent, RequiredFields: []string{"course", "year"}})
	RegisterRole(RoleSpec{Role: RoleFaculty, RequiredFields: []string{"department"}})
	RegisterRole(RoleSpec{Role: RoleCashier, RequiredFields: []string{"storeName"}})
	RegisterRole(RoleSpec{Role: RoleAdmin})
	RegisterRole(RoleSpec{Role: RoleAccountant, RequiredFields: []string{"office"}})
}

// RegisterRole adds or replaces a role in the registry.
func RegisterRole(spec RoleSpec) {
	rolesMu.Lock()
	defer rolesMu.Unlock()
	roles[spec.Role] = spec
}

// LookupRole returns the registered RoleSpec for r.
func LookupRole(r Role) (RoleSpec, bool) {
	rolesMu.RLock()
	defer rolesMu.RUnlock()
	spec, ok := roles[r]
	return spec, ok
}

// Roles returns every registered role, sorted by name.
func Roles() []Role {
	rolesMu.RLock()
	defer rolesMu.RUnlock()
	out := make([]Role, 0, len(roles))
	for r := range roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Valid reports whether r is registered.
func (r Role) Valid() bool {
	_, ok := LookupRole(r)
	return ok
}

// BuildExtension checks fields against the role definition and returns the subset the
// role knows about. Unknown keys are dropped.
func (s RoleSpec) BuildExtension(fields map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(s.RequiredFields)+len(s.OptionalFields))
	for _, name := range s.RequiredFields {
		v := fields[name]
		if v == "" {
			return nil, fmt.Errorf("role %s requires field %q", s.Role, name)
		}
		out[name] = v
	}
	for _, name := range s.OptionalFields {
		if v, ok := fields[name]; ok && v != "" {
			out[name] = v
		}
	}
	return out, nil
}
