package permissions

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Permission is a named capability. DependsOn lists permissions a role must also hold for
// this one to take effect; Implies lists permissions granted along with it.
type Permission struct {
	ID          string
	Module      string
	DependsOn   []string
	Implies     []string
	Description string
}

func (p *Permission) clone() *Permission {
	cp := *p
	cp.DependsOn = slices.Clone(p.DependsOn)
	cp.Implies = slices.Clone(p.Implies)
	return &cp
}

var (
	errNilPermission   = errors.New("permission: nil definition")
	errEmptyID         = errors.New("permission: id is required")
	errDuplicateID     = errors.New("permission: already registered")
	errSelfDependency  = errors.New("permission: cannot depend on itself")
	errSelfImplication = errors.New("permission: cannot imply itself")
	errEmptyRole       = errors.New("permission: role is required")
)

// registry holds definitions and role grants. Permissions are registered from init
// functions; lookups happen on every protected request.
var registry = struct {
	sync.RWMutex
	perms  map[string]*Permission
	grants map[string]map[string]struct{}
}{
	perms:  map[string]*Permission{},
	grants: map[string]map[string]struct{}{},
}

func Register(perm *Permission) error {
	if perm == nil {
		return errNilPermission
	}
	def := perm.clone()
	def.ID = strings.TrimSpace(def.ID)
	def.Module = strings.TrimSpace(def.Module)
	if def.ID == "" {
		return errEmptyID
	}

	var err error
	if def.DependsOn, err = cleanRefs(def.ID, def.DependsOn, errSelfDependency); err != nil {
		return err
	}
	if def.Implies, err = cleanRefs(def.ID, def.Implies, errSelfImplication); err != nil {
		return err
	}

	registry.Lock()
	defer registry.Unlock()
	if _, taken := registry.perms[def.ID]; taken {
		return fmt.Errorf("%w: %s", errDuplicateID, def.ID)
	}
	registry.perms[def.ID] = def
	return nil
}

// cleanRefs trims and de-duplicates references, rejecting a reference to self.
func cleanRefs(self string, refs []string, selfErr error) ([]string, error) {
	var out []string
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		switch {
		case ref == "":
			continue
		case ref == self:
			return nil, selfErr
		case slices.Contains(out, ref):
			continue
		}
		out = append(out, ref)
	}
	return out, nil
}

func Get(id string) (*Permission, bool) {
	registry.RLock()
	defer registry.RUnlock()
	perm, ok := registry.perms[id]
	if !ok {
		return nil, false
	}
	return perm.clone(), true
}

// GetAll returns copies of every definition keyed by ID.
func GetAll() map[string]*Permission {
	registry.RLock()
	defer registry.RUnlock()
	out := make(map[string]*Permission, len(registry.perms))
	for id, perm := range registry.perms {
		out[id] = perm.clone()
	}
	return out
}

// GrantRole adds permissions to a role. Every ID must already be registered.
func GrantRole(role string, ids ...string) error {
	if role = strings.TrimSpace(role); role == "" {
		return errEmptyRole
	}

	registry.Lock()
	defer registry.Unlock()
	set := registry.grants[role]
	if set == nil {
		set = make(map[string]struct{}, len(ids))
		registry.grants[role] = set
	}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, ok := registry.perms[id]; !ok {
			return unknownPermission(id)
		}
		set[id] = struct{}{}
	}
	return nil
}

// RolePermissions lists the IDs granted directly to role, sorted.
func RolePermissions(role string) []string {
	registry.RLock()
	defer registry.RUnlock()
	set := registry.grants[strings.TrimSpace(role)]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ValidateDependencies reports the first DependsOn or Implies edge naming an unregistered
// permission.
func ValidateDependencies() error {
	registry.RLock()
	defer registry.RUnlock()
	for _, perm := range registry.perms {
		for _, ref := range slices.Concat(perm.DependsOn, perm.Implies) {
			if _, ok := registry.perms[ref]; !ok {
				return fmt.Errorf("permission: %s references unknown permission %s", perm.ID, ref)
			}
		}
	}
	return nil
}
