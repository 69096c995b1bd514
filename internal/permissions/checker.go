package permissions

import (
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/charlesng35/hrmatrix/internal/models"
)

// Checker answers whether a role holds a permission. Roles are normalised first, so an
// unknown role is evaluated as USER.
type Checker struct{}

func NewChecker() *Checker {
	return &Checker{}
}

// Check reports whether role holds permissionID and every permission it depends on.
// Unregistered IDs are an error, not a denial.
func (c *Checker) Check(role, permissionID string) (bool, error) {
	permissionID = strings.TrimSpace(permissionID)
	if permissionID == "" {
		return false, errors.New("permission checker: permission id is required")
	}
	if _, ok := Get(permissionID); !ok {
		return false, unknownPermission(permissionID)
	}

	held, err := effectivePermissions(models.NormalizeRole(role))
	if err != nil {
		return false, err
	}
	required, err := ResolveDependencies(permissionID)
	if err != nil {
		return false, err
	}

	for _, id := range append(required, permissionID) {
		if _, ok := held[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// PermissionsFor lists the role's effective permissions, implied ones included, sorted.
func (c *Checker) PermissionsFor(role string) ([]string, error) {
	held, err := effectivePermissions(models.NormalizeRole(role))
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(held)), nil
}

// effectivePermissions expands the role's direct grants along Implies edges.
func effectivePermissions(role string) (map[string]struct{}, error) {
	held := make(map[string]struct{})
	queue := RolePermissions(role)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := held[id]; seen {
			continue
		}
		perm, ok := Get(id)
		if !ok {
			return nil, unknownPermission(id)
		}
		held[id] = struct{}{}
		queue = append(queue, perm.Implies...)
	}
	return held, nil
}
