package permissions

import "errors"

var (
	// ErrUnknownPermission is returned for lookups of unregistered permission IDs.
	ErrUnknownPermission = errors.New("permission: unknown permission")
	// ErrCircularDependency is returned when DependsOn edges form a loop.
	ErrCircularDependency = errors.New("permission: circular dependency detected")
)

type visitState uint8

const (
	unvisited visitState = iota
	inProgress
	done
)

// ResolveDependencies lists every permission the given one transitively depends on,
// deepest prerequisites first. The permission itself is not included.
func ResolveDependencies(permissionID string) ([]string, error) {
	perms := GetAll()
	if _, ok := perms[permissionID]; !ok {
		return nil, unknownPermission(permissionID)
	}

	state := make(map[string]visitState, len(perms))
	var order []string

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case done:
			return nil
		case inProgress:
			return errors.Join(ErrCircularDependency, errors.New("at "+id))
		}

		perm, ok := perms[id]
		if !ok {
			return unknownPermission(id)
		}

		state[id] = inProgress
		for _, dep := range perm.DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = done
		order = append(order, id)
		return nil
	}

	if err := visit(permissionID); err != nil {
		return nil, err
	}
	// The root is appended last by the post-order walk.
	return order[:len(order)-1], nil
}

func unknownPermission(id string) error {
	return errors.Join(ErrUnknownPermission, errors.New("id "+id))
}
