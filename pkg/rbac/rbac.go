package rbac

// Permissions for hierarchy operations.
const (
	PermissionLockNode   = "node:lock"
	PermissionUnlockNode = "node:unlock"
	PermissionDeleteNode = "node:delete"

	PermissionCreateProject   = "project:create"
	PermissionCreateMilestone = "milestone:create"
	PermissionCreateTask      = "task:create"
	PermissionUpdateTask      = "task:update"
	PermissionCreateReport    = "report:create"
	PermissionReadNode        = "node:read"
)

// Roles.
const (
	RoleInstructor = "instructor"
	RoleStudent    = "student"
	RoleAdmin      = "admin"
)

var rolePermissions = map[string][]string{
	RoleStudent: {
		PermissionReadNode,
		PermissionUpdateTask,
		PermissionCreateReport,
	},
	RoleInstructor: {
		PermissionReadNode,
		PermissionCreateProject,
		PermissionCreateMilestone,
		PermissionCreateTask,
		PermissionUpdateTask,
		PermissionCreateReport,
		PermissionLockNode,
		PermissionUnlockNode,
		PermissionDeleteNode,
	},
	RoleAdmin: {
		PermissionReadNode,
		PermissionCreateProject,
		PermissionCreateMilestone,
		PermissionCreateTask,
		PermissionUpdateTask,
		PermissionCreateReport,
		PermissionLockNode,
		PermissionUnlockNode,
		PermissionDeleteNode,
	},
}

// HasPermission checks whether a role grants the given permission.
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission returns an error instead of a boolean for handler use.
func CheckPermission(role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
