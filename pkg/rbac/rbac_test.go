package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentPermissions(t *testing.T) {
	assert.True(t, HasPermission(RoleStudent, PermissionReadNode))
	assert.True(t, HasPermission(RoleStudent, PermissionUpdateTask))
	assert.True(t, HasPermission(RoleStudent, PermissionCreateReport))

	// students never lock, unlock or delete
	assert.False(t, HasPermission(RoleStudent, PermissionLockNode))
	assert.False(t, HasPermission(RoleStudent, PermissionUnlockNode))
	assert.False(t, HasPermission(RoleStudent, PermissionDeleteNode))
	assert.False(t, HasPermission(RoleStudent, PermissionCreateProject))
}

func TestInstructorAndAdminPermissions(t *testing.T) {
	for _, role := range []string{RoleInstructor, RoleAdmin} {
		for _, perm := range []string{
			PermissionReadNode,
			PermissionCreateProject,
			PermissionCreateMilestone,
			PermissionCreateTask,
			PermissionUpdateTask,
			PermissionCreateReport,
			PermissionLockNode,
			PermissionUnlockNode,
			PermissionDeleteNode,
		} {
			assert.True(t, HasPermission(role, perm), "%s should have %s", role, perm)
		}
	}
}

func TestUnknownRoleHasNothing(t *testing.T) {
	assert.False(t, HasPermission("observer", PermissionReadNode))
	assert.False(t, HasPermission("", PermissionReadNode))
}

func TestCheckPermission(t *testing.T) {
	require.NoError(t, CheckPermission(RoleInstructor, PermissionLockNode))

	err := CheckPermission(RoleStudent, PermissionLockNode)
	require.Error(t, err)

	var denied *PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, RoleStudent, denied.Role)
	assert.Equal(t, PermissionLockNode, denied.Permission)
}
