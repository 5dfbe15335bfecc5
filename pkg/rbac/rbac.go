package rbac

// 权限常量
const (
	// 敏感操作权限
	PermissionMoveLeadStage  = "lead:move_stage"
	PermissionToggleActivity = "activity:toggle"
	PermissionReplayOutbox   = "outbox:replay"

	// 普通操作权限
	PermissionReadBoard        = "board:read"
	PermissionReadActivity     = "activity:read"
	PermissionCreateActivity   = "activity:create"
	PermissionCompleteActivity = "activity:complete"
	PermissionReadGoal         = "goal:read"
)

// 角色常量
const (
	RoleRep     = "rep"
	RoleManager = "manager"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleRep: {
		PermissionReadBoard,
		PermissionMoveLeadStage,
		PermissionReadActivity,
		PermissionCreateActivity,
		PermissionCompleteActivity,
		PermissionReadGoal,
	},
	RoleManager: {
		PermissionReadBoard,
		PermissionMoveLeadStage,
		PermissionReadActivity,
		PermissionCreateActivity,
		PermissionCompleteActivity,
		PermissionToggleActivity,
		PermissionReplayOutbox,
		PermissionReadGoal,
	},
}

// HasPermission checks whether the given role grants a permission.
func HasPermission(role, permission string) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// PermissionsForRole returns the permissions granted to a role.
func PermissionsForRole(role string) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
