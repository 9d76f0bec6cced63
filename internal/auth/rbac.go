package auth

import (
	"errors"
	"slices"
)

var (
	ErrUnauthorized = errors.New("unauthorized: insufficient permissions")
)

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

const (
	PermissionReadFS      = "fs:read"
	PermissionDeleteFS    = "fs:delete"
	PermissionReadHistory = "history:read"
	PermissionReadMetrics = "metrics:read"
)

// RolePermissions maps roles to their allowed permissions
var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermissionReadFS,
		PermissionDeleteFS,
		PermissionReadHistory,
		PermissionReadMetrics,
	},
	RoleOperator: {
		PermissionReadFS,
		PermissionDeleteFS,
		PermissionReadHistory,
	},
	RoleViewer: {
		PermissionReadFS,
		PermissionReadMetrics,
	},
}

// HasPermission checks if user roles include the required permission
func HasPermission(userRoles []string, requiredPermission string) bool {
	for _, role := range userRoles {
		if slices.Contains(RolePermissions[role], requiredPermission) {
			return true
		}
	}
	return false
}

// Authorize returns ErrUnauthorized unless claims grant permission.
func Authorize(claims *Claims, permission string) error {
	if claims == nil || !HasPermission(claims.Roles, permission) {
		return ErrUnauthorized
	}
	return nil
}
