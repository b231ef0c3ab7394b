package user

import "strings"

// Permission is a bitmask of capabilities granted by a role.
type Permission int

const (
	PermissionFollow   Permission = 1
	PermissionComment  Permission = 2
	PermissionWrite    Permission = 4
	PermissionModerate Permission = 8
	PermissionAdmin    Permission = 16
)

var permissionNames = []struct {
	perm Permission
	name string
}{
	{PermissionFollow, "FOLLOW"},
	{PermissionComment, "COMMENT"},
	{PermissionWrite, "WRITE"},
	{PermissionModerate, "MODERATE"},
	{PermissionAdmin, "ADMIN"},
}

// Has reports whether every bit of perm is set in p.
func (p Permission) Has(perm Permission) bool {
	return p&perm == perm
}

func (p Permission) String() string {
	if p == 0 {
		return "NONE"
	}
	var parts []string
	for _, pn := range permissionNames {
		if p.Has(pn.perm) {
			parts = append(parts, pn.name)
		}
	}
	return strings.Join(parts, "|")
}
