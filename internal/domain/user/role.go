package user

import (
	"strings"

	"github.com/google/uuid"
)

// Builtin role names.
const (
	RoleUser          = "User"
	RoleModerator     = "Moderator"
	RoleAdministrator = "Administrator"

	// DefaultRoleName is assigned to every new account that is not the admin.
	DefaultRoleName = RoleUser
)

// RoleDefinition describes one builtin role.
type RoleDefinition struct {
	Name        string
	Permissions []Permission
}

// BuiltinRoles returns the builtin roles in ascending order of privilege.
func BuiltinRoles() []RoleDefinition {
	return []RoleDefinition{
		{Name: RoleUser, Permissions: []Permission{
			PermissionFollow, PermissionComment, PermissionWrite,
		}},
		{Name: RoleModerator, Permissions: []Permission{
			PermissionFollow, PermissionComment, PermissionWrite, PermissionModerate,
		}},
		{Name: RoleAdministrator, Permissions: []Permission{
			PermissionFollow, PermissionComment, PermissionWrite, PermissionModerate, PermissionAdmin,
		}},
	}
}

// Role groups a permission bitmask under a unique name.
type Role struct {
	id          uuid.UUID
	name        string
	isDefault   bool
	permissions Permission
}

// NewRole creates a role without permissions.
func NewRole(name string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrRoleNameRequired
	}
	if len(name) > 64 {
		return nil, ErrRoleNameTooLong
	}
	return &Role{id: uuid.New(), name: name}, nil
}

// RoleSnapshot is the persisted state of a role.
type RoleSnapshot struct {
	ID          uuid.UUID
	Name        string
	IsDefault   bool
	Permissions Permission
}

// RoleFromSnapshot rebuilds a role loaded from storage.
func RoleFromSnapshot(s RoleSnapshot) *Role {
	return &Role{id: s.ID, name: s.Name, isDefault: s.IsDefault, permissions: s.Permissions}
}

// Snapshot returns the persisted state of the role.
func (r *Role) Snapshot() RoleSnapshot {
	return RoleSnapshot{ID: r.id, Name: r.name, IsDefault: r.isDefault, Permissions: r.permissions}
}

func (r *Role) ID() uuid.UUID           { return r.id }
func (r *Role) Name() string            { return r.name }
func (r *Role) IsDefault() bool         { return r.isDefault }
func (r *Role) Permissions() Permission { return r.permissions }

// SetDefault marks the role as the one given to new accounts.
func (r *Role) SetDefault(isDefault bool) {
	r.isDefault = isDefault
}

// AddPermission grants perm. Granting twice is a no-op.
func (r *Role) AddPermission(perm Permission) {
	if !r.HasPermission(perm) {
		r.permissions += perm
	}
}

// RemovePermission revokes perm. Revoking a missing permission is a no-op.
func (r *Role) RemovePermission(perm Permission) {
	if r.HasPermission(perm) {
		r.permissions -= perm
	}
}

// ResetPermissions revokes everything.
func (r *Role) ResetPermissions() {
	r.permissions = 0
}

// HasPermission reports whether all bits of perm are granted.
func (r *Role) HasPermission(perm Permission) bool {
	return r.permissions.Has(perm)
}

// ApplyDefinition resets the role to the permissions of def and marks it
// default when def is the default role.
func (r *Role) ApplyDefinition(def RoleDefinition) {
	r.ResetPermissions()
	for _, perm := range def.Permissions {
		r.AddPermission(perm)
	}
	r.isDefault = def.Name == DefaultRoleName
}

func (r *Role) String() string {
	return r.name
}

// FindRole looks up name case-insensitively.
func FindRole(roles []*Role, name string) (*Role, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, role := range roles {
		if strings.ToLower(role.name) == name {
			return role, true
		}
	}
	return nil, false
}

// RoleNames returns the names of roles in order.
func RoleNames(roles []*Role) []string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.name)
	}
	return names
}
