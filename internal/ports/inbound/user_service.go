package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tymenu/tymenu/internal/domain/user"
)

// UserService defines the account, authentication and role use cases
type UserService interface {
	Register(ctx context.Context, cmd RegisterCommand) (*UserDTO, error)
	Authenticate(ctx context.Context, cmd LoginCommand) (*UserDTO, error)
	ChangeUsername(ctx context.Context, cmd ChangeUsernameCommand) (*UserDTO, error)
	ChangePassword(ctx context.Context, cmd ChangePasswordCommand) error
	RequestPasswordReset(ctx context.Context, cmd ResetRequestCommand) error
	// ResetPassword reports false when the token is invalid or the user is gone.
	ResetPassword(ctx context.Context, cmd ResetPasswordCommand) (bool, error)

	GetUser(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	ListUsers(ctx context.Context, params PaginationParams) (*UserList, error)

	// InsertRoles creates or resets the builtin roles.
	InsertRoles(ctx context.Context) error
	ListRoles(ctx context.Context) ([]RoleDTO, error)
	SetRole(ctx context.Context, cmd SetRoleCommand) (*UserDTO, error)
}

// RegisterCommand contains data for creating an account
type RegisterCommand struct {
	Email           string `json:"email" validate:"required,email,max=64"`
	Username        string `json:"username" validate:"required,max=64,username"`
	Password        string `json:"password" validate:"required,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type LoginCommand struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

// ChangeUsernameCommand renames UserID. Only the user themselves may do it.
type ChangeUsernameCommand struct {
	ActorID  uuid.UUID `validate:"required"`
	UserID   uuid.UUID `validate:"required"`
	Username string    `validate:"required,max=64,username"`
}

type ChangePasswordCommand struct {
	UserID          uuid.UUID `validate:"required"`
	OldPassword     string    `validate:"required"`
	Password        string    `validate:"required,max=72"`
	PasswordConfirm string    `validate:"required,eqfield=Password"`
}

type ResetRequestCommand struct {
	Email string `validate:"required,email"`
	// ResetURL builds the link mailed to the user from the token.
	ResetURL func(token string) string `validate:"-"`
}

type ResetPasswordCommand struct {
	Token           string `validate:"required"`
	Password        string `validate:"required,max=72"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
}

type SetRoleCommand struct {
	Email string `validate:"required,email"`
	Role  string `validate:"required"`
}

// UserDTO is the data transfer object for users. A nil *UserDTO is the
// anonymous visitor.
type UserDTO struct {
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"-"`
	Username    string          `json:"username"`
	Role        string          `json:"role"`
	Permissions user.Permission `json:"-"`
	AvatarHash  string          `json:"avatar_hash"`
	MemberSince time.Time       `json:"member_since"`
}

// Can reports whether the user holds perm.
func (u *UserDTO) Can(perm user.Permission) bool {
	return u != nil && u.Permissions.Has(perm)
}

func (u *UserDTO) IsAuthenticated() bool { return u != nil }
func (u *UserDTO) IsAdministrator() bool { return u.Can(user.PermissionAdmin) }
func (u *UserDTO) IsModerator() bool     { return u.Can(user.PermissionModerate) }

// Is reports whether u is the user with id.
func (u *UserDTO) Is(id uuid.UUID) bool {
	return u != nil && u.ID == id
}

// Gravatar returns an https identicon avatar URL of the given size.
func (u *UserDTO) Gravatar(size int) string {
	if u == nil {
		return ""
	}
	return user.GravatarURL(u.AvatarHash, size, "identicon", "g", true)
}

type UserList struct {
	Users      []UserDTO  `json:"users"`
	Pagination Pagination `json:"pagination"`
}

type RoleDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Default     bool            `json:"default"`
	Permissions user.Permission `json:"permissions"`
}
