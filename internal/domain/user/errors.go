package user

import "errors"

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrEmailTooLong     = errors.New("email must not exceed 64 characters")
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameTooLong  = errors.New("username must not exceed 64 characters")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooLong  = errors.New("password must not exceed 72 bytes")
	ErrRoleNameRequired = errors.New("role name is required")
	ErrRoleNameTooLong  = errors.New("role name must not exceed 64 characters")
	ErrUnknownRole      = errors.New("unknown role")
	ErrWrongPassword    = errors.New("the old password is incorrect")
	ErrUserNotFound     = errors.New("user not found")
	ErrRoleNotFound     = errors.New("role not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrUsernameTaken    = errors.New("username already exists")
)
