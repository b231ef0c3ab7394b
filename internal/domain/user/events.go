package user

import (
	"time"

	"github.com/google/uuid"
)

// UserRegisteredEvent is raised when an account is created
type UserRegisteredEvent struct {
	UserID       uuid.UUID
	Email        string
	Username     string
	RegisteredAt time.Time
}

func (e UserRegisteredEvent) EventName() string     { return "user.registered" }
func (e UserRegisteredEvent) OccurredAt() time.Time { return e.RegisteredAt }

// UsernameChangedEvent is raised when a user renames themselves
type UsernameChangedEvent struct {
	UserID      uuid.UUID
	OldUsername string
	NewUsername string
	ChangedAt   time.Time
}

func (e UsernameChangedEvent) EventName() string     { return "user.username.changed" }
func (e UsernameChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// PasswordChangedEvent is raised whenever the password hash changes
type PasswordChangedEvent struct {
	UserID    uuid.UUID
	ChangedAt time.Time
}

func (e PasswordChangedEvent) EventName() string     { return "user.password.changed" }
func (e PasswordChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// RoleChangedEvent is raised when a user is moved to another role
type RoleChangedEvent struct {
	UserID    uuid.UUID
	OldRole   string
	NewRole   string
	ChangedAt time.Time
}

func (e RoleChangedEvent) EventName() string     { return "user.role.changed" }
func (e RoleChangedEvent) OccurredAt() time.Time { return e.ChangedAt }
