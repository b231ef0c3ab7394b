// Package user contains the account aggregate together with roles and
// the permission bitmask they grant.
package user

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tymenu/tymenu/internal/domain/shared"
)

const (
	maxEmailLength    = 64
	maxUsernameLength = 64
	maxPasswordBytes  = 72
)

// User represents an account. A nil *User is the anonymous visitor and
// is allowed to do nothing.
type User struct {
	shared.AggregateRoot

	id           uuid.UUID
	email        string
	username     string
	passwordHash string
	role         *Role
	avatarHash   string
	memberSince  time.Time
}

// NewUser creates a user with a hashed password. The role is assigned
// separately with AssignRole.
func NewUser(email, username, password string, cost int) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	username, err = normalizeUsername(username)
	if err != nil {
		return nil, err
	}

	u := &User{
		id:          uuid.New(),
		email:       email,
		username:    username,
		avatarHash:  AvatarHash(email),
		memberSince: shared.Now(),
	}
	if err := u.setPassword(password, cost); err != nil {
		return nil, err
	}

	u.AddEvent(UserRegisteredEvent{
		UserID:       u.id,
		Email:        u.email,
		Username:     u.username,
		RegisteredAt: u.memberSince,
	})
	return u, nil
}

// Snapshot is the persisted state of a user.
type Snapshot struct {
	ID           uuid.UUID
	Email        string
	Username     string
	PasswordHash string
	Role         *Role
	AvatarHash   string
	MemberSince  time.Time
}

// FromSnapshot rebuilds a user loaded from storage.
func FromSnapshot(s Snapshot) *User {
	avatar := s.AvatarHash
	if avatar == "" && s.Email != "" {
		avatar = AvatarHash(s.Email)
	}
	return &User{
		id:           s.ID,
		email:        s.Email,
		username:     s.Username,
		passwordHash: s.PasswordHash,
		role:         s.Role,
		avatarHash:   avatar,
		memberSince:  s.MemberSince,
	}
}

// Snapshot returns the persisted state of the user.
func (u *User) Snapshot() Snapshot {
	return Snapshot{
		ID:           u.id,
		Email:        u.email,
		Username:     u.username,
		PasswordHash: u.passwordHash,
		Role:         u.role,
		AvatarHash:   u.avatarHash,
		MemberSince:  u.memberSince,
	}
}

func (u *User) ID() uuid.UUID          { return u.id }
func (u *User) Email() string          { return u.email }
func (u *User) Username() string       { return u.username }
func (u *User) Role() *Role            { return u.role }
func (u *User) AvatarHash() string     { return u.avatarHash }
func (u *User) MemberSince() time.Time { return u.memberSince }

// IsAnonymous reports whether u is the anonymous visitor.
func (u *User) IsAnonymous() bool {
	return u == nil
}

// SetPassword replaces the password hash.
func (u *User) SetPassword(password string, cost int) error {
	if err := u.setPassword(password, cost); err != nil {
		return err
	}
	u.AddEvent(PasswordChangedEvent{UserID: u.id, ChangedAt: shared.Now()})
	return nil
}

func (u *User) setPassword(password string, cost int) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.passwordHash = string(hash)
	return nil
}

// VerifyPassword reports whether password matches the stored hash.
func (u *User) VerifyPassword(password string) bool {
	if u == nil || u.passwordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)) == nil
}

// ChangePassword verifies the old password before setting the new one.
func (u *User) ChangePassword(oldPassword, newPassword string, cost int) error {
	if !u.VerifyPassword(oldPassword) {
		return ErrWrongPassword
	}
	return u.SetPassword(newPassword, cost)
}

// ChangeUsername renames the user. Uniqueness is enforced by the repository.
func (u *User) ChangeUsername(username string) error {
	username, err := normalizeUsername(username)
	if err != nil {
		return err
	}
	if username == u.username {
		return nil
	}
	old := u.username
	u.username = username
	u.AddEvent(UsernameChangedEvent{
		UserID:      u.id,
		OldUsername: old,
		NewUsername: username,
		ChangedAt:   shared.Now(),
	})
	return nil
}

// AssignRole gives the user the administrator role when their email is
// adminEmail and the default role otherwise.
func (u *User) AssignRole(roles []*Role, adminEmail string) error {
	if adminEmail != "" && strings.EqualFold(u.email, strings.TrimSpace(adminEmail)) {
		return u.SetRole(RoleAdministrator, roles)
	}
	for _, role := range roles {
		if role.IsDefault() {
			u.changeRole(role)
			return nil
		}
	}
	return u.SetRole(DefaultRoleName, roles)
}

// SetRole moves the user to the named role, matched case-insensitively.
func (u *User) SetRole(name string, roles []*Role) error {
	role, ok := FindRole(roles, name)
	if !ok {
		return fmt.Errorf("%w: %s. Available roles: %s",
			ErrUnknownRole, name, strings.Join(RoleNames(roles), ", "))
	}
	u.changeRole(role)
	return nil
}

func (u *User) changeRole(role *Role) {
	old := ""
	if u.role != nil {
		old = u.role.Name()
	}
	u.role = role
	if old != role.Name() {
		u.AddEvent(RoleChangedEvent{
			UserID:    u.id,
			OldRole:   old,
			NewRole:   role.Name(),
			ChangedAt: shared.Now(),
		})
	}
}

// Can reports whether the user's role grants perm.
func (u *User) Can(perm Permission) bool {
	return u != nil && u.role != nil && u.role.HasPermission(perm)
}

func (u *User) IsAdministrator() bool { return u.Can(PermissionAdmin) }
func (u *User) IsModerator() bool     { return u.Can(PermissionModerate) }

// Gravatar returns the avatar URL for the user's email hash.
func (u *User) Gravatar(size int, defaultImage, rating string, secure bool) string {
	hash := ""
	if u != nil {
		hash = u.avatarHash
	}
	return GravatarURL(hash, size, defaultImage, rating, secure)
}

// GravatarURL builds a gravatar link for an avatar hash.
func GravatarURL(hash string, size int, defaultImage, rating string, secure bool) string {
	base := "http://www.gravatar.com/avatar"
	if secure {
		base = "https://secure.gravatar.com/avatar"
	}
	if size <= 0 {
		size = 100
	}
	if defaultImage == "" {
		defaultImage = "identicon"
	}
	if rating == "" {
		rating = "g"
	}
	return fmt.Sprintf("%s/%s?s=%d&d=%s&r=%s", base, hash, size,
		url.QueryEscape(defaultImage), url.QueryEscape(rating))
}

// AvatarHash is the md5 hex digest of the lowercased email.
func AvatarHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrEmailRequired
	}
	if len(email) > maxEmailLength {
		return "", ErrEmailTooLong
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func normalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrUsernameRequired
	}
	if len(username) > maxUsernameLength {
		return "", ErrUsernameTooLong
	}
	return username, nil
}
