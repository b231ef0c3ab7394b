// Package user provides the application layer for accounts, authentication
// and roles.
package user

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/domain/shared"
	"github.com/tymenu/tymenu/internal/domain/user"
	"github.com/tymenu/tymenu/internal/ports/inbound"
	"github.com/tymenu/tymenu/internal/ports/outbound"
	"github.com/tymenu/tymenu/pkg/errors"
	"github.com/tymenu/tymenu/pkg/validation"
)

// Config holds the account settings of the service.
type Config struct {
	AdminEmail    string
	BCryptCost    int
	ResetTokenTTL time.Duration
	UsersPerPage  int
	// EmailTimeout bounds each background email delivery.
	EmailTimeout time.Duration
}

// UserService implements inbound.UserService
type UserService struct {
	users    outbound.UserRepository
	roles    outbound.RoleRepository
	tx       outbound.Transactor
	tokens   outbound.TokenService
	mailer   outbound.EmailService
	events   outbound.EventPublisher
	validate *validation.Validator
	cfg      Config
	logger   *zap.Logger

	mail sync.WaitGroup
}

// NewUserService creates a new user service
func NewUserService(
	users outbound.UserRepository,
	roles outbound.RoleRepository,
	tx outbound.Transactor,
	tokens outbound.TokenService,
	mailer outbound.EmailService,
	events outbound.EventPublisher,
	validate *validation.Validator,
	cfg Config,
	logger *zap.Logger,
) *UserService {
	if cfg.EmailTimeout <= 0 {
		cfg.EmailTimeout = 30 * time.Second
	}
	if cfg.UsersPerPage <= 0 {
		cfg.UsersPerPage = 20
	}
	if events == nil {
		events = outbound.NopPublisher{}
	}
	return &UserService{
		users:    users,
		roles:    roles,
		tx:       tx,
		tokens:   tokens,
		mailer:   mailer,
		events:   events,
		validate: validate,
		cfg:      cfg,
		logger:   logger.Named("user-service"),
	}
}

var _ inbound.UserService = (*UserService)(nil)

// Register creates an account. The configured admin email gets the
// Administrator role, everyone else the default role.
func (s *UserService) Register(ctx context.Context, cmd inbound.RegisterCommand) (*inbound.UserDTO, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}
	s.logger.Info("Registering user", zap.String("username", cmd.Username))

	var u *user.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.ensureAvailable(ctx, uuid.Nil, cmd.Email, cmd.Username); err != nil {
			return err
		}
		roles, err := s.loadRoles(ctx)
		if err != nil {
			return err
		}
		u, err = user.NewUser(cmd.Email, cmd.Username, cmd.Password, s.cfg.BCryptCost)
		if err != nil {
			return err
		}
		if err := u.AssignRole(roles, s.cfg.AdminEmail); err != nil {
			return err
		}
		return s.users.Create(ctx, u)
	})
	if err != nil {
		return nil, s.mapError(err, "register user")
	}

	s.publish(ctx, u.Events())
	email, username := u.Email(), u.Username()
	s.sendAsync("welcome", func(ctx context.Context) error {
		return s.mailer.SendWelcome(ctx, email, username)
	})

	s.logger.Info("User registered", zap.String("user_id", u.ID().String()), zap.String("role", u.Role().Name()))
	return toDTO(u), nil
}

// Authenticate checks an email and password pair.
func (s *UserService) Authenticate(ctx context.Context, cmd inbound.LoginCommand) (*inbound.UserDTO, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}
	u, err := s.users.FindByEmail(ctx, cmd.Email)
	if err != nil {
		if stderrors.Is(err, user.ErrUserNotFound) {
			return nil, errors.NewInvalidCredentialsError()
		}
		return nil, errors.NewDatabaseError("find user", err)
	}
	if !u.VerifyPassword(cmd.Password) {
		s.logger.Info("Failed login", zap.String("user_id", u.ID().String()))
		return nil, errors.NewInvalidCredentialsError()
	}
	return toDTO(u), nil
}

// ChangeUsername renames a user. Users may only rename themselves.
func (s *UserService) ChangeUsername(ctx context.Context, cmd inbound.ChangeUsernameCommand) (*inbound.UserDTO, error) {
	if cmd.ActorID != cmd.UserID {
		return nil, errors.NewInsufficientPermissionsError("change another user's name")
	}
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}

	var u *user.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if u, err = s.users.FindByID(ctx, cmd.UserID); err != nil {
			return err
		}
		if err := s.ensureAvailable(ctx, u.ID(), "", cmd.Username); err != nil {
			return err
		}
		if err := u.ChangeUsername(cmd.Username); err != nil {
			return err
		}
		return s.users.Update(ctx, u)
	})
	if err != nil {
		return nil, s.mapError(err, "change username")
	}
	s.publish(ctx, u.Events())
	return toDTO(u), nil
}

// ChangePassword replaces the password after checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, cmd inbound.ChangePasswordCommand) error {
	if err := s.validate.Struct(cmd); err != nil {
		return err
	}
	var u *user.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if u, err = s.users.FindByID(ctx, cmd.UserID); err != nil {
			return err
		}
		if err := u.ChangePassword(cmd.OldPassword, cmd.Password, s.cfg.BCryptCost); err != nil {
			return err
		}
		return s.users.Update(ctx, u)
	})
	if err != nil {
		return s.mapError(err, "change password")
	}
	s.publish(ctx, u.Events())
	return nil
}

// RequestPasswordReset mails a reset link when the address belongs to a
// user. Unknown addresses succeed silently.
func (s *UserService) RequestPasswordReset(ctx context.Context, cmd inbound.ResetRequestCommand) error {
	if err := s.validate.Struct(cmd); err != nil {
		return err
	}
	u, err := s.users.FindByEmail(ctx, cmd.Email)
	if err != nil {
		if stderrors.Is(err, user.ErrUserNotFound) {
			s.logger.Debug("Password reset for unknown email")
			return nil
		}
		return errors.NewDatabaseError("find user", err)
	}

	token, err := s.tokens.Generate(outbound.TokenReset, u.ID(), s.cfg.ResetTokenTTL)
	if err != nil {
		return errors.Wrap(err, "failed to generate reset token")
	}
	link := token
	if cmd.ResetURL != nil {
		link = cmd.ResetURL(token)
	}

	email, username := u.Email(), u.Username()
	s.sendAsync("reset_password", func(ctx context.Context) error {
		return s.mailer.SendPasswordReset(ctx, email, username, link)
	})
	return nil
}

// ResetPassword sets a new password for the user named by a reset token.
func (s *UserService) ResetPassword(ctx context.Context, cmd inbound.ResetPasswordCommand) (bool, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return false, err
	}
	id, err := s.tokens.Parse(outbound.TokenReset, cmd.Token)
	if err != nil {
		s.logger.Info("Rejected reset token", zap.Error(err))
		return false, nil
	}

	var u *user.User
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if u, err = s.users.FindByID(ctx, id); err != nil {
			return err
		}
		if err := u.SetPassword(cmd.Password, s.cfg.BCryptCost); err != nil {
			return err
		}
		return s.users.Update(ctx, u)
	})
	if stderrors.Is(err, user.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, s.mapError(err, "reset password")
	}
	s.publish(ctx, u.Events())
	return true, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*inbound.UserDTO, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, "find user")
	}
	return toDTO(u), nil
}

// ListUsers pages through users, oldest members first.
func (s *UserService) ListUsers(ctx context.Context, params inbound.PaginationParams) (*inbound.UserList, error) {
	params = params.Normalize(s.cfg.UsersPerPage, 100)
	users, total, err := s.users.List(ctx, outbound.Page{Offset: params.Offset(), Limit: params.PageSize})
	if err != nil {
		return nil, errors.NewDatabaseError("list users", err)
	}
	list := &inbound.UserList{
		Users:      make([]inbound.UserDTO, 0, len(users)),
		Pagination: inbound.NewPagination(params, total),
	}
	for _, u := range users {
		list.Users = append(list.Users, *toDTO(u))
	}
	return list, nil
}

// InsertRoles creates the builtin roles or resets their permissions.
// Running it twice leaves the same roles behind.
func (s *UserService) InsertRoles(ctx context.Context) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := s.insertRoles(ctx)
		return err
	})
	if err != nil {
		return s.mapError(err, "insert roles")
	}
	s.logger.Info("Roles inserted")
	return nil
}

func (s *UserService) insertRoles(ctx context.Context) ([]*user.Role, error) {
	defs := user.BuiltinRoles()
	roles := make([]*user.Role, 0, len(defs))
	for _, def := range defs {
		role, err := s.roles.FindByName(ctx, def.Name)
		if stderrors.Is(err, user.ErrRoleNotFound) {
			role, err = user.NewRole(def.Name)
		}
		if err != nil {
			return nil, err
		}
		role.ApplyDefinition(def)
		if err := s.roles.Save(ctx, role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (s *UserService) ListRoles(ctx context.Context) ([]inbound.RoleDTO, error) {
	roles, err := s.roles.FindAll(ctx)
	if err != nil {
		return nil, errors.NewDatabaseError("list roles", err)
	}
	out := make([]inbound.RoleDTO, 0, len(roles))
	for _, r := range roles {
		out = append(out, inbound.RoleDTO{
			ID:          r.ID(),
			Name:        r.Name(),
			Default:     r.IsDefault(),
			Permissions: r.Permissions(),
		})
	}
	return out, nil
}

// SetRole gives the user with cmd.Email the named role. Role names match
// case-insensitively.
func (s *UserService) SetRole(ctx context.Context, cmd inbound.SetRoleCommand) (*inbound.UserDTO, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}
	var u *user.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if u, err = s.users.FindByEmail(ctx, cmd.Email); err != nil {
			return err
		}
		roles, err := s.roles.FindAll(ctx)
		if err != nil {
			return err
		}
		if err := u.SetRole(cmd.Role, roles); err != nil {
			if stderrors.Is(err, user.ErrUnknownRole) {
				return errors.NewUnknownRoleError(cmd.Role, user.RoleNames(roles))
			}
			return err
		}
		return s.users.Update(ctx, u)
	})
	if err != nil {
		return nil, s.mapError(err, "set role")
	}
	s.publish(ctx, u.Events())
	s.logger.Info("Role changed", zap.String("user_id", u.ID().String()), zap.String("role", u.Role().Name()))
	return toDTO(u), nil
}

// Wait blocks until queued emails have been handed to the mailer.
func (s *UserService) Wait() {
	s.mail.Wait()
}

// ensureAvailable fails when email or username belongs to a user other
// than self. Empty values are not checked.
func (s *UserService) ensureAvailable(ctx context.Context, self uuid.UUID, email, username string) error {
	if email != "" {
		existing, err := s.users.FindByEmail(ctx, email)
		switch {
		case err == nil && existing.ID() != self:
			return user.ErrEmailTaken
		case err != nil && !stderrors.Is(err, user.ErrUserNotFound):
			return err
		}
	}
	if username != "" {
		existing, err := s.users.FindByUsername(ctx, username)
		switch {
		case err == nil && existing.ID() != self:
			return user.ErrUsernameTaken
		case err != nil && !stderrors.Is(err, user.ErrUserNotFound):
			return err
		}
	}
	return nil
}

// loadRoles returns the stored roles, inserting the builtin ones on an
// empty database.
func (s *UserService) loadRoles(ctx context.Context) ([]*user.Role, error) {
	roles, err := s.roles.FindAll(ctx)
	if err != nil || len(roles) > 0 {
		return roles, err
	}
	s.logger.Warn("No roles found, inserting builtin roles")
	return s.insertRoles(ctx)
}

func (s *UserService) sendAsync(kind string, send func(ctx context.Context) error) {
	s.mail.Add(1)
	go func() {
		defer s.mail.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.EmailTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			s.logger.Error("Failed to send email", zap.String("kind", kind), zap.Error(err))
		}
	}()
}

func (s *UserService) publish(ctx context.Context, events []shared.DomainEvent) {
	if len(events) > 0 {
		s.events.Publish(ctx, events...)
	}
}

func (s *UserService) mapError(err error, operation string) error {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}
	switch {
	case stderrors.Is(err, user.ErrUserNotFound):
		return errors.NewNotFoundError("user").WithCause(err)
	case stderrors.Is(err, user.ErrEmailTaken):
		return errors.NewEmailAlreadyExistsError("").WithCause(err)
	case stderrors.Is(err, user.ErrUsernameTaken):
		return errors.NewUsernameAlreadyExistsError("").WithCause(err)
	case stderrors.Is(err, user.ErrWrongPassword):
		return errors.NewBadRequestError("Invalid password.").WithCause(err)
	case stderrors.Is(err, user.ErrEmailRequired), stderrors.Is(err, user.ErrInvalidEmail),
		stderrors.Is(err, user.ErrEmailTooLong), stderrors.Is(err, user.ErrUsernameRequired),
		stderrors.Is(err, user.ErrUsernameTooLong), stderrors.Is(err, user.ErrPasswordRequired),
		stderrors.Is(err, user.ErrPasswordTooLong), stderrors.Is(err, user.ErrUnknownRole):
		return errors.NewValidationError(err.Error()).WithCause(err)
	}
	s.logger.Error("Database operation failed", zap.String("operation", operation), zap.Error(err))
	return errors.NewDatabaseError(operation, err)
}

func toDTO(u *user.User) *inbound.UserDTO {
	dto := &inbound.UserDTO{
		ID:          u.ID(),
		Email:       u.Email(),
		Username:    u.Username(),
		AvatarHash:  u.AvatarHash(),
		MemberSince: u.MemberSince(),
	}
	if role := u.Role(); role != nil {
		dto.Role = role.Name()
		dto.Permissions = role.Permissions()
	}
	return dto
}
