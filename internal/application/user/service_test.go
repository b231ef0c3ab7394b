package user

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tymenu/tymenu/internal/domain/user"
	"github.com/tymenu/tymenu/internal/infrastructure/security"
	"github.com/tymenu/tymenu/internal/ports/inbound"
	"github.com/tymenu/tymenu/pkg/errors"
	"github.com/tymenu/tymenu/pkg/validation"
	"github.com/tymenu/tymenu/test/testutils"
)

type UserServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	repos     *testutils.Repositories
	mailer    *testutils.MockEmailService
	publisher *testutils.RecordingPublisher
	service   *UserService
}

func (s *UserServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repos = testutils.NewRepositories(testutils.NewSQLiteDB(s.T()))
	s.mailer = new(testutils.MockEmailService)
	s.publisher = new(testutils.RecordingPublisher)
	s.service = NewUserService(
		s.repos.Users,
		s.repos.Roles,
		s.repos.Transactor,
		security.NewTokenService("test-secret", 10*time.Second),
		s.mailer,
		s.publisher,
		validation.New(),
		Config{AdminEmail: "Admin@Example.com", BCryptCost: bcrypt.MinCost, UsersPerPage: 2},
		zap.NewNop(),
	)
}

func (s *UserServiceTestSuite) register(email, username string) *inbound.UserDTO {
	s.mailer.On("SendWelcome", mock.Anything, strings.ToLower(email), username).Return(nil).Once()
	dto, err := s.service.Register(s.ctx, inbound.RegisterCommand{
		Email:           email,
		Username:        username,
		Password:        testutils.Password,
		PasswordConfirm: testutils.Password,
	})
	s.Require().NoError(err)
	s.service.Wait()
	return dto
}

func (s *UserServiceTestSuite) TestRegisterAssignsRoles() {
	// Arrange / Act
	admin := s.register("admin@example.com", "admin")
	john := s.register("john@example.com", "john")

	// Assert
	s.Equal(user.RoleAdministrator, admin.Role)
	s.True(admin.IsAdministrator())
	s.Equal(user.RoleUser, john.Role)
	s.False(john.IsModerator())
	s.True(john.Can(user.PermissionWrite))
	s.mailer.AssertExpectations(s.T())
	s.Contains(s.publisher.Names(), "user.registered")

	roles, err := s.service.ListRoles(s.ctx)
	s.Require().NoError(err)
	s.Len(roles, 3)
}

func (s *UserServiceTestSuite) TestRegisterConflicts() {
	s.register("john@example.com", "john")

	_, err := s.service.Register(s.ctx, inbound.RegisterCommand{
		Email: "JOHN@example.com", Username: "other", Password: "x", PasswordConfirm: "x",
	})
	testutils.RequireAppError(s.T(), err, errors.CodeEmailAlreadyExists)

	_, err = s.service.Register(s.ctx, inbound.RegisterCommand{
		Email: "other@example.com", Username: "john", Password: "x", PasswordConfirm: "x",
	})
	testutils.RequireAppError(s.T(), err, errors.CodeUsernameAlreadyExists)
}

func (s *UserServiceTestSuite) TestRegisterValidation() {
	cases := map[string]inbound.RegisterCommand{
		"bad username":  {Email: "a@example.com", Username: "1abc", Password: "x", PasswordConfirm: "x"},
		"bad email":     {Email: "nope", Username: "abc", Password: "x", PasswordConfirm: "x"},
		"mismatch":      {Email: "a@example.com", Username: "abc", Password: "x", PasswordConfirm: "y"},
		"long password": {Email: "a@example.com", Username: "abc", Password: strings.Repeat("x", 73), PasswordConfirm: strings.Repeat("x", 73)},
	}
	for name, cmd := range cases {
		_, err := s.service.Register(s.ctx, cmd)
		testutils.RequireAppError(s.T(), err, errors.CodeValidationFailed, name)
	}
}

func (s *UserServiceTestSuite) TestAuthenticate() {
	s.register("john@example.com", "john")

	dto, err := s.service.Authenticate(s.ctx, inbound.LoginCommand{Email: "John@Example.com", Password: testutils.Password})
	s.Require().NoError(err)
	s.Equal("john", dto.Username)

	_, err = s.service.Authenticate(s.ctx, inbound.LoginCommand{Email: "john@example.com", Password: "wrong"})
	testutils.RequireAppError(s.T(), err, errors.CodeInvalidCredentials)

	_, err = s.service.Authenticate(s.ctx, inbound.LoginCommand{Email: "ghost@example.com", Password: "wrong"})
	testutils.RequireAppError(s.T(), err, errors.CodeInvalidCredentials)
}

func (s *UserServiceTestSuite) TestChangeUsername() {
	john := s.register("john@example.com", "john")
	susan := s.register("susan@example.com", "susan")

	_, err := s.service.ChangeUsername(s.ctx, inbound.ChangeUsernameCommand{ActorID: susan.ID, UserID: john.ID, Username: "bob"})
	testutils.RequireAppError(s.T(), err, errors.CodeInsufficientPermissions)

	_, err = s.service.ChangeUsername(s.ctx, inbound.ChangeUsernameCommand{ActorID: john.ID, UserID: john.ID, Username: "susan"})
	appErr := testutils.RequireAppError(s.T(), err, errors.CodeUsernameAlreadyExists)
	s.Equal("Username already exists.", appErr.Message)

	dto, err := s.service.ChangeUsername(s.ctx, inbound.ChangeUsernameCommand{ActorID: john.ID, UserID: john.ID, Username: "johnny"})
	s.Require().NoError(err)
	s.Equal("johnny", dto.Username)

	// Keeping the current name is not a conflict with oneself.
	_, err = s.service.ChangeUsername(s.ctx, inbound.ChangeUsernameCommand{ActorID: john.ID, UserID: john.ID, Username: "johnny"})
	s.NoError(err)
}

func (s *UserServiceTestSuite) TestChangePassword() {
	john := s.register("john@example.com", "john")

	err := s.service.ChangePassword(s.ctx, inbound.ChangePasswordCommand{
		UserID: john.ID, OldPassword: "wrong", Password: "new", PasswordConfirm: "new",
	})
	appErr := testutils.RequireAppError(s.T(), err, errors.CodeBadRequest)
	s.Equal("Invalid password.", appErr.Message)

	s.Require().NoError(s.service.ChangePassword(s.ctx, inbound.ChangePasswordCommand{
		UserID: john.ID, OldPassword: testutils.Password, Password: "new", PasswordConfirm: "new",
	}))
	_, err = s.service.Authenticate(s.ctx, inbound.LoginCommand{Email: "john@example.com", Password: "new"})
	s.NoError(err)
}

func (s *UserServiceTestSuite) TestPasswordResetFlow() {
	// Arrange
	s.register("john@example.com", "john")
	var link string
	s.mailer.On("SendPasswordReset", mock.Anything, "john@example.com", "john", mock.Anything).
		Run(func(args mock.Arguments) { link = args.String(3) }).
		Return(nil).Once()

	// Act
	err := s.service.RequestPasswordReset(s.ctx, inbound.ResetRequestCommand{
		Email:    "john@example.com",
		ResetURL: func(token string) string { return "http://localhost/auth/reset/" + token },
	})
	s.Require().NoError(err)
	s.service.Wait()

	// Assert
	s.Require().True(strings.HasPrefix(link, "http://localhost/auth/reset/"))
	token := strings.TrimPrefix(link, "http://localhost/auth/reset/")

	ok, err := s.service.ResetPassword(s.ctx, inbound.ResetPasswordCommand{Token: token, Password: "fresh", PasswordConfirm: "fresh"})
	s.Require().NoError(err)
	s.True(ok)

	_, err = s.service.Authenticate(s.ctx, inbound.LoginCommand{Email: "john@example.com", Password: "fresh"})
	s.NoError(err)

	ok, err = s.service.ResetPassword(s.ctx, inbound.ResetPasswordCommand{Token: token + "x", Password: "a", PasswordConfirm: "a"})
	s.NoError(err)
	s.False(ok)
}

func (s *UserServiceTestSuite) TestPasswordResetUnknownEmailIsSilent() {
	err := s.service.RequestPasswordReset(s.ctx, inbound.ResetRequestCommand{Email: "ghost@example.com"})
	s.NoError(err)
	s.service.Wait()
	s.mailer.AssertNotCalled(s.T(), "SendPasswordReset", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *UserServiceTestSuite) TestInsertRolesIsIdempotent() {
	s.Require().NoError(s.service.InsertRoles(s.ctx))
	s.Require().NoError(s.service.InsertRoles(s.ctx))

	roles, err := s.service.ListRoles(s.ctx)
	s.Require().NoError(err)
	s.Len(roles, 3)

	defaults := 0
	for _, r := range roles {
		if r.Default {
			defaults++
			s.Equal(user.RoleUser, r.Name)
		}
		if r.Name == user.RoleModerator {
			s.Equal(user.PermissionFollow|user.PermissionComment|user.PermissionWrite|user.PermissionModerate, r.Permissions)
		}
	}
	s.Equal(1, defaults)
}

func (s *UserServiceTestSuite) TestSetRole() {
	s.register("john@example.com", "john")

	dto, err := s.service.SetRole(s.ctx, inbound.SetRoleCommand{Email: "john@example.com", Role: "moderator"})
	s.Require().NoError(err)
	s.Equal(user.RoleModerator, dto.Role)
	s.True(dto.IsModerator())

	_, err = s.service.SetRole(s.ctx, inbound.SetRoleCommand{Email: "john@example.com", Role: "chef"})
	appErr := testutils.RequireAppError(s.T(), err, errors.CodeUnknownRole)
	s.Contains(appErr.Details, "Administrator")

	_, err = s.service.SetRole(s.ctx, inbound.SetRoleCommand{Email: "ghost@example.com", Role: "User"})
	testutils.RequireAppError(s.T(), err, errors.CodeNotFound)
}

func (s *UserServiceTestSuite) TestListUsersOldestFirst() {
	for _, name := range []string{"anna", "bert", "carl"} {
		s.register(name+"@example.com", name)
	}

	page, err := s.service.ListUsers(s.ctx, inbound.PaginationParams{Page: 1})
	s.Require().NoError(err)
	s.Require().Len(page.Users, 2)
	s.Equal("anna", page.Users[0].Username)
	s.Equal(int64(3), page.Pagination.Total)
	s.Equal(2, page.Pagination.TotalPages)

	page, err = s.service.ListUsers(s.ctx, inbound.PaginationParams{Page: 2})
	s.Require().NoError(err)
	s.Require().Len(page.Users, 1)
	s.Equal("carl", page.Users[0].Username)
}

func TestUserServiceTestSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}
