//go:build integration

// Package integration runs the application services against PostgreSQL
// with the versioned schema applied.
package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	appplan "github.com/tymenu/tymenu/internal/application/plan"
	apprecipe "github.com/tymenu/tymenu/internal/application/recipe"
	appuser "github.com/tymenu/tymenu/internal/application/user"
	"github.com/tymenu/tymenu/internal/infrastructure/persistence/memory"
	"github.com/tymenu/tymenu/internal/infrastructure/security"
	"github.com/tymenu/tymenu/internal/ports/inbound"
	"github.com/tymenu/tymenu/pkg/errors"
	"github.com/tymenu/tymenu/pkg/validation"
	"github.com/tymenu/tymenu/test/testutils"
)

type PostgresTestSuite struct {
	suite.Suite
	pg      *testutils.TestPostgres
	ctx     context.Context
	cache   *memory.CacheRepository
	users   *appuser.UserService
	recipes *apprecipe.RecipeService
	plans   *appplan.PlanService
}

func (s *PostgresTestSuite) SetupSuite() {
	s.pg = testutils.SetupPostgres(s.T(), testutils.DefaultPostgresConfig())
}

func (s *PostgresTestSuite) SetupTest() {
	s.pg.Truncate(s.T())
	s.ctx = context.Background()
	s.cache = memory.NewCacheRepository(0)

	repos := testutils.NewRepositories(s.pg.DB)
	mailer := new(testutils.MockEmailService)
	mailer.On("SendWelcome", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	s.users = appuser.NewUserService(repos.Users, repos.Roles, repos.Transactor,
		security.NewTokenService("integration", time.Second), mailer, nil, validation.New(),
		appuser.Config{AdminEmail: "admin@example.com", BCryptCost: bcrypt.MinCost}, zap.NewNop())
	s.recipes = apprecipe.NewRecipeService(repos.Recipes, repos.Users, new(testutils.MockImageHost), s.cache,
		repos.Transactor, nil, validation.New(), 10, zap.NewNop())
	s.plans = appplan.NewPlanService(repos.Plans, repos.Recipes, repos.Users, repos.Transactor,
		nil, validation.New(), zap.NewNop())

	s.Require().NoError(s.users.InsertRoles(s.ctx))
}

func (s *PostgresTestSuite) TearDownTest() {
	s.users.Wait()
	s.cache.Close()
}

func (s *PostgresTestSuite) register(email, username string) *inbound.UserDTO {
	u, err := s.users.Register(s.ctx, inbound.RegisterCommand{
		Email: email, Username: username, Password: testutils.Password, PasswordConfirm: testutils.Password,
	})
	s.Require().NoError(err)
	return u
}

func (s *PostgresTestSuite) recipe(authorID *inbound.UserDTO, title, ingredients, keywords string) *inbound.RecipeDTO {
	input := testutils.RecipeInput()
	input.Title = title
	input.Ingredients = ingredients
	input.Keywords = keywords
	rec, err := s.recipes.CreateRecipe(s.ctx, inbound.CreateRecipeCommand{AuthorID: authorID.ID, RecipeInput: input})
	s.Require().NoError(err)
	return rec
}

func (s *PostgresTestSuite) TestRegistrationConflictsAreCaseInsensitive() {
	s.register("jane@example.com", "jane")

	_, err := s.users.Register(s.ctx, inbound.RegisterCommand{
		Email: "JANE@example.com", Username: "other", Password: testutils.Password, PasswordConfirm: testutils.Password,
	})
	testutils.RequireAppError(s.T(), err, errors.CodeEmailAlreadyExists)

	_, err = s.users.Register(s.ctx, inbound.RegisterCommand{
		Email: "other@example.com", Username: "jane", Password: testutils.Password, PasswordConfirm: testutils.Password,
	})
	testutils.RequireAppError(s.T(), err, errors.CodeUsernameAlreadyExists)
}

func (s *PostgresTestSuite) TestSearchOperations() {
	admin := s.register("admin@example.com", "admin")
	s.recipe(admin, "Leek Soup", "2 leeks\n1 l Water", "soup, vegan")
	s.recipe(admin, "Pasta al Limone", "pasta\nlemon\nbutter", "pasta, quick")
	s.recipe(admin, "Lemon Soup", "lemon\nwater\nrice", "soup")

	found, err := s.recipes.Search(s.ctx, inbound.SearchQuery{Title: "SOUP", Ingredients: "water"})
	s.Require().NoError(err)
	s.Len(found, 2)

	found, err = s.recipes.SearchIngredients(s.ctx, inbound.TokenSearchQuery{Tokens: []string{"leek", "butter"}, Operation: "or"})
	s.Require().NoError(err)
	s.Len(found, 2)

	found, err = s.recipes.SearchKeywords(s.ctx, inbound.TokenSearchQuery{Tokens: []string{"soup"}, Operation: "not"})
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("Pasta al Limone", found[0].Title)

	found, err = s.recipes.SearchIngredients(s.ctx, inbound.TokenSearchQuery{Tokens: []string{"lemon"}, Exclude: true})
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("Leek Soup", found[0].Title)

	list, err := s.recipes.SimpleSearch(s.ctx, "limone", inbound.PaginationParams{Page: 1})
	s.Require().NoError(err)
	s.EqualValues(1, list.Pagination.Total)
}

func (s *PostgresTestSuite) TestTitleConflict() {
	admin := s.register("admin@example.com", "admin")
	s.recipe(admin, "Leek Soup", "leek", "soup")

	input := testutils.RecipeInput()
	input.Title = "Leek Soup"
	_, err := s.recipes.CreateRecipe(s.ctx, inbound.CreateRecipeCommand{AuthorID: admin.ID, RecipeInput: input})

	testutils.RequireAppError(s.T(), err, errors.CodeTitleAlreadyExists)
	testutils.AssertStatus(s.T(), err, http.StatusConflict)
}

func (s *PostgresTestSuite) TestPlanLifecycle() {
	admin := s.register("admin@example.com", "admin")
	soup := s.recipe(admin, "Leek Soup", "leek", "soup")

	p, err := s.plans.CreatePlan(s.ctx, inbound.CreatePlanCommand{ActorID: admin.ID, Title: "Week"})
	s.Require().NoError(err)
	_, err = s.plans.AddRecipe(s.ctx, inbound.AddPlanRecipeCommand{
		ActorID: admin.ID, PlanID: p.ID, RecipeID: soup.ID, Day: 0, DaysLeftover: 2,
	})
	s.Require().NoError(err)

	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	_, err = s.plans.Schedule(s.ctx, inbound.ScheduleCommand{
		ActorID: admin.ID, PlanID: p.ID, Date: monday.AddDate(0, 0, 2), FirstDay: inbound.FirstDayMonday,
	})
	s.Require().NoError(err)

	cal, err := s.plans.Calendar(s.ctx, inbound.CalendarQuery{From: monday, Days: 7})
	s.Require().NoError(err)
	s.Require().Len(cal.Days, 7)
	s.Len(cal.Days[0].Meals, 1)
	s.False(cal.Days[0].Meals[0].Leftover)
	s.Len(cal.Days[2].Meals, 1)
	s.True(cal.Days[2].Meals[0].Leftover)
	s.Empty(cal.Days[3].Meals)

	s.Require().NoError(s.plans.DeletePlan(s.ctx, p.ID, admin.ID))
	var orphans int64
	s.Require().NoError(s.pg.DB.Table("menu_plan_items").Count(&orphans).Error)
	s.Zero(orphans)
	s.Require().NoError(s.pg.DB.Table("menu_plan_instances").Count(&orphans).Error)
	s.Zero(orphans)

	_, err = s.recipes.GetRecipe(s.ctx, soup.ID)
	s.NoError(err)
}

func (s *PostgresTestSuite) TestRecipeDelete() {
	admin := s.register("admin@example.com", "admin")
	soup := s.recipe(admin, "Leek Soup", "leek", "soup")

	s.Require().NoError(s.recipes.DeleteRecipe(s.ctx, soup.ID, admin.ID))

	_, err := s.recipes.GetRecipe(s.ctx, soup.ID)
	testutils.RequireAppError(s.T(), err, errors.CodeRecipeNotFound)
}

func TestPostgresTestSuite(t *testing.T) {
	suite.Run(t, new(PostgresTestSuite))
}
