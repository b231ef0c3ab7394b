package gorm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/tymenu/tymenu/internal/domain/plan"
	"github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/domain/user"
	"github.com/tymenu/tymenu/internal/ports/outbound"
)

func pageOf(offset, limit int) outbound.Page {
	return outbound.Page{Offset: offset, Limit: limit}
}

type RepositoryTestSuite struct {
	suite.Suite
	db      *gorm.DB
	ctx     context.Context
	users   *UserRepository
	roles   *RoleRepository
	recipes *RecipeRepository
	plans   *PlanRepository
	tx      *Transactor
}

func (s *RepositoryTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.ctx = context.Background()
	s.users = NewUserRepository(s.db)
	s.roles = NewRoleRepository(s.db)
	s.recipes = NewRecipeRepository(s.db)
	s.plans = NewPlanRepository(s.db)
	s.tx = NewTransactor(s.db)
}

func (s *RepositoryTestSuite) insertRoles() []*user.Role {
	for _, def := range user.BuiltinRoles() {
		role, err := user.NewRole(def.Name)
		s.Require().NoError(err)
		role.ApplyDefinition(def)
		s.Require().NoError(s.roles.Save(s.ctx, role))
	}
	roles, err := s.roles.FindAll(s.ctx)
	s.Require().NoError(err)
	return roles
}

func (s *RepositoryTestSuite) TestRoleSaveIsUpsert() {
	roles := s.insertRoles()
	s.Require().Len(roles, 3)
	s.Equal([]string{"User", "Moderator", "Administrator"}, user.RoleNames(roles))

	// Saving a fresh role with an existing name updates the stored row.
	again, err := user.NewRole("Moderator")
	s.Require().NoError(err)
	again.AddPermission(user.PermissionFollow)
	s.Require().NoError(s.roles.Save(s.ctx, again))

	stored, err := s.roles.FindByName(s.ctx, "moderator")
	s.Require().NoError(err)
	s.Equal(roles[1].ID(), stored.ID())
	s.Equal(user.PermissionFollow, stored.Permissions())

	def, err := s.roles.FindDefault(s.ctx)
	s.Require().NoError(err)
	s.Equal("User", def.Name())

	_, err = s.roles.FindByName(s.ctx, "nobody")
	s.ErrorIs(err, user.ErrRoleNotFound)
}

func (s *RepositoryTestSuite) TestUserRoundTrip() {
	roles := s.insertRoles()
	u := newTestUser(s.T(), "alice")
	s.Require().NoError(u.AssignRole(roles, "alice@example.com"))
	s.Require().NoError(s.users.Create(s.ctx, u))

	found, err := s.users.FindByEmail(s.ctx, "ALICE@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID(), found.ID())
	s.True(found.VerifyPassword("secret"))
	s.True(found.IsAdministrator())

	_, err = s.users.FindByID(s.ctx, uuid.New())
	s.ErrorIs(err, user.ErrUserNotFound)
}

func (s *RepositoryTestSuite) TestUserUniqueness() {
	s.Require().NoError(s.users.Create(s.ctx, newTestUser(s.T(), "bob")))

	dupEmail, err := user.NewUser("bob@example.com", "robert", "pw", 4)
	s.Require().NoError(err)
	s.ErrorIs(s.users.Create(s.ctx, dupEmail), user.ErrEmailTaken)

	dupName, err := user.NewUser("other@example.com", "bob", "pw", 4)
	s.Require().NoError(err)
	s.ErrorIs(s.users.Create(s.ctx, dupName), user.ErrUsernameTaken)

	carol := newTestUser(s.T(), "carol")
	s.Require().NoError(s.users.Create(s.ctx, carol))
	s.Require().NoError(carol.ChangeUsername("bob"))
	s.ErrorIs(s.users.Update(s.ctx, carol), user.ErrUsernameTaken)
}

func (s *RepositoryTestSuite) TestUserList() {
	for _, name := range []string{"u1", "u2", "u3"} {
		s.Require().NoError(s.users.Create(s.ctx, newTestUser(s.T(), name)))
	}
	users, total, err := s.users.List(s.ctx, pageOf(0, 2))
	s.Require().NoError(err)
	s.EqualValues(3, total)
	s.Len(users, 2)
}

func (s *RepositoryTestSuite) TestRecipeTitleUniqueness() {
	author := newTestUser(s.T(), "chef")
	s.Require().NoError(s.users.Create(s.ctx, author))

	first := newTestRecipe(author.ID(), "Stew", "beef", "dinner")
	s.Require().NoError(s.recipes.Create(s.ctx, first))
	s.ErrorIs(s.recipes.Create(s.ctx, newTestRecipe(author.ID(), "Stew", "lamb", "dinner")), recipe.ErrTitleTaken)

	exists, err := s.recipes.TitleExists(s.ctx, "Stew", first.ID())
	s.Require().NoError(err)
	s.False(exists, "the recipe being edited does not conflict with itself")

	exists, err = s.recipes.TitleExists(s.ctx, "Stew", uuid.Nil)
	s.Require().NoError(err)
	s.True(exists)
}

func (s *RepositoryTestSuite) TestRecipeUpdateAndDelete() {
	author := newTestUser(s.T(), "chef")
	s.Require().NoError(s.users.Create(s.ctx, author))
	r := newTestRecipe(author.ID(), "Stew", "beef", "dinner")
	s.Require().NoError(s.recipes.Create(s.ctx, r))

	c := r.Content()
	c.Ingredients = "- beef\n- carrots"
	s.Require().NoError(r.Update(c))
	r.SetImage(recipe.ImageURLs{Display: "https://img/x.png", Delete: "https://img/del"})
	s.Require().NoError(s.recipes.Update(s.ctx, r))

	found, err := s.recipes.FindByID(s.ctx, r.ID())
	s.Require().NoError(err)
	s.Contains(found.IngredientsHTML(), "<li>carrots</li>")
	s.Equal("https://img/del", found.Image().Delete)
	s.NotNil(found.LastUpdated())

	s.Require().NoError(s.recipes.Delete(s.ctx, r.ID()))
	_, err = s.recipes.FindByID(s.ctx, r.ID())
	s.ErrorIs(err, recipe.ErrRecipeNotFound)
	s.ErrorIs(s.recipes.Delete(s.ctx, r.ID()), recipe.ErrRecipeNotFound)
}

func (s *RepositoryTestSuite) TestPlanCascadeDelete() {
	author := newTestUser(s.T(), "planner")
	s.Require().NoError(s.users.Create(s.ctx, author))
	r := newTestRecipe(author.ID(), "Soup", "water", "dinner")
	s.Require().NoError(s.recipes.Create(s.ctx, r))

	p, err := plan.NewMenuPlan("Week", "", author.ID())
	s.Require().NoError(err)
	s.Require().NoError(s.plans.Create(s.ctx, p))

	item, err := p.AddRecipe(r.ID(), 1, 2)
	s.Require().NoError(err)
	s.Require().NoError(s.plans.AddItem(s.ctx, item))
	inst, err := p.Schedule(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Require().NoError(s.plans.AddInstance(s.ctx, inst))

	loaded, err := s.plans.FindByID(s.ctx, p.ID())
	s.Require().NoError(err)
	s.Require().Len(loaded.Items(), 1)
	s.Equal(2, loaded.Items()[0].DaysLeftover)
	s.Require().Len(loaded.Instances(), 1)

	found, err := s.plans.InstancesBetween(s.ctx, inst.Date, inst.Date.AddDate(0, 0, 7))
	s.Require().NoError(err)
	s.Len(found, 1)

	s.Require().NoError(s.tx.WithinTransaction(s.ctx, func(ctx context.Context) error {
		return s.plans.Delete(ctx, p.ID())
	}))

	var items, instances int64
	s.db.Model(&MenuPlanItemModel{}).Count(&items)
	s.db.Model(&MenuPlanInstanceModel{}).Count(&instances)
	s.Zero(items)
	s.Zero(instances)
	_, err = s.plans.FindByID(s.ctx, p.ID())
	s.ErrorIs(err, plan.ErrPlanNotFound)
}

func (s *RepositoryTestSuite) TestPlanItems() {
	p, err := plan.NewMenuPlan("Week", "", uuid.New())
	s.Require().NoError(err)
	s.Require().NoError(s.plans.Create(s.ctx, p))
	item, _ := p.AddRecipe(uuid.New(), 0, 0)
	s.Require().NoError(s.plans.AddItem(s.ctx, item))

	found, err := s.plans.FindItem(s.ctx, item.ID)
	s.Require().NoError(err)
	s.Equal(p.ID(), found.PlanID)

	s.Require().NoError(s.plans.DeleteItem(s.ctx, item.ID))
	s.ErrorIs(s.plans.DeleteItem(s.ctx, item.ID), plan.ErrItemNotFound)

	s.Require().NoError(p.Rename("Week 2"))
	s.Require().NoError(s.plans.Update(s.ctx, p))
	plans, err := s.plans.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(plans, 1)
	s.Equal("Week 2", plans[0].Title())
}

func (s *RepositoryTestSuite) TestTransactionRollsBack() {
	boom := errors.New("boom")
	err := s.tx.WithinTransaction(s.ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, newTestUser(s.T(), "ghost")); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.users.FindByUsername(s.ctx, "ghost")
	s.ErrorIs(err, user.ErrUserNotFound)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
