// Package seed fills a development database with fake users and recipes.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/domain/user"
	"github.com/tymenu/tymenu/internal/ports/outbound"
)

// Password is the password of every generated user.
const Password = "password"

// maxAttempts bounds retries after uniqueness collisions.
const maxAttempts = 10

// ErrNoRoles is returned when users are generated before the roles exist.
var ErrNoRoles = errors.New("no roles found, run insert-roles first")

// Seeder generates fake data through the repositories.
type Seeder struct {
	users   outbound.UserRepository
	roles   outbound.RoleRepository
	recipes outbound.RecipeRepository
	faker   *gofakeit.Faker
	cost    int
	logger  *zap.Logger
}

// New creates a seeder. A zero seed picks a random one.
func New(users outbound.UserRepository, roles outbound.RoleRepository, recipes outbound.RecipeRepository,
	bcryptCost int, seed int64, logger *zap.Logger) *Seeder {
	return &Seeder{
		users:   users,
		roles:   roles,
		recipes: recipes,
		faker:   gofakeit.New(seed),
		cost:    bcryptCost,
		logger:  logger.Named("seed"),
	}
}

// Users creates count users with the default role. Generated emails or
// usernames that collide are drawn again.
func (s *Seeder) Users(ctx context.Context, count int) ([]*user.User, error) {
	roles, err := s.roles.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	if len(roles) == 0 {
		return nil, ErrNoRoles
	}

	created := make([]*user.User, 0, count)
	misses := 0
	for len(created) < count {
		u, err := user.NewUser(s.faker.Email(), s.username(), Password, s.cost)
		if err != nil {
			return created, err
		}
		if err := u.AssignRole(roles, ""); err != nil {
			return created, err
		}
		u.ClearEvents()

		err = s.users.Create(ctx, u)
		switch {
		case err == nil:
			created = append(created, u)
			misses = 0
		case errors.Is(err, user.ErrEmailTaken), errors.Is(err, user.ErrUsernameTaken):
			misses++
			if misses >= maxAttempts {
				return created, fmt.Errorf("gave up after %d collisions: %w", misses, err)
			}
		default:
			return created, fmt.Errorf("failed to create user: %w", err)
		}
	}
	s.logger.Info("Generated users", zap.Int("count", len(created)))
	return created, nil
}

// Recipes creates count recipes, each written by a random existing user.
func (s *Seeder) Recipes(ctx context.Context, count int) ([]*recipe.Recipe, error) {
	authors, _, err := s.users.List(ctx, outbound.Page{Offset: 0, Limit: 1000})
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	if len(authors) == 0 {
		return nil, errors.New("no users found, generate users first")
	}

	created := make([]*recipe.Recipe, 0, count)
	misses := 0
	for len(created) < count {
		author := authors[s.faker.Number(0, len(authors)-1)]
		rec, err := recipe.NewRecipe(author.ID(), s.content())
		if err != nil {
			return created, err
		}
		rec.ClearEvents()

		err = s.recipes.Create(ctx, rec)
		switch {
		case err == nil:
			created = append(created, rec)
			misses = 0
		case errors.Is(err, recipe.ErrTitleTaken):
			misses++
			if misses >= maxAttempts {
				return created, fmt.Errorf("gave up after %d collisions: %w", misses, err)
			}
		default:
			return created, fmt.Errorf("failed to create recipe: %w", err)
		}
	}
	s.logger.Info("Generated recipes", zap.Int("count", len(created)))
	return created, nil
}

func (s *Seeder) username() string {
	var b strings.Builder
	for _, c := range strings.ToLower(s.faker.Username()) {
		if c >= 'a' && c <= 'z' || c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return fmt.Sprintf("%s%d", b.String(), s.faker.Number(1, 9999))
}

func (s *Seeder) content() recipe.Content {
	f := s.faker
	ingredients := make([]string, f.Number(2, 8))
	for i := range ingredients {
		ingredients[i] = fmt.Sprintf("%d g %s", f.Number(10, 500), f.Noun())
	}
	kcal := float64(f.Number(150, 1200))
	protein := float64(f.Number(1, 80))
	carbs := float64(f.Number(1, 150))
	fat := float64(f.Number(1, 70))
	minutes := float64(f.Number(5, 240))

	title := fmt.Sprintf("%s %s", f.Adjective(), f.Noun())
	if len(title) > 50 {
		title = title[:50]
	}
	return recipe.Content{
		Title:          strings.TrimSpace(fmt.Sprintf("%s %d", title, f.Number(1, 99999))),
		Ingredients:    strings.Join(ingredients, "\n"),
		Instructions:   f.Paragraph(2, 3, 10, "\n\n"),
		Background:     f.Sentence(12),
		Keywords:       strings.Join([]string{f.Noun(), f.Adjective(), f.Noun()}, ", "),
		Source:         f.URL(),
		Servings:       f.Number(1, 8),
		Kcal:           &kcal,
		KcalType:       recipe.KcalTypePerPerson,
		ProteinGram:    &protein,
		CarbGram:       &carbs,
		FatGram:        &fat,
		CookingTimeMin: &minutes,
	}
}
