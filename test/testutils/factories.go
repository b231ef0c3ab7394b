// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/domain/user"
	"github.com/tymenu/tymenu/internal/ports/inbound"
)

// Password is the password of every factory user.
const Password = "cat-dog-42"

// UserBuilder provides a fluent interface for building test users
type UserBuilder struct {
	email    string
	username string
	role     *user.Role
}

// NewUserBuilder creates a user with a random email and username.
func NewUserBuilder() *UserBuilder {
	name := gofakeit.Username()
	return &UserBuilder{
		email:    strings.ToLower(fmt.Sprintf("%s.%d@example.com", name, gofakeit.Number(1000, 9999))),
		username: fmt.Sprintf("u%s%d", sanitizeUsername(name), gofakeit.Number(1000, 9999)),
	}
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.username = username
	return b
}

// WithRole builds a role from a builtin definition.
func (b *UserBuilder) WithRole(name string) *UserBuilder {
	for _, def := range user.BuiltinRoles() {
		if def.Name == name {
			role, _ := user.NewRole(def.Name)
			role.ApplyDefinition(def)
			b.role = role
		}
	}
	return b
}

// WithStoredRole uses an already persisted role.
func (b *UserBuilder) WithStoredRole(role *user.Role) *UserBuilder {
	b.role = role
	return b
}

func (b *UserBuilder) Build(t *testing.T) *user.User {
	t.Helper()
	u, err := user.NewUser(b.email, b.username, Password, bcrypt.MinCost)
	require.NoError(t, err)
	if b.role != nil {
		require.NoError(t, u.SetRole(b.role.Name(), []*user.Role{b.role}))
	}
	u.ClearEvents()
	return u
}

// RecipeInput returns a valid random recipe form.
func RecipeInput() inbound.RecipeInput {
	kcal := gofakeit.Float64Range(100, 900)
	protein := float64(gofakeit.Number(1, 60))
	minutes := float64(gofakeit.Number(5, 180))
	ingredients := make([]string, gofakeit.Number(2, 7))
	for i := range ingredients {
		ingredients[i] = fmt.Sprintf("%d g %s", gofakeit.Number(10, 500), gofakeit.Noun())
	}
	return inbound.RecipeInput{
		Title:          fmt.Sprintf("%s %s %d", gofakeit.Adjective(), gofakeit.Noun(), gofakeit.Number(1, 1_000_000)),
		Ingredients:    strings.Join(ingredients, "\n"),
		Instructions:   gofakeit.Paragraph(1, 3, 12, "\n\n"),
		Background:     gofakeit.Sentence(10),
		Keywords:       strings.Join([]string{gofakeit.Noun(), gofakeit.Adjective()}, ", "),
		Source:         gofakeit.URL(),
		Servings:       gofakeit.Number(1, 8),
		KcalType:       int(recipe.KcalTypePerPerson),
		Kcal:           &kcal,
		ProteinGram:    &protein,
		CookingTimeMin: &minutes,
	}
}

// NewRecipe builds a random recipe written by authorID.
func NewRecipe(t *testing.T, authorID uuid.UUID) *recipe.Recipe {
	t.Helper()
	r, err := recipe.NewRecipe(authorID, RecipeInput().Content())
	require.NoError(t, err)
	r.ClearEvents()
	return r
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
