package gorm

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/domain/user"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestUser(t *testing.T, name string) *user.User {
	t.Helper()
	u, err := user.NewUser(name+"@example.com", name, "secret", bcrypt.MinCost)
	require.NoError(t, err)
	return u
}

var recipeClock = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// newTestRecipe builds recipes with increasing creation times so that
// newest-first ordering is deterministic.
func newTestRecipe(authorID uuid.UUID, title, ingredients, keywords string) *recipe.Recipe {
	recipeClock = recipeClock.Add(time.Minute)
	return recipe.FromSnapshot(recipe.Snapshot{
		ID:       uuid.New(),
		AuthorID: authorID,
		Content: recipe.Content{
			Title:        title,
			Ingredients:  ingredients,
			Instructions: fmt.Sprintf("Cook the %s.", title),
			Keywords:     keywords,
			Servings:     2,
			KcalType:     recipe.KcalTypePerPerson,
		},
		CreatedAt: recipeClock,
	})
}

func titles(recipes []*recipe.Recipe) []string {
	out := make([]string, len(recipes))
	for i, r := range recipes {
		out[i] = r.Title()
	}
	return out
}
