// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tymenu/tymenu/internal/domain/plan"
	"github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/domain/user"
)

// Transactor runs fn inside one database transaction. Repositories called
// with the ctx passed to fn join that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Page selects a window of an ordered result set.
type Page struct {
	Offset int
	Limit  int
}

// RecipeRepository defines the interface for recipe persistence.
// Create and Update return recipe.ErrTitleTaken on a duplicate title.
type RecipeRepository interface {
	Create(ctx context.Context, r *recipe.Recipe) error
	Update(ctx context.Context, r *recipe.Recipe) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*recipe.Recipe, error)
	// TitleExists reports whether another recipe than excludeID uses title.
	TitleExists(ctx context.Context, title string, excludeID uuid.UUID) (bool, error)

	// Listing, newest first
	List(ctx context.Context, page Page) ([]*recipe.Recipe, int64, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID, page Page) ([]*recipe.Recipe, int64, error)

	// Search operations, newest first
	SearchText(ctx context.Context, text string, page Page) ([]*recipe.Recipe, int64, error)
	SearchIngredients(ctx context.Context, tokens []string, op recipe.Operation, exclude bool) ([]*recipe.Recipe, error)
	SearchKeywords(ctx context.Context, tokens []string, op recipe.Operation, exclude bool) ([]*recipe.Recipe, error)
	Search(ctx context.Context, criteria recipe.Criteria) ([]*recipe.Recipe, error)
}

// UserRepository defines the interface for user persistence.
// Create and Update return user.ErrEmailTaken or user.ErrUsernameTaken on duplicates.
type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	Update(ctx context.Context, u *user.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	FindByUsername(ctx context.Context, username string) (*user.User, error)
	// List orders by member-since ascending.
	List(ctx context.Context, page Page) ([]*user.User, int64, error)
}

// RoleRepository persists roles.
type RoleRepository interface {
	// Save inserts the role or updates the role with the same name.
	Save(ctx context.Context, role *user.Role) error
	FindAll(ctx context.Context) ([]*user.Role, error)
	FindByName(ctx context.Context, name string) (*user.Role, error)
	FindDefault(ctx context.Context) (*user.Role, error)
}

// PlanRepository persists menu plans with their items and instances.
type PlanRepository interface {
	Create(ctx context.Context, p *plan.MenuPlan) error
	Update(ctx context.Context, p *plan.MenuPlan) error
	// Delete removes the plan together with its items and instances.
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*plan.MenuPlan, error)
	List(ctx context.Context) ([]*plan.MenuPlan, error)

	AddItem(ctx context.Context, item *plan.Item) error
	FindItem(ctx context.Context, itemID uuid.UUID) (*plan.Item, error)
	DeleteItem(ctx context.Context, itemID uuid.UUID) error

	AddInstance(ctx context.Context, inst *plan.Instance) error
	// InstancesBetween returns instances whose date lies in [from, to].
	InstancesBetween(ctx context.Context, from, to time.Time) ([]*plan.Instance, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Increment bumps a counter; ttl applies when the counter is created.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
