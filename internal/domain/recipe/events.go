package recipe

import (
	"time"

	"github.com/google/uuid"
)

// RecipeCreatedEvent is raised when a new recipe is created
type RecipeCreatedEvent struct {
	RecipeID  uuid.UUID
	AuthorID  uuid.UUID
	Title     string
	CreatedAt time.Time
}

func (e RecipeCreatedEvent) EventName() string {
	return "recipe.created"
}

func (e RecipeCreatedEvent) OccurredAt() time.Time {
	return e.CreatedAt
}

// RecipeUpdatedEvent is raised when the editable content of a recipe changes
type RecipeUpdatedEvent struct {
	RecipeID  uuid.UUID
	OldTitle  string
	NewTitle  string
	UpdatedAt time.Time
}

func (e RecipeUpdatedEvent) EventName() string {
	return "recipe.updated"
}

func (e RecipeUpdatedEvent) OccurredAt() time.Time {
	return e.UpdatedAt
}

// RecipeImageChangedEvent is raised when an image is attached or removed
type RecipeImageChangedEvent struct {
	RecipeID  uuid.UUID
	Removed   bool
	ChangedAt time.Time
}

func (e RecipeImageChangedEvent) EventName() string {
	return "recipe.image.changed"
}

func (e RecipeImageChangedEvent) OccurredAt() time.Time {
	return e.ChangedAt
}
