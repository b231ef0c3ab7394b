package plan

import (
	"time"

	"github.com/google/uuid"
)

// PlanCreatedEvent is raised when a menu plan is created
type PlanCreatedEvent struct {
	PlanID    uuid.UUID
	AddedByID uuid.UUID
	CreatedAt time.Time
}

func (e PlanCreatedEvent) EventName() string     { return "plan.created" }
func (e PlanCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// RecipeAddedEvent is raised when a recipe is placed on a plan day
type RecipeAddedEvent struct {
	PlanID   uuid.UUID
	ItemID   uuid.UUID
	RecipeID uuid.UUID
	Day      int
	AddedAt  time.Time
}

func (e RecipeAddedEvent) EventName() string     { return "plan.recipe.added" }
func (e RecipeAddedEvent) OccurredAt() time.Time { return e.AddedAt }

// PlanScheduledEvent is raised when a plan is put on the calendar
type PlanScheduledEvent struct {
	PlanID      uuid.UUID
	InstanceID  uuid.UUID
	Date        time.Time
	ScheduledAt time.Time
}

func (e PlanScheduledEvent) EventName() string     { return "plan.scheduled" }
func (e PlanScheduledEvent) OccurredAt() time.Time { return e.ScheduledAt }
