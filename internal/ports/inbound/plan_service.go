package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PlanService defines the menu planning use cases
type PlanService interface {
	CreatePlan(ctx context.Context, cmd CreatePlanCommand) (*PlanDTO, error)
	DeletePlan(ctx context.Context, planID, actorID uuid.UUID) error
	AddRecipe(ctx context.Context, cmd AddPlanRecipeCommand) (*PlanItemDTO, error)
	// DeleteItem returns the plan the item belonged to.
	DeleteItem(ctx context.Context, itemID, actorID uuid.UUID) (uuid.UUID, error)
	Schedule(ctx context.Context, cmd ScheduleCommand) (*InstanceDTO, error)

	GetPlan(ctx context.Context, planID uuid.UUID) (*PlanDTO, error)
	ListPlans(ctx context.Context) ([]PlanDTO, error)
	Calendar(ctx context.Context, query CalendarQuery) (*CalendarDTO, error)
}

type CreatePlanCommand struct {
	ActorID     uuid.UUID `validate:"required"`
	Title       string    `form:"title" validate:"required,notblank,max=255"`
	Description string    `form:"description"`
}

type AddPlanRecipeCommand struct {
	ActorID      uuid.UUID `validate:"required"`
	PlanID       uuid.UUID `validate:"required"`
	RecipeID     uuid.UUID `validate:"required"`
	Day          int       `validate:"gte=0"`
	DaysLeftover int       `validate:"gte=0"`
}

// First day choices for scheduling.
const (
	FirstDaySelected = "selected"
	FirstDayMonday   = "monday"
)

type ScheduleCommand struct {
	ActorID  uuid.UUID `validate:"required"`
	PlanID   uuid.UUID `validate:"required"`
	Date     time.Time `validate:"required"`
	FirstDay string    `validate:"omitempty,oneof=selected monday"`
}

// CalendarQuery selects Days consecutive days starting at From.
type CalendarQuery struct {
	From time.Time
	Days int
}

type PlanItemDTO struct {
	ID           uuid.UUID  `json:"id"`
	PlanID       uuid.UUID  `json:"plan_id"`
	Day          int        `json:"day"`
	DaysLeftover int        `json:"days_leftover"`
	Recipe       *RecipeDTO `json:"recipe,omitempty"`
}

type InstanceDTO struct {
	ID        uuid.UUID `json:"id"`
	PlanID    uuid.UUID `json:"plan_id"`
	PlanTitle string    `json:"plan_title"`
	Date      time.Time `json:"date"`
}

type PlanDTO struct {
	ID              uuid.UUID     `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	DescriptionHTML string        `json:"description_html"`
	AddedByID       uuid.UUID     `json:"added_by_id"`
	AddedByName     string        `json:"added_by_name"`
	CreatedAt       time.Time     `json:"created_at"`
	Length          int           `json:"length"`
	Items           []PlanItemDTO `json:"items"`
	Instances       []InstanceDTO `json:"instances"`
}

// CalendarMeal is one dish of a scheduled plan on a date.
type CalendarMeal struct {
	PlanID    uuid.UUID  `json:"plan_id"`
	PlanTitle string     `json:"plan_title"`
	Leftover  bool       `json:"leftover"`
	Recipe    *RecipeDTO `json:"recipe"`
}

type CalendarDay struct {
	Date  time.Time      `json:"date"`
	Meals []CalendarMeal `json:"meals"`
}

type CalendarDTO struct {
	From time.Time     `json:"from"`
	Days []CalendarDay `json:"days"`
}
