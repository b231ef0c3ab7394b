package plan

import "errors"

var (
	ErrTitleRequired     = errors.New("plan title is required")
	ErrTitleTooLong      = errors.New("plan title must not exceed 255 characters")
	ErrNegativeDay       = errors.New("day must not be negative")
	ErrNegativeLeftovers = errors.New("leftover days must not be negative")
	ErrRecipeRequired    = errors.New("recipe is required")
	ErrDateRequired      = errors.New("date is required")
	ErrPlanNotFound      = errors.New("menu plan not found")
	ErrItemNotFound      = errors.New("menu plan item not found")
)
