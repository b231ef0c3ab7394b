package recipe

import "errors"

var (
	ErrTitleRequired        = errors.New("recipe title is required")
	ErrTitleTooLong         = errors.New("recipe title must not exceed 64 characters")
	ErrIngredientsRequired  = errors.New("ingredients are required")
	ErrInstructionsRequired = errors.New("instructions are required")
	ErrKeywordsRequired     = errors.New("keywords are required")
	ErrInvalidServings      = errors.New("servings must be greater than 0")
	ErrInvalidKcalType      = errors.New("kcal type must be per person or total")
	ErrNegativeNutrition    = errors.New("nutrition values must not be negative")
	ErrRecipeNotFound       = errors.New("recipe not found")
	ErrTitleTaken           = errors.New("title exists already")
	ErrUnknownOperation     = errors.New("unknown operation")
)
