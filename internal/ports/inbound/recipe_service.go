package inbound

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/tymenu/tymenu/internal/domain/recipe"
)

// RecipeService defines the use cases for recipe management
// This is the primary port that HTTP handlers and other driving adapters will use
type RecipeService interface {
	// Commands - operations that modify state
	CreateRecipe(ctx context.Context, cmd CreateRecipeCommand) (*RecipeDTO, error)
	UpdateRecipe(ctx context.Context, cmd UpdateRecipeCommand) (*RecipeDTO, error)
	DeleteRecipe(ctx context.Context, recipeID, actorID uuid.UUID) error
	AttachImage(ctx context.Context, cmd AttachImageCommand) (*RecipeDTO, error)
	RemoveImage(ctx context.Context, recipeID, actorID uuid.UUID) (*RecipeDTO, error)

	// Queries - operations that read state
	GetRecipe(ctx context.Context, recipeID uuid.UUID) (*RecipeDTO, error)
	ListRecipes(ctx context.Context, params PaginationParams) (*RecipeList, error)
	ListRecipesByAuthor(ctx context.Context, authorID uuid.UUID, params PaginationParams) (*RecipeList, error)
	SimpleSearch(ctx context.Context, text string, params PaginationParams) (*RecipeList, error)
	Search(ctx context.Context, query SearchQuery) ([]RecipeDTO, error)
	SearchIngredients(ctx context.Context, query TokenSearchQuery) ([]RecipeDTO, error)
	SearchKeywords(ctx context.Context, query TokenSearchQuery) ([]RecipeDTO, error)
}

// RecipeInput holds the editable fields of a recipe form.
type RecipeInput struct {
	Title          string   `json:"title" form:"title" validate:"required,notblank,max=64"`
	Ingredients    string   `json:"ingredients" form:"ingredients" validate:"required,notblank"`
	Instructions   string   `json:"instructions" form:"instructions" validate:"required,notblank"`
	Background     string   `json:"background" form:"background"`
	Keywords       string   `json:"keywords" form:"keywords" validate:"required,notblank"`
	Source         string   `json:"source" form:"source"`
	Servings       int      `json:"servings" form:"servings" validate:"required,gt=0"`
	KcalType       int      `json:"kcal_type" form:"kcal_type" validate:"oneof=1 2"`
	Kcal           *float64 `json:"kcal" form:"kcal" validate:"omitempty,gte=0"`
	ProteinGram    *float64 `json:"protein_gram" form:"protein_gram" validate:"omitempty,gte=0"`
	CarbGram       *float64 `json:"carb_gram" form:"carb_gram" validate:"omitempty,gte=0"`
	FatGram        *float64 `json:"fat_gram" form:"fat_gram" validate:"omitempty,gte=0"`
	CookingTimeMin *float64 `json:"cooking_time_min" form:"cooking_time_min" validate:"omitempty,gte=0"`
}

// Content converts the input into domain content.
func (in RecipeInput) Content() recipe.Content {
	return recipe.Content{
		Title:          in.Title,
		Ingredients:    in.Ingredients,
		Instructions:   in.Instructions,
		Background:     in.Background,
		Keywords:       in.Keywords,
		Source:         in.Source,
		Servings:       in.Servings,
		KcalType:       recipe.KcalType(in.KcalType),
		Kcal:           in.Kcal,
		ProteinGram:    in.ProteinGram,
		CarbGram:       in.CarbGram,
		FatGram:        in.FatGram,
		CookingTimeMin: in.CookingTimeMin,
	}
}

// CreateRecipeCommand contains data for creating a new recipe
type CreateRecipeCommand struct {
	AuthorID uuid.UUID `validate:"required"`
	RecipeInput
}

// UpdateRecipeCommand replaces the content of a recipe. Allowed for the
// author and for moderators.
type UpdateRecipeCommand struct {
	RecipeID uuid.UUID `validate:"required"`
	ActorID  uuid.UUID `validate:"required"`
	RecipeInput
}

// AttachImageCommand uploads an image and replaces the current one.
type AttachImageCommand struct {
	RecipeID uuid.UUID `validate:"required"`
	ActorID  uuid.UUID `validate:"required"`
	Filename string    `validate:"required"`
	Image    io.Reader `validate:"required"`
}

// SearchQuery is the structured search form.
type SearchQuery struct {
	Title       string `json:"title" form:"title"`
	Ingredients string `json:"ingredients" form:"ingredients"`
	Keywords    string `json:"keywords" form:"keywords"`
}

// TokenSearchQuery matches tokens in one column.
type TokenSearchQuery struct {
	Tokens    []string `json:"tokens" validate:"dive,required"`
	Operation string   `json:"operation"`
	Exclude   bool     `json:"exclude"`
}

// RecipeDTO is the data transfer object for recipes
type RecipeDTO struct {
	ID               uuid.UUID        `json:"id"`
	AuthorID         uuid.UUID        `json:"author_id"`
	AuthorName       string           `json:"author_name"`
	Title            string           `json:"title"`
	Ingredients      string           `json:"ingredients"`
	Instructions     string           `json:"instructions"`
	Background       string           `json:"background,omitempty"`
	Keywords         []string         `json:"keywords"`
	Source           string           `json:"source,omitempty"`
	Servings         int              `json:"servings"`
	Kcal             *float64         `json:"kcal,omitempty"`
	KcalType         recipe.KcalType  `json:"kcal_type"`
	KcalPerPerson    *float64         `json:"kcal_per_person,omitempty"`
	KcalTotal        *float64         `json:"kcal_total,omitempty"`
	ProteinGram      *float64         `json:"protein_gram,omitempty"`
	CarbGram         *float64         `json:"carb_gram,omitempty"`
	FatGram          *float64         `json:"fat_gram,omitempty"`
	CookingTimeMin   *float64         `json:"cooking_time_min,omitempty"`
	Protein          string           `json:"protein,omitempty"`
	Carbs            string           `json:"carbs,omitempty"`
	Fat              string           `json:"fat,omitempty"`
	CookingTime      string           `json:"cooking_time,omitempty"`
	IngredientsHTML  string           `json:"ingredients_html"`
	InstructionsHTML string           `json:"instructions_html"`
	BackgroundHTML   string           `json:"background_html,omitempty"`
	ShortIngredients string           `json:"short_ingredients_html"`
	Image            recipe.ImageURLs `json:"image"`
	CreatedAt        time.Time        `json:"created_at"`
	LastUpdated      *time.Time       `json:"last_updated,omitempty"`
}

// Input returns the editable fields, for pre-filling an edit form.
func (r *RecipeDTO) Input() RecipeInput {
	keywords := ""
	for i, k := range r.Keywords {
		if i > 0 {
			keywords += ", "
		}
		keywords += k
	}
	return RecipeInput{
		Title:          r.Title,
		Ingredients:    r.Ingredients,
		Instructions:   r.Instructions,
		Background:     r.Background,
		Keywords:       keywords,
		Source:         r.Source,
		Servings:       r.Servings,
		KcalType:       int(r.KcalType),
		Kcal:           r.Kcal,
		ProteinGram:    r.ProteinGram,
		CarbGram:       r.CarbGram,
		FatGram:        r.FatGram,
		CookingTimeMin: r.CookingTimeMin,
	}
}

// RecipeList for paginated results
type RecipeList struct {
	Recipes    []RecipeDTO `json:"recipes"`
	Pagination Pagination  `json:"pagination"`
}
