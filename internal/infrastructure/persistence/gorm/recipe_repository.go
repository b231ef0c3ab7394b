package gorm

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/ports/outbound"
)

// RecipeRepository implements the recipe repository interface using GORM
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

var _ outbound.RecipeRepository = (*RecipeRepository)(nil)

func mapRecipeError(err error) error {
	if _, ok := uniqueViolation(err); ok {
		return recipe.ErrTitleTaken
	}
	return err
}

// Create inserts a new recipe
func (r *RecipeRepository) Create(ctx context.Context, rec *recipe.Recipe) error {
	return mapRecipeError(conn(ctx, r.db).Omit("Author").Create(RecipeToModel(rec)).Error)
}

// Update saves every column of an existing recipe
func (r *RecipeRepository) Update(ctx context.Context, rec *recipe.Recipe) error {
	return mapRecipeError(conn(ctx, r.db).Omit("Author").Save(RecipeToModel(rec)).Error)
}

// Delete removes a recipe and the plan items that use it
func (r *RecipeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := conn(ctx, r.db)
	if err := db.Where("recipe_id = ?", id).Delete(&MenuPlanItemModel{}).Error; err != nil {
		return err
	}
	result := db.Delete(&RecipeModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return recipe.ErrRecipeNotFound
	}
	return nil
}

// FindByID finds a recipe by ID
func (r *RecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	var model RecipeModel
	if err := conn(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, recipe.ErrRecipeNotFound
		}
		return nil, err
	}
	return ModelToRecipe(&model), nil
}

// FindByIDs loads several recipes; unknown ids are skipped
func (r *RecipeRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*recipe.Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []RecipeModel
	if err := conn(ctx, r.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}
	return modelsToRecipes(models), nil
}

// TitleExists reports whether a recipe other than excludeID has title
func (r *RecipeRepository) TitleExists(ctx context.Context, title string, excludeID uuid.UUID) (bool, error) {
	var count int64
	q := conn(ctx, r.db).Model(&RecipeModel{}).Where("title = ?", title)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RecipeRepository) page(ctx context.Context, page outbound.Page, preds ...Predicate) ([]*recipe.Recipe, int64, error) {
	q := conn(ctx, r.db).Model(&RecipeModel{})
	for _, p := range preds {
		q = q.Where(p.SQL, p.Args...)
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []RecipeModel
	if page.Limit > 0 {
		q = q.Offset(page.Offset).Limit(page.Limit)
	}
	if err := q.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, 0, err
	}
	return modelsToRecipes(models), total, nil
}

func (r *RecipeRepository) all(ctx context.Context, preds ...Predicate) ([]*recipe.Recipe, error) {
	recipes, _, err := r.page(ctx, outbound.Page{}, preds...)
	return recipes, err
}

// List returns a page of recipes, newest first
func (r *RecipeRepository) List(ctx context.Context, page outbound.Page) ([]*recipe.Recipe, int64, error) {
	return r.page(ctx, page)
}

// ListByAuthor returns a page of one author's recipes, newest first
func (r *RecipeRepository) ListByAuthor(ctx context.Context, authorID uuid.UUID, page outbound.Page) ([]*recipe.Recipe, int64, error) {
	return r.page(ctx, page, Predicate{SQL: "author_id = ?", Args: []interface{}{authorID}})
}

// SearchText matches text in the title, ingredients, keywords or instructions
func (r *RecipeRepository) SearchText(ctx context.Context, text string, page outbound.Page) ([]*recipe.Recipe, int64, error) {
	return r.page(ctx, page, TextPredicate(text))
}

// SearchIngredients combines one predicate per token with op
func (r *RecipeRepository) SearchIngredients(ctx context.Context, tokens []string, op recipe.Operation, exclude bool) ([]*recipe.Recipe, error) {
	return r.searchColumn(ctx, ColumnIngredients, tokens, op, exclude)
}

// SearchKeywords combines one predicate per token with op
func (r *RecipeRepository) SearchKeywords(ctx context.Context, tokens []string, op recipe.Operation, exclude bool) ([]*recipe.Recipe, error) {
	return r.searchColumn(ctx, ColumnKeywords, tokens, op, exclude)
}

func (r *RecipeRepository) searchColumn(ctx context.Context, column string, tokens []string, op recipe.Operation, exclude bool) ([]*recipe.Recipe, error) {
	p, ok := Combine(op, SubstringPredicates(column, tokens, exclude))
	if !ok {
		return r.all(ctx)
	}
	return r.all(ctx, p)
}

// Search runs a structured search, newest first
func (r *RecipeRepository) Search(ctx context.Context, criteria recipe.Criteria) ([]*recipe.Recipe, error) {
	return r.all(ctx, CriteriaPredicates(criteria)...)
}
