// Package recipe provides the application layer for recipe management
// This implements the use cases defined in the inbound ports
package recipe

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/domain/shared"
	"github.com/tymenu/tymenu/internal/domain/user"
	"github.com/tymenu/tymenu/internal/ports/inbound"
	"github.com/tymenu/tymenu/internal/ports/outbound"
	"github.com/tymenu/tymenu/pkg/errors"
	"github.com/tymenu/tymenu/pkg/validation"
)

const (
	cacheTTL         = 10 * time.Minute
	shortIngredients = 5
)

// RecipeService implements the recipe use cases
type RecipeService struct {
	recipes  outbound.RecipeRepository
	users    outbound.UserRepository
	images   outbound.ImageHost
	cache    outbound.CacheRepository
	tx       outbound.Transactor
	events   outbound.EventPublisher
	validate *validation.Validator
	perPage  int
	logger   *zap.Logger
}

// NewRecipeService creates a new recipe service. perPage is the default
// page size of listings.
func NewRecipeService(
	recipes outbound.RecipeRepository,
	users outbound.UserRepository,
	images outbound.ImageHost,
	cache outbound.CacheRepository,
	tx outbound.Transactor,
	events outbound.EventPublisher,
	validate *validation.Validator,
	perPage int,
	logger *zap.Logger,
) *RecipeService {
	if perPage <= 0 {
		perPage = 20
	}
	if events == nil {
		events = outbound.NopPublisher{}
	}
	return &RecipeService{
		recipes:  recipes,
		users:    users,
		images:   images,
		cache:    cache,
		tx:       tx,
		events:   events,
		validate: validate,
		perPage:  perPage,
		logger:   logger.Named("recipe-service"),
	}
}

var _ inbound.RecipeService = (*RecipeService)(nil)

// CreateRecipe stores a new recipe written by cmd.AuthorID, who needs the
// WRITE permission.
func (s *RecipeService) CreateRecipe(ctx context.Context, cmd inbound.CreateRecipeCommand) (*inbound.RecipeDTO, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}
	s.logger.Info("Creating new recipe",
		zap.String("title", cmd.Title),
		zap.String("author_id", cmd.AuthorID.String()),
	)

	author, err := s.users.FindByID(ctx, cmd.AuthorID)
	if err != nil {
		return nil, s.mapError(err, "find author")
	}
	if !author.Can(user.PermissionWrite) {
		return nil, errors.NewInsufficientPermissionsError("write recipes")
	}

	entity, err := recipe.NewRecipe(author.ID(), cmd.Content())
	if err != nil {
		return nil, s.mapError(err, "create recipe")
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		taken, err := s.recipes.TitleExists(ctx, entity.Title(), uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return recipe.ErrTitleTaken
		}
		return s.recipes.Create(ctx, entity)
	})
	if err != nil {
		return nil, s.mapError(err, "create recipe")
	}
	s.publish(ctx, entity.Events())

	s.logger.Info("Recipe created successfully", zap.String("recipe_id", entity.ID().String()))
	dto := ToDTO(entity, author.Username())
	return &dto, nil
}

// UpdateRecipe replaces the recipe content. The title may stay the same;
// it only has to differ from the other recipes' titles.
func (s *RecipeService) UpdateRecipe(ctx context.Context, cmd inbound.UpdateRecipeCommand) (*inbound.RecipeDTO, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}
	s.logger.Info("Updating recipe",
		zap.String("recipe_id", cmd.RecipeID.String()),
		zap.String("actor_id", cmd.ActorID.String()),
	)

	var entity *recipe.Recipe
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if entity, err = s.editable(ctx, cmd.RecipeID, cmd.ActorID, user.PermissionModerate, "edit this recipe"); err != nil {
			return err
		}
		if err := entity.Update(cmd.Content()); err != nil {
			return err
		}
		taken, err := s.recipes.TitleExists(ctx, entity.Title(), entity.ID())
		if err != nil {
			return err
		}
		if taken {
			return recipe.ErrTitleTaken
		}
		return s.recipes.Update(ctx, entity)
	})
	if err != nil {
		return nil, s.mapError(err, "update recipe")
	}
	s.invalidate(ctx, entity.ID())
	s.publish(ctx, entity.Events())

	s.logger.Info("Recipe updated successfully", zap.String("recipe_id", entity.ID().String()))
	return s.withAuthor(ctx, entity)
}

// DeleteRecipe removes a recipe, its plan items and its hosted image.
// Allowed for the author and for administrators.
func (s *RecipeService) DeleteRecipe(ctx context.Context, recipeID, actorID uuid.UUID) error {
	var entity *recipe.Recipe
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if entity, err = s.editable(ctx, recipeID, actorID, user.PermissionAdmin, "delete this recipe"); err != nil {
			return err
		}
		return s.recipes.Delete(ctx, recipeID)
	})
	if err != nil {
		return s.mapError(err, "delete recipe")
	}
	s.invalidate(ctx, recipeID)
	s.deleteHostedImage(ctx, entity.Image())

	s.logger.Info("Recipe deleted", zap.String("recipe_id", recipeID.String()), zap.String("actor_id", actorID.String()))
	return nil
}

// AttachImage uploads an image and replaces the recipe's current one.
func (s *RecipeService) AttachImage(ctx context.Context, cmd inbound.AttachImageCommand) (*inbound.RecipeDTO, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}
	entity, err := s.editable(ctx, cmd.RecipeID, cmd.ActorID, user.PermissionModerate, "change the image of this recipe")
	if err != nil {
		return nil, s.mapError(err, "find recipe")
	}

	urls, err := s.images.Upload(ctx, cmd.Filename, cmd.Image)
	if err != nil {
		s.logger.Error("Image upload failed", zap.String("recipe_id", cmd.RecipeID.String()), zap.Error(err))
		return nil, errors.NewExternalServiceError("image host", err)
	}

	old := entity.ClearImage()
	entity.SetImage(urls)
	if err := s.recipes.Update(ctx, entity); err != nil {
		s.deleteHostedImage(ctx, urls)
		return nil, s.mapError(err, "store image")
	}
	s.invalidate(ctx, entity.ID())
	s.deleteHostedImage(ctx, old)
	s.publish(ctx, entity.Events())
	return s.withAuthor(ctx, entity)
}

// RemoveImage drops the recipe image and deletes it from the host.
func (s *RecipeService) RemoveImage(ctx context.Context, recipeID, actorID uuid.UUID) (*inbound.RecipeDTO, error) {
	entity, err := s.editable(ctx, recipeID, actorID, user.PermissionModerate, "change the image of this recipe")
	if err != nil {
		return nil, s.mapError(err, "find recipe")
	}
	old := entity.ClearImage()
	if old.IsZero() {
		return s.withAuthor(ctx, entity)
	}
	if err := s.recipes.Update(ctx, entity); err != nil {
		return nil, s.mapError(err, "remove image")
	}
	s.invalidate(ctx, recipeID)
	s.deleteHostedImage(ctx, old)
	s.publish(ctx, entity.Events())
	return s.withAuthor(ctx, entity)
}

// GetRecipe returns one recipe, served from the cache when possible. The
// cached copy leaves out the author name, which is looked up on every read
// so renames show at once.
func (s *RecipeService) GetRecipe(ctx context.Context, recipeID uuid.UUID) (*inbound.RecipeDTO, error) {
	dto, ok := s.cached(ctx, recipeID)
	if !ok {
		entity, err := s.recipes.FindByID(ctx, recipeID)
		if err != nil {
			return nil, s.mapError(err, "find recipe")
		}
		fresh := ToDTO(entity, "")
		dto = &fresh
		s.store(ctx, dto)
	}

	name, err := s.authorName(ctx, dto.AuthorID)
	if err != nil {
		return nil, err
	}
	dto.AuthorName = name
	return dto, nil
}

func (s *RecipeService) cached(ctx context.Context, recipeID uuid.UUID) (*inbound.RecipeDTO, bool) {
	key := cacheKey(recipeID)
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !stderrors.Is(err, outbound.ErrCacheMiss) {
			s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var dto inbound.RecipeDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		s.logger.Warn("Dropping undecodable cache entry", zap.String("key", key))
		return nil, false
	}
	return &dto, true
}

func (s *RecipeService) store(ctx context.Context, dto *inbound.RecipeDTO) {
	key := cacheKey(dto.ID)
	data, err := json.Marshal(dto)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, cacheTTL); err != nil {
		s.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// ListRecipes pages through all recipes, newest first.
func (s *RecipeService) ListRecipes(ctx context.Context, params inbound.PaginationParams) (*inbound.RecipeList, error) {
	params = params.Normalize(s.perPage, 100)
	recipes, total, err := s.recipes.List(ctx, outbound.Page{Offset: params.Offset(), Limit: params.PageSize})
	if err != nil {
		return nil, errors.NewDatabaseError("list recipes", err)
	}
	return s.list(ctx, recipes, params, total)
}

func (s *RecipeService) ListRecipesByAuthor(ctx context.Context, authorID uuid.UUID, params inbound.PaginationParams) (*inbound.RecipeList, error) {
	params = params.Normalize(s.perPage, 100)
	recipes, total, err := s.recipes.ListByAuthor(ctx, authorID, outbound.Page{Offset: params.Offset(), Limit: params.PageSize})
	if err != nil {
		return nil, errors.NewDatabaseError("list recipes", err)
	}
	return s.list(ctx, recipes, params, total)
}

// SimpleSearch matches text against title, ingredients, keywords and
// instructions.
func (s *RecipeService) SimpleSearch(ctx context.Context, text string, params inbound.PaginationParams) (*inbound.RecipeList, error) {
	params = params.Normalize(s.perPage, 100)
	recipes, total, err := s.recipes.SearchText(ctx, text, outbound.Page{Offset: params.Offset(), Limit: params.PageSize})
	if err != nil {
		return nil, errors.NewDatabaseError("search recipes", err)
	}
	return s.list(ctx, recipes, params, total)
}

// Search runs the structured search form: title substring, every
// whitespace separated ingredient and every comma separated keyword.
func (s *RecipeService) Search(ctx context.Context, query inbound.SearchQuery) ([]inbound.RecipeDTO, error) {
	criteria := recipe.NewCriteria(query.Title, query.Ingredients, query.Keywords)
	s.logger.Debug("Structured search",
		zap.String("title", criteria.Title),
		zap.Strings("ingredients", criteria.Ingredients),
		zap.Strings("keywords", criteria.Keywords),
	)
	recipes, err := s.recipes.Search(ctx, criteria)
	if err != nil {
		return nil, errors.NewDatabaseError("search recipes", err)
	}
	return s.toDTOs(ctx, recipes)
}

func (s *RecipeService) SearchIngredients(ctx context.Context, query inbound.TokenSearchQuery) ([]inbound.RecipeDTO, error) {
	return s.searchTokens(ctx, query, s.recipes.SearchIngredients)
}

func (s *RecipeService) SearchKeywords(ctx context.Context, query inbound.TokenSearchQuery) ([]inbound.RecipeDTO, error) {
	return s.searchTokens(ctx, query, s.recipes.SearchKeywords)
}

type tokenSearch func(ctx context.Context, tokens []string, op recipe.Operation, exclude bool) ([]*recipe.Recipe, error)

// searchTokens defaults the operation to "and".
func (s *RecipeService) searchTokens(ctx context.Context, query inbound.TokenSearchQuery, search tokenSearch) ([]inbound.RecipeDTO, error) {
	if err := s.validate.Struct(query); err != nil {
		return nil, err
	}
	op := recipe.OpAnd
	if query.Operation != "" {
		var err error
		if op, err = recipe.ParseOperation(query.Operation); err != nil {
			return nil, errors.NewBadRequestError(err.Error()).WithCause(err)
		}
	}
	recipes, err := search(ctx, query.Tokens, op, query.Exclude)
	if err != nil {
		return nil, errors.NewDatabaseError("search recipes", err)
	}
	return s.toDTOs(ctx, recipes)
}

// editable loads a recipe that actorID may change: authors always may,
// others need perm.
func (s *RecipeService) editable(ctx context.Context, recipeID, actorID uuid.UUID, perm user.Permission, action string) (*recipe.Recipe, error) {
	entity, err := s.recipes.FindByID(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if entity.IsAuthor(actorID) {
		return entity, nil
	}
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil && !stderrors.Is(err, user.ErrUserNotFound) {
		return nil, err
	}
	if !actor.Can(perm) {
		return nil, errors.NewInsufficientPermissionsError(action)
	}
	return entity, nil
}

func (s *RecipeService) deleteHostedImage(ctx context.Context, image recipe.ImageURLs) {
	if image.IsZero() {
		return
	}
	if err := s.images.Delete(ctx, image); err != nil {
		s.logger.Warn("Failed to delete hosted image", zap.String("delete_url", image.Delete), zap.Error(err))
	}
}

func (s *RecipeService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil {
		s.logger.Warn("Failed to invalidate recipe cache", zap.String("recipe_id", id.String()), zap.Error(err))
	}
}

func (s *RecipeService) publish(ctx context.Context, events []shared.DomainEvent) {
	if len(events) > 0 {
		s.events.Publish(ctx, events...)
	}
}

func (s *RecipeService) withAuthor(ctx context.Context, entity *recipe.Recipe) (*inbound.RecipeDTO, error) {
	name, err := s.authorName(ctx, entity.AuthorID())
	if err != nil {
		return nil, err
	}
	dto := ToDTO(entity, name)
	return &dto, nil
}

// authorName is empty for deleted authors.
func (s *RecipeService) authorName(ctx context.Context, authorID uuid.UUID) (string, error) {
	author, err := s.users.FindByID(ctx, authorID)
	switch {
	case err == nil:
		return author.Username(), nil
	case stderrors.Is(err, user.ErrUserNotFound):
		return "", nil
	default:
		return "", errors.NewDatabaseError("find author", err)
	}
}

func (s *RecipeService) list(ctx context.Context, recipes []*recipe.Recipe, params inbound.PaginationParams, total int64) (*inbound.RecipeList, error) {
	dtos, err := s.toDTOs(ctx, recipes)
	if err != nil {
		return nil, err
	}
	return &inbound.RecipeList{Recipes: dtos, Pagination: inbound.NewPagination(params, total)}, nil
}

// toDTOs resolves the author names of recipes with one query.
func (s *RecipeService) toDTOs(ctx context.Context, recipes []*recipe.Recipe) ([]inbound.RecipeDTO, error) {
	names, err := AuthorNames(ctx, s.users, recipes)
	if err != nil {
		return nil, errors.NewDatabaseError("find authors", err)
	}
	dtos := make([]inbound.RecipeDTO, 0, len(recipes))
	for _, r := range recipes {
		dtos = append(dtos, ToDTO(r, names[r.AuthorID()]))
	}
	return dtos, nil
}

func (s *RecipeService) mapError(err error, operation string) error {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}
	switch {
	case stderrors.Is(err, recipe.ErrRecipeNotFound):
		return errors.NewNotFoundError("recipe").WithCause(err)
	case stderrors.Is(err, user.ErrUserNotFound):
		return errors.NewNotFoundError("user").WithCause(err)
	case stderrors.Is(err, recipe.ErrTitleTaken):
		return errors.NewAppError(errors.CodeTitleAlreadyExists, "Title exists already.", "").WithCause(err)
	case stderrors.Is(err, recipe.ErrTitleRequired), stderrors.Is(err, recipe.ErrTitleTooLong),
		stderrors.Is(err, recipe.ErrIngredientsRequired), stderrors.Is(err, recipe.ErrInstructionsRequired),
		stderrors.Is(err, recipe.ErrKeywordsRequired), stderrors.Is(err, recipe.ErrInvalidServings),
		stderrors.Is(err, recipe.ErrInvalidKcalType), stderrors.Is(err, recipe.ErrNegativeNutrition):
		return errors.NewValidationError(err.Error()).WithCause(err)
	}
	s.logger.Error("Database operation failed", zap.String("operation", operation), zap.Error(err))
	return errors.NewDatabaseError(operation, err)
}

func cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("recipe:%s", id)
}

// AuthorNames maps the authors of recipes to their usernames.
func AuthorNames(ctx context.Context, users outbound.UserRepository, recipes []*recipe.Recipe) (map[uuid.UUID]string, error) {
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0, len(recipes))
	for _, r := range recipes {
		if !seen[r.AuthorID()] {
			seen[r.AuthorID()] = true
			ids = append(ids, r.AuthorID())
		}
	}
	authors, err := users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(authors))
	for _, a := range authors {
		names[a.ID()] = a.Username()
	}
	return names, nil
}

// ToDTO flattens a recipe together with its derived strings.
func ToDTO(r *recipe.Recipe, authorName string) inbound.RecipeDTO {
	c := r.Content()
	return inbound.RecipeDTO{
		ID:               r.ID(),
		AuthorID:         r.AuthorID(),
		AuthorName:       authorName,
		Title:            c.Title,
		Ingredients:      c.Ingredients,
		Instructions:     c.Instructions,
		Background:       c.Background,
		Keywords:         r.KeywordList(),
		Source:           c.Source,
		Servings:         c.Servings,
		Kcal:             c.Kcal,
		KcalType:         c.KcalType,
		KcalPerPerson:    r.KcalPerPerson(),
		KcalTotal:        r.KcalTotal(),
		ProteinGram:      c.ProteinGram,
		CarbGram:         c.CarbGram,
		FatGram:          c.FatGram,
		CookingTimeMin:   c.CookingTimeMin,
		Protein:          r.ProteinString(),
		Carbs:            r.CarbString(),
		Fat:              r.FatString(),
		CookingTime:      r.CookingTime(),
		IngredientsHTML:  r.IngredientsHTML(),
		InstructionsHTML: r.InstructionsHTML(),
		BackgroundHTML:   r.BackgroundHTML(),
		ShortIngredients: r.ShortIngredients(shortIngredients),
		Image:            r.Image(),
		CreatedAt:        r.CreatedAt(),
		LastUpdated:      r.LastUpdated(),
	}
}
