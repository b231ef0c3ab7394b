// Package apiserver exposes the catalogue and the menu plans as read-only JSON.
package apiserver

import (
	_ "embed"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/infrastructure/config"
	"github.com/tymenu/tymenu/internal/ports/inbound"
	"github.com/tymenu/tymenu/pkg/errors"
	"github.com/tymenu/tymenu/pkg/healthcheck"
)

// Prefix is where the API is mounted. Gin sees full request paths, so the
// routes are registered under it too.
const Prefix = "/api/v1"

//go:embed openapi.yaml
var openAPISpec []byte

// APIServer serves the JSON API.
type APIServer struct {
	config  *config.Config
	logger  *zap.Logger
	recipes inbound.RecipeService
	plans   inbound.PlanService
	health  *healthcheck.HealthCheck
	engine  *gin.Engine
}

// NewAPIServer builds the gin engine. health may be nil.
func NewAPIServer(
	cfg *config.Config,
	logger *zap.Logger,
	recipes inbound.RecipeService,
	plans inbound.PlanService,
	health *healthcheck.HealthCheck,
) *APIServer {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		config:  cfg,
		logger:  logger,
		recipes: recipes,
		plans:   plans,
		health:  health,
		engine:  gin.New(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the engine for mounting under Prefix.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

func (s *APIServer) setupRoutes() {
	s.engine.Use(requestID(), s.recovery(), s.errorHandler())
	s.engine.NoRoute(func(c *gin.Context) {
		_ = c.Error(errors.NewNotFoundError("Endpoint"))
	})

	v1 := s.engine.Group(Prefix)
	v1.GET("/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", openAPISpec)
	})
	if s.health != nil {
		v1.GET("/health", s.health.Handler())
	}

	recipes := v1.Group("/recipes")
	recipes.GET("", s.listRecipes)
	recipes.GET("/search", s.searchRecipes)
	recipes.GET("/:id", s.getRecipe)

	v1.GET("/plans", s.listPlans)
	v1.GET("/plans/:id", s.getPlan)
}

type listParams struct {
	Page    int `form:"page" binding:"omitempty,min=1"`
	PerPage int `form:"per_page" binding:"omitempty,min=1,max=100"`
}

func (s *APIServer) listRecipes(c *gin.Context) {
	var params listParams
	if err := c.ShouldBindQuery(&params); err != nil {
		_ = c.Error(errors.NewBadRequestError("Invalid pagination").WithCause(err))
		return
	}
	list, err := s.recipes.ListRecipes(c.Request.Context(), inbound.PaginationParams{
		Page:     params.Page,
		PageSize: params.PerPage,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recipes":     list.Recipes,
		"page":        list.Pagination.Page,
		"per_page":    list.Pagination.PageSize,
		"total":       list.Pagination.Total,
		"total_pages": list.Pagination.TotalPages,
	})
}

type searchParams struct {
	Title       string   `form:"title"`
	Ingredients string   `form:"ingredients"`
	Keywords    string   `form:"keywords"`
	Field       string   `form:"field"`
	Tokens      []string `form:"token"`
	Op          string   `form:"op"`
	Exclude     bool     `form:"exclude"`
}

// searchRecipes runs the structured search, or a token search on one
// column when token parameters are given.
func (s *APIServer) searchRecipes(c *gin.Context) {
	var params searchParams
	if err := c.ShouldBindQuery(&params); err != nil {
		_ = c.Error(errors.NewBadRequestError("Invalid search").WithCause(err))
		return
	}

	var (
		results []inbound.RecipeDTO
		err     error
	)
	if len(params.Tokens) == 0 {
		results, err = s.recipes.Search(c.Request.Context(), inbound.SearchQuery{
			Title:       params.Title,
			Ingredients: params.Ingredients,
			Keywords:    params.Keywords,
		})
	} else {
		query := inbound.TokenSearchQuery{Tokens: params.Tokens, Operation: params.Op, Exclude: params.Exclude}
		switch strings.ToLower(params.Field) {
		case "", "ingredients":
			results, err = s.recipes.SearchIngredients(c.Request.Context(), query)
		case "keywords":
			results, err = s.recipes.SearchKeywords(c.Request.Context(), query)
		default:
			err = errors.NewBadRequestError("field must be ingredients or keywords")
		}
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	if results == nil {
		results = []inbound.RecipeDTO{}
	}
	c.JSON(http.StatusOK, gin.H{"recipes": results, "count": len(results)})
}

func (s *APIServer) getRecipe(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(errors.NewRecipeNotFoundError(c.Param("id")))
		return
	}
	rec, err := s.recipes.GetRecipe(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *APIServer) listPlans(c *gin.Context) {
	plans, err := s.plans.ListPlans(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	if plans == nil {
		plans = []inbound.PlanDTO{}
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (s *APIServer) getPlan(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(errors.NewPlanNotFoundError(c.Param("id")))
		return
	}
	plan, err := s.plans.GetPlan(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, plan)
}
