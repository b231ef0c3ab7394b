package apiserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/infrastructure/config"
	"github.com/tymenu/tymenu/internal/ports/inbound"
	"github.com/tymenu/tymenu/pkg/errors"
	"github.com/tymenu/tymenu/pkg/healthcheck"
)

type mockRecipes struct {
	mock.Mock
	inbound.RecipeService
}

func (m *mockRecipes) GetRecipe(ctx context.Context, id uuid.UUID) (*inbound.RecipeDTO, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*inbound.RecipeDTO)
	return rec, args.Error(1)
}

func (m *mockRecipes) ListRecipes(ctx context.Context, params inbound.PaginationParams) (*inbound.RecipeList, error) {
	args := m.Called(ctx, params)
	list, _ := args.Get(0).(*inbound.RecipeList)
	return list, args.Error(1)
}

func (m *mockRecipes) Search(ctx context.Context, query inbound.SearchQuery) ([]inbound.RecipeDTO, error) {
	args := m.Called(ctx, query)
	found, _ := args.Get(0).([]inbound.RecipeDTO)
	return found, args.Error(1)
}

func (m *mockRecipes) SearchKeywords(ctx context.Context, query inbound.TokenSearchQuery) ([]inbound.RecipeDTO, error) {
	args := m.Called(ctx, query)
	found, _ := args.Get(0).([]inbound.RecipeDTO)
	return found, args.Error(1)
}

type mockPlans struct {
	mock.Mock
	inbound.PlanService
}

func (m *mockPlans) GetPlan(ctx context.Context, id uuid.UUID) (*inbound.PlanDTO, error) {
	args := m.Called(ctx, id)
	plan, _ := args.Get(0).(*inbound.PlanDTO)
	return plan, args.Error(1)
}

type APIServerTestSuite struct {
	suite.Suite
	recipes *mockRecipes
	plans   *mockPlans
	handler http.Handler
}

func (s *APIServerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.recipes = new(mockRecipes)
	s.plans = new(mockPlans)
	cfg := &config.Config{}
	cfg.App.Environment = "test"
	s.handler = NewAPIServer(cfg, zap.NewNop(), s.recipes, s.plans, healthcheck.New("test", zap.NewNop())).Handler()
}

func (s *APIServerTestSuite) get(target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]interface{}
	if rec.Header().Get("Content-Type") != "application/yaml" {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func (s *APIServerTestSuite) TestListRecipesPassesPagination() {
	s.recipes.On("ListRecipes", mock.Anything, inbound.PaginationParams{Page: 2, PageSize: 5}).Return(&inbound.RecipeList{
		Recipes:    []inbound.RecipeDTO{{Title: "Soup"}},
		Pagination: inbound.Pagination{Page: 2, PageSize: 5, Total: 6, TotalPages: 2},
	}, nil)

	rec, body := s.get("/api/v1/recipes?page=2&per_page=5")

	s.Equal(http.StatusOK, rec.Code)
	s.EqualValues(2, body["total_pages"])
	s.Len(body["recipes"], 1)
	s.recipes.AssertExpectations(s.T())
}

func (s *APIServerTestSuite) TestListRecipesRejectsBadPageSize() {
	rec, body := s.get("/api/v1/recipes?per_page=1000")

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal(string(errors.CodeBadRequest), body["error"].(map[string]interface{})["code"])
	s.recipes.AssertNotCalled(s.T(), "ListRecipes", mock.Anything, mock.Anything)
}

func (s *APIServerTestSuite) TestGetRecipeNotFound() {
	id := uuid.New()
	s.recipes.On("GetRecipe", mock.Anything, id).Return(nil, errors.NewRecipeNotFoundError(id.String()))

	rec, body := s.get("/api/v1/recipes/" + id.String())

	s.Equal(http.StatusNotFound, rec.Code)
	details := body["error"].(map[string]interface{})
	s.Equal(string(errors.CodeRecipeNotFound), details["code"])
	s.NotEmpty(details["request_id"])
	s.Equal(details["request_id"], rec.Header().Get("X-Request-ID"))
}

func (s *APIServerTestSuite) TestGetRecipeMalformedID() {
	rec, _ := s.get("/api/v1/recipes/not-a-uuid")

	s.Equal(http.StatusNotFound, rec.Code)
	s.recipes.AssertNotCalled(s.T(), "GetRecipe", mock.Anything, mock.Anything)
}

func (s *APIServerTestSuite) TestStructuredSearch() {
	query := inbound.SearchQuery{Title: "soup", Ingredients: "leek potato"}
	s.recipes.On("Search", mock.Anything, query).Return([]inbound.RecipeDTO(nil), nil)

	rec, body := s.get("/api/v1/recipes/search?title=soup&ingredients=leek+potato")

	s.Equal(http.StatusOK, rec.Code)
	s.EqualValues(0, body["count"])
	s.Equal([]interface{}{}, body["recipes"])
}

func (s *APIServerTestSuite) TestTokenSearchOnKeywords() {
	query := inbound.TokenSearchQuery{Tokens: []string{"vegan", "quick"}, Operation: "or", Exclude: true}
	s.recipes.On("SearchKeywords", mock.Anything, query).Return([]inbound.RecipeDTO{{Title: "Salad"}}, nil)

	rec, body := s.get("/api/v1/recipes/search?field=keywords&token=vegan&token=quick&op=or&exclude=true")

	s.Equal(http.StatusOK, rec.Code)
	s.EqualValues(1, body["count"])
	s.recipes.AssertExpectations(s.T())
}

func (s *APIServerTestSuite) TestTokenSearchUnknownField() {
	rec, _ := s.get("/api/v1/recipes/search?field=title&token=soup")

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APIServerTestSuite) TestGetPlan() {
	id := uuid.New()
	s.plans.On("GetPlan", mock.Anything, id).Return(&inbound.PlanDTO{ID: id, Title: "Week one", Length: 7}, nil)

	rec, body := s.get("/api/v1/plans/" + id.String())

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("Week one", body["title"])
}

func (s *APIServerTestSuite) TestInternalErrorsAreMasked() {
	s.recipes.On("ListRecipes", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)

	rec, body := s.get("/api/v1/recipes")

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("An unexpected error occurred", body["error"].(map[string]interface{})["message"])
}

func (s *APIServerTestSuite) TestUnknownEndpoint() {
	rec, _ := s.get("/api/v1/nothing")

	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *APIServerTestSuite) TestHealthAndOpenAPI() {
	rec, body := s.get("/api/v1/health")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("healthy", body["status"])

	rec, _ = s.get("/api/v1/openapi.yaml")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "TyMenu API")
}

func TestAPIServerTestSuite(t *testing.T) {
	suite.Run(t, new(APIServerTestSuite))
}
