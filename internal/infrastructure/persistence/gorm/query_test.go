package gorm

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/tymenu/tymenu/internal/domain/recipe"
)

func TestContainsPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%EGG%`, ContainsPattern("EGG"))
	assert.Equal(t, `%50\%\_off\\%`, ContainsPattern(`50%_off\`))
}

func TestCombine(t *testing.T) {
	preds := SubstringPredicates(ColumnKeywords, []string{"a", "b"}, false)

	and, ok := Combine(recipe.OpAnd, preds)
	require.True(t, ok)
	assert.Contains(t, and.SQL, ") AND (")
	assert.Len(t, and.Args, 2)

	or, _ := Combine(recipe.OpOr, preds)
	assert.Contains(t, or.SQL, ") OR (")

	not, _ := Combine(recipe.OpNot, preds)
	assert.True(t, len(not.SQL) > 5 && not.SQL[:5] == "NOT (")

	_, ok = Combine(recipe.OpAnd, nil)
	assert.False(t, ok)
}

func TestContainsFoldsBothSides(t *testing.T) {
	p := Contains(ColumnTitle, "Ørret")
	assert.Equal(t, `LOWER(COALESCE(title, '')) LIKE LOWER(?) ESCAPE '\'`, p.SQL)
	assert.Equal(t, []interface{}{"%Ørret%"}, p.Args)
}

func TestContainsRejectsUnknownColumns(t *testing.T) {
	assert.Panics(t, func() { Contains("password_hash", "x") })
}

type SearchTestSuite struct {
	suite.Suite
	repo   *RecipeRepository
	ctx    context.Context
	author uuid.UUID
}

func (s *SearchTestSuite) SetupTest() {
	db := newTestDB(s.T())
	s.repo = NewRecipeRepository(db)
	s.ctx = context.Background()

	author := newTestUser(s.T(), "cook")
	s.Require().NoError(NewUserRepository(db).Create(s.ctx, author))
	s.author = author.ID()

	for _, r := range []struct{ title, ingredients, keywords string }{
		{"Omelette", "3 Eggs\nbutter\nsalt", "breakfast, quick"},
		{"Pancakes", "flour\nmilk\neggs\nsugar", "breakfast, sweet"},
		{"Tomato soup", "tomatoes\nonion\nbutter", "dinner, vegan"},
		{"100% Rye", "rye flour\nwater\nsalt", "bread"},
	} {
		s.Require().NoError(s.repo.Create(s.ctx, newTestRecipe(author.ID(), r.title, r.ingredients, r.keywords)))
	}
}

func (s *SearchTestSuite) TestSearchIngredients() {
	tests := []struct {
		name    string
		tokens  []string
		op      recipe.Operation
		exclude bool
		want    []string
	}{
		{"and is case-insensitive", []string{"EGGS", "butter"}, recipe.OpAnd, false, []string{"Omelette"}},
		{"or", []string{"milk", "onion"}, recipe.OpOr, false, []string{"Tomato soup", "Pancakes"}},
		{"not excludes any match", []string{"eggs", "water"}, recipe.OpNot, false, []string{"Tomato soup"}},
		{"and with exclude", []string{"eggs", "salt"}, recipe.OpAnd, true, []string{"Tomato soup"}},
		{"or with exclude", []string{"eggs", "salt"}, recipe.OpOr, true, []string{"100% Rye", "Tomato soup", "Pancakes"}},
		{"empty tokens match everything", nil, recipe.OpAnd, false, []string{"100% Rye", "Tomato soup", "Pancakes", "Omelette"}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			got, err := s.repo.SearchIngredients(s.ctx, tt.tokens, tt.op, tt.exclude)
			s.Require().NoError(err)
			s.Equal(tt.want, titles(got))
		})
	}
}

func (s *SearchTestSuite) TestSearchKeywords() {
	got, err := s.repo.SearchKeywords(s.ctx, []string{"breakfast"}, recipe.OpAnd, false)
	s.Require().NoError(err)
	s.Equal([]string{"Pancakes", "Omelette"}, titles(got))
}

func (s *SearchTestSuite) TestWildcardsAreLiteral() {
	got, err := s.repo.Search(s.ctx, recipe.Criteria{Title: "100%"})
	s.Require().NoError(err)
	s.Equal([]string{"100% Rye"}, titles(got))

	got, err = s.repo.Search(s.ctx, recipe.Criteria{Title: "_"})
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *SearchTestSuite) TestStructuredSearch() {
	got, err := s.repo.Search(s.ctx, recipe.NewCriteria("", "salt", "quick, breakfast"))
	s.Require().NoError(err)
	s.Equal([]string{"Omelette"}, titles(got))

	got, err = s.repo.Search(s.ctx, recipe.NewCriteria("soup", "", ""))
	s.Require().NoError(err)
	s.Equal([]string{"Tomato soup"}, titles(got))
}

func (s *SearchTestSuite) TestSearchText() {
	got, total, err := s.repo.SearchText(s.ctx, "SWEET", pageOf(0, 10))
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Equal([]string{"Pancakes"}, titles(got))

	// Instructions are searched too.
	got, _, err = s.repo.SearchText(s.ctx, "cook the omelette", pageOf(0, 10))
	s.Require().NoError(err)
	s.Equal([]string{"Omelette"}, titles(got))
}

func (s *SearchTestSuite) TestNonASCIIText() {
	s.Require().NoError(s.repo.Create(s.ctx, newTestRecipe(s.author, "Ørret med Ærter", "Ørret\nÆrter", "fisk, middag")))

	got, err := s.repo.Search(s.ctx, recipe.Criteria{Title: "Ørret"})
	s.Require().NoError(err)
	s.Equal([]string{"Ørret med Ærter"}, titles(got))

	got, err = s.repo.Search(s.ctx, recipe.Criteria{Title: "Ørret MED"})
	s.Require().NoError(err)
	s.Equal([]string{"Ørret med Ærter"}, titles(got))

	got, err = s.repo.SearchIngredients(s.ctx, []string{"Ærter"}, recipe.OpAnd, false)
	s.Require().NoError(err)
	s.Equal([]string{"Ørret med Ærter"}, titles(got))

	got, total, err := s.repo.SearchText(s.ctx, "Ørret", pageOf(0, 10))
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Equal([]string{"Ørret med Ærter"}, titles(got))
}

func (s *SearchTestSuite) TestListPagination() {
	got, total, err := s.repo.List(s.ctx, pageOf(1, 2))
	s.Require().NoError(err)
	s.EqualValues(4, total)
	s.Equal([]string{"Tomato soup", "Pancakes"}, titles(got))

	got, total, err = s.repo.ListByAuthor(s.ctx, uuid.New(), pageOf(0, 5))
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(got)
}

func TestSearchTestSuite(t *testing.T) {
	suite.Run(t, new(SearchTestSuite))
}
