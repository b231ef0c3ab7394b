package recipe

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func ptr(v float64) *float64 { return &v }

func validContent() Content {
	return Content{
		Title:        "Pancakes",
		Ingredients:  "- flour\n- milk\n- eggs",
		Instructions: "Mix *everything*.",
		Keywords:     "breakfast, sweet",
		Servings:     4,
		KcalType:     KcalTypePerPerson,
	}
}

type RecipeEntityTestSuite struct {
	suite.Suite
	authorID uuid.UUID
}

func (s *RecipeEntityTestSuite) SetupTest() {
	s.authorID = uuid.New()
}

func (s *RecipeEntityTestSuite) TestNewRecipe() {
	s.Run("renders markdown and raises created event", func() {
		// Arrange
		content := validContent()
		content.Title = "  Pancakes  "

		// Act
		r, err := NewRecipe(s.authorID, content)

		// Assert
		s.Require().NoError(err)
		s.Equal("Pancakes", r.Title())
		s.Equal(s.authorID, r.AuthorID())
		s.Contains(r.IngredientsHTML(), "<li>flour</li>")
		s.Contains(r.InstructionsHTML(), "<em>everything</em>")
		s.Empty(r.BackgroundHTML())
		s.Nil(r.LastUpdated())
		s.True(r.IsAuthor(s.authorID))
		s.False(r.IsAuthor(uuid.New()))
		events := r.Events()
		s.Require().Len(events, 1)
		s.Equal("recipe.created", events[0].EventName())
	})

	s.Run("validates content", func() {
		tests := []struct {
			name   string
			modify func(c *Content)
			want   error
		}{
			{"missing title", func(c *Content) { c.Title = " " }, ErrTitleRequired},
			{"long title", func(c *Content) { c.Title = strings.Repeat("t", 65) }, ErrTitleTooLong},
			{"missing ingredients", func(c *Content) { c.Ingredients = "" }, ErrIngredientsRequired},
			{"missing instructions", func(c *Content) { c.Instructions = "\n" }, ErrInstructionsRequired},
			{"missing keywords", func(c *Content) { c.Keywords = "" }, ErrKeywordsRequired},
			{"zero servings", func(c *Content) { c.Servings = 0 }, ErrInvalidServings},
			{"bad kcal type", func(c *Content) { c.KcalType = 3 }, ErrInvalidKcalType},
			{"negative fat", func(c *Content) { c.FatGram = ptr(-1) }, ErrNegativeNutrition},
		}
		for _, tt := range tests {
			s.Run(tt.name, func() {
				c := validContent()
				tt.modify(&c)
				_, err := NewRecipe(s.authorID, c)
				s.ErrorIs(err, tt.want)
			})
		}
	})
}

func (s *RecipeEntityTestSuite) TestUpdateKeepsHTMLInSync() {
	r, err := NewRecipe(s.authorID, validContent())
	s.Require().NoError(err)
	r.ClearEvents()

	c := r.Content()
	c.Instructions = "Bake **hot**."
	c.Background = "Grandma's"
	s.Require().NoError(r.Update(c))

	s.Contains(r.InstructionsHTML(), "<strong>hot</strong>")
	s.Contains(r.BackgroundHTML(), "Grandma")
	s.Contains(r.IngredientsHTML(), "<li>flour</li>")
	s.NotNil(r.LastUpdated())
	s.Equal(s.authorID, r.AuthorID())
	s.Len(r.Events(), 1)

	c.Background = ""
	s.Require().NoError(r.Update(c))
	s.Empty(r.BackgroundHTML())
}

func (s *RecipeEntityTestSuite) TestUpdateRejectsInvalidContent() {
	r, err := NewRecipe(s.authorID, validContent())
	s.Require().NoError(err)

	c := r.Content()
	c.Servings = -1
	s.ErrorIs(r.Update(c), ErrInvalidServings)
	s.Equal(4, r.Servings())
}

func (s *RecipeEntityTestSuite) TestImage() {
	r, err := NewRecipe(s.authorID, validContent())
	s.Require().NoError(err)
	s.False(r.HasImage())

	img := ImageURLs{Display: "https://i.example/a.jpg", Delete: "https://i.example/del/a"}
	r.SetImage(img)
	s.True(r.HasImage())

	s.Equal(img, r.ClearImage())
	s.False(r.HasImage())
	s.True(r.ClearImage().IsZero())
}

func (s *RecipeEntityTestSuite) TestSnapshotRoundTrip() {
	r, err := NewRecipe(s.authorID, validContent())
	s.Require().NoError(err)

	snap := r.Snapshot()
	snap.IngredientsHTML = ""
	restored := FromSnapshot(snap)

	s.Equal(r.ID(), restored.ID())
	s.Equal(r.IngredientsHTML(), restored.IngredientsHTML())
	s.Equal(r.InstructionsHTML(), restored.InstructionsHTML())
	s.Empty(restored.Events())
}

func TestRecipeEntityTestSuite(t *testing.T) {
	suite.Run(t, new(RecipeEntityTestSuite))
}

func newRecipe(t *testing.T, modify func(c *Content)) *Recipe {
	t.Helper()
	c := validContent()
	if modify != nil {
		modify(&c)
	}
	r, err := NewRecipe(uuid.New(), c)
	require.NoError(t, err)
	return r
}

func TestKcalConversions(t *testing.T) {
	perPerson := newRecipe(t, func(c *Content) {
		c.Kcal = ptr(500)
		c.KcalType = KcalTypePerPerson
	})
	require.NotNil(t, perPerson.KcalPerPerson())
	assert.InDelta(t, 500, *perPerson.KcalPerPerson(), 1e-9)
	assert.InDelta(t, 2000, *perPerson.KcalTotal(), 1e-9)

	total := newRecipe(t, func(c *Content) {
		c.Kcal = ptr(2000)
		c.KcalType = KcalTypeTotal
	})
	assert.InDelta(t, 500, *total.KcalPerPerson(), 1e-9)
	assert.InDelta(t, 2000, *total.KcalTotal(), 1e-9)

	missing := newRecipe(t, nil)
	assert.Nil(t, missing.KcalPerPerson())
	assert.Nil(t, missing.KcalTotal())

	// Servings unknown: only the direct value is available.
	noServings := FromSnapshot(Snapshot{Content: Content{Kcal: ptr(300), KcalType: KcalTypeTotal}})
	assert.Nil(t, noServings.KcalPerPerson())
	require.NotNil(t, noServings.KcalTotal())
	assert.InDelta(t, 300, *noServings.KcalTotal(), 1e-9)
}

func TestNutritionStrings(t *testing.T) {
	r := newRecipe(t, func(c *Content) {
		c.ProteinGram = ptr(12)
		c.CarbGram = ptr(12.34)
		c.FatGram = ptr(3.0001)
	})

	assert.Equal(t, "Protein: 12 g (48.72 kcal)", r.ProteinString())
	assert.Equal(t, "Carbs: 12.3 g (50.10 kcal)", r.CarbString())
	assert.Equal(t, "Fat: 3 g (26.40 kcal)", r.FatString())

	// Halves round to even.
	down := newRecipe(t, func(c *Content) { c.FatGram = ptr(0.25) })
	assert.Equal(t, "Fat: 0.2 g (2.20 kcal)", down.FatString())
	up := newRecipe(t, func(c *Content) { c.FatGram = ptr(0.75) })
	assert.Equal(t, "Fat: 0.8 g (6.60 kcal)", up.FatString())

	empty := newRecipe(t, nil)
	assert.Empty(t, empty.ProteinString())
	assert.Empty(t, empty.CarbString())
	assert.Empty(t, empty.FatString())
}

func TestCookingTime(t *testing.T) {
	tests := []struct {
		minutes *float64
		want    string
	}{
		{nil, ""},
		{ptr(0), "0 minutes"},
		{ptr(1), "1 minute"},
		{ptr(45), "45 minutes"},
		{ptr(61), "1 hour, 1 minute"},
		{ptr(90), "1 hour, 30 minutes"},
		{ptr(150), "2 hours, 30 minutes"},
		{ptr(24*60 + 5), "5 minutes"},
	}
	for _, tt := range tests {
		r := newRecipe(t, func(c *Content) { c.CookingTimeMin = tt.minutes })
		assert.Equal(t, tt.want, r.CookingTime())
	}
}

func TestShortIngredients(t *testing.T) {
	long := newRecipe(t, func(c *Content) {
		c.Ingredients = "one\n\ntwo\n\nthree\n\nfour"
	})
	short := long.ShortIngredients(5)
	assert.Contains(t, short, "one")
	assert.Contains(t, short, "three")
	assert.NotContains(t, short, "four")
	assert.Contains(t, short, "...")

	few := newRecipe(t, func(c *Content) { c.Ingredients = "salt" })
	assert.Equal(t, "<p>salt</p>", strings.TrimSpace(few.ShortIngredients(5)))
}
