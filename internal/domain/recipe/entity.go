// Package recipe contains the recipe aggregate, its nutrition helpers and
// the search criteria used to query the catalogue.
package recipe

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tymenu/tymenu/internal/domain/shared"
	"github.com/tymenu/tymenu/pkg/markdown"
)

const maxTitleLength = 64

// Content holds the author-editable fields of a recipe.
type Content struct {
	Title          string
	Ingredients    string
	Instructions   string
	Background     string
	Keywords       string
	Source         string
	Servings       int
	Kcal           *float64
	KcalType       KcalType
	ProteinGram    *float64
	CarbGram       *float64
	FatGram        *float64
	CookingTimeMin *float64
}

// Validate checks the required fields and ranges.
func (c Content) Validate() error {
	title := strings.TrimSpace(c.Title)
	switch {
	case title == "":
		return ErrTitleRequired
	case len(title) > maxTitleLength:
		return ErrTitleTooLong
	case strings.TrimSpace(c.Ingredients) == "":
		return ErrIngredientsRequired
	case strings.TrimSpace(c.Instructions) == "":
		return ErrInstructionsRequired
	case strings.TrimSpace(c.Keywords) == "":
		return ErrKeywordsRequired
	case c.Servings <= 0:
		return ErrInvalidServings
	case !c.KcalType.IsValid():
		return ErrInvalidKcalType
	}
	for _, v := range []*float64{c.Kcal, c.ProteinGram, c.CarbGram, c.FatGram, c.CookingTimeMin} {
		if v != nil && *v < 0 {
			return ErrNegativeNutrition
		}
	}
	return nil
}

// Recipe is the catalogue aggregate. The HTML fields always hold the
// sanitized rendering of their markdown source.
type Recipe struct {
	shared.AggregateRoot

	id       uuid.UUID
	authorID uuid.UUID
	content  Content

	ingredientsHTML  string
	instructionsHTML string
	backgroundHTML   string

	image       ImageURLs
	createdAt   time.Time
	lastUpdated *time.Time
}

// NewRecipe validates content and creates a recipe owned by authorID.
func NewRecipe(authorID uuid.UUID, content Content) (*Recipe, error) {
	content.Title = strings.TrimSpace(content.Title)
	if err := content.Validate(); err != nil {
		return nil, err
	}
	r := &Recipe{
		id:        uuid.New(),
		authorID:  authorID,
		createdAt: shared.Now(),
	}
	r.setContent(content)
	r.AddEvent(RecipeCreatedEvent{
		RecipeID:  r.id,
		AuthorID:  authorID,
		Title:     content.Title,
		CreatedAt: r.createdAt,
	})
	return r, nil
}

// Snapshot is the persisted state of a recipe.
type Snapshot struct {
	ID               uuid.UUID
	AuthorID         uuid.UUID
	Content          Content
	IngredientsHTML  string
	InstructionsHTML string
	BackgroundHTML   string
	Image            ImageURLs
	CreatedAt        time.Time
	LastUpdated      *time.Time
}

// FromSnapshot rebuilds a recipe loaded from storage. Missing HTML is
// rendered from the markdown source.
func FromSnapshot(s Snapshot) *Recipe {
	r := &Recipe{
		id:               s.ID,
		authorID:         s.AuthorID,
		content:          s.Content,
		ingredientsHTML:  s.IngredientsHTML,
		instructionsHTML: s.InstructionsHTML,
		backgroundHTML:   s.BackgroundHTML,
		image:            s.Image,
		createdAt:        s.CreatedAt,
		lastUpdated:      s.LastUpdated,
	}
	if r.ingredientsHTML == "" && r.content.Ingredients != "" {
		r.ingredientsHTML = markdown.Render(r.content.Ingredients)
	}
	if r.instructionsHTML == "" && r.content.Instructions != "" {
		r.instructionsHTML = markdown.Render(r.content.Instructions)
	}
	if r.backgroundHTML == "" && r.content.Background != "" {
		r.backgroundHTML = markdown.Render(r.content.Background)
	}
	return r
}

// Snapshot returns the persisted state of the recipe.
func (r *Recipe) Snapshot() Snapshot {
	return Snapshot{
		ID:               r.id,
		AuthorID:         r.authorID,
		Content:          r.content,
		IngredientsHTML:  r.ingredientsHTML,
		InstructionsHTML: r.instructionsHTML,
		BackgroundHTML:   r.backgroundHTML,
		Image:            r.image,
		CreatedAt:        r.createdAt,
		LastUpdated:      r.lastUpdated,
	}
}

// Update replaces the editable content. The author never changes.
func (r *Recipe) Update(content Content) error {
	content.Title = strings.TrimSpace(content.Title)
	if err := content.Validate(); err != nil {
		return err
	}
	old := r.content.Title
	r.setContent(content)
	now := shared.Now()
	r.lastUpdated = &now
	r.AddEvent(RecipeUpdatedEvent{
		RecipeID:  r.id,
		OldTitle:  old,
		NewTitle:  content.Title,
		UpdatedAt: now,
	})
	return nil
}

func (r *Recipe) setContent(content Content) {
	if content.Ingredients != r.content.Ingredients || r.ingredientsHTML == "" {
		r.ingredientsHTML = markdown.Render(content.Ingredients)
	}
	if content.Instructions != r.content.Instructions || r.instructionsHTML == "" {
		r.instructionsHTML = markdown.Render(content.Instructions)
	}
	if content.Background != r.content.Background || (r.backgroundHTML == "" && content.Background != "") {
		r.backgroundHTML = markdown.Render(content.Background)
	}
	r.content = content
}

// SetImage stores the URLs of a hosted image.
func (r *Recipe) SetImage(image ImageURLs) {
	r.image = image
	r.AddEvent(RecipeImageChangedEvent{RecipeID: r.id, ChangedAt: shared.Now()})
}

// ClearImage removes the image and returns the URLs it had.
func (r *Recipe) ClearImage() ImageURLs {
	old := r.image
	r.image = ImageURLs{}
	if !old.IsZero() {
		r.AddEvent(RecipeImageChangedEvent{RecipeID: r.id, Removed: true, ChangedAt: shared.Now()})
	}
	return old
}

func (r *Recipe) ID() uuid.UUID            { return r.id }
func (r *Recipe) AuthorID() uuid.UUID      { return r.authorID }
func (r *Recipe) Content() Content         { return r.content }
func (r *Recipe) Title() string            { return r.content.Title }
func (r *Recipe) Ingredients() string      { return r.content.Ingredients }
func (r *Recipe) Instructions() string     { return r.content.Instructions }
func (r *Recipe) Background() string       { return r.content.Background }
func (r *Recipe) Keywords() string         { return r.content.Keywords }
func (r *Recipe) Source() string           { return r.content.Source }
func (r *Recipe) Servings() int            { return r.content.Servings }
func (r *Recipe) Kcal() *float64           { return r.content.Kcal }
func (r *Recipe) KcalType() KcalType       { return r.content.KcalType }
func (r *Recipe) CookingTimeMin() *float64 { return r.content.CookingTimeMin }
func (r *Recipe) IngredientsHTML() string  { return r.ingredientsHTML }
func (r *Recipe) InstructionsHTML() string { return r.instructionsHTML }
func (r *Recipe) BackgroundHTML() string   { return r.backgroundHTML }
func (r *Recipe) Image() ImageURLs         { return r.image }
func (r *Recipe) HasImage() bool           { return r.image.Display != "" }
func (r *Recipe) CreatedAt() time.Time     { return r.createdAt }
func (r *Recipe) LastUpdated() *time.Time  { return r.lastUpdated }

// KeywordList splits the comma separated keywords.
func (r *Recipe) KeywordList() []string {
	return ParseKeywords(r.content.Keywords)
}

// IsAuthor reports whether userID wrote the recipe.
func (r *Recipe) IsAuthor(userID uuid.UUID) bool {
	return userID != uuid.Nil && r.authorID == userID
}
