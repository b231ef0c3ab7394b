package recipe

import (
	"strings"

	"github.com/tymenu/tymenu/pkg/markdown"
)

// KcalPerPerson returns the kcal for one serving, or nil when it cannot be
// determined.
func (r *Recipe) KcalPerPerson() *float64 {
	c := r.content
	if c.Kcal == nil {
		return nil
	}
	if c.KcalType == KcalTypePerPerson {
		v := *c.Kcal
		return &v
	}
	if c.Servings <= 0 {
		return nil
	}
	v := *c.Kcal / float64(c.Servings)
	return &v
}

// KcalTotal returns the kcal for the whole dish, or nil when it cannot be
// determined.
func (r *Recipe) KcalTotal() *float64 {
	c := r.content
	if c.Kcal == nil {
		return nil
	}
	if c.KcalType == KcalTypeTotal {
		v := *c.Kcal
		return &v
	}
	if c.Servings <= 0 {
		return nil
	}
	v := *c.Kcal * float64(c.Servings)
	return &v
}

func (r *Recipe) ProteinString() string {
	return energyString(r.content.ProteinGram, ProteinKcalPerGram, "Protein")
}

func (r *Recipe) CarbString() string {
	return energyString(r.content.CarbGram, CarbKcalPerGram, "Carbs")
}

func (r *Recipe) FatString() string {
	return energyString(r.content.FatGram, FatKcalPerGram, "Fat")
}

// CookingTime formats the cooking time, or returns "" when unknown.
func (r *Recipe) CookingTime() string {
	if r.content.CookingTimeMin == nil {
		return ""
	}
	return formatCookingTime(*r.content.CookingTimeMin)
}

// ShortIngredients renders the first n ingredient lines, followed by an
// ellipsis line when the list is longer.
func (r *Recipe) ShortIngredients(n int) string {
	if n <= 0 {
		n = 5
	}
	lines := strings.Split(r.content.Ingredients, "\n")
	if len(lines) > n {
		lines = append(lines[:n:n], "\n...")
	}
	return markdown.Render(strings.Join(lines, "\n"))
}
