package webserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/ports/inbound"
)

const dateLayout = "2006-01-02"

// pageParam reads ?page=, defaulting to the first page.
func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// idParam parses a uuid path parameter.
func idParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// formInt returns 0 for a blank field, leaving the check to validation.
func formInt(r *http.Request, name string) (int, error) {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number.", name)
	}
	return n, nil
}

// formFloat returns nil for a blank field.
func formFloat(r *http.Request, name string) (*float64, error) {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number.", name)
	}
	return &f, nil
}

// parseRecipeForm reads the recipe form. Malformed numbers are reported as
// messages; everything else is left to the validator.
func parseRecipeForm(r *http.Request) (inbound.RecipeInput, []string) {
	in := inbound.RecipeInput{
		Title:        r.FormValue("title"),
		Ingredients:  r.FormValue("ingredients"),
		Instructions: r.FormValue("instructions"),
		Background:   r.FormValue("background"),
		Keywords:     r.FormValue("keywords"),
		Source:       r.FormValue("source"),
		KcalType:     int(recipe.KcalTypePerPerson),
	}

	var problems []string
	var err error
	if in.Servings, err = formInt(r, "servings"); err != nil {
		problems = append(problems, err.Error())
	}
	if r.FormValue("kcal_type") != "" {
		if in.KcalType, err = formInt(r, "kcal_type"); err != nil {
			problems = append(problems, err.Error())
		}
	}
	for _, f := range []struct {
		name string
		dst  **float64
	}{
		{"kcal", &in.Kcal},
		{"protein_gram", &in.ProteinGram},
		{"carb_gram", &in.CarbGram},
		{"fat_gram", &in.FatGram},
		{"cooking_time_min", &in.CookingTimeMin},
	} {
		if *f.dst, err = formFloat(r, f.name); err != nil {
			problems = append(problems, err.Error())
		}
	}
	return in, problems
}

// parseDate reads a yyyy-mm-dd value, falling back to today.
func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", v)
	}
	return t, nil
}
