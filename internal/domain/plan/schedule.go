package plan

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Meal is one recipe eaten on a calendar date.
type Meal struct {
	Date     time.Time
	Day      int
	Item     *Item
	Leftover bool
}

// Expand lays the plan's items onto the dates of inst, one Meal per day
// each item covers. Meals are ordered by date, fresh dishes first.
func (p *MenuPlan) Expand(inst *Instance) []Meal {
	var meals []Meal
	for _, item := range p.SortedItems() {
		for d := item.Day; d <= item.Day+item.DaysLeftover; d++ {
			meals = append(meals, Meal{
				Date:     inst.Date.AddDate(0, 0, d),
				Day:      d,
				Item:     item,
				Leftover: d != item.Day,
			})
		}
	}
	sort.SliceStable(meals, func(i, j int) bool {
		if meals[i].Day != meals[j].Day {
			return meals[i].Day < meals[j].Day
		}
		return !meals[i].Leftover && meals[j].Leftover
	})
	return meals
}

// MealsOn returns the meals of inst that fall on date.
func (p *MenuPlan) MealsOn(inst *Instance, date time.Time) []Meal {
	day := int(TruncateDay(date).Sub(inst.Date).Hours() / 24)
	if day < 0 {
		return nil
	}
	var meals []Meal
	for _, m := range p.Expand(inst) {
		if m.Day == day {
			meals = append(meals, m)
		}
	}
	return meals
}

// RecipeIDs returns the distinct recipes used by the plan in day order.
func (p *MenuPlan) RecipeIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, item := range p.SortedItems() {
		if !seen[item.RecipeID] {
			seen[item.RecipeID] = true
			ids = append(ids, item.RecipeID)
		}
	}
	return ids
}
