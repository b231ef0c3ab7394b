// Package plan models menu plans: recipes placed on day offsets that can
// be scheduled onto calendar dates.
package plan

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tymenu/tymenu/internal/domain/shared"
	"github.com/tymenu/tymenu/pkg/markdown"
)

const maxTitleLength = 255

// MenuPlan owns its items and instances; deleting the plan deletes both.
type MenuPlan struct {
	shared.AggregateRoot

	id              uuid.UUID
	title           string
	description     string
	descriptionHTML string
	addedByID       uuid.UUID
	createdAt       time.Time
	items           []*Item
	instances       []*Instance
}

// Item places a recipe on a day offset of a plan. The dish also covers
// DaysLeftover following days.
type Item struct {
	ID           uuid.UUID
	PlanID       uuid.UUID
	RecipeID     uuid.UUID
	Day          int
	DaysLeftover int
}

// Covers reports whether the item is eaten on day, fresh or as leftovers.
func (i *Item) Covers(day int) bool {
	return day >= i.Day && day <= i.Day+i.DaysLeftover
}

// Instance schedules a plan so that day 0 falls on Date.
type Instance struct {
	ID     uuid.UUID
	PlanID uuid.UUID
	Date   time.Time
}

// NewMenuPlan creates an empty plan.
func NewMenuPlan(title, description string, addedByID uuid.UUID) (*MenuPlan, error) {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	p := &MenuPlan{
		id:        uuid.New(),
		title:     title,
		addedByID: addedByID,
		createdAt: shared.Now(),
	}
	p.SetDescription(description)
	p.AddEvent(PlanCreatedEvent{PlanID: p.id, AddedByID: addedByID, CreatedAt: p.createdAt})
	return p, nil
}

func validateTitle(title string) error {
	if title == "" {
		return ErrTitleRequired
	}
	if len(title) > maxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

// Snapshot is the persisted state of a plan.
type Snapshot struct {
	ID              uuid.UUID
	Title           string
	Description     string
	DescriptionHTML string
	AddedByID       uuid.UUID
	CreatedAt       time.Time
	Items           []*Item
	Instances       []*Instance
}

// FromSnapshot rebuilds a plan loaded from storage.
func FromSnapshot(s Snapshot) *MenuPlan {
	p := &MenuPlan{
		id:              s.ID,
		title:           s.Title,
		description:     s.Description,
		descriptionHTML: s.DescriptionHTML,
		addedByID:       s.AddedByID,
		createdAt:       s.CreatedAt,
		items:           s.Items,
		instances:       s.Instances,
	}
	if p.descriptionHTML == "" && p.description != "" {
		p.descriptionHTML = markdown.Render(p.description)
	}
	return p
}

// Snapshot returns the persisted state of the plan.
func (p *MenuPlan) Snapshot() Snapshot {
	return Snapshot{
		ID:              p.id,
		Title:           p.title,
		Description:     p.description,
		DescriptionHTML: p.descriptionHTML,
		AddedByID:       p.addedByID,
		CreatedAt:       p.createdAt,
		Items:           p.items,
		Instances:       p.instances,
	}
}

func (p *MenuPlan) ID() uuid.UUID           { return p.id }
func (p *MenuPlan) Title() string           { return p.title }
func (p *MenuPlan) Description() string     { return p.description }
func (p *MenuPlan) DescriptionHTML() string { return p.descriptionHTML }
func (p *MenuPlan) AddedByID() uuid.UUID    { return p.addedByID }
func (p *MenuPlan) CreatedAt() time.Time    { return p.createdAt }
func (p *MenuPlan) Items() []*Item          { return p.items }
func (p *MenuPlan) Instances() []*Instance  { return p.instances }

// Rename changes the title.
func (p *MenuPlan) Rename(title string) error {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return err
	}
	p.title = title
	return nil
}

// SetDescription updates the markdown description and its HTML.
func (p *MenuPlan) SetDescription(description string) {
	p.description = description
	p.descriptionHTML = markdown.Render(description)
}

// AddRecipe places recipeID on day with the given number of leftover days.
func (p *MenuPlan) AddRecipe(recipeID uuid.UUID, day, daysLeftover int) (*Item, error) {
	if recipeID == uuid.Nil {
		return nil, ErrRecipeRequired
	}
	if day < 0 {
		return nil, ErrNegativeDay
	}
	if daysLeftover < 0 {
		return nil, ErrNegativeLeftovers
	}
	item := &Item{
		ID:           uuid.New(),
		PlanID:       p.id,
		RecipeID:     recipeID,
		Day:          day,
		DaysLeftover: daysLeftover,
	}
	p.items = append(p.items, item)
	p.AddEvent(RecipeAddedEvent{
		PlanID:   p.id,
		ItemID:   item.ID,
		RecipeID: recipeID,
		Day:      day,
		AddedAt:  shared.Now(),
	})
	return item, nil
}

// RemoveItem deletes the item with itemID.
func (p *MenuPlan) RemoveItem(itemID uuid.UUID) error {
	for i, item := range p.items {
		if item.ID == itemID {
			p.items = append(p.items[:i], p.items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

// SortedItems returns the items ordered by day. Items on the same day
// keep their insertion order.
func (p *MenuPlan) SortedItems() []*Item {
	items := make([]*Item, len(p.items))
	copy(items, p.items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Day < items[j].Day
	})
	return items
}

// Length is the number of days the plan spans, leftovers included.
func (p *MenuPlan) Length() int {
	n := 0
	for _, item := range p.items {
		if end := item.Day + item.DaysLeftover + 1; end > n {
			n = end
		}
	}
	return n
}

// Schedule starts the plan on date. Only the calendar day of date is kept.
func (p *MenuPlan) Schedule(date time.Time) (*Instance, error) {
	if date.IsZero() {
		return nil, ErrDateRequired
	}
	inst := &Instance{ID: uuid.New(), PlanID: p.id, Date: TruncateDay(date)}
	p.instances = append(p.instances, inst)
	p.AddEvent(PlanScheduledEvent{
		PlanID:      p.id,
		InstanceID:  inst.ID,
		Date:        inst.Date,
		ScheduledAt: shared.Now(),
	})
	return inst, nil
}

// TruncateDay drops the time of day, keeping the date in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday on or before t.
func WeekStart(t time.Time) time.Time {
	day := TruncateDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
