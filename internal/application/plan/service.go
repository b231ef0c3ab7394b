// Package plan provides the application layer for menu plans and the
// calendar built from their scheduled instances.
package plan

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/application/recipe"
	"github.com/tymenu/tymenu/internal/domain/plan"
	domainrecipe "github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/domain/shared"
	"github.com/tymenu/tymenu/internal/domain/user"
	"github.com/tymenu/tymenu/internal/ports/inbound"
	"github.com/tymenu/tymenu/internal/ports/outbound"
	"github.com/tymenu/tymenu/pkg/errors"
	"github.com/tymenu/tymenu/pkg/validation"
)

const (
	defaultCalendarDays = 7
	maxCalendarDays     = 42
)

// PlanService implements inbound.PlanService
type PlanService struct {
	plans    outbound.PlanRepository
	recipes  outbound.RecipeRepository
	users    outbound.UserRepository
	tx       outbound.Transactor
	events   outbound.EventPublisher
	validate *validation.Validator
	logger   *zap.Logger
}

func NewPlanService(
	plans outbound.PlanRepository,
	recipes outbound.RecipeRepository,
	users outbound.UserRepository,
	tx outbound.Transactor,
	events outbound.EventPublisher,
	validate *validation.Validator,
	logger *zap.Logger,
) *PlanService {
	if events == nil {
		events = outbound.NopPublisher{}
	}
	return &PlanService{
		plans:    plans,
		recipes:  recipes,
		users:    users,
		tx:       tx,
		events:   events,
		validate: validate,
		logger:   logger.Named("plan-service"),
	}
}

var _ inbound.PlanService = (*PlanService)(nil)

// CreatePlan needs MODERATE.
func (s *PlanService) CreatePlan(ctx context.Context, cmd inbound.CreatePlanCommand) (*inbound.PlanDTO, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}
	actor, err := s.authorize(ctx, cmd.ActorID, user.PermissionModerate, "create menu plans")
	if err != nil {
		return nil, err
	}
	p, err := plan.NewMenuPlan(cmd.Title, cmd.Description, actor.ID())
	if err != nil {
		return nil, s.mapError(err, "create plan")
	}
	if err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.plans.Create(ctx, p)
	}); err != nil {
		return nil, s.mapError(err, "create plan")
	}
	s.publish(ctx, p.Events())
	s.logger.Info("Menu plan created", zap.String("plan_id", p.ID().String()), zap.String("title", p.Title()))
	return s.toDTO(p, actor.Username(), nil), nil
}

// DeletePlan removes a plan with its items and instances. Needs ADMIN.
func (s *PlanService) DeletePlan(ctx context.Context, planID, actorID uuid.UUID) error {
	if _, err := s.authorize(ctx, actorID, user.PermissionAdmin, "delete menu plans"); err != nil {
		return err
	}
	if err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.plans.Delete(ctx, planID)
	}); err != nil {
		return s.mapError(err, "delete plan")
	}
	s.logger.Info("Menu plan deleted", zap.String("plan_id", planID.String()))
	return nil
}

// AddRecipe places an existing recipe on a day of the plan. Needs MODERATE.
func (s *PlanService) AddRecipe(ctx context.Context, cmd inbound.AddPlanRecipeCommand) (*inbound.PlanItemDTO, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, cmd.ActorID, user.PermissionModerate, "change menu plans"); err != nil {
		return nil, err
	}

	var (
		p    *plan.MenuPlan
		r    *domainrecipe.Recipe
		item *plan.Item
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.plans.FindByID(ctx, cmd.PlanID); err != nil {
			return err
		}
		if r, err = s.recipes.FindByID(ctx, cmd.RecipeID); err != nil {
			return err
		}
		if item, err = p.AddRecipe(r.ID(), cmd.Day, cmd.DaysLeftover); err != nil {
			return err
		}
		return s.plans.AddItem(ctx, item)
	})
	if err != nil {
		return nil, s.mapError(err, "add recipe to plan")
	}
	s.publish(ctx, p.Events())

	dto := recipe.ToDTO(r, "")
	return &inbound.PlanItemDTO{
		ID:           item.ID,
		PlanID:       item.PlanID,
		Day:          item.Day,
		DaysLeftover: item.DaysLeftover,
		Recipe:       &dto,
	}, nil
}

// DeleteItem removes one item and returns its plan. Needs ADMIN.
func (s *PlanService) DeleteItem(ctx context.Context, itemID, actorID uuid.UUID) (uuid.UUID, error) {
	if _, err := s.authorize(ctx, actorID, user.PermissionAdmin, "delete menu plan items"); err != nil {
		return uuid.Nil, err
	}
	var planID uuid.UUID
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		item, err := s.plans.FindItem(ctx, itemID)
		if err != nil {
			return err
		}
		planID = item.PlanID
		return s.plans.DeleteItem(ctx, itemID)
	})
	if err != nil {
		return uuid.Nil, s.mapError(err, "delete plan item")
	}
	return planID, nil
}

// Schedule starts the plan on cmd.Date, or on the Monday of that week.
// Needs MODERATE.
func (s *PlanService) Schedule(ctx context.Context, cmd inbound.ScheduleCommand) (*inbound.InstanceDTO, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, cmd.ActorID, user.PermissionModerate, "schedule menu plans"); err != nil {
		return nil, err
	}
	date := cmd.Date
	if cmd.FirstDay == inbound.FirstDayMonday {
		date = plan.WeekStart(date)
	}

	var (
		p    *plan.MenuPlan
		inst *plan.Instance
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.plans.FindByID(ctx, cmd.PlanID); err != nil {
			return err
		}
		if inst, err = p.Schedule(date); err != nil {
			return err
		}
		return s.plans.AddInstance(ctx, inst)
	})
	if err != nil {
		return nil, s.mapError(err, "schedule plan")
	}
	s.publish(ctx, p.Events())
	s.logger.Info("Menu plan scheduled",
		zap.String("plan_id", p.ID().String()),
		zap.Time("date", inst.Date),
	)
	return &inbound.InstanceDTO{ID: inst.ID, PlanID: p.ID(), PlanTitle: p.Title(), Date: inst.Date}, nil
}

// GetPlan returns a plan with its items in day order.
func (s *PlanService) GetPlan(ctx context.Context, planID uuid.UUID) (*inbound.PlanDTO, error) {
	p, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, s.mapError(err, "find plan")
	}
	recipes, err := s.recipesOf(ctx, []*plan.MenuPlan{p})
	if err != nil {
		return nil, err
	}
	name := ""
	if author, err := s.users.FindByID(ctx, p.AddedByID()); err == nil {
		name = author.Username()
	}
	return s.toDTO(p, name, recipes), nil
}

// ListPlans returns every plan, newest first.
func (s *PlanService) ListPlans(ctx context.Context) ([]inbound.PlanDTO, error) {
	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, errors.NewDatabaseError("list plans", err)
	}
	recipes, err := s.recipesOf(ctx, plans)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(plans))
	for _, p := range plans {
		ids = append(ids, p.AddedByID())
	}
	authors, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, errors.NewDatabaseError("find plan authors", err)
	}
	names := make(map[uuid.UUID]string, len(authors))
	for _, a := range authors {
		names[a.ID()] = a.Username()
	}

	out := make([]inbound.PlanDTO, 0, len(plans))
	for _, p := range plans {
		out = append(out, *s.toDTO(p, names[p.AddedByID()], recipes))
	}
	return out, nil
}

// Calendar lists, for each of query.Days days from query.From, the meals
// of every scheduled plan that covers the day.
func (s *PlanService) Calendar(ctx context.Context, query inbound.CalendarQuery) (*inbound.CalendarDTO, error) {
	days := query.Days
	if days <= 0 {
		days = defaultCalendarDays
	}
	if days > maxCalendarDays {
		days = maxCalendarDays
	}
	from := query.From
	if from.IsZero() {
		from = shared.Now()
	}
	from = plan.TruncateDay(from)
	to := from.AddDate(0, 0, days-1)

	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, errors.NewDatabaseError("list plans", err)
	}
	byID := make(map[uuid.UUID]*plan.MenuPlan, len(plans))
	longest := 0
	for _, p := range plans {
		byID[p.ID()] = p
		if n := p.Length(); n > longest {
			longest = n
		}
	}

	// An instance started up to longest-1 days earlier still reaches from.
	instances, err := s.plans.InstancesBetween(ctx, from.AddDate(0, 0, -longest), to)
	if err != nil {
		return nil, errors.NewDatabaseError("find plan instances", err)
	}
	recipes, err := s.recipesOf(ctx, plans)
	if err != nil {
		return nil, err
	}

	cal := &inbound.CalendarDTO{From: from, Days: make([]inbound.CalendarDay, 0, days)}
	for d := 0; d < days; d++ {
		date := from.AddDate(0, 0, d)
		day := inbound.CalendarDay{Date: date, Meals: []inbound.CalendarMeal{}}
		for _, inst := range instances {
			p, ok := byID[inst.PlanID]
			if !ok {
				continue
			}
			for _, meal := range p.MealsOn(inst, date) {
				day.Meals = append(day.Meals, inbound.CalendarMeal{
					PlanID:    p.ID(),
					PlanTitle: p.Title(),
					Leftover:  meal.Leftover,
					Recipe:    recipes[meal.Item.RecipeID],
				})
			}
		}
		cal.Days = append(cal.Days, day)
	}
	return cal, nil
}

// recipesOf loads the recipes used by plans in one query.
func (s *PlanService) recipesOf(ctx context.Context, plans []*plan.MenuPlan) (map[uuid.UUID]*inbound.RecipeDTO, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, p := range plans {
		for _, id := range p.RecipeIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return map[uuid.UUID]*inbound.RecipeDTO{}, nil
	}
	found, err := s.recipes.FindByIDs(ctx, ids)
	if err != nil {
		return nil, errors.NewDatabaseError("find plan recipes", err)
	}
	names, err := recipe.AuthorNames(ctx, s.users, found)
	if err != nil {
		return nil, errors.NewDatabaseError("find recipe authors", err)
	}
	out := make(map[uuid.UUID]*inbound.RecipeDTO, len(found))
	for _, r := range found {
		dto := recipe.ToDTO(r, names[r.AuthorID()])
		out[r.ID()] = &dto
	}
	return out, nil
}

func (s *PlanService) authorize(ctx context.Context, actorID uuid.UUID, perm user.Permission, action string) (*user.User, error) {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil && !stderrors.Is(err, user.ErrUserNotFound) {
		return nil, errors.NewDatabaseError("find user", err)
	}
	if !actor.Can(perm) {
		return nil, errors.NewInsufficientPermissionsError(action)
	}
	return actor, nil
}

func (s *PlanService) publish(ctx context.Context, events []shared.DomainEvent) {
	if len(events) > 0 {
		s.events.Publish(ctx, events...)
	}
}

func (s *PlanService) mapError(err error, operation string) error {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}
	switch {
	case stderrors.Is(err, plan.ErrPlanNotFound):
		return errors.NewNotFoundError("menu plan").WithCause(err)
	case stderrors.Is(err, plan.ErrItemNotFound):
		return errors.NewNotFoundError("menu plan item").WithCause(err)
	case stderrors.Is(err, domainrecipe.ErrRecipeNotFound):
		return errors.NewNotFoundError("recipe").WithCause(err)
	case stderrors.Is(err, plan.ErrTitleRequired), stderrors.Is(err, plan.ErrTitleTooLong),
		stderrors.Is(err, plan.ErrNegativeDay), stderrors.Is(err, plan.ErrNegativeLeftovers),
		stderrors.Is(err, plan.ErrRecipeRequired), stderrors.Is(err, plan.ErrDateRequired):
		return errors.NewValidationError(err.Error()).WithCause(err)
	}
	s.logger.Error("Database operation failed", zap.String("operation", operation), zap.Error(err))
	return errors.NewDatabaseError(operation, err)
}

func (s *PlanService) toDTO(p *plan.MenuPlan, addedBy string, recipes map[uuid.UUID]*inbound.RecipeDTO) *inbound.PlanDTO {
	dto := &inbound.PlanDTO{
		ID:              p.ID(),
		Title:           p.Title(),
		Description:     p.Description(),
		DescriptionHTML: p.DescriptionHTML(),
		AddedByID:       p.AddedByID(),
		AddedByName:     addedBy,
		CreatedAt:       p.CreatedAt(),
		Length:          p.Length(),
		Items:           []inbound.PlanItemDTO{},
		Instances:       []inbound.InstanceDTO{},
	}
	for _, item := range p.SortedItems() {
		dto.Items = append(dto.Items, inbound.PlanItemDTO{
			ID:           item.ID,
			PlanID:       item.PlanID,
			Day:          item.Day,
			DaysLeftover: item.DaysLeftover,
			Recipe:       recipes[item.RecipeID],
		})
	}
	for _, inst := range p.Instances() {
		dto.Instances = append(dto.Instances, inbound.InstanceDTO{
			ID:        inst.ID,
			PlanID:    p.ID(),
			PlanTitle: p.Title(),
			Date:      inst.Date,
		})
	}
	return dto
}
