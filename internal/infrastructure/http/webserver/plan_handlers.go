package webserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tymenu/tymenu/internal/domain/user"
	"github.com/tymenu/tymenu/internal/ports/inbound"
)

// recipeChoices caps the recipe dropdown on the add recipe form.
const recipeChoices = 100

func (s *WebServer) planRoutes(r chi.Router) {
	moderate := s.requirePermission(user.PermissionModerate)
	admin := s.requirePermission(user.PermissionAdmin)

	r.Get("/plans", s.handlePlans)
	r.Get("/plan/view_plan/{id}", s.handleViewPlan)
	r.Get("/plan/calendar", s.handleCalendar)

	r.With(moderate).Get("/plan/new_plan", s.handleNewPlan)
	r.With(moderate).Post("/plan/new_plan", s.handleNewPlan)
	r.With(moderate).Get("/plan/add_recipe/{id}", s.handleAddPlanRecipe)
	r.With(moderate).Post("/plan/add_recipe/{id}", s.handleAddPlanRecipe)
	r.With(moderate).Post("/plan/schedule/{id}", s.handleSchedulePlan)
	r.With(admin).Post("/plan/delete_plan/{id}", s.handleDeletePlan)
	r.With(admin).Post("/plan/delete_plan_item/{id}", s.handleDeletePlanItem)
}

func (s *WebServer) handlePlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.plans.ListPlans(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "plans", page{"Title": "Menu Plans", "Plans": plans})
}

func (s *WebServer) handleViewPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	plan, err := s.plans.GetPlan(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "plan", page{
		"Title": plan.Title,
		"Plan":  plan,
		"Today": formatToday(),
	})
}

func (s *WebServer) handleNewPlan(w http.ResponseWriter, r *http.Request) {
	data := page{"Title": "New Menu Plan"}
	if r.Method != http.MethodPost {
		s.render(w, r, http.StatusOK, "plan_form", data)
		return
	}

	cmd := inbound.CreatePlanCommand{
		ActorID:     currentUser(r).ID,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
	data["Form"] = cmd
	plan, err := s.plans.CreatePlan(r.Context(), cmd)
	if err != nil {
		s.formFailure(w, r, "plan_form", data, err)
		return
	}
	sessionFrom(r).AddFlash(FlashSuccess, "Menu plan created.")
	s.redirect(w, r, "/plan/view_plan/"+plan.ID.String())
}

// handleAddPlanRecipe puts a recipe on a day of the plan.
func (s *WebServer) handleAddPlanRecipe(w http.ResponseWriter, r *http.Request) {
	planID, ok := idParam(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	plan, err := s.plans.GetPlan(r.Context(), planID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	choices, err := s.recipes.ListRecipes(r.Context(), inbound.PaginationParams{Page: 1, PageSize: recipeChoices})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data := page{
		"Title":   "Add Recipe to " + plan.Title,
		"Plan":    plan,
		"Recipes": choices.Recipes,
	}
	if r.Method != http.MethodPost {
		s.render(w, r, http.StatusOK, "add_recipe", data)
		return
	}

	recipeID, err := uuid.Parse(r.FormValue("recipe_id"))
	if err != nil {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	var problems []string
	day, err := formInt(r, "day")
	if err != nil {
		problems = append(problems, err.Error())
	}
	leftover, err := formInt(r, "days_leftover")
	if err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		s.formProblems(w, r, "add_recipe", data, problems)
		return
	}

	if _, err := s.plans.AddRecipe(r.Context(), inbound.AddPlanRecipeCommand{
		ActorID:      currentUser(r).ID,
		PlanID:       planID,
		RecipeID:     recipeID,
		Day:          day,
		DaysLeftover: leftover,
	}); err != nil {
		s.formFailure(w, r, "add_recipe", data, err)
		return
	}
	sessionFrom(r).AddFlash(FlashSuccess, "Recipe added to plan.")
	s.redirect(w, r, "/plan/view_plan/"+planID.String())
}

func (s *WebServer) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	if err := s.plans.DeletePlan(r.Context(), id, currentUser(r).ID); err != nil {
		s.fail(w, r, err)
		return
	}
	sessionFrom(r).AddFlash(FlashSuccess, "Menu plan deleted.")
	s.redirect(w, r, "/plans")
}

func (s *WebServer) handleDeletePlanItem(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	planID, err := s.plans.DeleteItem(r.Context(), id, currentUser(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sessionFrom(r).AddFlash(FlashSuccess, "Recipe removed from plan.")
	s.redirect(w, r, "/plan/view_plan/"+planID.String())
}

// handleSchedulePlan starts the plan on the chosen date, or on the Monday
// of that week.
func (s *WebServer) handleSchedulePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	back := "/plan/view_plan/" + id.String()
	date, err := parseDate(r.FormValue("date"))
	if err != nil {
		sessionFrom(r).AddFlash(FlashError, "Please pick a valid date.")
		s.redirect(w, r, back)
		return
	}

	inst, err := s.plans.Schedule(r.Context(), inbound.ScheduleCommand{
		ActorID:  currentUser(r).ID,
		PlanID:   id,
		Date:     date,
		FirstDay: r.FormValue("first_day"),
	})
	switch {
	case err == nil:
		sessionFrom(r).AddFlash(FlashSuccess, "Menu plan scheduled.")
		s.redirect(w, r, "/plan/calendar?date="+inst.Date.Format(dateLayout))
	case isFormError(err):
		flashError(sessionFrom(r), err)
		s.redirect(w, r, back)
	default:
		s.fail(w, r, err)
	}
}

func (s *WebServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		sessionFrom(r).AddFlash(FlashError, "Please pick a valid date.")
		date, _ = parseDate("")
	}
	days, _ := formInt(r, "days")

	cal, err := s.plans.Calendar(r.Context(), inbound.CalendarQuery{From: date, Days: days})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "calendar", page{
		"Title":    "Calendar",
		"Calendar": cal,
		"Previous": cal.From.AddDate(0, 0, -len(cal.Days)).Format(dateLayout),
		"Next":     cal.From.AddDate(0, 0, len(cal.Days)).Format(dateLayout),
	})
}

func formatToday() string {
	t, _ := parseDate("")
	return t.Format(dateLayout)
}
