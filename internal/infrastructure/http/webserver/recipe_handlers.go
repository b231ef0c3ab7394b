package webserver

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/domain/user"
	"github.com/tymenu/tymenu/internal/ports/inbound"
	"github.com/tymenu/tymenu/pkg/errors"
)

const defaultMaxUpload = 10 << 20

func (s *WebServer) recipeRoutes(r chi.Router) {
	r.With(s.requirePermission(user.PermissionWrite)).Get("/recipes/new", s.handleNewRecipe)
	r.With(s.requirePermission(user.PermissionWrite)).Post("/recipes/new", s.handleNewRecipe)
	r.Get("/recipes/{id}", s.handleRecipe)

	r.Group(func(r chi.Router) {
		r.Use(s.requireLogin)
		r.Get("/recipes/{id}/edit", s.handleEditRecipe)
		r.Post("/recipes/{id}/edit", s.handleEditRecipe)
		r.Post("/recipes/{id}/image", s.handleRecipeImage)
		r.Post("/recipes/{id}/delete", s.handleDeleteRecipe)
	})

	r.Get("/search", s.handleSearch)
	r.Post("/search", s.handleSearch)
	r.Get("/search/simple", s.handleSimpleSearch)
}

func (s *WebServer) handleNewRecipe(w http.ResponseWriter, r *http.Request) {
	data := page{"Title": "New Recipe", "Action": "/recipes/new"}
	if r.Method != http.MethodPost {
		data["Form"] = inbound.RecipeInput{KcalType: 1}
		s.render(w, r, http.StatusOK, "recipe_form", data)
		return
	}

	input, problems := parseRecipeForm(r)
	data["Form"] = input
	if len(problems) > 0 {
		s.formProblems(w, r, "recipe_form", data, problems)
		return
	}

	created, err := s.recipes.CreateRecipe(r.Context(), inbound.CreateRecipeCommand{
		AuthorID:    currentUser(r).ID,
		RecipeInput: input,
	})
	if err != nil {
		s.formFailure(w, r, "recipe_form", data, err)
		return
	}
	sessionFrom(r).AddFlash(FlashSuccess, "Recipe created.")
	s.redirect(w, r, "/recipes/"+created.ID.String())
}

func (s *WebServer) handleRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	rec, err := s.recipes.GetRecipe(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	me := currentUser(r)
	s.render(w, r, http.StatusOK, "recipe", page{
		"Title":     rec.Title,
		"Recipe":    rec,
		"CanEdit":   me.Is(rec.AuthorID) || me.IsModerator(),
		"CanDelete": me.Is(rec.AuthorID) || me.IsAdministrator(),
	})
}

func (s *WebServer) handleEditRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	rec, err := s.recipes.GetRecipe(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	me := currentUser(r)
	if !me.Is(rec.AuthorID) && !me.IsModerator() {
		s.renderError(w, r, http.StatusForbidden)
		return
	}

	data := page{
		"Title":  "Edit " + rec.Title,
		"Action": "/recipes/" + id.String() + "/edit",
		"Recipe": rec,
	}
	if r.Method != http.MethodPost {
		data["Form"] = rec.Input()
		s.render(w, r, http.StatusOK, "recipe_form", data)
		return
	}

	input, problems := parseRecipeForm(r)
	data["Form"] = input
	if len(problems) > 0 {
		s.formProblems(w, r, "recipe_form", data, problems)
		return
	}
	if _, err := s.recipes.UpdateRecipe(r.Context(), inbound.UpdateRecipeCommand{
		RecipeID:    id,
		ActorID:     me.ID,
		RecipeInput: input,
	}); err != nil {
		s.formFailure(w, r, "recipe_form", data, err)
		return
	}
	sessionFrom(r).AddFlash(FlashSuccess, "Recipe updated.")
	s.redirect(w, r, "/recipes/"+id.String())
}

// handleRecipeImage uploads a new image, or drops the current one when the
// remove field is set.
func (s *WebServer) handleRecipeImage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	back := "/recipes/" + id.String()
	me := currentUser(r)

	limit := s.config.ImageHost.MaxUploadSize
	if limit <= 0 {
		limit = defaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		sessionFrom(r).AddFlash(FlashError, "The image could not be read.")
		s.redirect(w, r, back)
		return
	}

	if r.FormValue("remove") != "" {
		if _, err := s.recipes.RemoveImage(r.Context(), id, me.ID); err != nil {
			s.fail(w, r, err)
			return
		}
		sessionFrom(r).AddFlash(FlashSuccess, "Image removed.")
		s.redirect(w, r, back)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		sessionFrom(r).AddFlash(FlashError, "Please choose an image.")
		s.redirect(w, r, back)
		return
	}
	defer file.Close()

	_, err = s.recipes.AttachImage(r.Context(), inbound.AttachImageCommand{
		RecipeID: id,
		ActorID:  me.ID,
		Filename: header.Filename,
		Image:    file,
	})
	switch {
	case err == nil:
		sessionFrom(r).AddFlash(FlashSuccess, "Image uploaded.")
	case errors.Is(err, errors.CodeExternalServiceError):
		s.logger.Warn("Image upload failed", zap.String("recipe_id", id.String()), zap.Error(err))
		sessionFrom(r).AddFlash(FlashError, "The image host is not available right now.")
	default:
		s.fail(w, r, err)
		return
	}
	s.redirect(w, r, back)
}

func (s *WebServer) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	if err := s.recipes.DeleteRecipe(r.Context(), id, currentUser(r).ID); err != nil {
		s.fail(w, r, err)
		return
	}
	sessionFrom(r).AddFlash(FlashSuccess, "Recipe deleted.")
	s.redirect(w, r, "/")
}

func (s *WebServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	data := page{"Title": "Search"}
	if r.Method != http.MethodPost {
		data["Query"] = inbound.SearchQuery{}
		s.render(w, r, http.StatusOK, "search", data)
		return
	}

	query := inbound.SearchQuery{
		Title:       r.FormValue("title"),
		Ingredients: r.FormValue("ingredients"),
		Keywords:    r.FormValue("keywords"),
	}
	data["Query"] = query
	results, err := s.recipes.Search(r.Context(), query)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(results) == 0 {
		sessionFrom(r).AddFlash(FlashInfo, "No results found.")
	}
	data["Results"] = results
	data["Searched"] = true
	s.render(w, r, http.StatusOK, "search", data)
}

func (s *WebServer) handleSimpleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	list, err := s.recipes.SimpleSearch(r.Context(), q, inbound.PaginationParams{Page: pageParam(r)})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(list.Recipes) == 0 {
		sessionFrom(r).AddFlash(FlashInfo, "No results found.")
	}
	s.render(w, r, http.StatusOK, "search_results", page{
		"Title":      "Search: " + q,
		"Q":          q,
		"Recipes":    list.Recipes,
		"Pagination": list.Pagination,
		"PageURL":    "/search/simple?q=" + url.QueryEscape(q) + "&",
	})
}

// formProblems re-renders a form with parse errors flashed.
func (s *WebServer) formProblems(w http.ResponseWriter, r *http.Request, name string, data page, problems []string) {
	sess := sessionFrom(r)
	for _, p := range problems {
		sess.AddFlash(FlashError, p)
	}
	s.render(w, r, http.StatusBadRequest, name, data)
}

// formFailure handles a failed form submission: validation errors and
// conflicts re-render the form, anything else becomes an error page.
func (s *WebServer) formFailure(w http.ResponseWriter, r *http.Request, name string, data page, err error) {
	if !isFormError(err) {
		s.fail(w, r, err)
		return
	}
	flashError(sessionFrom(r), err)
	s.render(w, r, errors.StatusCode(err), name, data)
}
