package webserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tymenu/tymenu/internal/ports/inbound"
	"github.com/tymenu/tymenu/pkg/errors"
)

const profileRecipesPerPage = 5

func (s *WebServer) mainRoutes(r chi.Router) {
	r.Get("/", s.handleIndex)
	r.Get("/users", s.handleUsers)
	r.Get("/links", s.handleLinks)
	r.Get("/profile/{id}", s.handleProfile)
	r.With(s.requireLogin).Get("/profile/change_username/{id}", s.handleChangeUsername)
	r.With(s.requireLogin).Post("/profile/change_username/{id}", s.handleChangeUsername)
}

func (s *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	list, err := s.recipes.ListRecipes(r.Context(), inbound.PaginationParams{Page: pageParam(r)})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "index", page{
		"Recipes":    list.Recipes,
		"Pagination": list.Pagination,
		"PageURL":    "/?",
	})
}

func (s *WebServer) handleUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.users.ListUsers(r.Context(), inbound.PaginationParams{Page: pageParam(r)})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "users", page{
		"Title":      "Users",
		"Users":      list.Users,
		"Pagination": list.Pagination,
		"PageURL":    "/users?",
	})
}

func (s *WebServer) handleLinks(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "links", page{"Title": "Links"})
}

func (s *WebServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	profile, err := s.users.GetUser(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.recipes.ListRecipesByAuthor(r.Context(), id, inbound.PaginationParams{
		Page:     pageParam(r),
		PageSize: profileRecipesPerPage,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "profile", page{
		"Title":      profile.Username,
		"Profile":    profile,
		"Recipes":    list.Recipes,
		"Pagination": list.Pagination,
		"PageURL":    "/profile/" + id.String() + "?",
	})
}

// handleChangeUsername lets users rename themselves only.
func (s *WebServer) handleChangeUsername(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	me := currentUser(r)
	if !me.Is(id) {
		s.renderError(w, r, http.StatusForbidden)
		return
	}

	if r.Method == http.MethodPost {
		username := r.FormValue("username")
		updated, err := s.users.ChangeUsername(r.Context(), inbound.ChangeUsernameCommand{
			ActorID:  me.ID,
			UserID:   id,
			Username: username,
		})
		switch {
		case err == nil:
			sessionFrom(r).AddFlash(FlashSuccess, "Your username has been updated.")
			s.redirect(w, r, "/profile/"+updated.ID.String())
			return
		case errors.Is(err, errors.CodeUsernameAlreadyExists):
			sessionFrom(r).AddFlash(FlashError, "Username already exists.")
			s.redirect(w, r, r.URL.Path)
			return
		case isFormError(err):
			flashError(sessionFrom(r), err)
			s.render(w, r, http.StatusBadRequest, "change_username", page{"Title": "Change Username", "Username": username})
			return
		default:
			s.fail(w, r, err)
			return
		}
	}

	s.render(w, r, http.StatusOK, "change_username", page{"Title": "Change Username", "Username": me.Username})
}
