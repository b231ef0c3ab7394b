package webserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tymenu/tymenu/internal/ports/inbound"
	"github.com/tymenu/tymenu/pkg/errors"
)

func (s *WebServer) authRoutes(r chi.Router) {
	r.Get("/login", s.handleLogin)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)
	r.Get("/register", s.handleRegister)
	r.Post("/register", s.handleRegister)
	r.Get("/reset", s.handleResetRequest)
	r.Post("/reset", s.handleResetRequest)
	r.Get("/reset/{token}", s.handleResetPassword)
	r.Post("/reset/{token}", s.handleResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(s.requireLogin)
		r.Get("/change-password", s.handleChangePassword)
		r.Post("/change-password", s.handleChangePassword)
	})
}

func (s *WebServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if currentUser(r) != nil {
		s.redirect(w, r, next)
		return
	}
	data := page{"Title": "Log In", "Next": r.URL.Query().Get("next")}
	if r.Method != http.MethodPost {
		s.render(w, r, http.StatusOK, "login", data)
		return
	}

	cmd := inbound.LoginCommand{
		Email:      strings.TrimSpace(r.FormValue("email")),
		Password:   r.FormValue("password"),
		RememberMe: r.FormValue("remember_me") != "",
	}
	data["Email"] = cmd.Email
	u, err := s.users.Authenticate(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, errors.CodeInvalidCredentials) {
			sessionFrom(r).AddFlash(FlashError, "Invalid email or password.")
			s.render(w, r, http.StatusUnauthorized, "login", data)
			return
		}
		s.formFailure(w, r, "login", data, err)
		return
	}

	sessionFrom(r).Login(u.ID, cmd.RememberMe)
	s.redirect(w, r, next)
}

func (s *WebServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Logout()
	sess.AddFlash(FlashInfo, "You have been logged out.")
	s.redirect(w, r, "/")
}

func (s *WebServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	data := page{"Title": "Register"}
	if r.Method != http.MethodPost {
		s.render(w, r, http.StatusOK, "register", data)
		return
	}

	cmd := inbound.RegisterCommand{
		Email:           strings.TrimSpace(r.FormValue("email")),
		Username:        strings.TrimSpace(r.FormValue("username")),
		Password:        r.FormValue("password"),
		PasswordConfirm: r.FormValue("password2"),
	}
	data["Email"] = cmd.Email
	data["Username"] = cmd.Username

	if _, err := s.users.Register(r.Context(), cmd); err != nil {
		if appErr, ok := errors.As(err); ok && appErr.IsConflict() {
			sessionFrom(r).AddFlash(FlashError, appErr.Message)
			s.redirect(w, r, "/auth/register")
			return
		}
		s.formFailure(w, r, "register", data, err)
		return
	}
	sessionFrom(r).AddFlash(FlashSuccess, "You can now login.")
	s.redirect(w, r, "/auth/login")
}

func (s *WebServer) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	data := page{"Title": "Change Password"}
	if r.Method != http.MethodPost {
		s.render(w, r, http.StatusOK, "change_password", data)
		return
	}

	err := s.users.ChangePassword(r.Context(), inbound.ChangePasswordCommand{
		UserID:          currentUser(r).ID,
		OldPassword:     r.FormValue("old_password"),
		Password:        r.FormValue("password"),
		PasswordConfirm: r.FormValue("password2"),
	})
	if err != nil {
		s.formFailure(w, r, "change_password", data, err)
		return
	}
	sessionFrom(r).AddFlash(FlashSuccess, "Your password has been updated.")
	s.redirect(w, r, "/")
}

// handleResetRequest mails a reset link. Unknown addresses get the same
// answer as known ones.
func (s *WebServer) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	if currentUser(r) != nil {
		s.redirect(w, r, "/")
		return
	}
	data := page{"Title": "Reset Password"}
	if r.Method != http.MethodPost {
		s.render(w, r, http.StatusOK, "reset_request", data)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	data["Email"] = email
	err := s.users.RequestPasswordReset(r.Context(), inbound.ResetRequestCommand{
		Email:    email,
		ResetURL: s.resetURL,
	})
	if err != nil {
		s.formFailure(w, r, "reset_request", data, err)
		return
	}
	sessionFrom(r).AddFlash(FlashInfo, "An email with instructions to reset your password has been sent to you.")
	s.redirect(w, r, "/auth/login")
}

func (s *WebServer) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if currentUser(r) != nil {
		s.redirect(w, r, "/")
		return
	}
	token := chi.URLParam(r, "token")
	data := page{"Title": "Reset Password", "Token": token}
	if r.Method != http.MethodPost {
		s.render(w, r, http.StatusOK, "reset_password", data)
		return
	}

	ok, err := s.users.ResetPassword(r.Context(), inbound.ResetPasswordCommand{
		Token:           token,
		Password:        r.FormValue("password"),
		PasswordConfirm: r.FormValue("password2"),
	})
	if err != nil {
		s.formFailure(w, r, "reset_password", data, err)
		return
	}
	if !ok {
		s.redirect(w, r, "/")
		return
	}
	sessionFrom(r).AddFlash(FlashSuccess, "Your password has been updated.")
	s.redirect(w, r, "/auth/login")
}

func (s *WebServer) resetURL(token string) string {
	return strings.TrimRight(s.config.App.BaseURL, "/") + "/auth/reset/" + token
}
