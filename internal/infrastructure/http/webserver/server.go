// Package webserver serves the server rendered catalogue and planner pages.
package webserver

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/domain/user"
	"github.com/tymenu/tymenu/internal/infrastructure/config"
	"github.com/tymenu/tymenu/internal/infrastructure/monitoring"
	"github.com/tymenu/tymenu/internal/infrastructure/security"
	"github.com/tymenu/tymenu/internal/ports/inbound"
	"github.com/tymenu/tymenu/pkg/errors"
	"github.com/tymenu/tymenu/pkg/healthcheck"
)

//go:embed templates
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

// WebServer wires the page handlers, the JSON API and the ops endpoints
// into one chi router.
type WebServer struct {
	config   *config.Config
	logger   *zap.Logger
	users    inbound.UserService
	recipes  inbound.RecipeService
	plans    inbound.PlanService
	sessions *SessionStore
	limiter  security.RateLimiter
	metrics  *monitoring.Metrics
	tracing  *monitoring.Tracing
	health   *healthcheck.HealthCheck
	api      http.Handler

	pages  map[string]*template.Template
	router *chi.Mux
	server *http.Server
}

// NewWebServer builds the router. metrics, tracing, limiter and api may be nil.
func NewWebServer(
	cfg *config.Config,
	logger *zap.Logger,
	users inbound.UserService,
	recipes inbound.RecipeService,
	plans inbound.PlanService,
	sessions *SessionStore,
	limiter security.RateLimiter,
	metrics *monitoring.Metrics,
	tracing *monitoring.Tracing,
	health *healthcheck.HealthCheck,
	api http.Handler,
) (*WebServer, error) {
	s := &WebServer{
		config:   cfg,
		logger:   logger.Named("webserver"),
		users:    users,
		recipes:  recipes,
		plans:    plans,
		sessions: sessions,
		limiter:  limiter,
		metrics:  metrics,
		tracing:  tracing,
		health:   health,
		api:      api,
	}

	pages, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	s.pages = pages
	s.router = s.setupRouter()

	s.server = &http.Server{
		Addr:              cfg.GetServerAddr(),
		Handler:           s.router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler exposes the router, mostly for tests.
func (s *WebServer) Handler() http.Handler {
	return s.router
}

func (s *WebServer) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)
	if s.tracing != nil {
		r.Use(s.tracing.Middleware(s.config.App.Name))
	}
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	if s.config.Server.EnableCompression {
		r.Use(chimiddleware.Compress(5, "text/html", "text/css", "application/json"))
	}
	r.Use(securityHeaders(s.config.IsProduction()))

	staticRoot, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))))

	if s.health != nil {
		r.Get("/healthz", s.health.HTTPHandler())
		r.Get("/readyz", s.health.ReadinessHTTPHandler())
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		if s.config.Server.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(s.config.Server.RequestTimeout))
		}

		if s.api != nil {
			r.Mount("/api/v1", s.api)
		}

		r.Group(func(r chi.Router) {
			r.Use(s.loadSession)
			s.mainRoutes(r)
			s.recipeRoutes(r)
			s.planRoutes(r)
			r.Route("/auth", s.authRoutes)
		})
	})

	notFound := s.loadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound)
	}))
	r.NotFound(notFound.ServeHTTP)

	return r
}

// Start serves until Shutdown is called.
func (s *WebServer) Start() error {
	s.logger.Info("Starting HTTP server",
		zap.String("address", s.server.Addr),
		zap.String("environment", s.config.App.Environment),
	)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

var funcMap = template.FuncMap{
	"formatDate": func(t time.Time) string {
		return t.Format("2006-01-02")
	},
	"formatDay": func(t time.Time) string {
		return t.Format("Monday, January 2")
	},
	"formatTime": func(t time.Time) string {
		return t.Format("Jan 2, 2006 at 15:04")
	},
	"html": func(s string) template.HTML {
		// Only ever fed markdown that went through the sanitizer.
		return template.HTML(s)
	},
	"add":  func(a, b int) int { return a + b },
	"sub":  func(a, b int) int { return a - b },
	"join": strings.Join,
	"deref": func(f *float64) float64 {
		if f == nil {
			return 0
		}
		return *f
	},
}

// parseTemplates parses every page together with the layout and partials.
func parseTemplates() (map[string]*template.Template, error) {
	base, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/layout.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	files, err := fs.Glob(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		if name == "layout" {
			continue
		}
		tmpl, err := template.Must(base.Clone()).ParseFS(templatesFS, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// page is the data handed to a template.
type page map[string]interface{}

// render executes a page template. The session is saved before the body is
// written because it may set a cookie.
func (s *WebServer) render(w http.ResponseWriter, r *http.Request, status int, name string, data page) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("Unknown template", zap.String("template", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = page{}
	}
	sess := sessionFrom(r)
	me := currentUser(r)
	data["CurrentUser"] = me
	data["CanWrite"] = me.Can(user.PermissionWrite)
	data["IsModerator"] = me.IsModerator()
	data["IsAdmin"] = me.IsAdministrator()
	data["Flashes"] = sess.PopFlashes()
	data["AppName"] = s.config.App.Name
	if data["Title"] == nil {
		data["Title"] = s.config.App.Name
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name+".html", data); err != nil {
		s.logger.Error("Failed to execute template", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	s.saveSession(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// redirect saves the session and sends the visitor to url.
func (s *WebServer) redirect(w http.ResponseWriter, r *http.Request, url string) {
	s.saveSession(w, r)
	http.Redirect(w, r, url, http.StatusFound)
}

func (s *WebServer) saveSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Save(r.Context(), w, sessionFrom(r)); err != nil {
		s.logger.Error("Failed to save session",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
}

var errorTitles = map[int]string{
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "Page Not Found",
	http.StatusMethodNotAllowed:    "Method Not Allowed",
	http.StatusTooManyRequests:     "Too Many Requests",
	http.StatusInternalServerError: "Internal Server Error",
	http.StatusServiceUnavailable:  "Service Unavailable",
}

func (s *WebServer) renderError(w http.ResponseWriter, r *http.Request, status int) {
	title, ok := errorTitles[status]
	if !ok {
		title = http.StatusText(status)
	}
	s.render(w, r, status, "error", page{
		"Title":  title,
		"Status": status,
	})
}

// fail turns a service error into an error page.
func (s *WebServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	s.renderError(w, r, status)
}

// flashError flashes every validation message, or the error message.
func flashError(sess *Session, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		sess.AddFlash(FlashError, "Something went wrong.")
		return
	}
	if verrs, ok := appErr.Metadata["validation_errors"].(errors.ValidationErrors); ok {
		for _, msg := range verrs.Messages() {
			sess.AddFlash(FlashError, msg)
		}
		return
	}
	sess.AddFlash(FlashError, appErr.Message)
}

// isFormError reports errors that re-render or redirect back to a form
// instead of showing an error page.
func isFormError(err error) bool {
	appErr, ok := errors.As(err)
	if !ok {
		return false
	}
	status := appErr.StatusCode()
	return status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnauthorized
}
