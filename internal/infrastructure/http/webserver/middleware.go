package webserver

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/domain/user"
	"github.com/tymenu/tymenu/internal/ports/inbound"
	"github.com/tymenu/tymenu/pkg/errors"
)

type ctxKey int

const (
	sessionCtxKey ctxKey = iota
	userCtxKey
)

// sessionFrom returns the request session. Requests that skipped loadSession
// get a throwaway one.
func sessionFrom(r *http.Request) *Session {
	if sess, ok := r.Context().Value(sessionCtxKey).(*Session); ok {
		return sess
	}
	return &Session{}
}

// currentUser returns the logged in user, nil for anonymous visitors.
func currentUser(r *http.Request) *inbound.UserDTO {
	u, _ := r.Context().Value(userCtxKey).(*inbound.UserDTO)
	return u
}

// loadSession attaches the session and its user to the request context.
func (s *WebServer) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.sessions.Load(r)
		ctx := context.WithValue(r.Context(), sessionCtxKey, sess)

		if sess.Authenticated() {
			u, err := s.users.GetUser(ctx, sess.UserID)
			switch {
			case err == nil:
				ctx = context.WithValue(ctx, userCtxKey, u)
			case errors.StatusCode(err) == http.StatusNotFound:
				sess.Logout()
			default:
				s.logger.Error("Failed to load session user", zap.Error(err))
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireLogin sends anonymous visitors to the login page, remembering
// where they were going.
func (s *WebServer) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r) == nil {
			sessionFrom(r).AddFlash(FlashInfo, "Please log in to access this page.")
			s.redirect(w, r, "/auth/login?next="+url.QueryEscape(r.URL.RequestURI()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requirePermission answers 403 unless the user holds perm.
func (s *WebServer) requirePermission(perm user.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !currentUser(r).Can(perm) {
				s.renderError(w, r, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// safeNext accepts only local absolute paths as post-login targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// requestLogger logs one line per request.
func (s *WebServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || strings.HasPrefix(r.URL.Path, "/static/") {
			return
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []zap.Field{
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("ip", r.RemoteAddr),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		switch {
		case status >= 500:
			s.logger.Error("Server error", fields...)
		case status >= 400:
			s.logger.Warn("Client error", fields...)
		default:
			s.logger.Info("Request completed", fields...)
		}
	})
}

// rateLimit rejects clients over their request budget. Limiter failures
// let the request through.
func (s *WebServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || !s.config.RateLimit.Enable {
			next.ServeHTTP(w, r)
			return
		}
		allowed, err := s.limiter.Allow(r.Context(), clientIP(r))
		if err != nil {
			s.logger.Warn("Rate limiter unavailable", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			if s.metrics != nil {
				s.metrics.RateLimited()
			}
			s.logger.Warn("Rate limit exceeded",
				zap.String("ip", clientIP(r)),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", retryAfter(s.config.RateLimit.Window))
			s.renderError(w, r, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port RealIP leaves on direct connections.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// retryAfter renders the window in whole seconds.
func retryAfter(window time.Duration) string {
	if window < time.Second {
		window = time.Minute
	}
	return strconv.Itoa(int(window / time.Second))
}

func securityHeaders(production bool) func(http.Handler) http.Handler {
	const csp = "default-src 'self'; " +
		"img-src 'self' data: https:; " +
		"style-src 'self' 'unsafe-inline'; " +
		"frame-ancestors 'none'; " +
		"base-uri 'none'; " +
		"object-src 'none';"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", csp)
			if production {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
