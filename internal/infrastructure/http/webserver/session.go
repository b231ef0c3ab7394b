package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/infrastructure/config"
	"github.com/tymenu/tymenu/internal/infrastructure/security"
	"github.com/tymenu/tymenu/internal/ports/outbound"
)

// Flash categories understood by the layout.
const (
	FlashInfo    = "info"
	FlashSuccess = "success"
	FlashError   = "danger"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Session is the server side state of a visitor.
type Session struct {
	ID       uuid.UUID `json:"-"`
	UserID   uuid.UUID `json:"user_id"`
	Remember bool      `json:"remember"`
	Flashes  []Flash   `json:"flashes,omitempty"`

	previous uuid.UUID
	modified bool
	stored   bool
}

// Authenticated reports whether a user is logged in.
func (s *Session) Authenticated() bool {
	return s.UserID != uuid.Nil
}

func (s *Session) AddFlash(category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
	s.modified = true
}

// PopFlashes returns and clears the pending flashes.
func (s *Session) PopFlashes() []Flash {
	flashes := s.Flashes
	if len(flashes) > 0 {
		s.Flashes = nil
		s.modified = true
	}
	return flashes
}

// Login binds the session to a user under a fresh id.
func (s *Session) Login(userID uuid.UUID, remember bool) {
	s.rotate()
	s.UserID = userID
	s.Remember = remember
}

// Logout forgets the user and keeps pending flashes.
func (s *Session) Logout() {
	s.rotate()
	s.UserID = uuid.Nil
	s.Remember = false
}

func (s *Session) rotate() {
	if s.stored {
		s.previous = s.ID
	}
	s.ID = uuid.New()
	s.modified = true
}

// SessionStore keeps sessions in the cache. The cookie only carries a
// signed token naming the session id.
type SessionStore struct {
	cache       outbound.CacheRepository
	tokens      outbound.TokenService
	cookieName  string
	ttl         time.Duration
	rememberTTL time.Duration
	secure      bool
	logger      *zap.Logger
}

// NewSessionStore creates a session store.
func NewSessionStore(cache outbound.CacheRepository, tokens outbound.TokenService, cfg *config.Config, logger *zap.Logger) *SessionStore {
	name := cfg.Auth.SessionCookieName
	if name == "" {
		name = "tymenu_session"
	}
	return &SessionStore{
		cache:       cache,
		tokens:      tokens,
		cookieName:  name,
		ttl:         cfg.Auth.SessionTTL,
		rememberTTL: cfg.Auth.RememberTTL,
		secure:      cfg.Server.SecureCookies,
		logger:      logger,
	}
}

// Load returns the session named by the request cookie, or a new empty
// session when the cookie is missing, forged or expired.
func (st *SessionStore) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(st.cookieName)
	if err != nil {
		return st.fresh()
	}
	id, err := st.tokens.Parse(security.TokenSession, cookie.Value)
	if err != nil {
		return st.fresh()
	}

	data, err := st.cache.Get(r.Context(), sessionKey(id))
	if err != nil {
		if !errors.Is(err, outbound.ErrCacheMiss) {
			st.logger.Warn("Failed to load session", zap.Error(err))
		}
		return st.fresh()
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		st.logger.Warn("Discarding corrupt session", zap.Error(err))
		return st.fresh()
	}
	sess.ID = id
	sess.stored = true
	return &sess
}

// Save persists a modified session and refreshes the cookie. Untouched
// sessions are left alone so anonymous browsing sets no cookie.
func (st *SessionStore) Save(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if !sess.modified {
		return nil
	}
	if sess.previous != uuid.Nil {
		if err := st.cache.Delete(ctx, sessionKey(sess.previous)); err != nil {
			st.logger.Warn("Failed to drop rotated session", zap.Error(err))
		}
		sess.previous = uuid.Nil
	}

	if !sess.Authenticated() && len(sess.Flashes) == 0 {
		if sess.stored {
			if err := st.cache.Delete(ctx, sessionKey(sess.ID)); err != nil {
				return err
			}
		}
		st.clearCookie(w)
		sess.modified = false
		sess.stored = false
		return nil
	}

	ttl := st.ttl
	if sess.Remember {
		ttl = st.rememberTTL
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := st.cache.Set(ctx, sessionKey(sess.ID), data, ttl); err != nil {
		return err
	}
	token, err := st.tokens.Generate(security.TokenSession, sess.ID, ttl)
	if err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     st.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   st.secure,
		SameSite: http.SameSiteLaxMode,
	}
	// Without remember me the cookie dies with the browser.
	if sess.Remember {
		cookie.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, cookie)

	sess.modified = false
	sess.stored = true
	return nil
}

func (st *SessionStore) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     st.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   st.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (st *SessionStore) fresh() *Session {
	return &Session{ID: uuid.New()}
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}
