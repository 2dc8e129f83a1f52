package http

import (
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"verkoop/internal/core"
)

const sessionCookie = "verkoop_session"

type session struct {
	expiresAt time.Time
	// insights is set once the second password has been entered.
	insights bool
}

// sessionStore keeps login sessions in memory; a restart logs everyone out.
type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*session
	now      func() time.Time
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		ttl:      ttl,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

func (st *sessionStore) create() string {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.pruneLocked()
	token := uuid.NewString()
	st.sessions[token] = &session{expiresAt: st.now().Add(st.ttl)}
	return token
}

// lookup returns a copy of the live session for token.
func (st *sessionStore) lookup(token string) (session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[token]
	if !ok {
		return session{}, false
	}
	if st.now().After(sess.expiresAt) {
		delete(st.sessions, token)
		return session{}, false
	}
	return *sess, true
}

func (st *sessionStore) unlockInsights(token string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[token]
	if !ok {
		return false
	}
	sess.insights = true
	return true
}

func (st *sessionStore) destroy(token string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, token)
}

func (st *sessionStore) pruneLocked() {
	now := st.now()
	for token, sess := range st.sessions {
		if now.After(sess.expiresAt) {
			delete(st.sessions, token)
		}
	}
}

func (st *sessionStore) size() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// requireSession redirects pages to /login and answers API calls with 401
// when auth is enabled and the request carries no live session.
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authEnabled() {
			next(w, r)
			return
		}
		if _, ok := s.sessions.lookup(sessionToken(r)); ok {
			next(w, r)
			return
		}
		if isAPIRequest(r) {
			writeJSONError(w, http.StatusUnauthorized, "niet ingelogd")
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}

// insightsUnlocked reports whether the customer section may be shown.
func (s *Server) insightsUnlocked(r *http.Request) bool {
	if s.opts.InsightsPassword == "" {
		return true
	}
	sess, ok := s.sessions.lookup(sessionToken(r))
	return ok && sess.insights
}

func checkPassword(given, want string) error {
	if subtle.ConstantTimeCompare([]byte(given), []byte(want)) != 1 {
		return core.ErrInvalidCredentials
	}
	return nil
}
