package session

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/makstark/studio-web/internal/logger"
)

const ctxKey = "session_state"

// Middleware attaches the caller's State to the gin context. Callers without
// a stored session get a fresh, unsaved, unauthenticated state.
func (m *Manager) Middleware(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var st *State
		if id, err := c.Cookie(CookieName); err == nil && id != "" {
			loaded, err := m.Load(c.Request.Context(), id)
			switch {
			case err == nil:
				st = loaded
			case err != ErrNotFound:
				logger.FromContext(c.Request.Context(), log).WithError(err).Warn("session load failed")
			}
		}
		if st == nil {
			st = m.NewState()
		}
		c.Set(ctxKey, st)
		c.Next()
	}
}

// WriteCookie sends the session cookie for st.
func (m *Manager) WriteCookie(c *gin.Context, st *State) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, st.ID, int(m.ttl.Seconds()), "/", "", m.secure, true)
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", m.secure, true)
}

// FromContext returns the State set by Middleware. It never returns nil.
func FromContext(c *gin.Context) *State {
	if v, ok := c.Get(ctxKey); ok {
		if st, ok := v.(*State); ok {
			return st
		}
	}
	return &State{}
}

// RequireAuth redirects to loginPath unless the session carries a token.
func RequireAuth(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := FromContext(c)
		if !st.Authenticated || !st.HasToken() {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RedirectIfAuthenticated sends logged-in callers to target.
func RedirectIfAuthenticated(target string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if st := FromContext(c); st.Authenticated && st.HasToken() {
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}
		c.Next()
	}
}
