package site

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/makstark/studio-web/internal/backend"
	"github.com/makstark/studio-web/internal/logger"
	"github.com/makstark/studio-web/internal/session"
	"github.com/makstark/studio-web/internal/web"
)

const (
	loginPath     = "/login"
	dashboardPath = "/dashboard"

	msgMissingCredentials = "Please enter your email and password"
	msgInvalidCredentials = "Invalid email or password"
	msgSessionExpired     = "Your session has expired. Please log in again."
)

func (h *Handler) loginPage(c *gin.Context) {
	data := web.Page(c, "Login")
	data["Email"] = c.Query("email")
	c.HTML(http.StatusOK, "login.html", data)
}

// login trades the credentials for a backend token. The password is never
// checked or kept here.
func (h *Handler) login(c *gin.Context) {
	ctx := c.Request.Context()
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	if email == "" || password == "" {
		web.Redirect(c, loginPath, "error", msgMissingCredentials)
		return
	}

	res, err := h.auth.Login(ctx, email, password)
	if err != nil {
		logger.FromContext(ctx, h.log).WithError(err).Info("login rejected")
		web.Redirect(c, loginPath, "error", backend.DetailOr(err, msgInvalidCredentials))
		return
	}

	// a fresh id on every login
	st := h.sessions.NewState()
	if err := h.sessions.Authenticate(ctx, st, res.AccessToken); err != nil {
		logger.LogError(h.log, "site", "login", "save session", nil, err)
		web.Redirect(c, loginPath, "error", "Login failed. Please try again.")
		return
	}
	// the previous session goes together with its wizards and documents
	if prev, err := c.Cookie(session.CookieName); err == nil && prev != "" {
		if err := h.sessions.Destroy(ctx, prev); err != nil {
			logger.FromContext(ctx, h.log).WithError(err).Warn("previous session teardown incomplete")
		}
	}
	h.sessions.WriteCookie(c, st)
	logger.FromContext(ctx, h.log).WithField("operator", st.Username).Info("operator logged in")
	c.Redirect(http.StatusSeeOther, dashboardPath)
}

func (h *Handler) logout(c *gin.Context) {
	h.endSession(c)
	c.Redirect(http.StatusSeeOther, loginPath)
}

func (h *Handler) endSession(c *gin.Context) {
	st := session.FromContext(c)
	if err := h.sessions.Destroy(c.Request.Context(), st.ID); err != nil {
		logger.FromContext(c.Request.Context(), h.log).WithError(err).Warn("session teardown incomplete")
	}
	h.sessions.ClearCookie(c)
}

// Shell refreshes the operator's identity from /me on dashboard page loads.
// A rejected token ends the session.
func (h *Handler) Shell() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		st := session.FromContext(c)
		profile, err := h.auth.Me(ctx, st.Token)
		switch {
		case backend.IsStatus(err, http.StatusUnauthorized):
			h.endSession(c)
			web.Redirect(c, loginPath, "error", msgSessionExpired)
			c.Abort()
			return
		case err != nil:
			logger.FromContext(ctx, h.log).WithError(err).Warn("profile refresh failed")
		default:
			if err := h.sessions.SetProfile(ctx, st, profile.Username, profile.Role); err != nil {
				logger.FromContext(ctx, h.log).WithError(err).Warn("failed to store profile")
			}
		}
		c.Next()
	}
}
