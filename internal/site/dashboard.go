package site

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/makstark/studio-web/internal/datastore"
	"github.com/makstark/studio-web/internal/logger"
	"github.com/makstark/studio-web/internal/session"
	"github.com/makstark/studio-web/internal/web"
)

const (
	settingsPath  = "/dashboard/settings"
	recentLimit   = 5
	sampleTotal   = 156
	msgNoSettings = "Settings are unavailable for this operator"
)

// settingFields are the editable members of settings.data.
var settingFields = []string{"companyName", "email", "phone", "address"}

// Stats is the dashboard home summary. Live is false when the figures are
// samples because no data store is configured or it failed.
type Stats struct {
	Total  int64
	Cards  int
	Live   bool
	Recent []datastore.Project
}

func (h *Handler) dashboard(c *gin.Context) {
	data := web.Page(c, "Dashboard")
	data["Stats"] = h.stats(c.Request.Context())
	c.HTML(http.StatusOK, "dashboard.html", data)
}

func (h *Handler) stats(ctx context.Context) Stats {
	s := Stats{Total: sampleTotal}
	if cards, err := h.cards.Cards(ctx); err == nil {
		s.Cards = len(cards)
	} else {
		logger.FromContext(ctx, h.log).WithError(err).Warn("failed to count portfolio cards")
	}

	if h.store == nil {
		return s
	}
	total, err := h.store.CountProjects(ctx)
	if err != nil {
		logger.FromContext(ctx, h.log).WithError(err).Warn("showing sample project stats")
		return s
	}
	recent, err := h.store.ListProjects(ctx, recentLimit)
	if err != nil {
		logger.FromContext(ctx, h.log).WithError(err).Warn("showing sample project stats")
		return s
	}
	s.Total, s.Recent, s.Live = total, recent, true
	return s
}

func (h *Handler) settings(c *gin.Context) {
	ctx := c.Request.Context()
	st := session.FromContext(c)
	data := web.Page(c, "Settings")

	if h.store != nil && st.Username != "" {
		profile, err := h.store.GetProfile(ctx, st.Username)
		switch {
		case errors.Is(err, datastore.ErrNotFound):
		case err != nil:
			logger.FromContext(ctx, h.log).WithError(err).Error("failed to load profile")
		default:
			data["Profile"] = profile
			data["Settings"] = h.loadSettings(ctx, st.Username)
		}
	}
	c.HTML(http.StatusOK, "settings.html", data)
}

// loadSettings returns the stored settings, or the studio defaults.
func (h *Handler) loadSettings(ctx context.Context, id string) map[string]any {
	stored, err := h.store.GetSettings(ctx, id)
	if err == nil {
		return stored
	}
	if !errors.Is(err, datastore.ErrNotFound) {
		logger.FromContext(ctx, h.log).WithError(err).Warn("failed to load settings")
	}
	s := h.catalog.Studio
	return map[string]any{
		"companyName": s.Name,
		"email":       s.Email,
		"phone":       s.Phone,
		"address":     s.Office,
	}
}

func (h *Handler) saveSettings(c *gin.Context) {
	ctx := c.Request.Context()
	st := session.FromContext(c)
	if h.store == nil || st.Username == "" {
		web.Redirect(c, settingsPath, "error", msgNoSettings)
		return
	}

	values := make(map[string]any, len(settingFields))
	for _, f := range settingFields {
		values[f] = strings.TrimSpace(c.PostForm(f))
	}

	err := h.store.UpdateSettings(ctx, st.Username, values)
	switch {
	case errors.Is(err, datastore.ErrNotFound):
		web.Redirect(c, settingsPath, "error", msgNoSettings)
	case err != nil:
		logger.LogError(h.log, "site", "saveSettings", "update settings", values, err)
		web.Redirect(c, settingsPath, "error", "Failed to save settings")
	default:
		web.RedirectNotice(c, settingsPath, "Settings saved successfully!")
	}
}
