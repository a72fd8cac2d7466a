package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/makstark/studio-web/internal/apperr"
	"github.com/makstark/studio-web/internal/content"
	"github.com/makstark/studio-web/internal/logger"
	"github.com/makstark/studio-web/internal/portfolio/domain"
	"github.com/makstark/studio-web/internal/portfolio/service"
	"github.com/makstark/studio-web/internal/session"
	"github.com/makstark/studio-web/internal/web"
)

const (
	managePath     = "/dashboard/portfolio-upload"
	maxUploadBytes = 25 << 20
)

type Handler struct {
	svc     *service.CardService
	hub     *service.Hub
	catalog *content.Catalog
	log     logrus.FieldLogger
	// maxUpload caps an image upload request body in bytes.
	maxUpload int64
}

func New(svc *service.CardService, hub *service.Hub, catalog *content.Catalog, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, hub: hub, catalog: catalog, log: log, maxUpload: maxUploadBytes}
}

func (h *Handler) manage(c *gin.Context) {
	ctx := c.Request.Context()
	st := session.FromContext(c)

	if m := domain.Mode(c.Query("mode")); m == domain.ModeUpload || m == domain.ModeManage {
		if err := h.svc.SetMode(ctx, st.ID, m); err != nil {
			web.RedirectError(c, managePath, err, "Failed to switch mode")
			return
		}
	}

	draft, err := h.svc.Draft(ctx, st.ID)
	if err != nil {
		logger.FromContext(ctx, h.log).WithError(err).Error("failed to load portfolio draft")
		c.String(http.StatusInternalServerError, "failed to load portfolio draft")
		return
	}
	cards, err := h.svc.Cards(ctx)
	if err != nil {
		logger.FromContext(ctx, h.log).WithError(err).Error("failed to list portfolio cards")
		c.String(http.StatusInternalServerError, "failed to list portfolio cards")
		return
	}

	data := web.Page(c, "Portfolio Card Upload & Management")
	data["Draft"] = draft
	data["Cards"] = cards
	data["Categories"] = h.catalog.CardCategories
	c.HTML(http.StatusOK, "portfolio_manage.html", data)
}

func (h *Handler) bindFields(c *gin.Context) domain.Draft {
	var fields domain.Draft
	// binding errors leave the zero value, which validation reports
	_ = c.ShouldBind(&fields)
	return fields
}

func (h *Handler) save(c *gin.Context) {
	st := session.FromContext(c)
	if _, err := h.svc.SaveFields(c.Request.Context(), st.ID, h.bindFields(c)); err != nil {
		web.RedirectError(c, managePath, err, "Failed to save draft")
		return
	}
	c.Redirect(http.StatusSeeOther, managePath)
}

func (h *Handler) upload(c *gin.Context) {
	ctx := c.Request.Context()
	st := session.FromContext(c)

	slot, ok := domain.ParseSlot(c.Param("slot"))
	if !ok {
		web.Redirect(c, managePath, "error", "Unknown image slot")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	fh, err := c.FormFile("image")
	if err != nil {
		web.Redirect(c, managePath, "error", "Please choose an image file")
		return
	}
	f, err := fh.Open()
	if err != nil {
		web.Redirect(c, managePath, "error", "Please choose an image file")
		return
	}
	defer f.Close()

	if _, err := h.svc.UploadImage(ctx, st.ID, st.Token, slot, fh.Filename, f); err != nil {
		web.RedirectError(c, managePath, err, "Failed to upload image")
		return
	}
	if slot == domain.SlotCover {
		web.RedirectNotice(c, managePath, "Cover image uploaded successfully!")
		return
	}
	web.RedirectNotice(c, managePath, "Additional image added successfully!")
}

func (h *Handler) removeImage(c *gin.Context) {
	st := session.FromContext(c)
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		web.Redirect(c, managePath, "error", "Image not found")
		return
	}
	if err := h.svc.RemoveImage(c.Request.Context(), st.ID, index); err != nil {
		web.RedirectError(c, managePath, err, "Failed to remove image")
		return
	}
	c.Redirect(http.StatusSeeOther, managePath)
}

func (h *Handler) publish(c *gin.Context) {
	st := session.FromContext(c)
	card, err := h.svc.Publish(c.Request.Context(), st.ID, h.bindFields(c))
	if err != nil {
		web.RedirectError(c, managePath, err, "Failed to publish card")
		return
	}
	logger.FromContext(c.Request.Context(), h.log).WithField("card_id", card.ID).Debug("card published from dashboard")
	web.RedirectNotice(c, managePath, "Portfolio card published successfully! Check the Portfolio page to see your new card.")
}

func (h *Handler) edit(c *gin.Context) {
	st := session.FromContext(c)
	id, ok := cardID(c)
	if !ok {
		return
	}
	if _, err := h.svc.Edit(c.Request.Context(), st.ID, id); err != nil {
		web.RedirectError(c, managePath+"?mode=manage", err, "Failed to load card")
		return
	}
	c.Redirect(http.StatusSeeOther, managePath)
}

func (h *Handler) cancel(c *gin.Context) {
	st := session.FromContext(c)
	if err := h.svc.CancelEdit(c.Request.Context(), st.ID); err != nil {
		web.RedirectError(c, managePath, err, "Failed to reset draft")
		return
	}
	c.Redirect(http.StatusSeeOther, managePath)
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := cardID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		web.RedirectError(c, managePath+"?mode=manage", err, "Failed to delete card")
		return
	}
	web.RedirectNotice(c, managePath+"?mode=manage", "Portfolio card deleted")
}

func cardID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		web.Redirect(c, managePath+"?mode=manage", "error", "Portfolio card not found")
		return 0, false
	}
	return id, true
}

// projects returns the published cards ahead of the fixed showcase list.
func (h *Handler) projects(c *gin.Context) []content.Project {
	cards, err := h.svc.Cards(c.Request.Context())
	if err != nil {
		logger.FromContext(c.Request.Context(), h.log).WithError(err).Warn("showing portfolio without published cards")
		cards = nil
	}
	out := make([]content.Project, 0, len(cards)+len(h.catalog.Projects))
	for _, card := range cards {
		out = append(out, card.Project())
	}
	return append(out, h.catalog.Projects...)
}

func (h *Handler) portfolio(c *gin.Context) {
	all := h.projects(c)

	category := c.DefaultQuery("category", content.FilterAll)
	data := web.Page(c, "Portfolio")
	data["Filters"] = h.catalog.PortfolioFilters
	data["Active"] = category
	data["Projects"] = content.Filter(all, category)

	if raw := c.Query("project"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if p, ok := content.Find(all, id); ok {
				data["Selected"] = p
			}
		}
	}
	c.HTML(http.StatusOK, "portfolio.html", data)
}

func (h *Handler) listCards(c *gin.Context) {
	cards, err := h.svc.Cards(c.Request.Context())
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"ok": false, "error": "failed to list cards"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "cards": cards})
}
