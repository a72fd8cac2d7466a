package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/makstark/studio-web/internal/content"
	"github.com/makstark/studio-web/internal/logger"
	"github.com/makstark/studio-web/internal/offer/domain"
	"github.com/makstark/studio-web/internal/offer/service"
	"github.com/makstark/studio-web/internal/session"
	"github.com/makstark/studio-web/internal/web"
)

const (
	pagePath     = "/dashboard/offer-letter"
	documentPath = "/dashboard/documents/"
)

type Handler struct {
	svc     *service.OfferService
	catalog *content.Catalog
	log     logrus.FieldLogger
}

func New(svc *service.OfferService, catalog *content.Catalog, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, catalog: catalog, log: log}
}

// Register attaches the offer-letter routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.show)
	rg.POST("/process", h.process)
	rg.POST("/preview", h.preview)
	rg.POST("/preview/close", h.closePreview)
	rg.POST("/generate", h.generate)
}

func (h *Handler) show(c *gin.Context) {
	ctx := c.Request.Context()
	st := session.FromContext(c)
	w, err := h.svc.State(ctx, st.ID)
	if err != nil {
		logger.FromContext(ctx, h.log).WithError(err).Error("failed to load offer wizard")
		c.String(http.StatusInternalServerError, "failed to load offer letter")
		return
	}

	data := web.Page(c, "Offer Letter Generator")
	data["Wizard"] = w
	data["StepNumber"] = w.Step.Number()
	data["Departments"] = h.catalog.Departments
	data["BackendUp"] = h.svc.BackendStatus(ctx)
	c.HTML(http.StatusOK, "offer.html", data)
}

func (h *Handler) bind(c *gin.Context) (domain.Form, bool) {
	var form domain.Form
	if err := c.ShouldBind(&form); err != nil {
		web.Redirect(c, pagePath, "error", "invalid form submission")
		return form, false
	}
	return form, true
}

func (h *Handler) process(c *gin.Context) {
	form, ok := h.bind(c)
	if !ok {
		return
	}
	st := session.FromContext(c)
	if _, err := h.svc.Process(c.Request.Context(), st.ID, st.Token, form); err != nil {
		web.RedirectError(c, pagePath, err, "Error processing entry")
		return
	}
	web.RedirectNotice(c, pagePath, "Entry processed successfully!")
}

func (h *Handler) preview(c *gin.Context) {
	form, ok := h.bind(c)
	if !ok {
		return
	}
	st := session.FromContext(c)
	if _, err := h.svc.Preview(c.Request.Context(), st.ID, st.Token, form); err != nil {
		web.RedirectError(c, pagePath, err, "Error generating PDF")
		return
	}
	web.RedirectNotice(c, pagePath, "Preview ready")
}

func (h *Handler) closePreview(c *gin.Context) {
	st := session.FromContext(c)
	if err := h.svc.ClosePreview(c.Request.Context(), st.ID); err != nil {
		web.RedirectError(c, pagePath, err, "Error closing preview")
		return
	}
	c.Redirect(http.StatusSeeOther, pagePath)
}

func (h *Handler) generate(c *gin.Context) {
	st := session.FromContext(c)
	doc, err := h.svc.Generate(c.Request.Context(), st.ID, st.Token)
	if err != nil {
		web.RedirectError(c, pagePath, err, "Error generating PDF")
		return
	}
	c.Redirect(http.StatusSeeOther, documentPath+string(doc.Kind))
}
