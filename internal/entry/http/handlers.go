package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/makstark/studio-web/internal/content"
	"github.com/makstark/studio-web/internal/entry/domain"
	"github.com/makstark/studio-web/internal/entry/service"
	"github.com/makstark/studio-web/internal/logger"
	"github.com/makstark/studio-web/internal/session"
	"github.com/makstark/studio-web/internal/web"
)

const (
	pagePath     = "/dashboard/new-entry"
	documentPath = "/dashboard/documents/"
	msgFailed    = "Something went wrong. Please try again."
)

type Handler struct {
	svc     *service.WizardService
	catalog *content.Catalog
	log     logrus.FieldLogger
}

func New(svc *service.WizardService, catalog *content.Catalog, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, catalog: catalog, log: log}
}

func (h *Handler) show(c *gin.Context) {
	st := session.FromContext(c)
	w, err := h.svc.State(c.Request.Context(), st.ID)
	if err != nil {
		logger.FromContext(c.Request.Context(), h.log).WithError(err).Error("failed to load entry wizard")
		c.String(http.StatusInternalServerError, msgFailed)
		return
	}

	data := web.Page(c, "New Entry")
	data["Wizard"] = w
	data["StepNumber"] = w.Step.Number()
	data["EventTypes"] = h.catalog.EventTypes
	data["Deliverables"] = h.catalog.Deliverables
	data["Employees"] = h.catalog.Employees
	c.HTML(http.StatusOK, "entry.html", data)
}

func (h *Handler) bindForm(c *gin.Context) (domain.Form, bool) {
	var form domain.Form
	if err := c.ShouldBind(&form); err != nil {
		web.Redirect(c, pagePath, "error", "invalid form submission")
		return form, false
	}
	if form.Deliverables == nil {
		form.Deliverables = []string{}
	}
	return form, true
}

func (h *Handler) save(c *gin.Context) {
	form, ok := h.bindForm(c)
	if !ok {
		return
	}
	st := session.FromContext(c)
	if _, err := h.svc.SaveDraft(c.Request.Context(), st.ID, form); err != nil {
		web.RedirectError(c, pagePath, err, msgFailed)
		return
	}
	c.Redirect(http.StatusSeeOther, pagePath)
}

func (h *Handler) calculate(c *gin.Context) {
	form, ok := h.bindForm(c)
	if !ok {
		return
	}
	st := session.FromContext(c)
	amount, err := h.svc.Calculate(c.Request.Context(), st.ID, st.Token, form)
	if err != nil {
		web.RedirectError(c, pagePath, err, "Calculation failed")
		return
	}
	web.RedirectNotice(c, pagePath, "Calculated amount: ₹"+amount)
}

func (h *Handler) preview(c *gin.Context) {
	form, ok := h.bindForm(c)
	if !ok {
		return
	}
	st := session.FromContext(c)
	if _, err := h.svc.Preview(c.Request.Context(), st.ID, st.Token, form); err != nil {
		web.RedirectError(c, pagePath, err, "Failed to generate preview")
		return
	}
	c.Redirect(http.StatusSeeOther, pagePath)
}

func (h *Handler) closePreview(c *gin.Context) {
	st := session.FromContext(c)
	if err := h.svc.ClosePreview(c.Request.Context(), st.ID); err != nil {
		web.RedirectError(c, pagePath, err, msgFailed)
		return
	}
	c.Redirect(http.StatusSeeOther, pagePath)
}

func (h *Handler) process(c *gin.Context) {
	form, ok := h.bindForm(c)
	if !ok {
		return
	}
	st := session.FromContext(c)
	if _, err := h.svc.Process(c.Request.Context(), st.ID, st.Token, form); err != nil {
		web.RedirectError(c, pagePath, err, "Failed to process entry")
		return
	}
	c.Redirect(http.StatusSeeOther, pagePath)
}

func (h *Handler) back(c *gin.Context) {
	st := session.FromContext(c)
	if _, err := h.svc.BackToEdit(c.Request.Context(), st.ID); err != nil {
		web.RedirectError(c, pagePath, err, msgFailed)
		return
	}
	c.Redirect(http.StatusSeeOther, pagePath)
}

func (h *Handler) confirm(c *gin.Context) {
	st := session.FromContext(c)
	doc, err := h.svc.Confirm(c.Request.Context(), st.ID, st.Token)
	if err != nil {
		web.RedirectError(c, pagePath, err, "Error generating PDF. Please try again.")
		return
	}
	c.Redirect(http.StatusSeeOther, documentPath+string(doc.Kind))
}
