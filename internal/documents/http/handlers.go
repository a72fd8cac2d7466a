package http

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/makstark/studio-web/internal/documents"
	"github.com/makstark/studio-web/internal/logger"
	"github.com/makstark/studio-web/internal/session"
)

const msgGone = "Document not found or already downloaded"

type Handler struct {
	registry *documents.Registry
	log      logrus.FieldLogger
}

func New(registry *documents.Registry, log logrus.FieldLogger) *Handler {
	return &Handler{registry: registry, log: log}
}

// Register attaches the document route to the dashboard group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/documents/:kind", h.serve)
}

// serve writes the session's live document of the requested kind. Previews
// render inline unless ?download=1; download kinds are sent as attachments
// and released once written.
func (h *Handler) serve(c *gin.Context) {
	ctx := c.Request.Context()
	kind, ok := documents.ParseKind(c.Param("kind"))
	if !ok {
		c.String(http.StatusNotFound, msgGone)
		return
	}

	st := session.FromContext(c)
	doc, err := h.registry.Get(ctx, st.ID, kind)
	if errors.Is(err, documents.ErrNotFound) {
		c.String(http.StatusNotFound, msgGone)
		return
	}
	if err != nil {
		logger.FromContext(ctx, h.log).WithError(err).WithField("kind", kind).Error("failed to load document")
		c.String(http.StatusInternalServerError, "failed to load document")
		return
	}

	disposition := "inline"
	if kind.OneShot() || c.Query("download") == "1" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": doc.Filename}))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, doc.ContentType, doc.Data)

	if kind.OneShot() {
		if err := h.registry.Release(ctx, st.ID, kind); err != nil {
			logger.FromContext(ctx, h.log).WithError(err).WithField("kind", kind).Warn("failed to release document")
		}
	}
}
