// Package site serves the public pages, operator login and the dashboard
// shell around the feature modules.
package site

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/makstark/studio-web/internal/backend"
	"github.com/makstark/studio-web/internal/content"
	"github.com/makstark/studio-web/internal/datastore"
	portfolio "github.com/makstark/studio-web/internal/portfolio/domain"
	"github.com/makstark/studio-web/internal/session"
	"github.com/makstark/studio-web/internal/web"
)

const (
	featuredCount = 3
	whatsAppBase  = "https://wa.me/"
)

// Authenticator exchanges credentials and resolves the operator behind a token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResponse, error)
	Me(ctx context.Context, token string) (*backend.Profile, error)
}

// ProjectStore is the optional dashboard data store.
type ProjectStore interface {
	CountProjects(ctx context.Context) (int64, error)
	ListProjects(ctx context.Context, limit int) ([]datastore.Project, error)
	GetProfile(ctx context.Context, id string) (*datastore.Profile, error)
	GetSettings(ctx context.Context, id string) (map[string]any, error)
	UpdateSettings(ctx context.Context, id string, settings map[string]any) error
}

type CardLister interface {
	Cards(ctx context.Context) ([]portfolio.Card, error)
}

type Handler struct {
	catalog  *content.Catalog
	auth     Authenticator
	sessions *session.Manager
	cards    CardLister
	store    ProjectStore
	log      logrus.FieldLogger
}

func New(catalog *content.Catalog, auth Authenticator, sessions *session.Manager, cards CardLister, log logrus.FieldLogger) *Handler {
	return &Handler{catalog: catalog, auth: auth, sessions: sessions, cards: cards, log: log}
}

// WithStore enables the live dashboard stats and settings.
func (h *Handler) WithStore(store ProjectStore) *Handler {
	h.store = store
	return h
}

func (h *Handler) home(c *gin.Context) {
	featured := h.catalog.Projects
	if len(featured) > featuredCount {
		featured = featured[:featuredCount]
	}
	data := web.Page(c, "Home")
	data["Studio"] = h.catalog.Studio
	data["Verticals"] = h.catalog.Verticals
	data["Featured"] = featured
	c.HTML(http.StatusOK, "home.html", data)
}

func (h *Handler) about(c *gin.Context) {
	data := web.Page(c, "About")
	data["Studio"] = h.catalog.Studio
	data["Team"] = h.catalog.Team
	data["Verticals"] = h.catalog.Verticals
	c.HTML(http.StatusOK, "about.html", data)
}

func (h *Handler) services(c *gin.Context) {
	data := web.Page(c, "Services")
	data["Verticals"] = h.catalog.Verticals
	c.HTML(http.StatusOK, "services.html", data)
}

func (h *Handler) contact(c *gin.Context) {
	data := web.Page(c, "Contact")
	data["Studio"] = h.catalog.Studio
	data["Verticals"] = h.catalog.Verticals
	c.HTML(http.StatusOK, "contact.html", data)
}

type contactForm struct {
	Name    string `form:"name"`
	Email   string `form:"email"`
	Service string `form:"service"`
	Message string `form:"message"`
}

// sendContact hands the enquiry to WhatsApp; nothing is stored here.
func (h *Handler) sendContact(c *gin.Context) {
	var f contactForm
	_ = c.ShouldBind(&f)
	f.Name = strings.TrimSpace(f.Name)
	f.Message = strings.TrimSpace(f.Message)
	if f.Name == "" || f.Message == "" {
		web.Redirect(c, "/contact", "error", "Please enter your name and message")
		return
	}
	c.Redirect(http.StatusSeeOther, WhatsAppLink(h.catalog.Studio.WhatsApp, contactText(f)))
}

func contactText(f contactForm) string {
	var b strings.Builder
	b.WriteString("Hi! I'm " + f.Name)
	if e := strings.TrimSpace(f.Email); e != "" {
		b.WriteString(" (" + e + ")")
	}
	b.WriteString(".\n")
	if s := strings.TrimSpace(f.Service); s != "" {
		b.WriteString("Service: " + s + "\n")
	}
	b.WriteString(f.Message)
	return b.String()
}

// WhatsAppLink builds a wa.me deep link with text percent-encoded the way
// browsers encode URI components.
func WhatsAppLink(phone, text string) string {
	phone = strings.TrimPrefix(strings.ReplaceAll(phone, " ", ""), "+")
	return whatsAppBase + phone + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// NotFound sends unknown paths to the landing page.
func (h *Handler) NotFound(c *gin.Context) {
	c.Redirect(http.StatusFound, "/")
}
