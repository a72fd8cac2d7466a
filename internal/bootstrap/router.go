package bootstrap

import (
	"time"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/makstark/studio-web/config"
	httpapi "github.com/makstark/studio-web/internal/api/http"
	"github.com/makstark/studio-web/internal/api/http/middleware"
	"github.com/makstark/studio-web/internal/api/http/routes"
	"github.com/makstark/studio-web/internal/backend"
	"github.com/makstark/studio-web/internal/content"
	"github.com/makstark/studio-web/internal/datastore"
	"github.com/makstark/studio-web/internal/documents"
	docshttp "github.com/makstark/studio-web/internal/documents/http"
	entryhttp "github.com/makstark/studio-web/internal/entry/http"
	entryrepo "github.com/makstark/studio-web/internal/entry/repository"
	entrysvc "github.com/makstark/studio-web/internal/entry/service"
	offerhttp "github.com/makstark/studio-web/internal/offer/http"
	offerrepo "github.com/makstark/studio-web/internal/offer/repository"
	offersvc "github.com/makstark/studio-web/internal/offer/service"
	portfoliohttp "github.com/makstark/studio-web/internal/portfolio/http"
	portfoliorepo "github.com/makstark/studio-web/internal/portfolio/repository"
	portfoliosvc "github.com/makstark/studio-web/internal/portfolio/service"
	"github.com/makstark/studio-web/internal/session"
	"github.com/makstark/studio-web/internal/site"
	"github.com/makstark/studio-web/internal/web"
)

const (
	documentTTL = time.Hour
	minLockTTL  = 30 * time.Second
)

type RouterDeps struct {
	ServiceName string
	Version     string
	Config      *config.Config
	Log         *logrus.Logger
	Redis       *redis.Client
	// Store is nil when no data store is configured.
	Store   *datastore.Store
	Catalog *content.Catalog
}

// App is the wired HTTP surface plus the background pieces main runs.
type App struct {
	Router *gin.Engine
	Hub    *portfoliosvc.Hub
}

func BuildRouter(dep RouterDeps) (*App, error) {
	cfg, log, rdb := dep.Config, dep.Log, dep.Redis

	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}

	api := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, backend.WithUploadRate(cfg.Backend.UploadRatePerMin))
	sessions := session.NewManager(rdb, cfg.Session.TTL, cfg.Session.CookieSecure)
	docs := documents.NewRegistry(rdb, documentTTL)

	// wizard locks outlive the slowest backend call they guard
	lockTTL := cfg.Backend.Timeout + 5*time.Second
	if lockTTL < minLockTTL {
		lockTTL = minLockTTL
	}
	locker := redislock.New(rdb)

	entryOpts := []entrysvc.Option{entrysvc.WithGuard(session.NewGuard(locker, "entry", lockTTL, log))}
	if cfg.Store.RecordProjects && dep.Store != nil {
		entryOpts = append(entryOpts, entrysvc.WithRecorder(dep.Store))
	}
	entryService := entrysvc.NewWizardService(entryrepo.NewWizardRepository(rdb, cfg.Session.TTL), api, docs, log, entryOpts...)
	offerService := offersvc.NewOfferService(offerrepo.NewWizardRepository(rdb, cfg.Session.TTL), api, docs, log,
		offersvc.WithGuard(session.NewGuard(locker, "offer", lockTTL, log)))

	cardRepo := portfoliorepo.NewCardRepository(rdb, cfg.Session.TTL)
	cardService := portfoliosvc.NewCardService(cardRepo, api, dep.Catalog.CardCategories, log)
	hub := portfoliosvc.NewHub(cardRepo, log)

	sessions.OnTeardown(docs.ReleaseAll)
	sessions.OnTeardown(entryService.Teardown)
	sessions.OnTeardown(offerService.Teardown)
	sessions.OnTeardown(cardService.Teardown)

	siteHandler := site.New(dep.Catalog, api, sessions, cardService, log)
	var probe httpapi.StoreProbe
	if dep.Store != nil {
		siteHandler.WithStore(dep.Store)
		probe = dep.Store
	}
	portfolioHandler := portfoliohttp.New(cardService, hub, dep.Catalog, log)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestIDMiddleware(log))
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", web.Static())

	httpapi.NewHealthHandler(dep.ServiceName, dep.Version, rdb, probe).RegisterRoutes(r)
	routes.RegisterAPI(r, routes.APIDeps{
		CORSOrigins: cfg.Server.CORSOrigins,
		Registrars:  []routes.Registrar{portfolioHandler},
	})

	pages := r.Group("", sessions.Middleware(log))
	siteHandler.RegisterPublic(pages)
	portfolioHandler.RegisterPublic(pages)

	dash := pages.Group("/dashboard", session.RequireAuth("/login"), siteHandler.Shell())
	siteHandler.RegisterDashboard(dash)
	entryhttp.New(entryService, dep.Catalog, log).Register(dash.Group("/new-entry"))
	portfolioHandler.RegisterDashboard(dash.Group("/portfolio-upload"))
	offerhttp.New(offerService, dep.Catalog, log).Register(dash.Group("/offer-letter"))
	docshttp.New(docs, log).Register(dash)

	r.NoRoute(siteHandler.NotFound)

	log.WithFields(logrus.Fields{
		"backend":   cfg.Backend.BaseURL,
		"datastore": dep.Store != nil,
		"routes":    len(r.Routes()),
	}).Info("router built")
	return &App{Router: r, Hub: hub}, nil
}
