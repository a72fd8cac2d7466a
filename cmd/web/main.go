package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/makstark/studio-web/config"
	"github.com/makstark/studio-web/internal/bootstrap"
	"github.com/makstark/studio-web/internal/content"
	cronjob "github.com/makstark/studio-web/internal/cron"
	"github.com/makstark/studio-web/internal/datastore"
	"github.com/makstark/studio-web/internal/logger"
)

const (
	serviceName     = "studio-web"
	shutdownTimeout = 30 * time.Second
	probeTimeout    = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := logger.New(cfg.App.LogLevel, os.Stdout)
	log.WithFields(logrus.Fields{"env": cfg.App.Environment, "version": cfg.App.Version}).Info("starting " + serviceName)
	bootstrap.SetGinMode(cfg.App.Environment)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	rdb, err := bootstrap.OpenRedis(sigCtx, cfg.Redis)
	if err != nil {
		log.WithError(err).Fatal("redis unavailable")
	}
	defer rdb.Close()

	var store *datastore.Store
	if cfg.Store.DSN != "" {
		db, err := bootstrap.OpenDB(sigCtx, bootstrap.DBOptions{DSN: cfg.Store.DSN})
		if err != nil {
			// the dashboard falls back to sample stats
			log.WithError(err).Warn("data store unavailable, continuing without it")
		} else {
			defer db.Close()
			store = datastore.New(db)
		}
	}

	catalog, err := content.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load content catalog")
	}

	app, err := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		Config:      cfg,
		Log:         log,
		Redis:       rdb,
		Store:       store,
		Catalog:     catalog,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to build router")
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go func() {
		if err := app.Hub.Run(hubCtx, nil); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("portfolio hub stopped")
		}
	}()

	scheduler := cronjob.NewScheduler(log)
	if store != nil {
		if err := scheduler.AddProbe(cfg.Store.HealthProbeCron, "datastore", probeTimeout, store.CheckConnection); err != nil {
			log.WithError(err).Warn("data store probe not scheduled")
		}
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()
	log.WithField("port", cfg.Server.Port).Info("listening")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server stopped unexpectedly")
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	<-scheduler.Stop().Done()
	stopHub()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("stopped")
}
