package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/config"
	"bitbucket.org/mmdatafocus/tradebooks/remotestore"
	"github.com/sirupsen/logrus"
)

func main() {
	settings := config.LoadServerSettings()
	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Listen before the database is up; until migrations finish every route answers 503,
	// which devices treat as transient.
	ready := &gate{}
	srv := &http.Server{Addr: ":" + settings.Port, Handler: ready}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry(sigCtx, settings.RedisAddress)

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	opts := []remotestore.Option{}
	if rdb := config.GetRedisDB(); rdb != nil {
		opts = append(opts, remotestore.WithRedis(rdb), remotestore.WithLocker(config.GetRedisLock()))
	}
	if settings.PubSubTopic != "" {
		publisher, err := config.NewPubSubPublisher(sigCtx, settings.PubSubTopic)
		if err != nil {
			config.LogError(logger, "main.go", "main", "pubsub publisher", settings.PubSubTopic, err)
		} else {
			defer publisher.Stop()
			opts = append(opts, remotestore.WithPublisher(publisher))
		}
	}
	store := remotestore.New(db, logger, opts...)

	// AutoMigrate can block tables long enough to time requests out; run it as a job instead
	// by setting SKIP_MIGRATIONS=true.
	if !settings.SkipMigrations {
		if err := store.Migrate(); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	ready.open(store.Router(settings))
	logger.WithFields(logrus.Fields{"field": "http", "port": settings.Port}).Info("remote store ready")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
