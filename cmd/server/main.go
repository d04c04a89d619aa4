package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/omamori-api/internal/account"
	"github.com/iliyamo/omamori-api/internal/charm"
	"github.com/iliyamo/omamori-api/internal/config"
	"github.com/iliyamo/omamori-api/internal/database"
	"github.com/iliyamo/omamori-api/internal/handler"
	"github.com/iliyamo/omamori-api/internal/logging"
	"github.com/iliyamo/omamori-api/internal/metrics"
	"github.com/iliyamo/omamori-api/internal/middleware"
	"github.com/iliyamo/omamori-api/internal/queue"
	"github.com/iliyamo/omamori-api/internal/repository"
	"github.com/iliyamo/omamori-api/internal/router"
	"github.com/iliyamo/omamori-api/internal/token"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	tokens := token.NewService(cfg.TokenSecret)

	var events charm.EventPublisher
	if cfg.EventsEnabled {
		events = queue.NewPublisher(cfg.RabbitMQURL, log)
		go func() {
			if err := queue.StartPublishedConsumer(ctx, cfg.RabbitMQURL, log); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("charm.published consumer stopped")
			}
		}()
	}

	accounts := account.NewService(repository.NewAccountRepo(db), tokens, cfg.TokenTTL, cfg.BcryptCost)
	charms := charm.NewService(repository.NewCharmRepo(db), tokens, events, m, log)

	d := router.NewDispatcher(log, cfg.Debug)
	router.RegisterActions(d, handler.NewAccountHandler(accounts), handler.NewCharmHandler(charms))

	rl := config.LoadRateLimitConfig()
	rdb := config.RateLimitRedis(rl)
	if rdb != nil {
		defer rdb.Close()
	}

	e, unresolved := router.NewServer(d, router.Routes(m.Handler()),
		middleware.Metrics(m),
		middleware.RequestLogger(log),
		echomw.Recover(),
		middleware.RateLimit(rl, rdb, log),
	)
	if len(unresolved) > 0 {
		log.WithField("actions", unresolved).Warn("routes mounted with unresolved actions")
	}

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
